package editor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/blockdraft"
)

func namedTemplate(name string) blockdraft.Template {
	tpl := blockdraft.NewTemplate("tpl-1", name, fixedTime())
	return tpl
}

func TestHistoryStartsEmpty(t *testing.T) {
	h := NewHistory(0)

	assert.Equal(t, 0, h.Len())
	assert.Equal(t, -1, h.Pos())
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())

	_, ok := h.Undo()
	assert.False(t, ok)
	_, ok = h.Redo()
	assert.False(t, ok)
}

func TestHistoryUndoRedoRoundTrip(t *testing.T) {
	h := NewHistory(0)
	a := namedTemplate("a")
	b := namedTemplate("b")
	h.Record(a)
	h.Record(b)

	got, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, a, got)

	got, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, b, got, "redo after undo restores the exact snapshot")
	assert.Equal(t, 1, h.Pos())
}

func TestHistoryUndoStopsAtOldest(t *testing.T) {
	h := NewHistory(0)
	h.Record(namedTemplate("only"))

	// The single snapshot is the current state, so there is nothing
	// earlier to return to.
	_, ok := h.Undo()
	assert.False(t, ok)
	assert.Equal(t, 0, h.Pos())
}

func TestHistoryRedoStopsAtNewest(t *testing.T) {
	h := NewHistory(0)
	h.Record(namedTemplate("a"))
	h.Record(namedTemplate("b"))

	_, ok := h.Redo()
	assert.False(t, ok)
	assert.Equal(t, 1, h.Pos())
}

func TestHistoryRecordTruncatesRedoBranch(t *testing.T) {
	h := NewHistory(0)
	h.Record(namedTemplate("a"))
	h.Record(namedTemplate("b"))
	h.Record(namedTemplate("c"))

	_, ok := h.Undo()
	require.True(t, ok)
	_, ok = h.Undo()
	require.True(t, ok)
	require.True(t, h.CanRedo())

	h.Record(namedTemplate("d"))

	assert.Equal(t, 2, h.Len(), "b and c were discarded")
	assert.False(t, h.CanRedo())

	got, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)
}

func TestHistoryCapDropsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Record(namedTemplate(fmt.Sprintf("v%d", i)))
	}

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 2, h.Pos(), "pointer still names the newest snapshot")

	// Walking all the way back lands on v3, the oldest survivor.
	var last blockdraft.Template
	for {
		got, ok := h.Undo()
		if !ok {
			break
		}
		last = got
	}
	assert.Equal(t, "v3", last.Name)
}

func TestHistoryDefaultCap(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < DefaultHistoryLimit+10; i++ {
		h.Record(namedTemplate(fmt.Sprintf("v%d", i)))
	}
	assert.Equal(t, DefaultHistoryLimit, h.Len())
}

func TestHistorySnapshotsAreIsolated(t *testing.T) {
	h := NewHistory(0)
	tpl := namedTemplate("a")
	blk, err := blockdraft.NewBlock(blockdraft.BlockText, "t1")
	require.NoError(t, err)
	tpl.Blocks = append(tpl.Blocks, blk)
	h.Record(tpl)
	h.Record(namedTemplate("b"))

	// Mutating the caller's copy must not reach into the stored snapshot.
	tpl.Blocks[0].Content = "tampered"
	tpl.Blocks[0].Style["margin"] = "99px"

	got, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "This is a text block. Click to edit and add your own content.", got.Blocks[0].Content)
	assert.NotContains(t, got.Blocks[0].Style, "margin")

	// And mutating what Undo handed out must not poison a later Undo.
	got.Blocks[0].Content = "tampered again"
	h.Record(namedTemplate("c"))
	again, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "This is a text block. Click to edit and add your own content.", again.Blocks[0].Content)
}
