package editor

import "github.com/livetemplate/blockdraft"

// DefaultHistoryLimit is the number of snapshots retained when no
// explicit limit is configured.
const DefaultHistoryLimit = 50

// History is a bounded list of full document snapshots with a cursor.
// Snapshots are deep copies taken after each completed operation, so
// undoing restores the previous post-operation state bit for bit. The
// full-copy approach is a deliberate simplicity/memory tradeoff: with
// at most 50 snapshots of modest documents, diffing buys nothing.
type History struct {
	snaps []blockdraft.Template
	pos   int // index of the current snapshot, -1 before the first Record
	limit int
}

// NewHistory creates an empty history. limit <= 0 selects
// DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		snaps: make([]blockdraft.Template, 0, limit),
		pos:   -1,
		limit: limit,
	}
}

// Record stores a deep copy of t as the newest snapshot. Snapshots
// beyond the cursor (the redo branch) are discarded first, and when
// the list outgrows the limit the oldest snapshots are dropped, with
// the cursor kept valid relative to the retained window.
func (h *History) Record(t blockdraft.Template) {
	h.snaps = append(h.snaps[:h.pos+1], t.Clone())
	h.pos++
	if over := len(h.snaps) - h.limit; over > 0 {
		h.snaps = h.snaps[over:]
		h.pos -= over
	}
}

// Undo steps the cursor back one snapshot and returns a deep copy of
// it. At the oldest snapshot, or before anything was recorded, it
// returns ok=false and moves nothing: out-of-range navigation is a
// silent no-op, not an error.
func (h *History) Undo() (blockdraft.Template, bool) {
	if h.pos <= 0 {
		return blockdraft.Template{}, false
	}
	h.pos--
	return h.snaps[h.pos].Clone(), true
}

// Redo steps the cursor forward one snapshot and returns a deep copy
// of it, or ok=false at the newest snapshot.
func (h *History) Redo() (blockdraft.Template, bool) {
	if h.pos >= len(h.snaps)-1 {
		return blockdraft.Template{}, false
	}
	h.pos++
	return h.snaps[h.pos].Clone(), true
}

// CanUndo reports whether a snapshot exists behind the cursor.
func (h *History) CanUndo() bool {
	return h.pos > 0
}

// CanRedo reports whether a snapshot exists past the cursor.
func (h *History) CanRedo() bool {
	return h.pos < len(h.snaps)-1
}

// Len returns the number of retained snapshots.
func (h *History) Len() int {
	return len(h.snaps)
}

// Pos returns the cursor position, -1 before the first Record.
func (h *History) Pos() int {
	return h.pos
}
