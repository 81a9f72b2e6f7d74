// Package editor implements the mutation surface over a template
// document: a closed set of actions applied by a pure reducer, with
// selection tracking and bounded undo/redo history layered on top in
// Session.
package editor

import (
	"fmt"
	"time"

	"github.com/livetemplate/blockdraft"
)

// Action is one editing operation. The set is closed: every variant is
// applied by Reducer.Apply and recorded in history exactly once per
// completed dispatch.
type Action interface {
	// Name returns the wire identifier for the action, used in logs
	// and in the JSON envelopes the server routes.
	Name() string

	isAction()
}

// AddBlock inserts a new block of the given type, built from the
// default table, with a freshly generated id. At nil appends at the
// end; out-of-range indexes are clamped. The new block becomes the
// selection.
type AddBlock struct {
	Type blockdraft.BlockType
	At   *int
}

// UpdateBlock merge-patches a block's content fields. Nil fields are
// left untouched. Style is never modified by this action.
type UpdateBlock struct {
	ID      string
	Content *string
	AltText *string
	LinkURL *string
}

// UpdateStyle merge-patches a block's style map and touches nothing
// else.
type UpdateStyle struct {
	ID    string
	Patch blockdraft.Style
}

// DeleteBlock removes a block. Deleting the selected block clears the
// selection.
type DeleteBlock struct {
	ID string
}

// DuplicateBlock clones a block under a fresh id and inserts the copy
// immediately after the source.
type DuplicateBlock struct {
	ID string
}

// Reorder replaces the block order. IDs must be a permutation of the
// current block ids; anything else indicates a caller bug and the
// action is rejected outright.
type Reorder struct {
	IDs []string
}

// Load replaces the document with a deep copy of the given template.
type Load struct {
	Template blockdraft.Template
}

// Import replaces the document with the parsed and structurally
// validated contents of Raw. Rejected bytes leave the document
// untouched. Path appears in error messages and may be empty.
type Import struct {
	Raw  []byte
	Path string
}

func (AddBlock) Name() string       { return "add_block" }
func (UpdateBlock) Name() string    { return "update_block" }
func (UpdateStyle) Name() string    { return "update_style" }
func (DeleteBlock) Name() string    { return "delete_block" }
func (DuplicateBlock) Name() string { return "duplicate_block" }
func (Reorder) Name() string        { return "reorder" }
func (Load) Name() string           { return "load" }
func (Import) Name() string         { return "import" }

func (AddBlock) isAction()       {}
func (UpdateBlock) isAction()    {}
func (UpdateStyle) isAction()    {}
func (DeleteBlock) isAction()    {}
func (DuplicateBlock) isAction() {}
func (Reorder) isAction()        {}
func (Load) isAction()           {}
func (Import) isAction()         {}

// Reducer applies actions to documents. It carries the injected id
// generator and clock so applications are deterministic under test.
type Reducer struct {
	IDs blockdraft.IDGenerator
	Now func() time.Time
}

// Result carries the successor document plus the id of any block the
// action created, so the session can move the selection there.
type Result struct {
	Template blockdraft.Template
	Created  string
}

// Apply computes the successor document for one action. The current
// document is never mutated: every path works on a deep copy, and the
// six block operations refresh UpdatedAt. Load and Import install the
// incoming document's own timestamps. On error the returned Result is
// zero and cur remains the caller's document.
func (r Reducer) Apply(cur blockdraft.Template, a Action) (Result, error) {
	switch act := a.(type) {
	case AddBlock:
		return r.applyAdd(cur, act)
	case UpdateBlock:
		return r.applyUpdate(cur, act)
	case UpdateStyle:
		return r.applyStyle(cur, act)
	case DeleteBlock:
		return r.applyDelete(cur, act)
	case DuplicateBlock:
		return r.applyDuplicate(cur, act)
	case Reorder:
		return r.applyReorder(cur, act)
	case Load:
		return Result{Template: act.Template.Clone()}, nil
	case Import:
		tpl, err := blockdraft.DecodeTemplate(act.Raw, act.Path)
		if err != nil {
			return Result{}, err
		}
		return Result{Template: tpl}, nil
	default:
		return Result{}, fmt.Errorf("unknown action %T", a)
	}
}

func (r Reducer) applyAdd(cur blockdraft.Template, act AddBlock) (Result, error) {
	b, err := blockdraft.NewBlock(act.Type, r.IDs.NewID())
	if err != nil {
		return Result{}, err
	}

	next := cur.Clone()
	idx := len(next.Blocks)
	if act.At != nil {
		idx = *act.At
		if idx < 0 {
			idx = 0
		}
		if idx > len(next.Blocks) {
			idx = len(next.Blocks)
		}
	}
	next.Blocks = insertBlock(next.Blocks, idx, b)
	next.UpdatedAt = r.Now()
	return Result{Template: next, Created: b.ID}, nil
}

func (r Reducer) applyUpdate(cur blockdraft.Template, act UpdateBlock) (Result, error) {
	next := cur.Clone()
	idx := next.BlockIndex(act.ID)
	if idx < 0 {
		return Result{}, fmt.Errorf("update: block %q not found", act.ID)
	}

	b := &next.Blocks[idx]
	if act.Content != nil {
		b.Content = *act.Content
	}
	if act.AltText != nil {
		b.AltText = *act.AltText
	}
	if act.LinkURL != nil {
		b.LinkURL = *act.LinkURL
	}
	next.UpdatedAt = r.Now()
	return Result{Template: next}, nil
}

func (r Reducer) applyStyle(cur blockdraft.Template, act UpdateStyle) (Result, error) {
	next := cur.Clone()
	idx := next.BlockIndex(act.ID)
	if idx < 0 {
		return Result{}, fmt.Errorf("style: block %q not found", act.ID)
	}

	next.Blocks[idx].Style = next.Blocks[idx].Style.Merge(act.Patch)
	next.UpdatedAt = r.Now()
	return Result{Template: next}, nil
}

func (r Reducer) applyDelete(cur blockdraft.Template, act DeleteBlock) (Result, error) {
	next := cur.Clone()
	idx := next.BlockIndex(act.ID)
	if idx < 0 {
		return Result{}, fmt.Errorf("delete: block %q not found", act.ID)
	}

	next.Blocks = append(next.Blocks[:idx], next.Blocks[idx+1:]...)
	next.UpdatedAt = r.Now()
	return Result{Template: next}, nil
}

func (r Reducer) applyDuplicate(cur blockdraft.Template, act DuplicateBlock) (Result, error) {
	next := cur.Clone()
	idx := next.BlockIndex(act.ID)
	if idx < 0 {
		return Result{}, fmt.Errorf("duplicate: block %q not found", act.ID)
	}

	cp := next.Blocks[idx].Clone()
	cp.ID = r.IDs.NewID()
	next.Blocks = insertBlock(next.Blocks, idx+1, cp)
	next.UpdatedAt = r.Now()
	return Result{Template: next, Created: cp.ID}, nil
}

func (r Reducer) applyReorder(cur blockdraft.Template, act Reorder) (Result, error) {
	if len(act.IDs) != len(cur.Blocks) {
		return Result{}, fmt.Errorf("reorder: got %d ids for %d blocks", len(act.IDs), len(cur.Blocks))
	}

	byID := make(map[string]blockdraft.Block, len(cur.Blocks))
	for _, b := range cur.Blocks {
		byID[b.ID] = b
	}

	next := cur.Clone()
	blocks := make([]blockdraft.Block, 0, len(act.IDs))
	for _, id := range act.IDs {
		b, ok := byID[id]
		if !ok {
			return Result{}, fmt.Errorf("reorder: ids are not a permutation of the current blocks")
		}
		delete(byID, id)
		blocks = append(blocks, b.Clone())
	}

	next.Blocks = blocks
	next.UpdatedAt = r.Now()
	return Result{Template: next}, nil
}

// insertBlock returns blocks with b inserted at idx. idx must already
// be clamped to [0, len(blocks)].
func insertBlock(blocks []blockdraft.Block, idx int, b blockdraft.Block) []blockdraft.Block {
	out := make([]blockdraft.Block, 0, len(blocks)+1)
	out = append(out, blocks[:idx]...)
	out = append(out, b)
	out = append(out, blocks[idx:]...)
	return out
}
