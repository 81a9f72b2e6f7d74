package editor

import (
	"fmt"
	"time"

	"github.com/livetemplate/blockdraft"
)

// Options configures a session. Zero values select the production
// defaults: UUID ids, the wall clock, and DefaultHistoryLimit.
type Options struct {
	IDs          blockdraft.IDGenerator
	Now          func() time.Time
	HistoryLimit int
}

func (o Options) withDefaults() Options {
	if o.IDs == nil {
		o.IDs = blockdraft.UUIDGenerator{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Session is one open document: the current template, the block
// selection, and the undo history. A session belongs to a single
// control flow; the server wraps shared sessions in its own lock and
// feeds remote edits through Dispatch sequentially, as if they were
// local.
type Session struct {
	tpl      blockdraft.Template
	selected string
	history  *History
	reducer  Reducer
}

// NewSession opens a deep copy of tpl. Opening records no snapshot:
// history starts empty and the first dispatched action becomes
// snapshot zero, so the pre-open state is never restorable by undo.
func NewSession(tpl blockdraft.Template, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		tpl:     tpl.Clone(),
		history: NewHistory(opts.HistoryLimit),
		reducer: Reducer{IDs: opts.IDs, Now: opts.Now},
	}
}

// NewBlankSession opens a fresh empty document with default global
// styles.
func NewBlankSession(name string, opts Options) *Session {
	opts = opts.withDefaults()
	tpl := blockdraft.NewTemplate(opts.IDs.NewID(), name, opts.Now())
	return NewSession(tpl, opts)
}

// Dispatch applies one action. On success the session installs the new
// document, adjusts the selection, and records exactly one history
// snapshot. On failure the document, selection, and history are all
// left untouched.
func (s *Session) Dispatch(a Action) error {
	res, err := s.reducer.Apply(s.tpl, a)
	if err != nil {
		return err
	}

	s.tpl = res.Template
	if res.Created != "" {
		s.selected = res.Created
	} else {
		s.dropDanglingSelection()
	}
	s.history.Record(s.tpl)
	return nil
}

// Undo reverts the document to the previous snapshot. At the oldest
// snapshot it is a silent no-op and returns false.
func (s *Session) Undo() bool {
	t, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.tpl = t
	s.dropDanglingSelection()
	return true
}

// Redo advances the document to the next snapshot. At the newest
// snapshot it is a silent no-op and returns false.
func (s *Session) Redo() bool {
	t, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.tpl = t
	s.dropDanglingSelection()
	return true
}

// CanUndo reports whether Undo would change the document.
func (s *Session) CanUndo() bool {
	return s.history.CanUndo()
}

// CanRedo reports whether Redo would change the document.
func (s *Session) CanRedo() bool {
	return s.history.CanRedo()
}

// Template returns a deep copy of the current document. Callers can
// render or serialize it freely without touching session state.
func (s *Session) Template() blockdraft.Template {
	return s.tpl.Clone()
}

// Selected returns the id of the selected block, or "" when nothing is
// selected.
func (s *Session) Selected() string {
	return s.selected
}

// Select sets the selection. An empty id clears it; an id not present
// in the document is rejected.
func (s *Session) Select(id string) error {
	if id == "" {
		s.selected = ""
		return nil
	}
	if s.tpl.BlockIndex(id) < 0 {
		return fmt.Errorf("select: block %q not found", id)
	}
	s.selected = id
	return nil
}

// dropDanglingSelection clears the selection if its block is gone from
// the current document (deleted, or replaced wholesale by load/import
// or history navigation).
func (s *Session) dropDanglingSelection() {
	if s.selected != "" && s.tpl.BlockIndex(s.selected) < 0 {
		s.selected = ""
	}
}
