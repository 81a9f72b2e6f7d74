package blockdraft

import "time"

// GlobalStyles holds the document-wide presentation settings. A Template
// always carries a fully populated GlobalStyles, never a partial one.
type GlobalStyles struct {
	BackgroundColor string `json:"backgroundColor"`
	FontFamily      string `json:"fontFamily"`
	MaxWidth        string `json:"maxWidth"`
}

// DefaultGlobalStyles returns the settings a fresh document starts with.
func DefaultGlobalStyles() GlobalStyles {
	return GlobalStyles{
		BackgroundColor: "#f4f4f4",
		FontFamily:      "Arial, Helvetica, sans-serif",
		MaxWidth:        "600px",
	}
}

// Template is the root document: an ordered list of blocks plus global
// presentation settings. Block order is render order, and block ids are
// unique within a template. Templates are treated as values: every
// mutation path produces a new Template and refreshes UpdatedAt.
type Template struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Blocks       []Block      `json:"blocks"`
	GlobalStyles GlobalStyles `json:"globalStyles"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// NewTemplate creates an empty document with default global styles.
func NewTemplate(id, name string, now time.Time) Template {
	if name == "" {
		name = "Untitled Template"
	}
	return Template{
		ID:           id,
		Name:         name,
		Blocks:       []Block{},
		GlobalStyles: DefaultGlobalStyles(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy of the template. Mutating the copy's block
// list or style maps never affects the original.
func (t Template) Clone() Template {
	blocks := make([]Block, len(t.Blocks))
	for i, b := range t.Blocks {
		blocks[i] = b.Clone()
	}
	t.Blocks = blocks
	return t
}

// BlockIndex returns the position of the block with the given id, or -1
// if no such block exists.
func (t Template) BlockIndex(id string) int {
	for i, b := range t.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// BlockIDs returns the ids of all blocks in document order.
func (t Template) BlockIDs() []string {
	ids := make([]string, len(t.Blocks))
	for i, b := range t.Blocks {
		ids[i] = b.ID
	}
	return ids
}
