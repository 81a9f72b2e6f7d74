package blockdraft

import "fmt"

// BlockType identifies one of the six built-in block variants. The set is
// closed: the import gate rejects anything else and the generator's
// per-type dispatch covers exactly these.
type BlockType string

const (
	BlockHeader  BlockType = "header"
	BlockText    BlockType = "text"
	BlockImage   BlockType = "image"
	BlockButton  BlockType = "button"
	BlockDivider BlockType = "divider"
	BlockSpacer  BlockType = "spacer"
)

// BlockTypes returns every valid block type in palette order.
func BlockTypes() []BlockType {
	return []BlockType{BlockHeader, BlockText, BlockImage, BlockButton, BlockDivider, BlockSpacer}
}

// Valid reports whether t is one of the built-in block types.
func (t BlockType) Valid() bool {
	switch t {
	case BlockHeader, BlockText, BlockImage, BlockButton, BlockDivider, BlockSpacer:
		return true
	}
	return false
}

// Style is a sparse map of presentational attributes with camelCase keys
// (backgroundColor, textColor, fontSize, fontFamily, padding, margin,
// textAlign, borderRadius, width, height). Any key may be absent; absent
// keys fall back to the block type's defaults at generation time.
type Style map[string]string

// Clone returns an independent copy of the style map. Cloning a nil style
// yields an empty, non-nil map.
func (s Style) Clone() Style {
	out := make(Style, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a copy of s overlaid with every key in patch. Neither
// input is modified.
func (s Style) Merge(patch Style) Style {
	out := s.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Block is one content unit of a Template. Content semantics depend on
// Type: display text for header/text/button blocks, the image URL for
// image blocks. AltText is meaningful only on image blocks and LinkURL
// only on button blocks; use Payload for a typed view that makes the
// irrelevant fields unreachable.
type Block struct {
	ID      string    `json:"id"`
	Type    BlockType `json:"type"`
	Content string    `json:"content"`
	Style   Style     `json:"style"`
	AltText string    `json:"altText,omitempty"`
	LinkURL string    `json:"linkUrl,omitempty"`
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	b.Style = b.Style.Clone()
	return b
}

// BlockContent is the typed view of a block's payload. Exactly one
// variant exists per BlockType, so a type switch over the variants
// covers every block a well-formed Template can hold.
type BlockContent interface {
	blockContent()
}

// HeaderContent is the payload view of a header block.
type HeaderContent struct{ Text string }

// TextContent is the payload view of a text block.
type TextContent struct{ Text string }

// ImageContent is the payload view of an image block.
type ImageContent struct {
	URL string
	Alt string
}

// ButtonContent is the payload view of a button block. LinkURL may be
// empty, in which case the button renders as a plain button element
// rather than an anchor.
type ButtonContent struct {
	Label   string
	LinkURL string
}

// DividerContent is the payload view of a divider block.
type DividerContent struct{}

// SpacerContent is the payload view of a spacer block. Its height lives
// in the block style (falling back to the spacer default).
type SpacerContent struct{}

func (HeaderContent) blockContent()  {}
func (TextContent) blockContent()    {}
func (ImageContent) blockContent()   {}
func (ButtonContent) blockContent()  {}
func (DividerContent) blockContent() {}
func (SpacerContent) blockContent()  {}

// Payload returns the typed view for the block's declared type. A block
// whose type somehow escaped validation degrades to a text view so that
// rendering never fails.
func (b Block) Payload() BlockContent {
	switch b.Type {
	case BlockHeader:
		return HeaderContent{Text: b.Content}
	case BlockText:
		return TextContent{Text: b.Content}
	case BlockImage:
		return ImageContent{URL: b.Content, Alt: b.AltText}
	case BlockButton:
		return ButtonContent{Label: b.Content, LinkURL: b.LinkURL}
	case BlockDivider:
		return DividerContent{}
	case BlockSpacer:
		return SpacerContent{}
	default:
		return TextContent{Text: b.Content}
	}
}

const (
	defaultImageAlt   = "Placeholder image"
	defaultButtonLink = "#"
)

// defaultContents is the per-type content applied when a block is created.
var defaultContents = map[BlockType]string{
	BlockHeader:  "Heading",
	BlockText:    "This is a text block. Click to edit and add your own content.",
	BlockImage:   "https://via.placeholder.com/600x200",
	BlockButton:  "Click Me",
	BlockDivider: "",
	BlockSpacer:  "",
}

// defaultStyles is the per-type style table. Creation seeds a copy into
// the new block; generation falls back to it for keys a block's own
// style does not carry.
var defaultStyles = map[BlockType]Style{
	BlockHeader: {
		"fontSize":  "24px",
		"textAlign": "center",
		"textColor": "#333333",
		"padding":   "10px 0",
	},
	BlockText: {
		"fontSize":  "16px",
		"textAlign": "left",
		"textColor": "#555555",
		"padding":   "10px 0",
	},
	BlockImage: {
		"width":     "100%",
		"textAlign": "center",
		"padding":   "10px 0",
	},
	BlockButton: {
		"backgroundColor": "#2d7ff9",
		"textColor":       "#ffffff",
		"fontSize":        "16px",
		"padding":         "12px 24px",
		"borderRadius":    "4px",
		"textAlign":       "center",
	},
	BlockDivider: {
		"margin": "20px 0",
	},
	BlockSpacer: {
		"height": "30px",
	},
}

// DefaultContent returns the default content for a block type.
func DefaultContent(t BlockType) string {
	return defaultContents[t]
}

// DefaultStyle returns a copy of the default style for a block type.
func DefaultStyle(t BlockType) Style {
	return defaultStyles[t].Clone()
}

// NewBlock builds a block of the given type from the default table,
// including the type-specific extras (placeholder alt text for images,
// "#" link for buttons). Types outside the built-in set are refused.
func NewBlock(t BlockType, id string) (Block, error) {
	if !t.Valid() {
		return Block{}, fmt.Errorf("unknown block type %q", t)
	}
	b := Block{
		ID:      id,
		Type:    t,
		Content: defaultContents[t],
		Style:   defaultStyles[t].Clone(),
	}
	switch t {
	case BlockImage:
		b.AltText = defaultImageAlt
	case BlockButton:
		b.LinkURL = defaultButtonLink
	}
	return b, nil
}
