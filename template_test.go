package blockdraft

import (
	"testing"
	"time"
)

// testTime is the fixed clock used by tests that need timestamps.
func testTime() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestNewBlockDefaults(t *testing.T) {
	tests := []struct {
		name        string
		blockType   BlockType
		wantContent string
		wantStyle   map[string]string
		check       func(*testing.T, Block)
	}{
		{
			name:        "header",
			blockType:   BlockHeader,
			wantContent: "Heading",
			wantStyle:   map[string]string{"fontSize": "24px", "textAlign": "center"},
		},
		{
			name:        "text",
			blockType:   BlockText,
			wantContent: "This is a text block. Click to edit and add your own content.",
			wantStyle:   map[string]string{"fontSize": "16px", "textAlign": "left"},
		},
		{
			name:        "image",
			blockType:   BlockImage,
			wantContent: "https://via.placeholder.com/600x200",
			wantStyle:   map[string]string{"width": "100%", "textAlign": "center"},
			check: func(t *testing.T, b Block) {
				if b.AltText == "" {
					t.Errorf("AltText is empty, want placeholder alt text")
				}
				if b.LinkURL != "" {
					t.Errorf("LinkURL = %q, want empty on image block", b.LinkURL)
				}
			},
		},
		{
			name:        "button",
			blockType:   BlockButton,
			wantContent: "Click Me",
			wantStyle:   map[string]string{"borderRadius": "4px", "textAlign": "center"},
			check: func(t *testing.T, b Block) {
				if b.LinkURL != "#" {
					t.Errorf("LinkURL = %q, want %q", b.LinkURL, "#")
				}
				if b.Style["backgroundColor"] == "" {
					t.Errorf("button default style has no backgroundColor")
				}
			},
		},
		{
			name:        "divider",
			blockType:   BlockDivider,
			wantContent: "",
			wantStyle:   map[string]string{"margin": "20px 0"},
		},
		{
			name:        "spacer",
			blockType:   BlockSpacer,
			wantContent: "",
			wantStyle:   map[string]string{"height": "30px"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBlock(tt.blockType, "blk-1")
			if err != nil {
				t.Fatalf("NewBlock(%q) error = %v", tt.blockType, err)
			}
			if b.ID != "blk-1" {
				t.Errorf("ID = %q, want %q", b.ID, "blk-1")
			}
			if b.Type != tt.blockType {
				t.Errorf("Type = %q, want %q", b.Type, tt.blockType)
			}
			if b.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", b.Content, tt.wantContent)
			}
			for k, v := range tt.wantStyle {
				if got := b.Style[k]; got != v {
					t.Errorf("Style[%q] = %q, want %q", k, got, v)
				}
			}
			if tt.check != nil {
				tt.check(t, b)
			}
		})
	}
}

func TestNewBlockUnknownType(t *testing.T) {
	if _, err := NewBlock(BlockType("video"), "blk-1"); err == nil {
		t.Fatal("NewBlock(video) error = nil, want error for unknown type")
	}
}

func TestNewBlockStyleIsCopy(t *testing.T) {
	a, err := NewBlock(BlockHeader, "a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewBlock(BlockHeader, "b")
	if err != nil {
		t.Fatal(err)
	}

	a.Style["fontSize"] = "99px"
	if b.Style["fontSize"] != "24px" {
		t.Errorf("editing one block's style leaked into another: %q", b.Style["fontSize"])
	}
	if DefaultStyle(BlockHeader)["fontSize"] != "24px" {
		t.Errorf("editing a block's style mutated the default table")
	}
}

func TestBlockTypeValid(t *testing.T) {
	for _, bt := range BlockTypes() {
		if !bt.Valid() {
			t.Errorf("%q.Valid() = false, want true", bt)
		}
	}
	for _, bad := range []BlockType{"", "video", "Header", "HEADER"} {
		if bad.Valid() {
			t.Errorf("%q.Valid() = true, want false", bad)
		}
	}
}

func TestPayloadVariants(t *testing.T) {
	img, _ := NewBlock(BlockImage, "img-1")
	img.Content = "https://example.com/pic.png"
	img.AltText = "A picture"
	if p, ok := img.Payload().(ImageContent); !ok {
		t.Fatalf("image Payload() = %T, want ImageContent", img.Payload())
	} else if p.URL != "https://example.com/pic.png" || p.Alt != "A picture" {
		t.Errorf("ImageContent = %+v", p)
	}

	btn, _ := NewBlock(BlockButton, "btn-1")
	if p, ok := btn.Payload().(ButtonContent); !ok {
		t.Fatalf("button Payload() = %T, want ButtonContent", btn.Payload())
	} else if p.Label != "Click Me" || p.LinkURL != "#" {
		t.Errorf("ButtonContent = %+v", p)
	}

	div, _ := NewBlock(BlockDivider, "div-1")
	if _, ok := div.Payload().(DividerContent); !ok {
		t.Fatalf("divider Payload() = %T, want DividerContent", div.Payload())
	}

	// A type that escaped validation degrades to a text view.
	odd := Block{ID: "x", Type: "video", Content: "clip"}
	if p, ok := odd.Payload().(TextContent); !ok || p.Text != "clip" {
		t.Errorf("unknown type Payload() = %#v, want TextContent{clip}", odd.Payload())
	}
}

func TestTemplateClone(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tpl := NewTemplate("tpl-1", "Quote follow-up", now)
	hdr, _ := NewBlock(BlockHeader, "blk-1")
	tpl.Blocks = append(tpl.Blocks, hdr)

	cp := tpl.Clone()
	cp.Blocks[0].Content = "Changed"
	cp.Blocks[0].Style["fontSize"] = "99px"
	cp.Blocks = append(cp.Blocks, Block{ID: "blk-2", Type: BlockText})

	if tpl.Blocks[0].Content != "Heading" {
		t.Errorf("clone content edit leaked: %q", tpl.Blocks[0].Content)
	}
	if tpl.Blocks[0].Style["fontSize"] != "24px" {
		t.Errorf("clone style edit leaked: %q", tpl.Blocks[0].Style["fontSize"])
	}
	if len(tpl.Blocks) != 1 {
		t.Errorf("clone append leaked: len = %d, want 1", len(tpl.Blocks))
	}
}

func TestNewTemplateDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tpl := NewTemplate("tpl-1", "", now)

	if tpl.Name != "Untitled Template" {
		t.Errorf("Name = %q, want %q", tpl.Name, "Untitled Template")
	}
	if len(tpl.Blocks) != 0 {
		t.Errorf("fresh template has %d blocks, want 0", len(tpl.Blocks))
	}
	if tpl.GlobalStyles != DefaultGlobalStyles() {
		t.Errorf("GlobalStyles = %+v, want defaults", tpl.GlobalStyles)
	}
	if !tpl.CreatedAt.Equal(now) || !tpl.UpdatedAt.Equal(now) {
		t.Errorf("timestamps = %v/%v, want %v", tpl.CreatedAt, tpl.UpdatedAt, now)
	}
}

func TestBlockIndex(t *testing.T) {
	tpl := Template{Blocks: []Block{{ID: "a"}, {ID: "b"}, {ID: "c"}}}

	if got := tpl.BlockIndex("b"); got != 1 {
		t.Errorf("BlockIndex(b) = %d, want 1", got)
	}
	if got := tpl.BlockIndex("missing"); got != -1 {
		t.Errorf("BlockIndex(missing) = %d, want -1", got)
	}
}

func TestStyleMerge(t *testing.T) {
	base := Style{"fontSize": "16px", "textAlign": "left"}
	merged := base.Merge(Style{"fontSize": "20px", "padding": "4px"})

	if merged["fontSize"] != "20px" || merged["textAlign"] != "left" || merged["padding"] != "4px" {
		t.Errorf("Merge = %v", merged)
	}
	if base["fontSize"] != "16px" {
		t.Errorf("Merge mutated the receiver: %v", base)
	}
	if len(base) != 2 {
		t.Errorf("Merge grew the receiver: %v", base)
	}
}

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("blk")
	if got := gen.NewID(); got != "blk-1" {
		t.Errorf("first id = %q, want blk-1", got)
	}
	if got := gen.NewID(); got != "blk-2" {
		t.Errorf("second id = %q, want blk-2", got)
	}
}
