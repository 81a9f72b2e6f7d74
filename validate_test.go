package blockdraft

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func mustDecodeMap(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("test payload is not valid JSON: %v", err)
	}
	return data
}

func TestValidateStructure(t *testing.T) {
	valid := `{
		"id": "tpl-1",
		"name": "Welcome",
		"blocks": [
			{"id": "b1", "type": "header", "content": "Hi", "style": {"fontSize": "24px"}},
			{"id": "b2", "type": "button", "content": "Go", "style": {}, "linkUrl": "https://example.com"}
		],
		"globalStyles": {"backgroundColor": "#fff", "fontFamily": "Arial", "maxWidth": "600px"}
	}`

	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{name: "valid document", payload: valid, want: true},
		{name: "empty blocks array", payload: `{"id":"t","name":"n","blocks":[],"globalStyles":{}}`, want: true},
		{name: "missing blocks", payload: `{"id":"t","name":"n","globalStyles":{}}`, want: false},
		{name: "blocks is a string", payload: `{"id":"t","name":"n","blocks":"oops","globalStyles":{}}`, want: false},
		{name: "missing id", payload: `{"name":"n","blocks":[],"globalStyles":{}}`, want: false},
		{name: "numeric id", payload: `{"id":7,"name":"n","blocks":[],"globalStyles":{}}`, want: false},
		{name: "missing name", payload: `{"id":"t","blocks":[],"globalStyles":{}}`, want: false},
		{name: "globalStyles is an array", payload: `{"id":"t","name":"n","blocks":[],"globalStyles":[]}`, want: false},
		{name: "missing globalStyles", payload: `{"id":"t","name":"n","blocks":[]}`, want: false},
		{
			name:    "block with unknown type",
			payload: `{"id":"t","name":"n","blocks":[{"id":"b","type":"unknown","content":"","style":{}}],"globalStyles":{}}`,
			want:    false,
		},
		{
			name:    "block missing content",
			payload: `{"id":"t","name":"n","blocks":[{"id":"b","type":"text","style":{}}],"globalStyles":{}}`,
			want:    false,
		},
		{
			name:    "block style is a string",
			payload: `{"id":"t","name":"n","blocks":[{"id":"b","type":"text","content":"","style":"red"}],"globalStyles":{}}`,
			want:    false,
		},
		{
			name:    "block is not an object",
			payload: `{"id":"t","name":"n","blocks":["b"],"globalStyles":{}}`,
			want:    false,
		},
		{
			name:    "block id is a number",
			payload: `{"id":"t","name":"n","blocks":[{"id":1,"type":"text","content":"","style":{}}],"globalStyles":{}}`,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateStructure(mustDecodeMap(t, tt.payload))
			if got != tt.want {
				t.Errorf("ValidateStructure = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateStructureNil(t *testing.T) {
	if ValidateStructure(nil) {
		t.Error("ValidateStructure(nil) = true, want false")
	}
}

func TestDecodeTemplate(t *testing.T) {
	t.Run("malformed bytes fail with parse message", func(t *testing.T) {
		_, err := DecodeTemplate([]byte("{not json"), "broken.json")
		if err == nil {
			t.Fatal("DecodeTemplate error = nil, want parse failure")
		}
		var ie *ImportError
		if !errors.As(err, &ie) {
			t.Fatalf("error type = %T, want *ImportError", err)
		}
		if ie.Message != MsgParseFailure {
			t.Errorf("Message = %q, want %q", ie.Message, MsgParseFailure)
		}
		if !strings.Contains(err.Error(), "broken.json") {
			t.Errorf("error does not mention the file:\n%s", err.Error())
		}
	})

	t.Run("structurally invalid fails with format message", func(t *testing.T) {
		_, err := DecodeTemplate([]byte(`{"id":"t","name":"n","blocks":"oops","globalStyles":{}}`), "")
		if err == nil {
			t.Fatal("DecodeTemplate error = nil, want format failure")
		}
		var ie *ImportError
		if !errors.As(err, &ie) {
			t.Fatalf("error type = %T, want *ImportError", err)
		}
		if ie.Message != MsgInvalidFormat {
			t.Errorf("Message = %q, want %q", ie.Message, MsgInvalidFormat)
		}
	})

	t.Run("valid document decodes", func(t *testing.T) {
		raw := `{
			"id": "tpl-1",
			"name": "Welcome",
			"blocks": [{"id": "b1", "type": "header", "content": "Hi {{customerName}}", "style": {"fontSize": "30px"}}],
			"globalStyles": {"backgroundColor": "#ffffff", "fontFamily": "Georgia, serif", "maxWidth": "640px"},
			"createdAt": "2026-03-01T12:00:00Z",
			"updatedAt": "2026-03-02T08:30:00Z"
		}`
		tpl, err := DecodeTemplate([]byte(raw), "welcome.json")
		if err != nil {
			t.Fatalf("DecodeTemplate error = %v", err)
		}
		if tpl.ID != "tpl-1" || tpl.Name != "Welcome" {
			t.Errorf("decoded header fields = %q/%q", tpl.ID, tpl.Name)
		}
		if len(tpl.Blocks) != 1 || tpl.Blocks[0].Style["fontSize"] != "30px" {
			t.Errorf("decoded blocks = %+v", tpl.Blocks)
		}
		if tpl.GlobalStyles.MaxWidth != "640px" {
			t.Errorf("MaxWidth = %q, want 640px", tpl.GlobalStyles.MaxWidth)
		}
	})

	t.Run("sparse globalStyles backfilled to full population", func(t *testing.T) {
		raw := `{"id":"t","name":"n","blocks":[],"globalStyles":{"maxWidth":"700px"}}`
		tpl, err := DecodeTemplate([]byte(raw), "")
		if err != nil {
			t.Fatalf("DecodeTemplate error = %v", err)
		}
		if tpl.GlobalStyles.MaxWidth != "700px" {
			t.Errorf("MaxWidth = %q, want the imported 700px", tpl.GlobalStyles.MaxWidth)
		}
		if tpl.GlobalStyles.BackgroundColor == "" || tpl.GlobalStyles.FontFamily == "" {
			t.Errorf("GlobalStyles not fully populated: %+v", tpl.GlobalStyles)
		}
	})

	t.Run("round trip through Encode", func(t *testing.T) {
		tpl := NewTemplate("tpl-9", "Round trip", testTime())
		hdr, _ := NewBlock(BlockHeader, "b1")
		btn, _ := NewBlock(BlockButton, "b2")
		tpl.Blocks = append(tpl.Blocks, hdr, btn)

		raw, err := Encode(tpl)
		if err != nil {
			t.Fatalf("Encode error = %v", err)
		}
		got, err := DecodeTemplate(raw, "")
		if err != nil {
			t.Fatalf("DecodeTemplate error = %v", err)
		}
		if got.Blocks[1].LinkURL != "#" {
			t.Errorf("button linkUrl lost in round trip: %+v", got.Blocks[1])
		}
		if got.Name != "Round trip" || len(got.Blocks) != 2 {
			t.Errorf("round trip mismatch: %+v", got)
		}
	})
}
