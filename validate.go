package blockdraft

import "encoding/json"

// ValidateStructure reports whether data has the shape of a template
// document: string id and name, an array of blocks, and a globalStyles
// object, where every block carries a string id, a type from the
// built-in set, string content, and a style object.
//
// This is a boundary type-guard over untrusted input: it answers yes or
// no and deliberately does not report which field failed. Semantic
// validation (dangling variables, style plausibility) belongs to the
// editing surface, not this gate.
func ValidateStructure(data map[string]interface{}) bool {
	if data == nil {
		return false
	}
	if _, ok := data["id"].(string); !ok {
		return false
	}
	if _, ok := data["name"].(string); !ok {
		return false
	}
	blocks, ok := data["blocks"].([]interface{})
	if !ok {
		return false
	}
	if _, ok := data["globalStyles"].(map[string]interface{}); !ok {
		return false
	}
	for _, raw := range blocks {
		blk, ok := raw.(map[string]interface{})
		if !ok {
			return false
		}
		if _, ok := blk["id"].(string); !ok {
			return false
		}
		typ, ok := blk["type"].(string)
		if !ok || !BlockType(typ).Valid() {
			return false
		}
		if _, ok := blk["content"].(string); !ok {
			return false
		}
		if _, ok := blk["style"].(map[string]interface{}); !ok {
			return false
		}
	}
	return true
}

// DecodeTemplate parses raw bytes as a template document, gating them
// through ValidateStructure before decoding. On any failure it returns
// an *ImportError and no template, so callers keep their current
// document untouched. path appears in error messages and may be empty
// for in-memory imports.
func DecodeTemplate(raw []byte, path string) (Template, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return Template{}, newParseFailure(path, err)
	}
	if !ValidateStructure(data) {
		return Template{}, newInvalidFormat(path)
	}
	var tpl Template
	if err := json.Unmarshal(raw, &tpl); err != nil {
		// The structural checks passed but a field (typically a
		// timestamp) does not fit its concrete shape.
		return Template{}, newInvalidFormat(path).WithCause(err)
	}
	return tpl.normalize(), nil
}

// normalize backfills the invariants the structural gate does not
// police: GlobalStyles is always fully populated, and block lists and
// style maps are never nil.
func (t Template) normalize() Template {
	def := DefaultGlobalStyles()
	if t.GlobalStyles.BackgroundColor == "" {
		t.GlobalStyles.BackgroundColor = def.BackgroundColor
	}
	if t.GlobalStyles.FontFamily == "" {
		t.GlobalStyles.FontFamily = def.FontFamily
	}
	if t.GlobalStyles.MaxWidth == "" {
		t.GlobalStyles.MaxWidth = def.MaxWidth
	}
	if t.Blocks == nil {
		t.Blocks = []Block{}
	}
	for i := range t.Blocks {
		if t.Blocks[i].Style == nil {
			t.Blocks[i].Style = Style{}
		}
	}
	return t
}
