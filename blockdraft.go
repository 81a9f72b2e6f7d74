// Package blockdraft implements the template document engine behind a
// block-based message-template editor: a fixed-vocabulary block model
// (header/text/image/button/divider/spacer), symbolic {{variable}}
// interpolation, and a structural gate for untrusted imports. Editing,
// history, HTML generation, storage, and serving live in the internal
// packages and cmd/blockdraft.
package blockdraft

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Open reads a template document from disk. JSON files pass through the
// structural import gate; .md files go through the markdown importer.
func Open(path string, ids IDGenerator, now time.Time) (Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read template: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return DecodeMarkdown(raw, path, ids, now)
	default:
		return DecodeTemplate(raw, path)
	}
}

// Encode serializes a template to the interchange JSON shape shared by
// save, export, and import.
func Encode(t Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}
