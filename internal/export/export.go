// Package export turns template documents into deliverable artifacts
// and sends them to configured destinations. Sinks are where finished
// templates go: a file on disk, stdout for piping, an email recipient,
// a webhook endpoint, or a Slack channel.
package export

import (
	"fmt"

	"github.com/livetemplate/blockdraft"
	"github.com/livetemplate/blockdraft/internal/codegen"
)

// Format selects the exported representation of a template.
type Format string

const (
	// FormatJSON is the document itself, suitable for re-import.
	FormatJSON Format = "json"
	// FormatHTML is the portable rendering for third-party mailers.
	FormatHTML Format = "html"
)

// ParseFormat converts a configuration string to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatHTML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported export format: %q (want json or html)", s)
}

// ContentType returns the MIME type for HTTP delivery.
func (f Format) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "application/json"
}

// Ext returns the conventional file extension, without the dot.
func (f Format) Ext() string {
	if f == FormatHTML {
		return "html"
	}
	return "json"
}

// Bytes renders tpl in the given format. JSON output round-trips
// through import unchanged; HTML output is the static export-mode
// rendering with variable tokens left literal.
func Bytes(tpl blockdraft.Template, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return blockdraft.Encode(tpl)
	case FormatHTML:
		return []byte(codegen.Generate(tpl, codegen.Options{Mode: codegen.ModeExport})), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}
