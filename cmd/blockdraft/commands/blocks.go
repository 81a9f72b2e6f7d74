package commands

import (
	"fmt"
	"strings"

	"github.com/livetemplate/blockdraft"
)

// BlocksCommand implements the blocks command: it lists a template's
// blocks in document order.
// Usage: blockdraft blocks <file> [--format=table|json|csv] [--filter=field=value] [--limit=N]
func BlocksCommand(args []string) error {
	opts, positional := parseListFlags(args)
	if len(positional) < 1 {
		return fmt.Errorf("usage: blockdraft blocks <file> [flags]\n\n" +
			"Flags:\n" +
			"  --format=<table|json|csv>  Output format (default: table)\n" +
			"  --filter=<field=value>     Filter rows (field!=value negates)\n" +
			"  --limit=<n>                Show at most n rows\n\n" +
			"Examples:\n" +
			"  blockdraft blocks welcome.json\n" +
			"  blockdraft blocks welcome.json --format=json\n" +
			"  blockdraft blocks welcome.json --filter=type=button\n" +
			"  blockdraft blocks welcome.json --filter=vars!= --limit=5")
	}

	tpl, err := loadDocument(positional[0])
	if err != nil {
		return err
	}

	rows := make([]map[string]interface{}, 0, len(tpl.Blocks))
	for i, b := range tpl.Blocks {
		row := map[string]interface{}{
			"position": i + 1,
			"id":       b.ID,
			"type":     string(b.Type),
			"content":  b.Content,
		}
		if b.AltText != "" {
			row["altText"] = b.AltText
		}
		if b.LinkURL != "" {
			row["linkUrl"] = b.LinkURL
		}
		if vars := blockdraft.ExtractVariables(b.Content); len(vars) > 0 {
			row["vars"] = strings.Join(vars, ",")
		}
		rows = append(rows, row)
	}

	return outputRows(rows, opts, "position", "id", "type", "content")
}
