package commands

import (
	"fmt"
	"path/filepath"

	"github.com/livetemplate/blockdraft"
	"github.com/livetemplate/blockdraft/internal/config"
)

// VarsCommand implements the vars command: it lists every variable
// occurrence in a template, in document order. A variable used three
// times appears three times.
// Usage: blockdraft vars <file> [--format=table|json|csv] [--filter=field=value] [--limit=N]
func VarsCommand(args []string) error {
	opts, positional := parseListFlags(args)
	if len(positional) < 1 {
		return fmt.Errorf("usage: blockdraft vars <file> [flags]\n\n" +
			"Flags:\n" +
			"  --format=<table|json|csv>  Output format (default: table)\n" +
			"  --filter=<field=value>     Filter rows (field!=value negates)\n" +
			"  --limit=<n>                Show at most n rows\n\n" +
			"Examples:\n" +
			"  blockdraft vars welcome.json\n" +
			"  blockdraft vars welcome.json --format=csv\n" +
			"  blockdraft vars welcome.json --filter=name=customerName")
	}
	path := positional[0]

	tpl, err := loadDocument(path)
	if err != nil {
		return err
	}

	// Sample values come from the workspace config next to the file
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	cfg, err := config.LoadFromDir(filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	sample := cfg.Variables.GetSample()

	var rows []map[string]interface{}
	position := 0
	for _, b := range tpl.Blocks {
		for _, name := range blockdraft.ExtractVariables(b.Content) {
			position++
			row := map[string]interface{}{
				"position":  position,
				"name":      name,
				"blockId":   b.ID,
				"blockType": string(b.Type),
			}
			if v, ok := sample[name]; ok {
				row["sample"] = v
			}
			rows = append(rows, row)
		}
	}

	return outputRows(rows, opts, "position", "name", "blockId", "blockType", "sample")
}
