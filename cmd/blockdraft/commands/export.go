package commands

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/livetemplate/blockdraft"
	"github.com/livetemplate/blockdraft/internal/codegen"
	"github.com/livetemplate/blockdraft/internal/export"
)

// ExportCommand implements the export command.
func ExportCommand(args []string) error {
	flagSet := flag.NewFlagSet("export", flag.ContinueOnError)
	format := flagSet.String("format", "html", "Output format: html or json")
	out := flagSet.String("out", "", "Output path (default: input name with the format's extension)")
	dataPath := flagSet.String("data", "", "JSON file of variable values to substitute")
	theme := flagSet.String("theme", "", "Render an interactive preview with this theme (light, dark, auto) instead of a portable document")

	flagSet.Usage = func() {
		fmt.Println("Usage: blockdraft export [options] <file>")
		fmt.Println()
		fmt.Println("Render a template file to a standalone artifact.")
		fmt.Println()
		fmt.Println("Options:")
		flagSet.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  blockdraft export welcome.json                      # welcome.html")
		fmt.Println("  blockdraft export welcome.json --format=json --out=backup.json")
		fmt.Println("  blockdraft export welcome.json --data=sample.json   # fill in {{variables}}")
		fmt.Println("  blockdraft export notes.md --theme=dark             # preview-style document")
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() < 1 {
		return fmt.Errorf("template file required\n\nUsage: blockdraft export [options] <file>")
	}
	input := flagSet.Arg(0)

	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}

	tpl, err := loadDocument(input)
	if err != nil {
		return err
	}

	var data map[string]string
	if *dataPath != "" {
		raw, err := os.ReadFile(*dataPath)
		if err != nil {
			return fmt.Errorf("failed to read data file: %w", err)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("data file must be a JSON object of string values: %w", err)
		}
	}

	var artifact []byte
	switch f {
	case export.FormatJSON:
		artifact, err = blockdraft.Encode(tpl)
		if err != nil {
			return fmt.Errorf("failed to encode template: %w", err)
		}
	case export.FormatHTML:
		opts := codegen.Options{Mode: codegen.ModeExport, Data: data}
		if *theme != "" {
			switch *theme {
			case "light", "dark", "auto":
			default:
				return fmt.Errorf("invalid theme: %s (valid: light, dark, auto)", *theme)
			}
			opts.Mode = codegen.ModePreview
			opts.Theme = codegen.Theme(*theme)
		}
		artifact = []byte(codegen.Generate(tpl, opts))
	}

	outPath := *out
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		outPath = base + f.Ext()
	}
	if samePath(input, outPath) {
		return fmt.Errorf("output %s would overwrite the input; use --out", outPath)
	}

	if err := atomic.WriteFile(outPath, bytes.NewReader(artifact)); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	fmt.Printf("✅ Exported %s → %s (%d bytes)\n", input, outPath, len(artifact))
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
