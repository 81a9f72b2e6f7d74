package commands

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/livetemplate/blockdraft"
	"github.com/natefinch/atomic"
)

// starterBlocks is the default block sequence for new templates.
var starterBlocks = []blockdraft.BlockType{
	blockdraft.BlockHeader,
	blockdraft.BlockText,
	blockdraft.BlockButton,
}

// NewCommand implements the new command.
func NewCommand(args []string) error {
	flagSet := flag.NewFlagSet("new", flag.ContinueOnError)
	out := flagSet.String("out", "", "Output path (default: derived from the template name)")
	blockList := flagSet.String("blocks", "", "Comma-separated block types for the starter (default: header,text,button)")

	flagSet.Usage = func() {
		fmt.Println("Usage: blockdraft new [options] <name>")
		fmt.Println()
		fmt.Println("Create a starter template file with default blocks.")
		fmt.Println()
		fmt.Println("Options:")
		flagSet.PrintDefaults()
		fmt.Println()
		fmt.Println("Block types:")
		for _, t := range blockdraft.BlockTypes() {
			fmt.Printf("  %-8s %s\n", t, blockdraft.DefaultContent(t))
		}
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  blockdraft new \"Quote Follow-up\"                  # quote-follow-up.json")
		fmt.Println("  blockdraft new Invoice --out=invoices/base.json")
		fmt.Println("  blockdraft new Promo --blocks=header,image,button,divider,text")
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) < 1 {
		return fmt.Errorf("template name required\n\nUsage: blockdraft new [options] <name>\n\nRun 'blockdraft new --help' for more information")
	}
	name := remainingArgs[0]
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("template name cannot be empty")
	}

	blocks := starterBlocks
	if *blockList != "" {
		blocks = nil
		for _, raw := range strings.Split(*blockList, ",") {
			t := blockdraft.BlockType(strings.TrimSpace(raw))
			if !t.Valid() {
				return fmt.Errorf("unknown block type: %s\n\nValid types: %s", raw, joinBlockTypes())
			}
			blocks = append(blocks, t)
		}
	}

	outPath := *out
	if outPath == "" {
		outPath = slugify(name) + ".json"
	}
	if _, err := os.Stat(outPath); err == nil {
		return fmt.Errorf("file already exists: %s", outPath)
	}

	ids := blockdraft.UUIDGenerator{}
	tpl := blockdraft.NewTemplate(ids.NewID(), name, time.Now())
	for _, t := range blocks {
		b, err := blockdraft.NewBlock(t, ids.NewID())
		if err != nil {
			return err
		}
		tpl.Blocks = append(tpl.Blocks, b)
	}

	data, err := blockdraft.Encode(tpl)
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	if err := atomic.WriteFile(outPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	fmt.Printf("✨ Created template %q with %d block(s)\n\n", name, len(tpl.Blocks))
	fmt.Printf("📄 %s\n\n", outPath)
	fmt.Printf("🚀 Next steps:\n")
	fmt.Printf("   blockdraft serve          # edit it in the browser\n")
	fmt.Printf("   blockdraft export %s --format=html\n", outPath)
	return nil
}

func joinBlockTypes() string {
	types := blockdraft.BlockTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// slugify converts a template name to a filename stem.
// Example: "Quote Follow-up" -> "quote-follow-up"
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // Trim leading separators
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "template"
	}
	return slug
}
