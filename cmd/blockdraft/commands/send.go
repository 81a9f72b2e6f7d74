package commands

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/livetemplate/blockdraft/internal/config"
	"github.com/livetemplate/blockdraft/internal/export"
)

// SendCommand implements the send command: it delivers a template file
// through the sinks configured in the workspace.
func SendCommand(args []string) error {
	flagSet := flag.NewFlagSet("send", flag.ContinueOnError)
	sinkName := flagSet.String("sink", "", "Deliver through a single named sink (default: all configured sinks)")
	configPath := flagSet.String("config", "", "Config file (default: blockdraft.yaml next to the template)")

	flagSet.Usage = func() {
		fmt.Println("Usage: blockdraft send [options] <file>")
		fmt.Println()
		fmt.Println("Render a template and deliver it through configured sinks")
		fmt.Println("(file, stdout, email, webhook).")
		fmt.Println()
		fmt.Println("Options:")
		flagSet.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  blockdraft send welcome.json                 # all configured sinks")
		fmt.Println("  blockdraft send welcome.json --sink=archive")
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() < 1 {
		return fmt.Errorf("template file required\n\nUsage: blockdraft send [options] <file>")
	}
	input := flagSet.Arg(0)

	tpl, err := loadDocument(input)
	if err != nil {
		return err
	}

	var cfg *config.Config
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		abs, absErr := filepath.Abs(input)
		if absErr != nil {
			return fmt.Errorf("failed to resolve path: %w", absErr)
		}
		cfg, err = config.LoadFromDir(filepath.Dir(abs))
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(cfg.Sinks) == 0 {
		return fmt.Errorf("no sinks configured. Add a sinks section to blockdraft.yaml")
	}

	registry, err := export.RegistryFromConfig(cfg.Sinks)
	if err != nil {
		return fmt.Errorf("failed to build sinks: %w", err)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			log.Printf("warning: failed to close sinks: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if *sinkName != "" {
		sink, ok := registry.Get(*sinkName)
		if !ok {
			names := registry.Names()
			sort.Strings(names)
			return fmt.Errorf("sink %q not found. Available sinks: %s", *sinkName, strings.Join(names, ", "))
		}
		if err := sink.Send(ctx, tpl); err != nil {
			return fmt.Errorf("delivery failed (the template file is untouched): %w", err)
		}
		fmt.Printf("📤 Delivered %q via %s\n", tpl.Name, *sinkName)
		return nil
	}

	if err := registry.SendAll(ctx, tpl); err != nil {
		return fmt.Errorf("delivery failed (the template file is untouched): %w", err)
	}
	fmt.Printf("📤 Delivered %q via %d sink(s)\n", tpl.Name, len(registry.Names()))
	return nil
}
