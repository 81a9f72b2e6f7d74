// Command blockdraft is the CLI for editing, previewing, and delivering
// block-based message templates.
package main

import (
	"fmt"
	"os"

	"github.com/livetemplate/blockdraft/cmd/blockdraft/commands"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "serve":
		err = commands.ServeCommand(args)
	case "new":
		err = commands.NewCommand(args)
	case "validate":
		err = commands.ValidateCommand(args)
	case "export":
		err = commands.ExportCommand(args)
	case "blocks":
		err = commands.BlocksCommand(args)
	case "vars":
		err = commands.VarsCommand(args)
	case "send":
		err = commands.SendCommand(args)
	case "version":
		fmt.Printf("blockdraft version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("blockdraft - Block-based message templates for quoting teams")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  blockdraft serve [directory]      Start the template editor server")
	fmt.Println("  blockdraft new <name>             Create a starter template")
	fmt.Println("  blockdraft validate <path...>     Validate template files")
	fmt.Println("  blockdraft export <file>          Render a template to HTML or JSON")
	fmt.Println("  blockdraft blocks <file>          Inspect a template's blocks")
	fmt.Println("  blockdraft vars <file>            List variable occurrences")
	fmt.Println("  blockdraft send <file>            Deliver a template via configured sinks")
	fmt.Println("  blockdraft version                Show version")
	fmt.Println("  blockdraft help                   Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  blockdraft serve                        # Serve current directory")
	fmt.Println("  blockdraft serve ./templates --watch    # Serve with live reload")
	fmt.Println("  blockdraft new \"Quote Follow-up\"        # Create quote-follow-up.json")
	fmt.Println("  blockdraft validate templates/          # Validate every template in a directory")
	fmt.Println("  blockdraft export welcome.json --format=html --out=welcome.html")
	fmt.Println("  blockdraft export welcome.json --data=sample.json   # Fill in variables")
	fmt.Println("  blockdraft blocks welcome.json --format=json")
	fmt.Println("  blockdraft blocks welcome.json --filter=type=button")
	fmt.Println("  blockdraft vars welcome.json            # Occurrences in document order")
	fmt.Println("  blockdraft send welcome.json --sink=archive")
	fmt.Println()
	fmt.Println("Documentation: https://github.com/livetemplate/blockdraft")
}
