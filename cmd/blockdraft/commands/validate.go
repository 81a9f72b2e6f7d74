package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/livetemplate/blockdraft"
)

// ValidateCommand implements the validate command. Each argument may be
// a template file or a directory to scan recursively.
func ValidateCommand(args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return fmt.Errorf("path does not exist: %s", arg)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		found, err := collectTemplateFiles(arg)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}

	if len(files) == 0 {
		fmt.Println("No template files found.")
		return nil
	}

	ids := blockdraft.UUIDGenerator{}
	failed := 0
	for _, f := range files {
		if _, err := blockdraft.Open(f, ids, time.Now()); err != nil {
			failed++
			var ie *blockdraft.ImportError
			if errors.As(err, &ie) {
				fmt.Println(ie.Format())
			} else {
				fmt.Printf("❌ Error in %s\n\n%v\n\n", f, err)
			}
			continue
		}
		fmt.Printf("✓ %s\n", f)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed validation", failed, len(files))
	}
	fmt.Printf("\nAll %d file(s) valid.\n", len(files))
	return nil
}

// collectTemplateFiles walks dir for .json and .md template files,
// skipping hidden and underscore-prefixed directories like workspace
// discovery does.
func collectTemplateFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p == dir {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".json", ".md", ".markdown":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return files, nil
}
