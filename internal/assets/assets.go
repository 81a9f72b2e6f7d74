// Package assets embeds the editor shell served by the preview server.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed shell/*
var shellFS embed.FS

// ShellFS returns the embedded shell files.
func ShellFS() fs.FS {
	sub, err := fs.Sub(shellFS, "shell")
	if err != nil {
		panic(err)
	}
	return sub
}

// Shell returns one shell page by name, e.g. "index.html".
func Shell(name string) ([]byte, error) {
	data, err := shellFS.ReadFile("shell/" + name)
	if err != nil {
		return nil, fmt.Errorf("shell page %s: %w", name, err)
	}
	return data, nil
}
