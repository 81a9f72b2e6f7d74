package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/livetemplate/blockdraft"
)

// FileSink writes exported templates to a file. Writes are atomic, so
// a crash mid-export never leaves a half-written artifact behind.
type FileSink struct {
	path   string
	format Format
}

// NewFileSink creates a file sink writing to path.
func NewFileSink(path string, format Format) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("file sink: output path is required")
	}
	return &FileSink{path: path, format: format}, nil
}

// Name returns "file".
func (f *FileSink) Name() string {
	return "file"
}

// Send renders the template and writes it to the configured path,
// creating parent directories as needed.
func (f *FileSink) Send(ctx context.Context, tpl blockdraft.Template) error {
	data, err := Bytes(tpl, f.format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("file sink: failed to create %s: %w", dir, err)
		}
	}

	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("file sink: failed to write %s: %w", f.path, err)
	}
	return nil
}

// Path returns the configured output path.
func (f *FileSink) Path() string {
	return f.path
}

// Close is a no-op for file sinks.
func (f *FileSink) Close() error {
	return nil
}
