package export

import (
	"context"
	"io"
	"os"

	"github.com/livetemplate/blockdraft"
)

// StdoutSink writes exported templates to standard output, for piping
// into other tools.
type StdoutSink struct {
	out    io.Writer
	format Format
}

// NewStdoutSink creates a sink writing to os.Stdout.
func NewStdoutSink(format Format) *StdoutSink {
	return &StdoutSink{out: os.Stdout, format: format}
}

// Name returns "stdout".
func (s *StdoutSink) Name() string {
	return "stdout"
}

// Send renders the template and writes it, followed by a newline.
func (s *StdoutSink) Send(ctx context.Context, tpl blockdraft.Template) error {
	data, err := Bytes(tpl, s.format)
	if err != nil {
		return err
	}
	if _, err := s.out.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(s.out, "\n")
	return err
}

// Close is a no-op for stdout sinks.
func (s *StdoutSink) Close() error {
	return nil
}
