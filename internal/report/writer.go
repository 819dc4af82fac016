// internal/report/writer.go
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Output formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// Writer renders a finalized summary.
type Writer interface {
	Write(w io.Writer, s Summary) error
}

// WriterOptions carries what some formats need beyond the summary.
type WriterOptions struct {
	ToolVersion string
	NoColor     bool
	Verbose     bool
}

// NewWriter returns the writer for format.
func NewWriter(format string, opts WriterOptions, logger *zap.Logger) (Writer, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return NewConsoleWriter(opts.NoColor, opts.Verbose), nil
	case FormatJSON:
		return NewJSONWriter(), nil
	case FormatSARIF:
		return NewSARIFWriter(opts.ToolVersion, logger), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// nopWriteCloser keeps Close from closing stdout.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Open returns the destination for a report. Empty or "stdout" means standard output.
func Open(path string) (io.WriteCloser, bool, error) {
	if path == "" || path == "stdout" {
		return nopWriteCloser{os.Stdout}, true, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return f, false, nil
}
