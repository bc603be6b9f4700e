package output

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"

	"github.com/dshills/lens/internal/review"
)

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "markdown"}

// Writer writes review results in a specific format. Several results are
// written in order, one per reviewed commit.
type Writer interface {
	Write(w io.Writer, results ...*review.Result) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteResults writes results to the specified output (file path or stdout).
// Markdown written to a terminal is rendered for display.
func WriteResults(results []*review.Result, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		return writer.Write(f, results...)
	}

	if _, ok := writer.(*MarkdownWriter); ok && isTerminal(os.Stdout) {
		var buf bytes.Buffer
		if err := writer.Write(&buf, results...); err != nil {
			return err
		}
		return RenderTerminal(os.Stdout, buf.String(), 100)
	}
	return writer.Write(os.Stdout, results...)
}

// RenderTerminal renders markdown for an ANSI terminal. If rendering fails
// the markdown is written unchanged.
func RenderTerminal(w io.Writer, markdown string, width int) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err == nil {
		if out, rerr := r.Render(markdown); rerr == nil {
			markdown = out
		}
	}
	_, err = io.WriteString(w, markdown)
	return err
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
