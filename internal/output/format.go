package output

import (
	"fmt"
	"io"
	"strings"
)

// Format is an output format name
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat resolves a format name case-insensitively; "yml" is accepted for yaml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "human", "text":
		return FormatHuman, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (want human, json or yaml)", s)
	}
}

// Options controls rendering
type Options struct {
	Format Format
	// Color enables ANSI colors in human output.
	Color bool
}

// Render writes v to w in the requested format. Human output falls back to JSON for types
// without a table layout.
func Render(w io.Writer, v interface{}, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return WriteJSON(w, v)
	case FormatYAML:
		return WriteYAML(w, v)
	case FormatHuman, "":
		return writeHuman(w, v, newPalette(opts.Color))
	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}
}
