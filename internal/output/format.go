// Package output renders command results, errors and QR codes for the
// satvault CLI in text or JSON form.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format represents the output format.
type Format string

// Output format constants.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter writes command results in one format. JSON output is the view
// struct itself, indented, so scripts read the same fields the text form
// shows.
type Formatter struct {
	format Format
	writer io.Writer
}

// NewFormatter creates a formatter writing format to w.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: w,
	}
}

// Format returns the current output format.
func (f *Formatter) Format() Format {
	return f.format
}

// IsJSON returns true if the formatter outputs JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Print writes v as JSON, or its plain value as one line of text.
func (f *Formatter) Print(v any) error {
	return f.Result(v, nil)
}

// Result writes v as JSON, or calls text to render it for humans. A nil
// text prints v on one line.
func (f *Formatter) Result(v any, text func(w io.Writer) error) error {
	if f.IsJSON() {
		return encodeJSON(f.writer, v)
	}
	if text == nil {
		return printPlain(f.writer, v)
	}
	return text(f.writer)
}

// Details writes v as JSON, or in text a success line with title followed
// by fields. An empty title skips the success line.
func (f *Formatter) Details(v any, title string, fields *Fields) error {
	return f.Result(v, func(w io.Writer) error {
		if title != "" {
			Success(w, title)
		}
		if fields == nil {
			return nil
		}
		return fields.Render(w)
	})
}

func printPlain(w io.Writer, v any) error {
	if s, ok := v.(fmt.Stringer); ok {
		v = s.String()
	}
	_, err := fmt.Fprintln(w, v)
	return err
}

// DetectFormat resolves FormatAuto: text on a terminal, JSON when piped.
// An explicit format is returned unchanged.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if f, ok := w.(*os.File); ok {
		if term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
			return FormatText
		}
	}
	return FormatJSON
}

// ParseFormat parses a format name. Anything unrecognized is FormatAuto.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON
	case FormatText:
		return FormatText
	default:
		return FormatAuto
	}
}
