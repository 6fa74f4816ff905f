package output

import (
	"fmt"
	"io"
)

// Message prefixes.
const (
	PrefixInfo    = "ℹ️  "
	PrefixWarn    = "⚠️  "
	PrefixSuccess = "✅ "
)

// Info prints an informational message with an info prefix.
func Info(w io.Writer, msg string) {
	_, _ = fmt.Fprintln(w, PrefixInfo+msg)
}

// Infof prints a formatted informational message.
func Infof(w io.Writer, format string, args ...any) {
	Info(w, fmt.Sprintf(format, args...))
}

// Warn prints a warning message with a warning prefix. Callers pass stderr.
func Warn(w io.Writer, msg string) {
	_, _ = fmt.Fprintln(w, PrefixWarn+msg)
}

// Warnf prints a formatted warning message.
func Warnf(w io.Writer, format string, args ...any) {
	Warn(w, fmt.Sprintf(format, args...))
}

// Success prints a success message with a success prefix.
func Success(w io.Writer, msg string) {
	_, _ = fmt.Fprintln(w, PrefixSuccess+msg)
}

// Successf prints a formatted success message.
func Successf(w io.Writer, format string, args ...any) {
	Success(w, fmt.Sprintf(format, args...))
}
