package display

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// minWidth keeps charts readable on very narrow terminals.
const minWidth = 40

// TerminalWidth returns the column count of f, or DefaultWidth when f is
// not a terminal.
func TerminalWidth(f *os.File) int {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return DefaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

// WriterWidth returns the column count of w when it is a terminal file,
// and DefaultWidth for any other writer.
func WriterWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		return TerminalWidth(f)
	}
	return DefaultWidth
}

// --- ANSI color helpers (disabled when NO_COLOR env var is set) ---

var noColor = os.Getenv("NO_COLOR") != ""

func ansi(code, s string) string {
	if noColor {
		return s
	}
	return code + s + "\033[0m"
}

func bold(s string) string { return ansi("\033[1m", s) }
func dim(s string) string  { return ansi("\033[2m", s) }
func cyan(s string) string { return ansi("\033[36m", s) }

// padL pads s to width with spaces on the left.
func padL(s string, width int) string {
	if pad := width - len(s); pad > 0 {
		return strings.Repeat(" ", pad) + s
	}
	return s
}
