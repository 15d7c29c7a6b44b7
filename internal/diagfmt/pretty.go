package diagfmt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ferry/internal/diag"
	"ferry/internal/source"
)

// Pretty renders diagnostics for humans. It walks bag.Items() in order (the
// caller is expected to Sort() first) and prints for each:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed, when ShowSource is set, by the source line and a ^~~~ underline
// covering the span, and by any notes in the same shape.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writeHeading(w, fs, d.Primary, d.Severity, d.Code, d.Message, opts)
		if opts.ShowSource {
			writeSourceLine(w, fs, d.Primary, opts)
		}
		if opts.ShowNotes {
			for _, n := range d.Notes {
				writeHeading(w, fs, n.Span, diag.SevInfo, diag.UnknownCode, n.Msg, opts)
				if opts.ShowSource {
					writeSourceLine(w, fs, n.Span, opts)
				}
			}
		}
	}
}

func writeHeading(w io.Writer, fs *source.FileSet, sp source.Span, sev diag.Severity, code diag.Code, msg string, opts PrettyOpts) {
	loc := "<unknown>"
	if pos, ok := fs.PositionFor(sp); ok {
		loc = fmt.Sprintf("%s:%d:%d", formatPath(pos.Path, opts.PathMode), pos.Line, pos.Col)
	}

	sevText := sev.String()
	if opts.Color {
		sevText = severityColor(sev).Sprint(sevText)
	}
	if code == diag.UnknownCode {
		fmt.Fprintf(w, "%s: %s: %s\n", loc, sevText, msg)
		return
	}
	fmt.Fprintf(w, "%s: %s %s: %s\n", loc, sevText, code, msg)
}

func writeSourceLine(w io.Writer, fs *source.FileSet, sp source.Span, opts PrettyOpts) {
	line, ok := fs.LineText(sp)
	if !ok || line == "" {
		return
	}
	pos, ok := fs.PositionFor(sp)
	if !ok {
		return
	}

	fmt.Fprintf(w, "  %s\n", line)

	// Pad with the display width of everything left of the span, so the
	// caret lands under the right rune even past wide characters.
	col := pos.Col - 1
	if col > len(line) {
		col = len(line)
	}
	pad := runewidth.StringWidth(line[:col])
	width := int(sp.Len())
	if width < 1 {
		width = 1
	}
	if col+width > len(line) {
		width = len(line) - col
		if width < 1 {
			width = 1
		}
	}
	underline := "^" + strings.Repeat("~", runewidth.StringWidth(line[col:col+width])-1)
	if opts.Color {
		underline = color.New(color.FgGreen, color.Bold).Sprint(underline)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", pad), underline)
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return color.New(color.FgRed, color.Bold)
	case diag.SevWarning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgCyan)
	}
}

func formatPath(path string, mode PathMode) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	case PathModeRelative:
		if wd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(wd, path); err == nil {
				return rel
			}
		}
	case PathModeBasename:
		return filepath.Base(path)
	}
	return path
}
