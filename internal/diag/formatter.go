package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// contextLines is the number of leading/trailing source lines the formatter
// prints around the offending span, per spec: "three lines of leading
// context, a caret run under the span, three lines of trailing context".
const contextLines = 3

// Formatter renders diagnostics with source-code context when the source
// file is available, falling back to a bare message otherwise.
type Formatter struct {
	Out         io.Writer
	sourceCache map[string]string
}

// NewFormatter creates a new diagnostic formatter writing to stderr.
func NewFormatter() *Formatter {
	return &Formatter{Out: os.Stderr, sourceCache: make(map[string]string)}
}

// LoadSource loads and caches the source text for filename.
func (f *Formatter) LoadSource(filename string) (string, error) {
	if filename == "" {
		return "", nil
	}
	if src, ok := f.sourceCache[filename]; ok {
		return src, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	src := string(data)
	f.sourceCache[filename] = src
	return src, nil
}

// Format prints d, with source context if the file can be read.
func (f *Formatter) Format(d Diagnostic) {
	out := f.Out
	if out == nil {
		out = os.Stderr
	}

	severity := string(d.Severity)
	if severity == "" {
		severity = string(SeverityError)
	}
	if d.Code != "" {
		fmt.Fprintf(out, "%s[%s]: %s\n", severity, d.Code, d.Message)
	} else {
		fmt.Fprintf(out, "%s: %s\n", severity, d.Message)
	}

	spans := d.LabeledSpans
	if len(spans) == 0 && d.Span.IsValid() {
		spans = []LabeledSpan{{Span: d.Span, Style: "primary"}}
	}
	if len(spans) == 0 {
		return
	}
	primary := spans[0].Span

	fmt.Fprintf(out, "  --> %s:%d:%d\n", displayName(primary.Filename), primary.Line, primary.Column)

	src, err := f.LoadSource(primary.Filename)
	if err != nil || src == "" {
		return
	}
	f.printSnippet(out, src, primary)

	if d.Help != "" {
		fmt.Fprintf(out, "help: %s\n", d.Help)
	}
}

func displayName(filename string) string {
	if filename == "" {
		return "<input>"
	}
	return filename
}

// printSnippet prints contextLines lines before and after span.Line, plus
// the offending line itself with a caret run under the span's columns.
func (f *Formatter) printSnippet(out io.Writer, src string, span Span) {
	lines := strings.Split(src, "\n")
	if span.Line < 1 || span.Line > len(lines) {
		return
	}

	start := span.Line - contextLines
	if start < 1 {
		start = 1
	}
	end := span.Line + contextLines
	if end > len(lines) {
		end = len(lines)
	}

	width := len(fmt.Sprintf("%d", end))
	for ln := start; ln <= end; ln++ {
		fmt.Fprintf(out, " %*d | %s\n", width, ln, lines[ln-1])
		if ln == span.Line {
			f.printCaret(out, width, lines[ln-1], span)
		}
	}
}

func (f *Formatter) printCaret(out io.Writer, width int, line string, span Span) {
	col := span.Column - 1
	if col < 0 {
		col = 0
	}
	length := span.End - span.Start
	if length < 1 {
		length = 1
	}
	if col > len(line) {
		col = len(line)
	}
	if col+length > len(line)+1 {
		length = len(line) + 1 - col
		if length < 1 {
			length = 1
		}
	}
	fmt.Fprintf(out, " %s | %s%s\n", strings.Repeat(" ", width), strings.Repeat(" ", col), strings.Repeat("^", length))
}
