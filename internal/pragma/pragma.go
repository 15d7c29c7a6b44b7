// Package pragma collects module-level pragma directives in source order.
// Directives are bare names ("rt_fp_relaxed") or name-value pairs
// ("version(1)"); the collector keeps both forms as plain string pairs for
// the artifact writer.
package pragma

import (
	"fmt"
	"strings"
	"unicode"
)

// Pragma is one recorded directive.
type Pragma struct {
	Name  string
	Value string
}

// Recorder accumulates pragmas in the order they were seen. Repeats are
// kept; Value resolves to the most recent occurrence.
type Recorder struct {
	list  []Pragma
	index map[string]int
}

func NewRecorder() *Recorder {
	return &Recorder{index: make(map[string]int, 4)}
}

// Record appends a directive.
func (r *Recorder) Record(name, value string) {
	r.index[name] = len(r.list)
	r.list = append(r.list, Pragma{Name: name, Value: value})
}

// List returns the recorded pragmas in source order.
func (r *Recorder) List() []Pragma {
	return r.list
}

// Value returns the value of the most recent occurrence of name.
func (r *Recorder) Value(name string) (string, bool) {
	i, ok := r.index[name]
	if !ok {
		return "", false
	}
	return r.list[i].Value, true
}

func (r *Recorder) Len() int {
	return len(r.list)
}

// Parse splits a directive of the form `name` or `name(value)`. The value is
// taken verbatim between the outer parentheses; surrounding double quotes,
// when present, are stripped.
func Parse(text string) (Pragma, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Pragma{}, fmt.Errorf("pragma: empty directive")
	}

	i := 0
	for i < len(s) && isIdentRune(rune(s[i]), i == 0) {
		i++
	}
	if i == 0 {
		return Pragma{}, fmt.Errorf("pragma: directive %q does not start with an identifier", text)
	}
	name := s[:i]
	rest := strings.TrimSpace(s[i:])
	if rest == "" {
		return Pragma{Name: name}, nil
	}

	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return Pragma{}, fmt.Errorf("pragma: malformed value in %q", text)
	}
	value := strings.TrimSpace(rest[1 : len(rest)-1])
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}
	return Pragma{Name: name, Value: value}, nil
}

func isIdentRune(r rune, first bool) bool {
	if r == '_' || unicode.IsLetter(r) {
		return true
	}
	return !first && unicode.IsDigit(r)
}
