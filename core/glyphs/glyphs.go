// Package glyphs holds the table of typographically unusual code points that
// glyphmark looks for, and the matching operations over it.
//
// A Registry is immutable once built. Extend returns a new registry rather
// than modifying the receiver, so a registry can be shared freely between
// documents and goroutines.
package glyphs

import (
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/FocuswithJustin/glyphmark/core/errors"
)

// ClassPrefix prefixes the per-code-point marker class.
const ClassPrefix = "ai-detector-"

// Entry describes one target code point.
type Entry struct {
	CodePoint rune   `json:"code_point" yaml:"code_point"`
	Label     string `json:"label" yaml:"label"`
	ZeroWidth bool   `json:"zero_width" yaml:"zero_width"`
}

// Registry is an immutable set of target entries.
type Registry struct {
	entries []Entry
	index   map[rune]int
}

// builtin is the default target table. U+0020 is intentionally absent.
var builtin = []Entry{
	{CodePoint: '\u2014', Label: "EM DASH (U+2014)"},
	{CodePoint: '\u00A0', Label: "NO-BREAK SPACE (U+00A0)"},
	{CodePoint: '\u2000', Label: "EN QUAD (U+2000)"},
	{CodePoint: '\u2001', Label: "EM QUAD (U+2001)"},
	{CodePoint: '\u2002', Label: "EN SPACE (U+2002)"},
	{CodePoint: '\u2003', Label: "EM SPACE (U+2003)"},
	{CodePoint: '\u2004', Label: "THREE-PER-EM SPACE (U+2004)"},
	{CodePoint: '\u2005', Label: "FOUR-PER-EM SPACE (U+2005)"},
	{CodePoint: '\u2006', Label: "SIX-PER-EM SPACE (U+2006)"},
	{CodePoint: '\u2007', Label: "FIGURE SPACE (U+2007)"},
	{CodePoint: '\u2008', Label: "PUNCTUATION SPACE (U+2008)"},
	{CodePoint: '\u2009', Label: "THIN SPACE (U+2009)"},
	{CodePoint: '\u200A', Label: "HAIR SPACE (U+200A)"},
	{CodePoint: '\u202F', Label: "NARROW NO-BREAK SPACE (U+202F)"},
	{CodePoint: '\u205F', Label: "MEDIUM MATHEMATICAL SPACE (U+205F)"},
	{CodePoint: '\u1680', Label: "OGHAM SPACE MARK (U+1680)"},
	{CodePoint: '\u180E', Label: "MONGOLIAN VOWEL SEPARATOR (U+180E)", ZeroWidth: true},
	{CodePoint: '\u200B', Label: "ZERO WIDTH SPACE (U+200B)", ZeroWidth: true},
	{CodePoint: '\u3000', Label: "IDEOGRAPHIC SPACE (U+3000)"},
	{CodePoint: '\uFEFF', Label: "ZERO WIDTH NO-BREAK SPACE (U+FEFF)", ZeroWidth: true},
}

var defaultRegistry = MustNew(builtin...)

// Default returns the built-in registry.
func Default() *Registry {
	return defaultRegistry
}

// New builds a registry from entries. Code points must be unique, valid and
// inside the Basic Multilingual Plane.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[rune]int, len(entries)),
	}
	for _, e := range entries {
		if err := r.add(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNew is like New but panics on an invalid table.
func MustNew(entries ...Entry) *Registry {
	r, err := New(entries...)
	if err != nil {
		panic(fmt.Sprintf("glyphs: %v", err))
	}
	return r
}

func (r *Registry) add(e Entry) error {
	if !utf8.ValidRune(e.CodePoint) || e.CodePoint > 0xFFFF {
		return &errors.ValidationError{
			Field:   "code_point",
			Value:   fmt.Sprintf("%X", e.CodePoint),
			Message: "must be a single Basic Multilingual Plane scalar value",
		}
	}
	if _, dup := r.index[e.CodePoint]; dup {
		return &errors.ValidationError{
			Field:   "code_point",
			Value:   CodePoint(e.CodePoint),
			Message: "duplicate target",
		}
	}
	if e.Label == "" {
		e.Label = CodePoint(e.CodePoint)
	}
	r.index[e.CodePoint] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

// Extend returns a new registry holding the receiver's entries followed by
// extra. The receiver is not modified.
func (r *Registry) Extend(extra ...Entry) (*Registry, error) {
	all := make([]Entry, 0, len(r.entries)+len(extra))
	all = append(all, r.entries...)
	all = append(all, extra...)
	return New(all...)
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns a copy of the table in declaration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// IsTarget reports whether c is a target code point.
func (r *Registry) IsTarget(c rune) bool {
	_, ok := r.index[c]
	return ok
}

// EntryFor returns the entry for c.
func (r *Registry) EntryFor(c rune) (Entry, bool) {
	i, ok := r.index[c]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Contains reports whether s holds at least one target code point.
func (r *Registry) Contains(s string) bool {
	for _, c := range s {
		if r.IsTarget(c) {
			return true
		}
	}
	return false
}

// Matches yields the byte offset and code point of every target occurrence
// in s, left to right. Each call starts a fresh scan.
func (r *Registry) Matches(s string) iter.Seq2[int, rune] {
	return func(yield func(int, rune) bool) {
		for i, c := range s {
			if !r.IsTarget(c) {
				continue
			}
			if !yield(i, c) {
				return
			}
		}
	}
}

// CodePoint formats c as U+XXXX, uppercase and zero padded to four digits.
func CodePoint(c rune) string {
	return fmt.Sprintf("U+%04X", c)
}

// ClassFor returns the per-code-point marker class for c, e.g.
// "ai-detector-u+2014".
func ClassFor(c rune) string {
	return ClassPrefix + strings.ToLower(CodePoint(c))
}
