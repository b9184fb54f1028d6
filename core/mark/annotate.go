package mark

import (
	"log/slog"
	"strings"

	"github.com/FocuswithJustin/glyphmark/core/dom"
	"github.com/FocuswithJustin/glyphmark/core/glyphs"
)

// Marker styling contract. These names are consumed by stylesheets and
// scripts outside glyphmark and must not change.
const (
	HighlightClass = "ai-detector-highlight"
	HighlightAttr  = "data-ai-detector"
	ZeroWidthClass = "ai-detector-zerowidth"
	ZeroWidthAttr  = "data-ai-zerowidth"

	markerTag     = "span"
	fallbackLabel = "Target Character"
)

// Piece is one run of a split text: plain text when Entry is nil, otherwise
// a single target character.
type Piece struct {
	Text  string
	Entry *glyphs.Entry
}

// Annotator wraps target characters of single text nodes in markers.
type Annotator struct {
	reg    *glyphs.Registry
	filter *Filter
	stats  *counters
	log    *slog.Logger
}

// NewAnnotator returns an annotator over reg. A nil reg uses the default
// table.
func NewAnnotator(reg *glyphs.Registry) *Annotator {
	return newAnnotator(reg, NewFilter(), &counters{}, slog.Default())
}

func newAnnotator(reg *glyphs.Registry, f *Filter, c *counters, log *slog.Logger) *Annotator {
	if reg == nil {
		reg = glyphs.Default()
	}
	return &Annotator{reg: reg, filter: f, stats: c, log: log}
}

// Filter returns the eligibility filter the annotator checks against.
func (a *Annotator) Filter() *Filter { return a.filter }

// Registry returns the target table.
func (a *Annotator) Registry() *glyphs.Registry { return a.reg }

// Split breaks text into plain runs and single-character target pieces, in
// order. Concatenating the Text of the result gives back text. Text without
// targets yields nil.
func (a *Annotator) Split(text string) []Piece {
	var out []Piece
	last := 0
	for i, c := range a.reg.Matches(text) {
		if i > last {
			out = append(out, Piece{Text: text[last:i]})
		}
		e, _ := a.reg.EntryFor(c)
		size := len(string(c))
		out = append(out, Piece{Text: text[i : i+size], Entry: &e})
		last = i + size
	}
	if out == nil {
		return nil
	}
	if last < len(text) {
		out = append(out, Piece{Text: text[last:]})
	}
	return out
}

// Annotate replaces the text node n with plain runs and markers and returns
// the number of markers committed. It is a no-op returning 0 for ignorable
// nodes and text without targets, so it is safe to call on any node.
func (a *Annotator) Annotate(n *dom.Node) int {
	if n == nil {
		return 0
	}
	return a.annotateIn(n, n.Parent)
}

// annotateIn is Annotate with the parent the caller observed n under. When n
// is no longer a child of parent the commit fails and n is left alone.
func (a *Annotator) annotateIn(n, parent *dom.Node) int {
	if parent == nil || a.filter.Ignorable(n) || !a.reg.Contains(n.Data) {
		return 0
	}
	pieces := a.Split(n.Data)
	doc := n.OwnerDocument()
	nodes := make([]*dom.Node, 0, len(pieces))
	markers := 0
	for _, p := range pieces {
		if p.Entry == nil {
			nodes = append(nodes, doc.CreateTextNode(p.Text))
			continue
		}
		nodes = append(nodes, a.marker(doc, p))
		markers++
	}
	if err := a.commit(parent, n, nodes); err != nil {
		a.stats.failedCommits.Add(1)
		a.log.Debug("annotation skipped", "reason", err.Error(), "markers", markers)
		return 0
	}
	return markers
}

func (a *Annotator) commit(parent, old *dom.Node, nodes []*dom.Node) error {
	return parent.ReplaceChild(old, nodes...)
}

// marker builds an unattached marker element for p.
func (a *Annotator) marker(doc *dom.Document, p Piece) *dom.Node {
	el := doc.CreateElement(markerTag)
	c := p.Entry.CodePoint
	classes := []string{HighlightClass, glyphs.ClassFor(c)}
	if p.Entry.ZeroWidth {
		classes = append(classes, ZeroWidthClass)
	}
	el.SetAttr("class", strings.Join(classes, " "))
	el.SetAttr(HighlightAttr, "true")
	if p.Entry.ZeroWidth {
		el.SetAttr(ZeroWidthAttr, "true")
	}
	el.SetAttr("title", Title(*p.Entry))
	el.AppendChild(doc.CreateTextNode(p.Text))
	return el
}

// Title returns the marker tooltip for e: its label followed by the code
// point, e.g. "THIN SPACE (U+2009) (U+2009)".
func Title(e glyphs.Entry) string {
	label := e.Label
	if label == "" {
		label = fallbackLabel
	}
	return label + " (" + glyphs.CodePoint(e.CodePoint) + ")"
}
