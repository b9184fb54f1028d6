package mark

import (
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/glyphmark/core/dom"
)

// excludedTags are containers whose text is never annotated: executable or
// raw content, form fields, code, and vector or math markup.
var excludedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"textarea": true,
	"input":    true,
	"code":     true,
	"pre":      true,
	"svg":      true,
	"math":     true,
}

// Filter decides which text nodes may be annotated. It holds no state beyond
// a compiled query and is safe to share.
type Filter struct {
	inMarker *xpath.Expr
}

// NewFilter returns the eligibility filter.
func NewFilter() *Filter {
	return &Filter{inMarker: dom.ClosestWithClass(HighlightClass)}
}

// Ignorable reports whether n must not be scanned. A text node is ignorable
// when it is detached, sits inside a marker, inside an excluded container, or
// inside an editable region. Containers are matched on every ancestor, not
// only the direct parent, so text in <code><b>...</b></code> is ignorable.
func (f *Filter) Ignorable(n *dom.Node) bool {
	if n == nil || n.Type != dom.TextNode {
		return true
	}
	p := n.Parent
	if p == nil || p.Type != dom.ElementNode {
		return true
	}
	return f.excluded(p)
}

// Verdict is the traversal predicate matching Ignorable: eligible text is
// accepted, markers and excluded containers are pruned with everything under
// them, and other nodes are skipped so the walk descends into them. Editable
// elements are not pruned since contenteditable="false" reopens a region.
func (f *Filter) Verdict(n *dom.Node) dom.Verdict {
	switch n.Type {
	case dom.TextNode:
		if f.Ignorable(n) {
			return dom.Skip
		}
		return dom.Accept
	case dom.ElementNode:
		if f.excludedSelf(n) {
			return dom.Reject
		}
	}
	return dom.Skip
}

// excluded reports whether el or an ancestor closes its text to annotation.
func (f *Filter) excluded(el *dom.Node) bool {
	if el.Query(f.inMarker) != nil {
		return true
	}
	if el.IsContentEditable() {
		return true
	}
	for a := el; a != nil; a = a.Parent {
		if a.Type == dom.ElementNode && excludedTags[a.TagName()] {
			return true
		}
	}
	return false
}

// excludedSelf reports whether el starts a region nothing below can leave.
func (f *Filter) excludedSelf(el *dom.Node) bool {
	return el.HasClass(HighlightClass) || excludedTags[el.TagName()]
}
