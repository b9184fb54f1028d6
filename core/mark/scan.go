package mark

import (
	"github.com/FocuswithJustin/glyphmark/core/dom"
)

// Scanner annotates every eligible text node under a root.
type Scanner struct {
	annotator *Annotator
}

// NewScanner returns a scanner that commits through a.
func NewScanner(a *Annotator) *Scanner {
	return &Scanner{annotator: a}
}

type pending struct {
	node, parent *dom.Node
}

// Scan annotates the eligible text below root and returns the number of
// markers created. Candidates are collected first and annotated afterwards,
// since each commit replaces the node the walker would stand on.
func (s *Scanner) Scan(root *dom.Node) int {
	if root == nil {
		return 0
	}
	reg := s.annotator.reg
	var found []pending
	w := dom.NewTreeWalker(root, s.annotator.filter.Verdict)
	for n := w.NextNode(); n != nil; n = w.NextNode() {
		if reg.Contains(n.Data) {
			found = append(found, pending{node: n, parent: n.Parent})
		}
	}

	total := 0
	for _, p := range found {
		total += s.annotator.annotateIn(p.node, p.parent)
	}
	return total
}
