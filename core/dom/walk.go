package dom

// Verdict is a traversal filter result.
type Verdict int

const (
	// Accept yields the node and descends into it.
	Accept Verdict = iota
	// Reject skips the node and its whole subtree.
	Reject
	// Skip skips the node but still visits its children.
	Skip
)

// Filter decides how a TreeWalker treats a node.
type Filter func(n *Node) Verdict

// TreeWalker visits the descendants of a root in document order, with the
// accept/reject/skip semantics of the DOM TreeWalker. The root itself is
// never yielded.
type TreeWalker struct {
	root    *Node
	current *Node
	filter  Filter
}

// NewTreeWalker returns a walker over root. A nil filter accepts everything.
func NewTreeWalker(root *Node, filter Filter) *TreeWalker {
	if filter == nil {
		filter = func(*Node) Verdict { return Accept }
	}
	return &TreeWalker{root: root, current: root, filter: filter}
}

// NextNode advances to the next accepted node, or returns nil at the end.
func (w *TreeWalker) NextNode() *Node {
	node := w.current
	verdict := Accept
	for {
		for verdict != Reject && node.FirstChild != nil {
			node = node.FirstChild
			verdict = w.filter(node)
			if verdict == Accept {
				w.current = node
				return node
			}
		}

		var sibling *Node
		for temp := node; temp != nil && temp != w.root; temp = temp.Parent {
			if sibling = temp.NextSibling; sibling != nil {
				break
			}
		}
		if sibling == nil {
			return nil
		}
		node = sibling
		verdict = w.filter(node)
		if verdict == Accept {
			w.current = node
			return node
		}
	}
}

// Collect drains the walker into a slice.
func (w *TreeWalker) Collect() []*Node {
	var out []*Node
	for n := w.NextNode(); n != nil; n = w.NextNode() {
		out = append(out, n)
	}
	return out
}
