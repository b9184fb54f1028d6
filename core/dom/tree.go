package dom

import (
	"errors"
)

var (
	// ErrNotChild is returned when a reference node is not a child of the
	// node being modified.
	ErrNotChild = errors.New("dom: node is not a child of this parent")
	// ErrHierarchy is returned when an insertion would create a cycle or put
	// children under a node that cannot have any.
	ErrHierarchy = errors.New("dom: hierarchy request error")
)

// AppendChild adds c as the last child of n. A c that already has a parent
// is moved.
func (n *Node) AppendChild(c *Node) error {
	return n.InsertBefore(c, nil)
}

// InsertBefore inserts c before ref, or at the end when ref is nil.
func (n *Node) InsertBefore(c, ref *Node) error {
	if err := n.checkInsert(c); err != nil {
		return err
	}
	if ref != nil && ref.Parent != n {
		return ErrNotChild
	}
	if ref == c {
		ref = c.NextSibling
	}
	c.detach()
	n.link(c, ref)
	n.record(MutationRecord{
		Kind:        ChildList,
		Target:      n,
		Added:       []*Node{c},
		PrevSibling: c.PrevSibling,
		NextSibling: c.NextSibling,
	})
	return nil
}

// RemoveChild removes c from n.
func (n *Node) RemoveChild(c *Node) error {
	if c == nil || c.Parent != n {
		return ErrNotChild
	}
	prev, next := c.PrevSibling, c.NextSibling
	n.unlink(c)
	n.record(MutationRecord{
		Kind:        ChildList,
		Target:      n,
		Removed:     []*Node{c},
		PrevSibling: prev,
		NextSibling: next,
	})
	return nil
}

// ReplaceChild replaces old with nodes, in order, as one mutation. Nothing
// changes when it returns an error.
func (n *Node) ReplaceChild(old *Node, nodes ...*Node) error {
	if old == nil || old.Parent != n {
		return ErrNotChild
	}
	moving := make(map[*Node]bool, len(nodes))
	for _, c := range nodes {
		if c == old {
			return ErrHierarchy
		}
		if err := n.checkInsert(c); err != nil {
			return err
		}
		moving[c] = true
	}

	prev, next := old.PrevSibling, old.NextSibling
	for next != nil && moving[next] {
		next = next.NextSibling
	}
	for prev != nil && moving[prev] {
		prev = prev.PrevSibling
	}
	n.unlink(old)
	for _, c := range nodes {
		c.detach()
		n.link(c, next)
	}
	n.record(MutationRecord{
		Kind:        ChildList,
		Target:      n,
		Added:       append([]*Node(nil), nodes...),
		Removed:     []*Node{old},
		PrevSibling: prev,
		NextSibling: next,
	})
	return nil
}

// SetData replaces the character data of a text or comment node. It is a
// no-op for other node types.
func (n *Node) SetData(data string) {
	if n.Type != TextNode && n.Type != CommentNode {
		return
	}
	old := n.Data
	n.Data = data
	n.record(MutationRecord{Kind: CharacterData, Target: n, OldValue: old})
}

// SetTextContent replaces the children of an element with a single text
// node holding s, or sets the data of a text node.
func (n *Node) SetTextContent(s string) {
	switch n.Type {
	case TextNode, CommentNode:
		n.SetData(s)
		return
	case ElementNode, DocumentNode:
	default:
		return
	}

	removed := n.Children()
	for _, c := range removed {
		n.unlink(c)
	}
	var added []*Node
	if s != "" {
		t := &Node{Type: TextNode, Data: s}
		n.link(t, nil)
		added = append(added, t)
	}
	if len(removed) == 0 && len(added) == 0 {
		return
	}
	n.record(MutationRecord{Kind: ChildList, Target: n, Added: added, Removed: removed})
}

func (n *Node) checkInsert(c *Node) error {
	if c == nil {
		return ErrHierarchy
	}
	switch n.Type {
	case ElementNode, DocumentNode:
	default:
		return ErrHierarchy
	}
	if c.Type == DocumentNode || c.Contains(n) {
		return ErrHierarchy
	}
	return nil
}

// detach removes n from its current parent, recording the removal there.
func (n *Node) detach() {
	if n.Parent != nil {
		_ = n.Parent.RemoveChild(n)
	}
}

// link inserts an unattached c before ref (nil appends) without recording.
func (n *Node) link(c, ref *Node) {
	c.Parent = n
	if ref == nil {
		c.PrevSibling = n.LastChild
		if n.LastChild != nil {
			n.LastChild.NextSibling = c
		} else {
			n.FirstChild = c
		}
		n.LastChild = c
	} else {
		c.PrevSibling = ref.PrevSibling
		c.NextSibling = ref
		if ref.PrevSibling != nil {
			ref.PrevSibling.NextSibling = c
		} else {
			n.FirstChild = c
		}
		ref.PrevSibling = c
	}
	if c.doc != n.doc {
		c.adopt(n.doc)
	}
}

// unlink removes a child of n without recording.
func (n *Node) unlink(c *Node) {
	if c.PrevSibling != nil {
		c.PrevSibling.NextSibling = c.NextSibling
	} else {
		n.FirstChild = c.NextSibling
	}
	if c.NextSibling != nil {
		c.NextSibling.PrevSibling = c.PrevSibling
	} else {
		n.LastChild = c.PrevSibling
	}
	c.Parent, c.PrevSibling, c.NextSibling = nil, nil, nil
}
