// Package dom provides a small live document tree with browser-like
// mutation semantics.
//
// Documents are parsed from HTML (golang.org/x/net/html) or XML
// (github.com/antchfx/xmlquery) into a tree of *Node values. Mutating the
// tree through Node methods queues MutationRecords for every Observer whose
// target covers the change; Document.Flush delivers queued records in
// batches, after the mutations that produced them, the way a browser
// delivers MutationObserver callbacks at a microtask checkpoint.
//
// Node fields are exported for reading. Writes that bypass the methods are
// not observed.
//
// A Document is not safe for concurrent use.
package dom

import (
	"strings"
)

// NodeType identifies the kind of a Node.
type NodeType int

const (
	// DocumentNode is the root of a document.
	DocumentNode NodeType = iota
	// ElementNode is a structural element.
	ElementNode
	// TextNode is a run of character data.
	TextNode
	// CommentNode is a comment.
	CommentNode
	// DoctypeNode is a document type declaration.
	DoctypeNode
)

func (t NodeType) String() string {
	switch t {
	case DocumentNode:
		return "document"
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	case DoctypeNode:
		return "doctype"
	default:
		return "unknown"
	}
}

// Attribute is an element attribute.
type Attribute struct {
	Namespace string
	Key       string
	Val       string
}

// Node is a node in a document tree.
type Node struct {
	Type NodeType
	// Data is the element name for elements, the character data for text
	// and comment nodes and the name for doctypes.
	Data      string
	Namespace string
	Attr      []Attribute

	Parent      *Node
	FirstChild  *Node
	LastChild   *Node
	PrevSibling *Node
	NextSibling *Node

	doc *Document
}

// OwnerDocument returns the document the node belongs to, or nil.
func (n *Node) OwnerDocument() *Document {
	return n.doc
}

// TagName returns the lowercase local name of an element, or "".
func (n *Node) TagName() string {
	if n == nil || n.Type != ElementNode {
		return ""
	}
	name := n.Data
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

// GetAttr returns the value of the attribute named key.
func (n *Node) GetAttr(key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute, replacing an existing value.
func (n *Node) SetAttr(key, val string) {
	if n.Type != ElementNode {
		return
	}
	old, had := n.GetAttr(key)
	if had {
		for i := range n.Attr {
			if n.Attr[i].Key == key {
				n.Attr[i].Val = val
				break
			}
		}
	} else {
		n.Attr = append(n.Attr, Attribute{Key: key, Val: val})
	}
	n.record(MutationRecord{Kind: Attributes, Target: n, AttributeName: key, OldValue: old})
}

// RemoveAttr removes an attribute. It is a no-op when the attribute is
// absent.
func (n *Node) RemoveAttr(key string) {
	for i, a := range n.Attr {
		if a.Key != key {
			continue
		}
		n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
		n.record(MutationRecord{Kind: Attributes, Target: n, AttributeName: key, OldValue: a.Val})
		return
	}
}

// ClassList returns the whitespace separated tokens of the class attribute.
func (n *Node) ClassList() []string {
	v, _ := n.GetAttr("class")
	return strings.Fields(v)
}

// HasClass reports whether the class attribute contains name.
func (n *Node) HasClass(name string) bool {
	for _, c := range n.ClassList() {
		if c == name {
			return true
		}
	}
	return false
}

// TextContent returns the concatenated character data of n and its
// descendants. Comments are not included.
func (n *Node) TextContent() string {
	switch n.Type {
	case TextNode, CommentNode:
		return n.Data
	}
	var b strings.Builder
	var walk func(*Node)
	walk = func(c *Node) {
		for ; c != nil; c = c.NextSibling {
			switch c.Type {
			case TextNode:
				b.WriteString(c.Data)
			case ElementNode, DocumentNode:
				walk(c.FirstChild)
			}
		}
	}
	walk(n.FirstChild)
	return b.String()
}

// Contains reports whether other is n or a descendant of n.
func (n *Node) Contains(other *Node) bool {
	for c := other; c != nil; c = c.Parent {
		if c == n {
			return true
		}
	}
	return false
}

// IsContentEditable reports whether n sits in an editable region. The
// contenteditable attribute is inherited; "false" ends the region and
// unrecognized values defer to the parent.
func (n *Node) IsContentEditable() bool {
	for el := n; el != nil; el = el.Parent {
		if el.Type != ElementNode {
			continue
		}
		v, ok := el.GetAttr("contenteditable")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "true", "plaintext-only":
			return true
		case "false":
			return false
		}
	}
	return false
}

// Children returns the direct children of n.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func (n *Node) root() *Node {
	r := n
	for r.Parent != nil {
		r = r.Parent
	}
	return r
}

func (n *Node) record(rec MutationRecord) {
	if n.doc != nil {
		n.doc.enqueue(rec)
	}
}

func (n *Node) adopt(doc *Document) {
	n.doc = doc
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		c.adopt(doc)
	}
}
