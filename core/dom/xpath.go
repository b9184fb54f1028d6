package dom

import (
	"github.com/antchfx/xpath"
)

// navigator implements xpath.NodeNavigator over a dom tree.
type navigator struct {
	root, curr *Node
	attr       int
}

var _ xpath.NodeNavigator = (*navigator)(nil)

func newNavigator(n *Node) *navigator {
	return &navigator{root: n.root(), curr: n, attr: -1}
}

func (x *navigator) NodeType() xpath.NodeType {
	if x.attr != -1 {
		return xpath.AttributeNode
	}
	switch x.curr.Type {
	case DocumentNode:
		return xpath.RootNode
	case TextNode:
		return xpath.TextNode
	case CommentNode, DoctypeNode:
		return xpath.CommentNode
	default:
		return xpath.ElementNode
	}
}

func (x *navigator) LocalName() string {
	if x.attr != -1 {
		return x.curr.Attr[x.attr].Key
	}
	return x.curr.TagName()
}

func (x *navigator) Prefix() string {
	return ""
}

func (x *navigator) Value() string {
	if x.attr != -1 {
		return x.curr.Attr[x.attr].Val
	}
	return x.curr.TextContent()
}

func (x *navigator) Copy() xpath.NodeNavigator {
	c := *x
	return &c
}

func (x *navigator) MoveToRoot() {
	x.curr = x.root
	x.attr = -1
}

func (x *navigator) MoveToParent() bool {
	if x.attr != -1 {
		x.attr = -1
		return true
	}
	if x.curr.Parent == nil {
		return false
	}
	x.curr = x.curr.Parent
	return true
}

func (x *navigator) MoveToNextAttribute() bool {
	if x.curr.Type != ElementNode || x.attr >= len(x.curr.Attr)-1 {
		return false
	}
	x.attr++
	return true
}

func (x *navigator) MoveToChild() bool {
	if x.attr != -1 || x.curr.FirstChild == nil {
		return false
	}
	x.curr = x.curr.FirstChild
	return true
}

func (x *navigator) MoveToFirst() bool {
	if x.attr != -1 || x.curr.PrevSibling == nil {
		return false
	}
	for x.curr.PrevSibling != nil {
		x.curr = x.curr.PrevSibling
	}
	return true
}

func (x *navigator) MoveToNext() bool {
	if x.attr != -1 || x.curr.NextSibling == nil {
		return false
	}
	x.curr = x.curr.NextSibling
	return true
}

func (x *navigator) MoveToPrevious() bool {
	if x.attr != -1 || x.curr.PrevSibling == nil {
		return false
	}
	x.curr = x.curr.PrevSibling
	return true
}

func (x *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || o.root != x.root {
		return false
	}
	x.curr = o.curr
	x.attr = o.attr
	return true
}

func (x *navigator) String() string {
	return x.Value()
}

// Compile compiles an XPath expression for use with Closest and QueryAll.
func Compile(expr string) (*xpath.Expr, error) {
	return xpath.Compile(expr)
}

// MustCompile is like Compile but panics on a bad expression.
func MustCompile(expr string) *xpath.Expr {
	return xpath.MustCompile(expr)
}

// QueryAll evaluates expr with n as the context node and returns the
// matching nodes. Attribute matches yield their owner element.
func (n *Node) QueryAll(expr *xpath.Expr) []*Node {
	var out []*Node
	seen := make(map[*Node]bool)
	it := expr.Select(newNavigator(n))
	for it.MoveNext() {
		nav, ok := it.Current().(*navigator)
		if !ok || seen[nav.curr] {
			continue
		}
		seen[nav.curr] = true
		out = append(out, nav.curr)
	}
	return out
}

// Query returns the first node matched by expr, or nil.
func (n *Node) Query(expr *xpath.Expr) *Node {
	it := expr.Select(newNavigator(n))
	if !it.MoveNext() {
		return nil
	}
	nav, ok := it.Current().(*navigator)
	if !ok {
		return nil
	}
	return nav.curr
}

// ClosestWithClass builds the expression used by Closest-style ancestry
// checks: the context node or its nearest ancestor carrying class.
func ClosestWithClass(class string) *xpath.Expr {
	return xpath.MustCompile("ancestor-or-self::*[contains(concat(' ', normalize-space(@class), ' '), ' " + class + " ')][1]")
}
