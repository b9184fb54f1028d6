package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/FocuswithJustin/glyphmark/core/encoding"
)

// ParseHTML parses an HTML5 document. The result is in the Complete state.
func ParseHTML(r io.Reader) (*Document, error) {
	hn, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	d := newDocument(KindHTML)
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if n := fromHTML(c, d); n != nil {
			d.root.link(n, nil)
		}
	}
	d.state = Complete
	return d, nil
}

// ParseXML parses an XML or XHTML document. The result is in the Complete
// state. CDATA sections become plain text nodes.
func ParseXML(r io.Reader) (*Document, error) {
	xn, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	d := newDocument(KindXML)
	for c := xn.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.DeclarationNode {
			d.xmlDecl = declaration(c)
			continue
		}
		if n := fromXML(c, d); n != nil {
			d.root.link(n, nil)
		}
	}
	d.state = Complete
	return d, nil
}

// ParseFragment parses markup as HTML in the context of the element ctx
// (the body when ctx is nil). The returned nodes are unattached and owned by
// d.
func (d *Document) ParseFragment(ctx *Node, markup string) ([]*Node, error) {
	if ctx == nil {
		ctx = d.Body()
	}
	name := "body"
	ns := ""
	if ctx != nil && ctx.Type == ElementNode {
		name, ns = ctx.TagName(), ctx.Namespace
	}
	hctx := &html.Node{
		Type:      html.ElementNode,
		Data:      name,
		DataAtom:  atom.Lookup([]byte(name)),
		Namespace: ns,
	}
	hns, err := html.ParseFragment(strings.NewReader(markup), hctx)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML fragment: %w", err)
	}
	out := make([]*Node, 0, len(hns))
	for _, hn := range hns {
		if n := fromHTML(hn, d); n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func fromHTML(hn *html.Node, d *Document) *Node {
	n := &Node{doc: d}
	switch hn.Type {
	case html.ElementNode:
		n.Type = ElementNode
		n.Namespace = hn.Namespace
	case html.TextNode:
		n.Type = TextNode
	case html.CommentNode:
		n.Type = CommentNode
	case html.DoctypeNode:
		n.Type = DoctypeNode
	case html.DocumentNode:
		n.Type = DocumentNode
	default:
		return nil
	}
	n.Data = hn.Data
	for _, a := range hn.Attr {
		n.Attr = append(n.Attr, Attribute{Namespace: a.Namespace, Key: a.Key, Val: a.Val})
	}
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if child := fromHTML(c, d); child != nil {
			n.link(child, nil)
		}
	}
	return n
}

func fromXML(xn *xmlquery.Node, d *Document) *Node {
	n := &Node{doc: d}
	switch xn.Type {
	case xmlquery.ElementNode:
		n.Type = ElementNode
		n.Data = xn.Data
		if xn.Prefix != "" {
			n.Data = xn.Prefix + ":" + xn.Data
		}
		n.Namespace = xn.NamespaceURI
		for _, a := range xn.Attr {
			key := a.Name.Local
			if a.Name.Space != "" {
				key = a.Name.Space + ":" + a.Name.Local
			}
			n.Attr = append(n.Attr, Attribute{Key: key, Val: a.Value})
		}
	case xmlquery.TextNode, xmlquery.CharDataNode:
		n.Type = TextNode
		n.Data = xn.Data
	case xmlquery.CommentNode:
		n.Type = CommentNode
		n.Data = xn.Data
	default:
		return nil
	}
	for c := xn.FirstChild; c != nil; c = c.NextSibling {
		if child := fromXML(c, d); child != nil {
			n.link(child, nil)
		}
	}
	return n
}

func declaration(xn *xmlquery.Node) string {
	var b strings.Builder
	b.WriteString("<?xml")
	for _, a := range xn.Attr {
		b.WriteString(" ")
		b.WriteString(a.Name.Local)
		b.WriteString(`="`)
		b.WriteString(encoding.EscapeXMLAttr(a.Value))
		b.WriteString(`"`)
	}
	b.WriteString("?>")
	return b.String()
}
