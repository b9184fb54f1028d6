package dom

import (
	"bufio"
	"bytes"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/FocuswithJustin/glyphmark/core/encoding"
)

// Render writes the document: HTML documents through the HTML5 serializer,
// XML documents as XML.
func (d *Document) Render(w io.Writer) error {
	if d.kind == KindXML {
		return renderXML(w, d)
	}
	return html.Render(w, toHTML(d.root))
}

// RenderNode writes n and its subtree as HTML.
func RenderNode(w io.Writer, n *Node) error {
	return html.Render(w, toHTML(n))
}

// OuterHTML returns n serialized as HTML.
func (n *Node) OuterHTML() string {
	var buf bytes.Buffer
	if err := RenderNode(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func toHTML(n *Node) *html.Node {
	hn := &html.Node{Data: n.Data, Namespace: n.Namespace}
	switch n.Type {
	case DocumentNode:
		hn.Type = html.DocumentNode
	case ElementNode:
		hn.Type = html.ElementNode
		hn.DataAtom = atom.Lookup([]byte(n.Data))
	case TextNode:
		hn.Type = html.TextNode
	case CommentNode:
		hn.Type = html.CommentNode
	case DoctypeNode:
		hn.Type = html.DoctypeNode
	}
	for _, a := range n.Attr {
		hn.Attr = append(hn.Attr, html.Attribute{Namespace: a.Namespace, Key: a.Key, Val: a.Val})
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		hc := toHTML(c)
		hc.Parent = hn
		if hn.LastChild == nil {
			hn.FirstChild = hc
		} else {
			hn.LastChild.NextSibling = hc
			hc.PrevSibling = hn.LastChild
		}
		hn.LastChild = hc
	}
	return hn
}

func renderXML(w io.Writer, d *Document) error {
	bw := bufio.NewWriter(w)
	if d.xmlDecl != "" {
		bw.WriteString(d.xmlDecl)
		bw.WriteString("\n")
	}
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		writeXMLNode(bw, c)
	}
	return bw.Flush()
}

func writeXMLNode(w *bufio.Writer, n *Node) {
	switch n.Type {
	case ElementNode:
		w.WriteString("<")
		w.WriteString(n.Data)
		for _, a := range n.Attr {
			w.WriteString(" ")
			w.WriteString(a.Key)
			w.WriteString(`="`)
			w.WriteString(encoding.EscapeXMLAttr(a.Val))
			w.WriteString(`"`)
		}
		if n.FirstChild == nil {
			w.WriteString("/>")
			return
		}
		w.WriteString(">")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeXMLNode(w, c)
		}
		w.WriteString("</")
		w.WriteString(n.Data)
		w.WriteString(">")
	case TextNode:
		w.WriteString(encoding.EscapeXMLText(n.Data))
	case CommentNode:
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->")
	case DoctypeNode:
		w.WriteString("<!DOCTYPE ")
		w.WriteString(n.Data)
		w.WriteString(">")
	}
}
