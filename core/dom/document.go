package dom

// Kind selects how a document is serialized.
type Kind int

const (
	// KindHTML documents render through the HTML5 serializer.
	KindHTML Kind = iota
	// KindXML documents render as well-formed XML.
	KindXML
)

// ReadyState mirrors document.readyState.
type ReadyState int

const (
	// Loading means the document is still being built.
	Loading ReadyState = iota
	// Interactive means parsing has finished.
	Interactive
	// Complete means all loading has finished.
	Complete
)

func (s ReadyState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Interactive:
		return "interactive"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Document owns a node tree, its observers and its readiness state.
type Document struct {
	root  *Node
	kind  Kind
	state ReadyState

	// xmlDecl is the original XML declaration, re-emitted on render.
	xmlDecl string

	onInteractive []func()
	observers     []*Observer
	flushing      bool
}

// NewDocument returns an empty document in the Loading state. HTML
// documents get an html/head/body skeleton.
func NewDocument(kind Kind) *Document {
	d := newDocument(kind)
	if kind == KindHTML {
		htmlEl := d.CreateElement("html")
		_ = htmlEl.AppendChild(d.CreateElement("head"))
		_ = htmlEl.AppendChild(d.CreateElement("body"))
		_ = d.root.AppendChild(htmlEl)
	}
	return d
}

func newDocument(kind Kind) *Document {
	d := &Document{kind: kind, state: Loading}
	d.root = &Node{Type: DocumentNode, doc: d}
	return d
}

// Kind returns the serialization kind.
func (d *Document) Kind() Kind {
	return d.kind
}

// Root returns the document node.
func (d *Document) Root() *Node {
	return d.root
}

// DocumentElement returns the first element child of the document node.
func (d *Document) DocumentElement() *Node {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == ElementNode {
			return c
		}
	}
	return nil
}

// Body returns the body element of an HTML document, or nil.
func (d *Document) Body() *Node {
	el := d.DocumentElement()
	if el == nil {
		return nil
	}
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.TagName() == "body" {
			return c
		}
	}
	return nil
}

// GetElementByID returns the first element in document order whose id
// attribute equals id.
func (d *Document) GetElementByID(id string) *Node {
	w := NewTreeWalker(d.root, func(n *Node) Verdict {
		if n.Type != ElementNode {
			return Reject
		}
		if v, ok := n.GetAttr("id"); ok && v == id {
			return Accept
		}
		return Skip
	})
	return w.NextNode()
}

// CreateElement returns a new, unattached element owned by d.
func (d *Document) CreateElement(name string) *Node {
	return &Node{Type: ElementNode, Data: name, doc: d}
}

// CreateTextNode returns a new, unattached text node owned by d.
func (d *Document) CreateTextNode(data string) *Node {
	return &Node{Type: TextNode, Data: data, doc: d}
}

// CreateComment returns a new, unattached comment owned by d.
func (d *Document) CreateComment(data string) *Node {
	return &Node{Type: CommentNode, Data: data, doc: d}
}

// ReadyState returns the current readiness state.
func (d *Document) ReadyState() ReadyState {
	return d.state
}

// SetReadyState advances the readiness state. Leaving Loading runs the
// callbacks registered with OnInteractive, once, in registration order.
// Moving backwards is ignored.
func (d *Document) SetReadyState(s ReadyState) {
	if s <= d.state {
		return
	}
	wasLoading := d.state == Loading
	d.state = s
	if !wasLoading {
		return
	}
	fns := d.onInteractive
	d.onInteractive = nil
	for _, fn := range fns {
		fn()
	}
}

// OnInteractive registers fn to run when the document leaves the Loading
// state. Like DOMContentLoaded, a callback registered after that point never
// runs; callers check ReadyState first.
func (d *Document) OnInteractive(fn func()) {
	if d.state != Loading {
		return
	}
	d.onInteractive = append(d.onInteractive, fn)
}
