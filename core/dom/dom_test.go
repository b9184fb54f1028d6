package dom

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	d, err := ParseHTML(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	return d
}

func render(t *testing.T, d *Document) string {
	t.Helper()
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestParseRenderHTML(t *testing.T) {
	d := mustParse(t, `<p id="x" class="a b">one<b>two</b></p>`)
	if d.ReadyState() != Complete {
		t.Errorf("ReadyState() = %v, want complete", d.ReadyState())
	}
	want := `<html><head></head><body><p id="x" class="a b">one<b>two</b></p></body></html>`
	if got := render(t, d); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}

	p := d.GetElementByID("x")
	if p == nil {
		t.Fatal("GetElementByID(x) = nil")
	}
	if p.TagName() != "p" {
		t.Errorf("TagName() = %q, want p", p.TagName())
	}
	if !p.HasClass("b") || p.HasClass("c") {
		t.Errorf("ClassList() = %v", p.ClassList())
	}
	if got := d.Body().TextContent(); got != "onetwo" {
		t.Errorf("TextContent() = %q, want %q", got, "onetwo")
	}
	if p.OwnerDocument() != d {
		t.Error("parsed node not owned by document")
	}
}

func TestParseRenderXML(t *testing.T) {
	src := `<?xml version="1.0" encoding="UTF-8"?><doc><p class="c">a &amp; b</p><empty/></doc>`
	d, err := ParseXML(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseXML() error = %v", err)
	}
	if d.Kind() != KindXML {
		t.Errorf("Kind() = %v, want KindXML", d.Kind())
	}
	if got := d.DocumentElement().TextContent(); got != "a & b" {
		t.Errorf("TextContent() = %q", got)
	}
	out := render(t, d)
	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("Render() lost the declaration: %q", out)
	}
	if !strings.Contains(out, `<p class="c">a &amp; b</p><empty/>`) {
		t.Errorf("Render() = %q", out)
	}
}

func TestNewDocumentSkeleton(t *testing.T) {
	d := NewDocument(KindHTML)
	if d.ReadyState() != Loading {
		t.Errorf("ReadyState() = %v, want loading", d.ReadyState())
	}
	if d.Body() == nil {
		t.Fatal("Body() = nil")
	}
	if got := render(t, d); got != "<html><head></head><body></body></html>" {
		t.Errorf("Render() = %q", got)
	}
}

func TestParseFragment(t *testing.T) {
	d := NewDocument(KindHTML)
	nodes, err := d.ParseFragment(nil, `<em>a</em>tail`)
	if err != nil {
		t.Fatalf("ParseFragment() error = %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
	if nodes[0].TagName() != "em" || nodes[1].Type != TextNode {
		t.Errorf("unexpected nodes %v %v", nodes[0].Type, nodes[1].Type)
	}
	for _, n := range nodes {
		if n.Parent != nil {
			t.Error("fragment node is attached")
		}
		if n.OwnerDocument() != d {
			t.Error("fragment node not owned by document")
		}
	}
}

func TestReplaceChild(t *testing.T) {
	d := mustParse(t, `<p>a<i>b</i>c</p>`)
	p := d.Body().FirstChild
	old := p.FirstChild.NextSibling // <i>

	x, y := d.CreateTextNode("x"), d.CreateElement("u")
	if err := p.ReplaceChild(old, x, y); err != nil {
		t.Fatalf("ReplaceChild() error = %v", err)
	}
	if got := p.OuterHTML(); got != "<p>ax<u></u>c</p>" {
		t.Errorf("OuterHTML() = %q", got)
	}
	if old.Parent != nil || old.NextSibling != nil || old.PrevSibling != nil {
		t.Error("replaced node still linked")
	}

	t.Run("stale parent", func(t *testing.T) {
		before := p.OuterHTML()
		if err := p.ReplaceChild(old, d.CreateTextNode("z")); !errors.Is(err, ErrNotChild) {
			t.Errorf("error = %v, want ErrNotChild", err)
		}
		if p.OuterHTML() != before {
			t.Error("failed ReplaceChild modified the tree")
		}
	})

	t.Run("cycle", func(t *testing.T) {
		body := d.Body()
		if err := p.ReplaceChild(x, body); !errors.Is(err, ErrHierarchy) {
			t.Errorf("error = %v, want ErrHierarchy", err)
		}
	})

	t.Run("children of text", func(t *testing.T) {
		if err := x.AppendChild(d.CreateTextNode("q")); !errors.Is(err, ErrHierarchy) {
			t.Errorf("error = %v, want ErrHierarchy", err)
		}
	})
}

func TestInsertAndRemove(t *testing.T) {
	d := mustParse(t, `<div id="a"><span>1</span><span>3</span></div><div id="b"></div>`)
	a, b := d.GetElementByID("a"), d.GetElementByID("b")
	two := d.CreateElement("span")
	two.SetTextContent("2")
	if err := a.InsertBefore(two, a.LastChild); err != nil {
		t.Fatalf("InsertBefore() error = %v", err)
	}
	if got := a.TextContent(); got != "123" {
		t.Errorf("TextContent() = %q, want 123", got)
	}

	// Moving a node detaches it from its old parent.
	if err := b.AppendChild(two); err != nil {
		t.Fatalf("AppendChild() error = %v", err)
	}
	if a.TextContent() != "13" || b.TextContent() != "2" {
		t.Errorf("after move a=%q b=%q", a.TextContent(), b.TextContent())
	}

	if err := a.RemoveChild(two); !errors.Is(err, ErrNotChild) {
		t.Errorf("RemoveChild(non-child) error = %v", err)
	}
	if err := b.RemoveChild(two); err != nil {
		t.Errorf("RemoveChild() error = %v", err)
	}
	if b.FirstChild != nil {
		t.Error("b still has children")
	}
}

func TestObserverRecords(t *testing.T) {
	d := mustParse(t, `<div id="root"><p id="p">text</p></div><div id="other"></div>`)
	root := d.GetElementByID("root")

	var batches [][]MutationRecord
	d.Observe(root, ObserveOptions{ChildList: true, CharacterData: true, Subtree: true}, func(recs []MutationRecord) {
		batches = append(batches, recs)
	})

	p := d.GetElementByID("p")
	p.FirstChild.SetData("edited")
	p.AppendChild(d.CreateTextNode("more"))
	p.SetAttr("title", "ignored: attributes not observed")
	d.GetElementByID("other").AppendChild(d.CreateTextNode("outside"))

	if len(batches) != 0 {
		t.Fatal("records delivered before Flush")
	}
	if !d.Pending() {
		t.Fatal("Pending() = false before Flush")
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	recs := batches[0]
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Kind != CharacterData || recs[0].Target != p.FirstChild || recs[0].OldValue != "text" {
		t.Errorf("record 0 = %+v", recs[0])
	}
	if recs[1].Kind != ChildList || recs[1].Target != p || len(recs[1].Added) != 1 {
		t.Errorf("record 1 = %+v", recs[1])
	}
}

func TestFlushDeliversCallbackMutations(t *testing.T) {
	d := mustParse(t, `<div id="root"></div>`)
	root := d.GetElementByID("root")
	rounds := 0
	d.Observe(root, ObserveOptions{ChildList: true, Subtree: true}, func(recs []MutationRecord) {
		rounds++
		if rounds < 3 {
			root.AppendChild(d.CreateTextNode("x"))
		}
	})
	root.AppendChild(d.CreateTextNode("start"))
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if rounds != 3 {
		t.Errorf("rounds = %d, want 3", rounds)
	}
	if d.Pending() {
		t.Error("records left after Flush")
	}
}

func TestFlushIsolatesPanics(t *testing.T) {
	d := mustParse(t, `<div id="root"></div>`)
	root := d.GetElementByID("root")
	d.Observe(root, ObserveOptions{ChildList: true}, func([]MutationRecord) { panic("boom") })
	called := false
	d.Observe(root, ObserveOptions{ChildList: true}, func([]MutationRecord) { called = true })

	root.AppendChild(d.CreateTextNode("x"))
	err := d.Flush()
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Flush() error = %v, want recovered panic", err)
	}
	if !called {
		t.Error("second observer not called after first panicked")
	}
}

func TestDisconnect(t *testing.T) {
	d := mustParse(t, `<div id="root"></div>`)
	root := d.GetElementByID("root")
	called := false
	o := d.Observe(root, ObserveOptions{ChildList: true}, func([]MutationRecord) { called = true })
	root.AppendChild(d.CreateTextNode("x"))
	o.Disconnect()
	d.Flush()
	if called {
		t.Error("disconnected observer was called")
	}
}

func TestReadyState(t *testing.T) {
	d := NewDocument(KindHTML)
	calls := 0
	d.OnInteractive(func() { calls++ })
	d.SetReadyState(Interactive)
	d.SetReadyState(Complete)
	d.SetReadyState(Loading)
	if calls != 1 {
		t.Errorf("OnInteractive callback ran %d times, want 1", calls)
	}
	if d.ReadyState() != Complete {
		t.Errorf("ReadyState() = %v, want complete", d.ReadyState())
	}

	late := false
	d.OnInteractive(func() { late = true })
	d.SetReadyState(Complete)
	if late {
		t.Error("callback registered after loading ran")
	}
}

func TestTreeWalkerVerdicts(t *testing.T) {
	d := mustParse(t, `<div><p>a</p><pre>b</pre><section>c<em>d</em></section></div>`)
	w := NewTreeWalker(d.Body(), func(n *Node) Verdict {
		switch {
		case n.TagName() == "pre":
			return Reject
		case n.Type == TextNode:
			return Accept
		default:
			return Skip
		}
	})
	var got []string
	for _, n := range w.Collect() {
		got = append(got, n.Data)
	}
	if strings.Join(got, ",") != "a,c,d" {
		t.Errorf("visited %v, want [a c d]", got)
	}
}

func TestTreeWalkerStaysInsideRoot(t *testing.T) {
	d := mustParse(t, `<p id="one">1</p><p id="two">2</p>`)
	w := NewTreeWalker(d.GetElementByID("one"), nil)
	nodes := w.Collect()
	if len(nodes) != 1 || nodes[0].Data != "1" {
		t.Errorf("Collect() = %d nodes, want only the text of #one", len(nodes))
	}
}

func TestQueryClosest(t *testing.T) {
	d := mustParse(t, `<div class="outer mark"><p><span id="s">x</span></p></div><p id="plain">y</p>`)
	expr := ClosestWithClass("mark")

	if got := d.GetElementByID("s").Query(expr); got == nil || !got.HasClass("outer") {
		t.Errorf("Query() = %v, want the .mark ancestor", got)
	}
	if got := d.GetElementByID("plain").Query(expr); got != nil {
		t.Errorf("Query() = %v, want nil", got)
	}

	all := d.Root().QueryAll(MustCompile("//p"))
	if len(all) != 2 {
		t.Errorf("QueryAll(//p) = %d nodes, want 2", len(all))
	}
}

func TestIsContentEditable(t *testing.T) {
	d := mustParse(t, `<div contenteditable><p id="a">x</p><p id="b" contenteditable="false">y</p></div>`+
		`<div contenteditable="bogus"><p id="c">z</p></div><p id="d" contenteditable="plaintext-only">w</p>`)
	tests := map[string]bool{"a": true, "b": false, "c": false, "d": true}
	for id, want := range tests {
		if got := d.GetElementByID(id).IsContentEditable(); got != want {
			t.Errorf("#%s IsContentEditable() = %v, want %v", id, got, want)
		}
	}
}

func TestSetTextContentRecordsOneMutation(t *testing.T) {
	d := mustParse(t, `<p id="p">a<b>b</b></p>`)
	p := d.GetElementByID("p")
	var recs []MutationRecord
	d.Observe(p, ObserveOptions{ChildList: true}, func(r []MutationRecord) { recs = append(recs, r...) })
	p.SetTextContent("new")
	d.Flush()
	if len(recs) != 1 || len(recs[0].Removed) != 2 || len(recs[0].Added) != 1 {
		t.Fatalf("records = %+v", recs)
	}
	if p.TextContent() != "new" {
		t.Errorf("TextContent() = %q", p.TextContent())
	}
}

func TestAttributes(t *testing.T) {
	d := mustParse(t, `<p id="x" class="a b">text</p>`)
	p := d.GetElementByID("x")
	if p == nil {
		t.Fatal("GetElementByID(x) = nil")
	}

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"id", "x", true},
		{"class", "a b", true},
		{"title", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := p.GetAttr(tt.key)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("GetAttr(%q) = %q, %v, want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	p.SetAttr("title", "t")
	p.SetAttr("id", "y")
	if v, _ := p.GetAttr("id"); v != "y" || len(p.Attr) != 3 {
		t.Errorf("after SetAttr: id = %q, attrs = %+v", v, p.Attr)
	}
	p.RemoveAttr("class")
	if p.HasClass("a") || len(p.Attr) != 2 {
		t.Errorf("after RemoveAttr: attrs = %+v", p.Attr)
	}
	p.RemoveAttr("missing")
	if len(p.Attr) != 2 {
		t.Errorf("RemoveAttr(missing) changed attrs: %+v", p.Attr)
	}
}
