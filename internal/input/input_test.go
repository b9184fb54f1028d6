package input

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/glyphmark/core/dom"
	"github.com/FocuswithJustin/glyphmark/core/errors"
)

const page = "<p>a\u2014b</p>"

func writePlain(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeGzip(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := gzip.NewWriter(f)
	w.Write([]byte(content))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeXZ(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w, err := xz.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(content))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	xhtml := `<?xml version="1.0"?><html xmlns="http://www.w3.org/1999/xhtml"><body><p>x` + "\u00A0" + `y</p></body></html>`
	tests := []struct {
		name string
		path string
		kind dom.Kind
		text string
	}{
		{"html", writePlain(t, dir, "a.html", page), dom.KindHTML, "a\u2014b"},
		{"gzip", writeGzip(t, dir, "b.html.gz", page), dom.KindHTML, "a\u2014b"},
		{"xz", writeXZ(t, dir, "c.htm.xz", page), dom.KindHTML, "a\u2014b"},
		{"xhtml", writePlain(t, dir, "d.xhtml", xhtml), dom.KindXML, "x\u00A0y"},
		{"xhtml xz", writeXZ(t, dir, "e.xhtml.xz", xhtml), dom.KindXML, "x\u00A0y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ReadDocument(tt.path)
			if err != nil {
				t.Fatalf("ReadDocument() error = %v", err)
			}
			if doc.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", doc.Kind(), tt.kind)
			}
			if got := doc.DocumentElement().TextContent(); got != tt.text {
				t.Errorf("TextContent() = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestReadDocumentErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadDocument(filepath.Join(dir, "missing.html")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}

	bad := writePlain(t, dir, "bad.xml", "<a><b></a>")
	var pe *errors.ParseError
	if _, err := ReadDocument(bad); !errors.As(err, &pe) || pe.Format != "XML" {
		t.Errorf("malformed XML error = %v", err)
	}

	notGzip := writePlain(t, dir, "fake.html.gz", page)
	if _, err := ReadDocument(notGzip); err == nil {
		t.Error("ReadDocument() of a non-gzip .gz succeeded")
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		path  string
		base  string
		xml   bool
		isDoc bool
	}{
		{"a.html", "a.html", false, true},
		{"a.HTM.GZ", "a.HTM", false, true},
		{"dir/b.xhtml.xz", "dir/b.xhtml", true, true},
		{"c.xml.gz.xz", "c.xml", true, true},
		{"notes.txt", "notes.txt", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := BaseName(tt.path); got != tt.base {
				t.Errorf("BaseName() = %q, want %q", got, tt.base)
			}
			if IsXML(tt.path) != tt.xml || IsDocument(tt.path) != tt.isDoc {
				t.Errorf("IsXML = %v IsDocument = %v", IsXML(tt.path), IsDocument(tt.path))
			}
		})
	}
}
