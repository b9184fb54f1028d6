// Package input opens documents for annotation, decompressing .xz and .gz
// files transparently.
package input

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/glyphmark/core/dom"
	"github.com/FocuswithJustin/glyphmark/core/errors"
)

// Stdin is the path that reads from standard input.
const Stdin = "-"

// Reader wraps a document source with its decompressor.
type Reader struct {
	io.Reader
	file         io.Closer
	decompressor io.Closer
}

// Open opens path for reading. Files ending in .xz or .gz are decompressed.
func Open(path string) (*Reader, error) {
	if path == Stdin {
		return &Reader{Reader: os.Stdin}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}

	r := &Reader{Reader: f, file: f}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xz":
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		r.Reader = xzr
	case ".gz":
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		r.Reader = gzr
		r.decompressor = gzr
	}
	return r, nil
}

// Close closes the reader and any underlying decompressor.
func (r *Reader) Close() error {
	var errs []error
	if r.decompressor != nil {
		if err := r.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// BaseName strips compression suffixes from path: "a.xhtml.xz" gives
// "a.xhtml".
func BaseName(path string) string {
	for {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".xz" && ext != ".gz" {
			return path
		}
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}
}

// IsXML reports whether path names an XML or XHTML document.
func IsXML(path string) bool {
	switch strings.ToLower(filepath.Ext(BaseName(path))) {
	case ".xhtml", ".xht", ".xml":
		return true
	}
	return false
}

// IsDocument reports whether path names a document glyphmark can read.
func IsDocument(path string) bool {
	if IsXML(path) {
		return true
	}
	switch strings.ToLower(filepath.Ext(BaseName(path))) {
	case ".html", ".htm":
		return true
	}
	return false
}

// ReadDocument opens and parses path, choosing the XML parser for XML and
// XHTML files and the HTML parser otherwise.
func ReadDocument(path string) (*dom.Document, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var doc *dom.Document
	format := "HTML"
	if IsXML(path) {
		format = "XML"
		doc, err = dom.ParseXML(r)
	} else {
		doc, err = dom.ParseHTML(r)
	}
	if err != nil {
		return nil, &errors.ParseError{Format: format, Path: path, Message: err.Error(), Err: err}
	}
	return doc, nil
}
