// Package pipeline annotates whole documents: it installs an engine,
// delivers the pending mutations, checks that the text is unchanged and
// summarizes the markers.
package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/FocuswithJustin/glyphmark/core/dom"
	"github.com/FocuswithJustin/glyphmark/core/errors"
	"github.com/FocuswithJustin/glyphmark/core/glyphs"
	"github.com/FocuswithJustin/glyphmark/core/mark"
	"github.com/FocuswithJustin/glyphmark/core/report"
	"github.com/FocuswithJustin/glyphmark/internal/input"
	"github.com/FocuswithJustin/glyphmark/internal/logging"
)

// Annotate marks every target character of doc and returns the report. The
// document must be past loading; a loading document is completed first.
func Annotate(doc *dom.Document, reg *glyphs.Registry, source string) (*report.Report, error) {
	start := time.Now()
	root := doc.DocumentElement()
	if root == nil {
		return nil, errors.NewValidation(source, "document has no root element")
	}
	before := doc.Root().TextContent()

	e := mark.NewEngine(mark.WithRegistry(reg), mark.WithLogger(logging.GetLogger()))
	e.Install(doc)
	doc.SetReadyState(dom.Complete)
	if err := doc.Flush(); err != nil {
		return nil, errors.Wrap(err, source)
	}

	if err := report.VerifyPreserved(source, before, doc.Root().TextContent()); err != nil {
		return nil, err
	}
	r := report.Summarize(doc.Root())
	r.Source = source
	st := e.Stats()
	r.Stats = &st

	logging.DocumentProcessed(source, r.Markers, r.ZeroWidth, time.Since(start))
	return r, nil
}

// AnnotateFile reads in, annotates it and writes the result to out. Writing
// goes through a temporary file in out's directory so a failed run never
// leaves a partial document. An empty out writes nothing.
func AnnotateFile(in, out string, reg *glyphs.Registry) (*report.Report, error) {
	doc, err := input.ReadDocument(in)
	if err != nil {
		logging.DocumentError(in, "read", err)
		return nil, err
	}
	r, err := Annotate(doc, reg, in)
	if err != nil {
		logging.DocumentError(in, "annotate", err)
		return nil, err
	}
	if out == "" {
		return r, nil
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return nil, errors.Wrapf(err, "rendering %s", in)
	}
	if err := writeAtomic(out, buf.Bytes()); err != nil {
		logging.DocumentError(in, "write", err, "output", out)
		return nil, err
	}
	return r, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.NewIO("create temp file for", path, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return errors.NewIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return errors.NewIO("close", path, err)
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return errors.NewIO("chmod", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return errors.NewIO("rename into", path, err)
	}
	return nil
}
