// Package mark finds target characters in the text of a live document and
// wraps each one in a marker element, then keeps the document annotated as
// it changes.
//
// An Engine is installed once per document. It scans the document when it
// becomes interactive and then watches it: edited text is re-annotated,
// inserted text is annotated and inserted subtrees are scanned. Annotation
// never changes the text content of the document. Markers are recognised by
// their class, and text inside a marker is never eligible, which is what
// keeps the watcher from reacting to its own commits without end.
//
// Nothing in this package returns an error to the host. Commits that race
// with host changes, failing records and a failing start are counted in
// Stats and otherwise ignored.
package mark

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/FocuswithJustin/glyphmark/core/dom"
	"github.com/FocuswithJustin/glyphmark/core/glyphs"
)

// Stats counts what an engine has done.
type Stats struct {
	InitialMarkers     int64 `json:"initial_markers"`
	IncrementalMarkers int64 `json:"incremental_markers"`
	FailedCommits      int64 `json:"failed_commits"`
	RecordFailures     int64 `json:"record_failures"`
	StartFailures      int64 `json:"start_failures"`
	Active             bool  `json:"active"`
}

// Markers returns the total markers created.
func (s Stats) Markers() int64 {
	return s.InitialMarkers + s.IncrementalMarkers
}

type counters struct {
	initial        atomic.Int64
	incremental    atomic.Int64
	failedCommits  atomic.Int64
	recordFailures atomic.Int64
	startFailures  atomic.Int64
	active         atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the target table. The default table is used otherwise.
func WithRegistry(reg *glyphs.Registry) Option {
	return func(e *Engine) {
		if reg != nil {
			e.reg = reg
		}
	}
}

// WithLogger sets the logger for skipped annotations and start failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine ties the annotator, scanner and watcher to one document.
type Engine struct {
	reg       *glyphs.Registry
	log       *slog.Logger
	stats     *counters
	annotator *Annotator
	scanner   *Scanner
	watcher   *Watcher
	observer  *dom.Observer
}

// NewEngine returns an engine that is not yet installed on any document.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{reg: glyphs.Default(), log: slog.Default(), stats: &counters{}}
	for _, opt := range opts {
		opt(e)
	}
	e.annotator = newAnnotator(e.reg, NewFilter(), e.stats, e.log)
	e.scanner = NewScanner(e.annotator)
	e.watcher = NewWatcher(e.scanner)
	return e
}

// Annotator returns the engine's annotator.
func (e *Engine) Annotator() *Annotator { return e.annotator }

// Install starts the engine on doc: immediately when doc is past loading,
// otherwise once when it becomes interactive. Failures leave the engine
// inactive and are never returned.
func (e *Engine) Install(doc *dom.Document) {
	if doc == nil {
		return
	}
	if doc.ReadyState() == dom.Loading {
		doc.OnInteractive(func() { e.start(doc) })
		return
	}
	e.start(doc)
}

func (e *Engine) start(doc *dom.Document) {
	if err := e.run(doc); err != nil {
		e.stats.startFailures.Add(1)
		e.log.Debug("annotation inactive", "error", err)
	}
}

func (e *Engine) run(doc *dom.Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mark: start: %v", r)
		}
	}()
	if e.observer != nil {
		return fmt.Errorf("mark: engine already started")
	}
	root := doc.DocumentElement()
	if root == nil {
		return fmt.Errorf("mark: document has no root element")
	}
	scope := doc.Body()
	if scope == nil {
		scope = root
	}
	e.stats.initial.Add(int64(e.scanner.Scan(scope)))
	e.observer = e.watcher.Start(root)
	e.stats.active.Store(true)
	return nil
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	return Stats{
		InitialMarkers:     e.stats.initial.Load(),
		IncrementalMarkers: e.stats.incremental.Load(),
		FailedCommits:      e.stats.failedCommits.Load(),
		RecordFailures:     e.stats.recordFailures.Load(),
		StartFailures:      e.stats.startFailures.Load(),
		Active:             e.stats.active.Load(),
	}
}
