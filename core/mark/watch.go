package mark

import (
	"fmt"
	"log/slog"

	"github.com/FocuswithJustin/glyphmark/core/dom"
)

// Watcher keeps a subtree annotated as it changes.
type Watcher struct {
	annotator *Annotator
	scanner   *Scanner
	stats     *counters
	log       *slog.Logger
}

// NewWatcher returns a watcher that re-annotates through s.
func NewWatcher(s *Scanner) *Watcher {
	a := s.annotator
	return &Watcher{annotator: a, scanner: s, stats: a.stats, log: a.log}
}

// Start observes root and its descendants for content edits and insertions.
// The observer stays registered until the host disconnects it.
func (w *Watcher) Start(root *dom.Node) *dom.Observer {
	doc := root.OwnerDocument()
	return doc.Observe(root, dom.ObserveOptions{
		ChildList:     true,
		CharacterData: true,
		Subtree:       true,
	}, func(records []dom.MutationRecord) {
		n := w.Handle(records)
		w.stats.incremental.Add(int64(n))
	})
}

// Handle applies a batch of records and returns the markers created. Edited
// text is re-annotated in isolation; inserted text is annotated and inserted
// elements are scanned. A record that panics is counted and skipped.
func (w *Watcher) Handle(records []dom.MutationRecord) int {
	total := 0
	for i := range records {
		n, err := w.handle(&records[i])
		if err != nil {
			w.stats.recordFailures.Add(1)
			w.log.Debug("mutation record failed", "kind", records[i].Kind.String(), "error", err)
			continue
		}
		total += n
	}
	return total
}

func (w *Watcher) handle(rec *dom.MutationRecord) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mark: %v", r)
		}
	}()
	switch rec.Kind {
	case dom.CharacterData:
		return w.annotator.Annotate(rec.Target), nil
	case dom.ChildList:
		for _, added := range rec.Added {
			switch added.Type {
			case dom.TextNode:
				n += w.annotator.annotateIn(added, rec.Target)
			case dom.ElementNode:
				n += w.scanner.Scan(added)
			}
		}
	}
	return n, nil
}
