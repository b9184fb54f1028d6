// Package watch annotates HTML documents as they appear or change in a
// directory.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/FocuswithJustin/glyphmark/core/glyphs"
	"github.com/FocuswithJustin/glyphmark/core/report"
	"github.com/FocuswithJustin/glyphmark/internal/history"
	"github.com/FocuswithJustin/glyphmark/internal/input"
	"github.com/FocuswithJustin/glyphmark/internal/pipeline"
)

// DefaultSuffix is inserted before the extension of annotated copies.
const DefaultSuffix = ".marked"

// Options configures a Watcher.
type Options struct {
	Dir      string
	OutDir   string // defaults to Dir
	Suffix   string // defaults to DefaultSuffix
	Debounce time.Duration
	Registry *glyphs.Registry
	History  *history.Store // optional
}

// Event reports one annotated document.
type Event struct {
	Path      string
	Output    string
	Report    *report.Report
	Timestamp time.Time
}

// Watcher annotates documents in a directory once they stop changing.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	opts      Options

	// path -> last modification seen
	state   map[string]time.Time
	stateMu sync.Mutex

	events chan Event
	errors chan error

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopErr  error
}

// New creates a watcher. Call Start to begin watching.
func New(opts Options) (*Watcher, error) {
	if opts.OutDir == "" {
		opts.OutDir = opts.Dir
	}
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher: fsWatcher,
		opts:      opts,
		state:     make(map[string]time.Time),
		events:    make(chan Event, 100),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of annotated documents.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start watches the directory. Documents already present are annotated too.
func (w *Watcher) Start() error {
	dir, err := filepath.Abs(w.opts.Dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.opts.OutDir, 0755); err != nil {
		return err
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.track(filepath.Join(dir, entry.Name()), time.Now())
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	return nil
}

// Stop shuts the watcher down and closes its channels. Later calls return
// the result of the first.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
		close(w.events)
		close(w.errors)
		w.stopErr = w.fsWatcher.Close()
	})
	return w.stopErr
}

// Output returns the annotated copy's path for path: "a.html.gz" gives
// "<out>/a.marked.html".
func (w *Watcher) Output(path string) string {
	base := filepath.Base(input.BaseName(path))
	ext := filepath.Ext(base)
	return filepath.Join(w.opts.OutDir, strings.TrimSuffix(base, ext)+w.opts.Suffix+ext)
}

// wanted reports whether path is a document this watcher annotates.
func (w *Watcher) wanted(path string) bool {
	if !input.IsDocument(path) {
		return false
	}
	base := input.BaseName(filepath.Base(path))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return !strings.HasSuffix(stem, w.opts.Suffix)
}

func (w *Watcher) track(path string, at time.Time) {
	if !w.wanted(path) {
		return
	}
	w.stateMu.Lock()
	w.state[path] = at
	w.stateMu.Unlock()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}
			w.track(event.Name, time.Now())
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()
	tick := w.opts.Debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			w.processStable(now)
		}
	}
}

// processStable annotates files unchanged for the debounce interval. The
// lock is released while annotating so eventLoop is never blocked.
func (w *Watcher) processStable(now time.Time) {
	threshold := now.Add(-w.opts.Debounce)
	var stable []string
	w.stateMu.Lock()
	for path, last := range w.state {
		if last.Before(threshold) {
			stable = append(stable, path)
			delete(w.state, path)
		}
	}
	w.stateMu.Unlock()

	for _, path := range stable {
		out := w.Output(path)
		r, err := pipeline.AnnotateFile(path, out, w.opts.Registry)
		if err != nil {
			w.reportError(err)
			continue
		}
		if w.opts.History != nil {
			run := history.Run{Source: path, Markers: r.Markers, ZeroWidth: r.ZeroWidth, Digest: r.Digest}
			if _, err := w.opts.History.Record(context.Background(), run); err != nil {
				w.reportError(err)
			}
		}
		select {
		case w.events <- Event{Path: path, Output: out, Report: r, Timestamp: now}:
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// Pending returns the number of files waiting to settle.
func (w *Watcher) Pending() int {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return len(w.state)
}
