// Command glyphmark marks unusual Unicode characters in HTML documents.
// It annotates files, reports what it found, serves the HTTP API and
// watches directories.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/glyphmark/core/glyphs"
	"github.com/FocuswithJustin/glyphmark/core/report"
	"github.com/FocuswithJustin/glyphmark/core/sqlite"
	"github.com/FocuswithJustin/glyphmark/internal/api"
	"github.com/FocuswithJustin/glyphmark/internal/config"
	"github.com/FocuswithJustin/glyphmark/internal/history"
	"github.com/FocuswithJustin/glyphmark/internal/input"
	"github.com/FocuswithJustin/glyphmark/internal/logging"
	"github.com/FocuswithJustin/glyphmark/internal/pipeline"
	"github.com/FocuswithJustin/glyphmark/internal/watch"
)

const version = "0.3.0"

// Globals are the flags shared by every command.
type Globals struct {
	Config    string `name:"config" short:"c" help:"Configuration file (.toml, .json or .yaml)" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (text, json)"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`

	cfg *config.Config
}

// CLI defines the command-line interface for glyphmark.
type CLI struct {
	Globals

	Annotate AnnotateCmd `cmd:"" help:"Annotate a document"`
	Scan     ScanCmd     `cmd:"" help:"Report target characters without writing output"`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP API server"`
	Watch    WatchCmd    `cmd:"" help:"Annotate documents as they change in a directory"`
	History  HistoryCmd  `cmd:"" help:"List recorded annotation runs"`
	Targets  TargetsCmd  `cmd:"" help:"List the target characters"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// load reads the configuration once, applies the flag overrides and sets
// up logging.
func (g *Globals) load() (*config.Config, error) {
	if g.cfg != nil {
		return g.cfg, nil
	}
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Log.Format = g.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	logging.InitLoggerTo(g.stderr(), level, format)

	g.cfg = cfg
	return cfg, nil
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Globals) stderr() io.Writer {
	if g.Stderr == nil {
		return os.Stderr
	}
	return g.Stderr
}

// openHistory opens the history database named by path, falling back to
// the configured one. It returns nil when neither is set.
func (g *Globals) openHistory(path string) (*history.Store, error) {
	if path == "" {
		path = g.cfg.History.Path
	}
	if path == "" {
		return nil, nil
	}
	return history.Open(path)
}

func record(store *history.Store, r *report.Report) error {
	if store == nil {
		return nil
	}
	_, err := store.Record(context.Background(), history.Run{
		Source:    r.Source,
		Markers:   r.Markers,
		ZeroWidth: r.ZeroWidth,
		Digest:    r.Digest,
	})
	return err
}

// AnnotateCmd annotates one document.
type AnnotateCmd struct {
	Input   string `arg:"" help:"Input document (- for stdin; .xz and .gz are decompressed)"`
	Out     string `short:"o" help:"Output path (default: stdout)" type:"path"`
	Report  string `help:"Report format (text, json, yaml); default text with -o, none otherwise"`
	History string `help:"History database to record the run in" type:"path"`
}

func (c *AnnotateCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	store, err := g.openHistory(c.History)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var r *report.Report
	reportOut := g.stdout()
	if c.Out != "" {
		if r, err = pipeline.AnnotateFile(c.Input, c.Out, reg); err != nil {
			return err
		}
		if c.Report == "" {
			c.Report = string(report.FormatText)
		}
	} else {
		doc, err := input.ReadDocument(c.Input)
		if err != nil {
			return err
		}
		if r, err = pipeline.Annotate(doc, reg, c.Input); err != nil {
			return err
		}
		if err := doc.Render(g.stdout()); err != nil {
			return err
		}
		reportOut = g.stderr()
	}

	if err := record(store, r); err != nil {
		return err
	}
	if c.Report == "" {
		return nil
	}
	format, err := report.ParseFormat(c.Report)
	if err != nil {
		return err
	}
	return report.Write(reportOut, r, format)
}

// ScanCmd reports on documents without writing annotated copies.
type ScanCmd struct {
	Inputs []string `arg:"" help:"Input documents"`
	Format string   `help:"Report format (text, json, yaml)" default:"text"`
	Fail   bool     `help:"Exit with an error when any target character is found"`
}

// errFound is returned by scan --fail.
var errFound = errors.New("target characters found")

func (c *ScanCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	total := 0
	for _, in := range c.Inputs {
		r, err := pipeline.AnnotateFile(in, "", reg)
		if err != nil {
			return err
		}
		total += r.Markers
		if err := report.Write(g.stdout(), r, format); err != nil {
			return err
		}
	}
	if c.Fail && total > 0 {
		return errFound
	}
	return nil
}

// ServeCmd starts the HTTP API server.
type ServeCmd struct {
	Port    int    `help:"HTTP server port (default: configured port)"`
	History string `help:"History database" type:"path"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	store, err := g.openHistory(c.History)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	port := cfg.Server.Port
	if c.Port != 0 {
		port = c.Port
	}
	return api.Start(api.Config{
		Port:           port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Registry:       reg,
		History:        store,
	})
}

// WatchCmd annotates documents in a directory as they change.
type WatchCmd struct {
	Dir      string        `arg:"" help:"Directory to watch" type:"existingdir"`
	Out      string        `help:"Output directory (default: the watched directory)" type:"path"`
	Suffix   string        `help:"Suffix inserted before the extension of annotated copies (default: configured suffix)"`
	Debounce time.Duration `help:"Quiet period before a changed file is annotated (default: configured)"`
	History  string        `help:"History database" type:"path"`
}

func (c *WatchCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	opts, err := c.options(g, cfg)
	if err != nil {
		return err
	}
	if opts.History != nil {
		defer opts.History.Close()
	}

	w, err := watch.New(opts)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	logging.Info("watching", "dir", opts.Dir, "out", opts.OutDir, "suffix", opts.Suffix)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.Events():
			fmt.Fprintf(g.stdout(), "%s -> %s (%d markers)\n", ev.Path, ev.Output, ev.Report.Markers)
		case err := <-w.Errors():
			logging.Warn("watch error", "error", err)
		}
	}
}

func (c *WatchCmd) options(g *Globals, cfg *config.Config) (watch.Options, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return watch.Options{}, err
	}
	store, err := g.openHistory(c.History)
	if err != nil {
		return watch.Options{}, err
	}
	opts := watch.Options{
		Dir:      c.Dir,
		OutDir:   c.Out,
		Suffix:   cfg.Watch.OutputSuffix,
		Debounce: time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
		Registry: reg,
		History:  store,
	}
	if c.Suffix != "" {
		opts.Suffix = c.Suffix
	}
	if c.Debounce > 0 {
		opts.Debounce = c.Debounce
	}
	return opts, nil
}

// HistoryCmd lists recorded runs, newest first.
type HistoryCmd struct {
	Limit  int    `help:"Maximum number of runs" default:"20"`
	DB     string `name:"db" help:"History database (default: configured path)" type:"path"`
	Format string `help:"Output format (text, json)" default:"text" enum:"text,json"`
}

func (c *HistoryCmd) Run(g *Globals) error {
	if _, err := g.load(); err != nil {
		return err
	}
	store, err := g.openHistory(c.DB)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("no history database: pass --db or set history.path")
	}
	defer store.Close()

	runs, err := store.List(context.Background(), c.Limit)
	if err != nil {
		return err
	}
	if c.Format == "json" {
		enc := json.NewEncoder(g.stdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	tw := tabwriter.NewWriter(g.stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tMARKERS\tZERO-WIDTH\tSOURCE")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", run.ID, run.CreatedAt, run.Markers, run.ZeroWidth, run.Source)
	}
	return tw.Flush()
}

// TargetsCmd lists the active target characters.
type TargetsCmd struct {
	Format string `help:"Output format (text, json)" default:"text" enum:"text,json"`
}

func (c *TargetsCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	entries := reg.Entries()
	if c.Format == "json" {
		enc := json.NewEncoder(g.stdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(g.stdout(), 0, 4, 2, ' ', 0)
	for _, e := range entries {
		var flags []string
		if e.ZeroWidth {
			flags = append(flags, "zero-width")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", glyphs.CodePoint(e.CodePoint), glyphs.ClassFor(e.CodePoint), e.Label, strings.Join(flags, ","))
	}
	return tw.Flush()
}

type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	fmt.Fprintf(g.stdout(), "glyphmark version %s (sqlite driver %s, %s)\n", version, sqlite.DriverName(), sqlite.DriverType())
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("glyphmark"),
		kong.Description("glyphmark - mark unusual Unicode characters in HTML"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
