// Package report summarizes the markers in an annotated document and checks
// that annotation left the document text unchanged.
package report

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/glyphmark/core/dom"
	"github.com/FocuswithJustin/glyphmark/core/errors"
	"github.com/FocuswithJustin/glyphmark/core/glyphs"
	"github.com/FocuswithJustin/glyphmark/core/mark"
)

// Version is the report format version.
const Version = "1.0.0"

// Format selects a report encoding.
type Format string

// Report formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a format name. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", errors.NewValidation("format", fmt.Sprintf("unknown report format %q", s))
	}
}

// Report describes the markers found in one document.
type Report struct {
	Version   string      `json:"version" yaml:"version"`
	Source    string      `json:"source,omitempty" yaml:"source,omitempty"`
	Markers   int         `json:"markers" yaml:"markers"`
	ZeroWidth int         `json:"zero_width" yaml:"zero_width"`
	Counts    []Count     `json:"counts" yaml:"counts"`
	Digest    string      `json:"digest" yaml:"digest"`
	Stats     *mark.Stats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Count is the number of markers for one code point.
type Count struct {
	CodePoint string `json:"code_point" yaml:"code_point"`
	Label     string `json:"label" yaml:"label"`
	Count     int    `json:"count" yaml:"count"`
}

// Summarize counts the markers under root. The digest covers the text
// content of root, which annotation does not change.
func Summarize(root *dom.Node) *Report {
	r := &Report{Version: Version, Counts: []Count{}}
	if root == nil {
		r.Digest = Digest("")
		return r
	}

	byRune := make(map[rune]*Count)
	w := dom.NewTreeWalker(root, func(n *dom.Node) dom.Verdict {
		if n.Type == dom.ElementNode && n.HasClass(mark.HighlightClass) {
			return dom.Accept
		}
		return dom.Skip
	})
	for m := w.NextNode(); m != nil; m = w.NextNode() {
		text := []rune(m.TextContent())
		if len(text) != 1 {
			continue
		}
		r.Markers++
		if m.HasClass(mark.ZeroWidthClass) {
			r.ZeroWidth++
		}
		c, ok := byRune[text[0]]
		if !ok {
			title, _ := m.GetAttr("title")
			cp := glyphs.CodePoint(text[0])
			c = &Count{CodePoint: cp, Label: strings.TrimSuffix(title, " ("+cp+")")}
			byRune[text[0]] = c
		}
		c.Count++
	}

	runes := make([]rune, 0, len(byRune))
	for c := range byRune {
		runes = append(runes, c)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	for _, c := range runes {
		r.Counts = append(r.Counts, *byRune[c])
	}
	r.Digest = Digest(root.TextContent())
	return r
}

// Digest returns the BLAKE3 hex digest of text.
func Digest(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// maxDiffParts bounds the changes quoted in a PreservationError.
const maxDiffParts = 3

// VerifyPreserved returns a *errors.PreservationError when after differs
// from before.
func VerifyPreserved(source, before, after string) error {
	if before == after {
		return nil
	}
	dmp := diffpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	offset := -1
	pos := 0
	var parts []string
	for _, d := range diffs {
		switch d.Type {
		case diffpatch.DiffEqual:
			pos += len(d.Text)
			continue
		case diffpatch.DiffDelete:
			if offset < 0 {
				offset = pos
			}
			pos += len(d.Text)
			parts = append(parts, fmt.Sprintf("-%q", d.Text))
		case diffpatch.DiffInsert:
			if offset < 0 {
				offset = pos
			}
			parts = append(parts, fmt.Sprintf("+%q", d.Text))
		}
		if len(parts) == maxDiffParts {
			parts = append(parts, "...")
			break
		}
	}
	return &errors.PreservationError{Source: source, Offset: offset, Diff: strings.Join(parts, " ")}
}

// Write encodes r to w in format f.
func Write(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		_, err = w.Write(data)
		return err
	case FormatText, "":
		return writeText(w, r)
	default:
		return errors.NewUnsupported("report format", string(f))
	}
}

func writeText(w io.Writer, r *Report) error {
	bold := color.New(color.Bold).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	var b strings.Builder
	if r.Source != "" {
		fmt.Fprintf(&b, "%s\n", bold(r.Source))
	}
	markers := fmt.Sprintf("%d", r.Markers)
	if r.Markers > 0 {
		markers = warn(markers)
	}
	fmt.Fprintf(&b, "markers:    %s (%d zero-width)\n", markers, r.ZeroWidth)
	fmt.Fprintf(&b, "digest:     %s\n", faint(r.Digest))
	for _, c := range r.Counts {
		fmt.Fprintf(&b, "  %-8s %6d  %s\n", c.CodePoint, c.Count, c.Label)
	}
	if s := r.Stats; s != nil && (s.FailedCommits > 0 || s.RecordFailures > 0 || s.StartFailures > 0) {
		fmt.Fprintf(&b, "skipped:    %d commits, %d records, %d starts\n",
			s.FailedCommits, s.RecordFailures, s.StartFailures)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
