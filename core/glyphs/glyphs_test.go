package glyphs

import (
	"errors"
	"testing"

	gmerrors "github.com/FocuswithJustin/glyphmark/core/errors"
)

func TestDefaultTable(t *testing.T) {
	reg := Default()
	if reg.Len() != 20 {
		t.Fatalf("Len() = %d, want 20", reg.Len())
	}
	if reg.IsTarget(' ') {
		t.Error("regular space must not be a target")
	}

	zeroWidth := map[rune]bool{'\u200B': true, '\uFEFF': true, '\u180E': true}
	for _, e := range reg.Entries() {
		if e.ZeroWidth != zeroWidth[e.CodePoint] {
			t.Errorf("%s ZeroWidth = %v, want %v", CodePoint(e.CodePoint), e.ZeroWidth, zeroWidth[e.CodePoint])
		}
	}
}

func TestEntryFor(t *testing.T) {
	tests := []struct {
		name      string
		char      rune
		wantOK    bool
		wantLabel string
	}{
		{"em dash", '\u2014', true, "EM DASH (U+2014)"},
		{"no-break space", '\u00A0', true, "NO-BREAK SPACE (U+00A0)"},
		{"zero width space", '\u200B', true, "ZERO WIDTH SPACE (U+200B)"},
		{"en dash not built in", '\u2013', false, ""},
		{"ascii letter", 'a', false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := Default().EntryFor(tt.char)
			if ok != tt.wantOK {
				t.Fatalf("EntryFor(%U) ok = %v, want %v", tt.char, ok, tt.wantOK)
			}
			if e.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", e.Label, tt.wantLabel)
			}
			if Default().IsTarget(tt.char) != tt.wantOK {
				t.Errorf("IsTarget(%U) disagrees with EntryFor", tt.char)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	text := "a\u2014b\u00A0c\u200Bd"
	type match struct {
		index int
		char  rune
	}
	want := []match{{1, '\u2014'}, {5, '\u00A0'}, {8, '\u200B'}}

	collect := func() []match {
		var got []match
		for i, c := range Default().Matches(text) {
			got = append(got, match{i, c})
		}
		return got
	}

	for round := 0; round < 2; round++ {
		got := collect()
		if len(got) != len(want) {
			t.Fatalf("round %d: got %d matches, want %d", round, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("round %d: match %d = %+v, want %+v", round, i, got[i], want[i])
			}
		}
	}
}

func TestMatchesEarlyStop(t *testing.T) {
	n := 0
	for range Default().Matches("\u2014\u2014\u2014") {
		n++
		break
	}
	if n != 1 {
		t.Errorf("iterations = %d, want 1", n)
	}
}

func TestContains(t *testing.T) {
	if Default().Contains("plain ascii text") {
		t.Error("Contains() = true for plain text")
	}
	if !Default().Contains("plain\u2009text") {
		t.Error("Contains() = false for thin space")
	}
	if Default().Contains("") {
		t.Error("Contains() = true for empty string")
	}
}

func TestCodePointAndClass(t *testing.T) {
	tests := []struct {
		char      rune
		wantCP    string
		wantClass string
	}{
		{'\u2014', "U+2014", "ai-detector-u+2014"},
		{'\u00A0', "U+00A0", "ai-detector-u+00a0"},
		{'\uFEFF', "U+FEFF", "ai-detector-u+feff"},
		{'\u200A', "U+200A", "ai-detector-u+200a"},
	}
	for _, tt := range tests {
		if got := CodePoint(tt.char); got != tt.wantCP {
			t.Errorf("CodePoint(%U) = %q, want %q", tt.char, got, tt.wantCP)
		}
		if got := ClassFor(tt.char); got != tt.wantClass {
			t.Errorf("ClassFor(%U) = %q, want %q", tt.char, got, tt.wantClass)
		}
	}
}

func TestNewRejectsInvalidTables(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"duplicate", []Entry{{CodePoint: '\u2014'}, {CodePoint: '\u2014'}}},
		{"astral", []Entry{{CodePoint: 0x1F600}}},
		{"surrogate", []Entry{{CodePoint: 0xD800}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries...)
			if !errors.Is(err, gmerrors.ErrInvalidInput) {
				t.Errorf("New() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestExtendLeavesReceiverUnchanged(t *testing.T) {
	base := Default()
	ext, err := base.Extend(Entry{CodePoint: '\u2013', Label: "EN DASH (U+2013)"})
	if err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
	if !ext.IsTarget('\u2013') {
		t.Error("extended registry missing U+2013")
	}
	if base.IsTarget('\u2013') {
		t.Error("Extend() modified the receiver")
	}
	if ext.Len() != base.Len()+1 {
		t.Errorf("Len() = %d, want %d", ext.Len(), base.Len()+1)
	}

	if _, err := base.Extend(Entry{CodePoint: '\u2014'}); err == nil {
		t.Error("Extend() accepted a duplicate code point")
	}
}

func TestDefaultLabel(t *testing.T) {
	reg := MustNew(Entry{CodePoint: '\u2013'})
	e, _ := reg.EntryFor('\u2013')
	if e.Label != "U+2013" {
		t.Errorf("Label = %q, want %q", e.Label, "U+2013")
	}
}

func TestParseCodePoint(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{"U+2013", '\u2013', false},
		{"u+00a0", '\u00A0', false},
		{"0x200B", '\u200B', false},
		{"2014", '\u2014', false},
		{" U+2014 ", '\u2014', false},
		{"", 0, true},
		{"U+zz", 0, true},
		{"U+2013, U+2014", 0, true},
		{"U+2000..U+2001", 0, true},
		{"U+110000", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseCodePoint(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCodePoint(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCodePoint(%q) = %U, want %U", tt.in, got, tt.want)
		}
	}
}

func TestParseCodePoints(t *testing.T) {
	tests := []struct {
		in      string
		want    []rune
		wantErr bool
	}{
		{"U+2014", []rune{'\u2014'}, false},
		{"U+00A0, 0x2E3A", []rune{'\u00A0', '\u2E3A'}, false},
		{"U+2000..U+2003", []rune{'\u2000', '\u2001', '\u2002', '\u2003'}, false},
		{"2028..2029,u+FEFF", []rune{'\u2028', '\u2029', '\uFEFF'}, false},
		{"U+200B..U+200B", []rune{'\u200B'}, false},
		{"U+2003..U+2000", nil, true},
		{"U+2000..", nil, true},
		{"U+2000,", nil, true},
		{"U+2000;U+2001", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCodePoints(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCodePoints(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, gmerrors.ErrInvalidInput) {
					t.Errorf("error = %v, want ErrInvalidInput", err)
				}
				return
			}
			if string(got) != string(tt.want) {
				t.Errorf("ParseCodePoints(%q) = %U, want %U", tt.in, got, tt.want)
			}
		})
	}
}
