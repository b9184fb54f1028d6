package glyphs

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/glyphmark/core/errors"
)

// codePointGrammar is a comma separated list of code points and inclusive
// ranges. Examples: "U+2014", "0x2000..0x200A", "U+00A0, U+2000..U+200A"
//
//nolint:govet // participle grammar tags are not standard struct tags
type codePointGrammar struct {
	Items []*codePointItem `@@ ( "," @@ )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type codePointItem struct {
	From string  `@CodePoint`
	To   *string `( ".." @CodePoint )?`
}

var codePointLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "CodePoint", Pattern: `(?:[Uu]\+|0[xX])?[0-9A-Fa-f]+`},
	{Name: "Punct", Pattern: `\.\.|,`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var codePointParser = participle.MustBuild[codePointGrammar](
	participle.Lexer(codePointLexer),
	participle.Elide("Whitespace"),
)

// ParseCodePoint accepts a single code point written "U+2013", "u+2013",
// "0x2013" or "2013".
func ParseCodePoint(s string) (rune, error) {
	cps, err := ParseCodePoints(s)
	if err != nil {
		return 0, err
	}
	if len(cps) != 1 {
		return 0, errors.NewParse("code point", "", fmt.Sprintf("%q is not a single code point", s))
	}
	return cps[0], nil
}

// ParseCodePoints accepts code points and inclusive ranges separated by
// commas, e.g. "U+00A0, U+2000..U+200A", and returns them in order with
// ranges expanded.
func ParseCodePoints(s string) ([]rune, error) {
	parsed, err := codePointParser.ParseString("", s)
	if err != nil {
		return nil, &errors.ParseError{
			Format:  "code point",
			Message: fmt.Sprintf("%q is not a code point list", s),
			Err:     err,
		}
	}

	var out []rune
	for _, item := range parsed.Items {
		from, err := hexRune(item.From)
		if err != nil {
			return nil, err
		}
		to := from
		if item.To != nil {
			if to, err = hexRune(*item.To); err != nil {
				return nil, err
			}
		}
		if to < from {
			return nil, errors.NewParse("code point", "",
				fmt.Sprintf("range %s..%s runs backwards", CodePoint(from), CodePoint(to)))
		}
		for c := from; c <= to; c++ {
			out = append(out, c)
		}
	}
	return out, nil
}

func hexRune(tok string) (rune, error) {
	t := tok
	for _, p := range []string{"U+", "u+", "0x", "0X"} {
		t = strings.TrimPrefix(t, p)
	}
	v, err := strconv.ParseUint(t, 16, 32)
	if err != nil || v > utf8.MaxRune {
		return 0, errors.NewParse("code point", "", fmt.Sprintf("%q is not a hex code point", tok))
	}
	return rune(v), nil
}
