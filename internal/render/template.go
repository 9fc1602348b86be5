// Package render compiles output templates and port filters.
//
// A template is literal text with {name} placeholders. Braces are escaped by
// doubling them ({{ and }}). A placeholder may carry a conversion and a format
// spec, written {name!conv:spec}:
//
//	conv  s (as is) or r (single-quoted)
//	spec  [[fill]align][0][width][.precision][s], align one of < > ^
//
// Values are strings, so the only accepted type is s. A precision truncates
// the value before it is padded. A leading 0 on the width pads with zeros
// unless a fill character is given.
//
// Syntax problems are reported by Compile. Placeholder names are resolved per
// fact by Execute, so a template naming an unknown field compiles and then
// fails for each fact it is applied to.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/anstrom/nmap-parse/internal/errors"
	"github.com/anstrom/nmap-parse/internal/facts"
)

// Field names available to templates.
const (
	FieldIP   = "ip"
	FieldPort = "port"
)

type alignment byte

const (
	alignLeft   alignment = '<'
	alignRight  alignment = '>'
	alignCenter alignment = '^'
)

// segment is either literal text or a placeholder. precision is the maximum
// rune count of a placeholder value, -1 when unset.
type segment struct {
	literal   string
	field     string
	isField   bool
	repr      bool
	fill      rune
	align     alignment
	width     int
	precision int
}

// Template is a compiled output template. It is safe for concurrent use.
type Template struct {
	text     string
	segments []segment
}

// Compile parses text into a Template.
func Compile(text string) (*Template, error) {
	segments, err := parseSegments(text)
	if err != nil {
		return nil, errors.ErrTemplateSyntax(text, err)
	}
	return &Template{text: text, segments: segments}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(text string) *Template {
	t, err := Compile(text)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template source.
func (t *Template) String() string {
	return t.text
}

// Execute renders f. A placeholder other than ip or port yields an
// *errors.RenderError naming it.
func (t *Template) Execute(f facts.PortFact) (string, error) {
	var b strings.Builder
	for _, seg := range t.segments {
		if !seg.isField {
			b.WriteString(seg.literal)
			continue
		}

		var value string
		switch seg.field {
		case FieldIP:
			value = f.Host
		case FieldPort:
			value = f.Port
		default:
			return "", errors.NewRenderError(seg.field, f.Host, f.Port)
		}

		if seg.repr {
			value = "'" + value + "'"
		}
		b.WriteString(pad(truncate(value, seg.precision), seg))
	}
	return b.String(), nil
}

func truncate(value string, precision int) string {
	if precision < 0 || utf8.RuneCountInString(value) <= precision {
		return value
	}
	runes := []rune(value)
	return string(runes[:precision])
}

func pad(value string, seg segment) string {
	n := seg.width - utf8.RuneCountInString(value)
	if n <= 0 {
		return value
	}

	fill := string(seg.fill)
	switch seg.align {
	case alignRight:
		return strings.Repeat(fill, n) + value
	case alignCenter:
		left := n / 2
		return strings.Repeat(fill, left) + value + strings.Repeat(fill, n-left)
	default:
		return value + strings.Repeat(fill, n)
	}
}

func parseSegments(text string) ([]segment, error) {
	var segments []segment
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				literal.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("single '{' encountered at offset %d", i)
			}
			inner := text[i+1 : i+1+end]
			if strings.ContainsRune(inner, '{') {
				return nil, fmt.Errorf("unexpected '{' in placeholder at offset %d", i)
			}
			seg, err := parsePlaceholder(inner)
			if err != nil {
				return nil, err
			}
			flush()
			segments = append(segments, seg)
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				literal.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("single '}' encountered at offset %d", i)
		default:
			literal.WriteByte(c)
		}
	}
	flush()

	return segments, nil
}

func parsePlaceholder(inner string) (segment, error) {
	seg := segment{isField: true, fill: ' ', align: alignLeft, precision: -1}

	name, spec, hasSpec := strings.Cut(inner, ":")
	name, conv, hasConv := strings.Cut(name, "!")
	seg.field = name

	if hasConv {
		switch conv {
		case "s":
		case "r":
			seg.repr = true
		default:
			return segment{}, fmt.Errorf("unknown conversion %q in placeholder {%s}", conv, inner)
		}
	}

	if hasSpec && spec != "" {
		if err := parseSpec(spec, &seg); err != nil {
			return segment{}, fmt.Errorf("invalid format spec in placeholder {%s}: %w", inner, err)
		}
	}

	return seg, nil
}

func parseSpec(spec string, seg *segment) error {
	rest := spec
	explicitFill := false

	first, size := utf8.DecodeRuneInString(rest)
	if len(rest) > size && isAlign(rest[size]) {
		seg.fill = first
		seg.align = alignment(rest[size])
		rest = rest[size+1:]
		explicitFill = true
	} else if isAlign(rest[0]) {
		seg.align = alignment(rest[0])
		rest = rest[1:]
	}

	if strings.HasPrefix(rest, "0") {
		if !explicitFill {
			seg.fill = '0'
		}
		rest = rest[1:]
	}

	if digits := leadingDigits(rest); digits != "" {
		width, err := strconv.Atoi(digits)
		if err != nil {
			return fmt.Errorf("unsupported width %q", digits)
		}
		seg.width = width
		rest = rest[len(digits):]
	}

	if strings.HasPrefix(rest, ".") {
		digits := leadingDigits(rest[1:])
		if digits == "" {
			return fmt.Errorf("missing precision in %q", spec)
		}
		precision, err := strconv.Atoi(digits)
		if err != nil {
			return fmt.Errorf("unsupported precision %q", digits)
		}
		seg.precision = precision
		rest = rest[1+len(digits):]
	}

	switch rest {
	case "", "s":
		return nil
	default:
		return fmt.Errorf("unsupported format type %q for a string value", rest)
	}
}

func leadingDigits(s string) string {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return s[:n]
}

func isAlign(c byte) bool {
	return c == byte(alignLeft) || c == byte(alignRight) || c == byte(alignCenter)
}
