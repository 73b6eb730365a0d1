package directive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/opal-lang/grnconv/runtime/emitter"
)

// ErrSeriesExpression is returned for generate-series record expressions
// outside the supported Ruby subset.
var ErrSeriesExpression = errors.New("unsupported generate-series expression")

type exprKind int

const (
	kindAny exprKind = iota
	kindInt
	kindFloat
	kindString
	kindArray
)

type goExpr struct {
	text     string
	kind     exprKind
	elems    []goExpr // kindArray only
	constant bool     // untyped numeric literal
}

// TranslateSeries translates the Ruby record expression of a generate-series
// directive into a Go expression over the int variable i.
//
// Supported: hash and array literals, single and double quoted strings with
// #{} interpolation, String#% formatting, integer and float literals,
// symbols, true/false/nil, arithmetic, parentheses and the to_s, to_i and
// to_f conversions.
func TranslateSeries(expr string, imports emitter.Imports) (string, error) {
	p := &seriesParser{src: expr, imports: imports}
	e, err := p.expr()
	if err != nil {
		return "", err
	}
	p.skipSpace()
	if !p.done() {
		return "", p.errorf("unexpected %q", p.src[p.pos:])
	}
	return e.text, nil
}

type seriesParser struct {
	src     string
	pos     int
	imports emitter.Imports
}

func (p *seriesParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", ErrSeriesExpression, fmt.Sprintf(format, args...), p.pos)
}

func (p *seriesParser) done() bool { return p.pos >= len(p.src) }

func (p *seriesParser) peek() byte {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *seriesParser) skipSpace() {
	for !p.done() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *seriesParser) expect(s string) error {
	p.skipSpace()
	if !strings.HasPrefix(p.src[p.pos:], s) {
		return p.errorf("expected %q", s)
	}
	p.pos += len(s)
	return nil
}

func (p *seriesParser) need(path string) {
	if p.imports != nil {
		p.imports.Add(path)
	}
}

func (p *seriesParser) expr() (goExpr, error) {
	l, err := p.term()
	if err != nil {
		return goExpr{}, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '+' && op != '-' {
			return l, nil
		}
		p.pos++
		r, err := p.term()
		if err != nil {
			return goExpr{}, err
		}
		if l, err = p.binary(l, op, r); err != nil {
			return goExpr{}, err
		}
	}
}

func (p *seriesParser) term() (goExpr, error) {
	l, err := p.unary()
	if err != nil {
		return goExpr{}, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '*' && op != '/' && op != '%' {
			return l, nil
		}
		p.pos++
		r, err := p.unary()
		if err != nil {
			return goExpr{}, err
		}
		if l, err = p.binary(l, op, r); err != nil {
			return goExpr{}, err
		}
	}
}

func (p *seriesParser) binary(l goExpr, op byte, r goExpr) (goExpr, error) {
	if l.kind == kindString {
		switch op {
		case '+':
			if r.kind != kindString {
				return goExpr{}, p.errorf("cannot add %s to a string", r.text)
			}
			return goExpr{text: l.text + " + " + r.text, kind: kindString}, nil
		case '%':
			args := []goExpr{r}
			if r.kind == kindArray {
				args = r.elems
			}
			texts := make([]string, 0, len(args)+1)
			texts = append(texts, l.text)
			for _, a := range args {
				texts = append(texts, a.text)
			}
			p.need(emitter.ImportFmt)
			return goExpr{text: "fmt.Sprintf(" + strings.Join(texts, ", ") + ")", kind: kindString}, nil
		}
		return goExpr{}, p.errorf("operator %c on a string", op)
	}

	if !numeric(l) || !numeric(r) {
		return goExpr{}, p.errorf("operator %c needs numbers", op)
	}
	if l.kind == kindInt && r.kind == kindInt {
		return goExpr{text: l.text + " " + string(op) + " " + r.text, kind: kindInt}, nil
	}
	if op == '%' {
		return goExpr{}, p.errorf("float modulo")
	}
	return goExpr{text: toFloat(l) + " " + string(op) + " " + toFloat(r), kind: kindFloat}, nil
}

func numeric(e goExpr) bool { return e.kind == kindInt || e.kind == kindFloat }

func toFloat(e goExpr) string {
	if e.kind == kindFloat || e.constant {
		return e.text
	}
	return "float64(" + e.text + ")"
}

func (p *seriesParser) unary() (goExpr, error) {
	p.skipSpace()
	switch p.peek() {
	case '-':
		p.pos++
		e, err := p.unary()
		if err != nil {
			return goExpr{}, err
		}
		if !numeric(e) {
			return goExpr{}, p.errorf("negation needs a number")
		}
		return goExpr{text: "-" + e.text, kind: e.kind, constant: e.constant}, nil
	case '+':
		p.pos++
		return p.unary()
	}
	return p.postfix()
}

func (p *seriesParser) postfix() (goExpr, error) {
	e, err := p.primary()
	if err != nil {
		return goExpr{}, err
	}
	for {
		p.skipSpace()
		if p.peek() != '.' {
			return e, nil
		}
		p.pos++
		method := p.ident()
		switch {
		case method == "to_s" && e.kind == kindString:
		case method == "to_s":
			p.need(emitter.ImportFmt)
			e = goExpr{text: "fmt.Sprint(" + e.text + ")", kind: kindString}
		case method == "to_i" && e.kind == kindInt:
		case method == "to_i" && e.kind == kindFloat:
			e = goExpr{text: "int(" + e.text + ")", kind: kindInt}
		case method == "to_f" && numeric(e):
			e = goExpr{text: toFloat(e), kind: kindFloat}
		default:
			return goExpr{}, p.errorf("method %q", method)
		}
	}
}

func (p *seriesParser) ident() string {
	start := p.pos
	for !p.done() {
		c := p.src[p.pos]
		if c != '_' && !isAlpha(c) && !isDigit(c) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *seriesParser) primary() (goExpr, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case isDigit(c):
		return p.number(), nil
	case c == '"':
		return p.doubleQuoted()
	case c == '\'':
		return p.singleQuoted()
	case c == '{':
		return p.hash()
	case c == '[':
		return p.array()
	case c == '(':
		p.pos++
		e, err := p.expr()
		if err != nil {
			return goExpr{}, err
		}
		if err := p.expect(")"); err != nil {
			return goExpr{}, err
		}
		if e.kind == kindArray {
			return goExpr{}, p.errorf("parenthesized array")
		}
		return goExpr{text: "(" + e.text + ")", kind: e.kind}, nil
	case c == ':':
		p.pos++
		name := p.ident()
		if name == "" {
			return goExpr{}, p.errorf("empty symbol")
		}
		return goExpr{text: strconv.Quote(name), kind: kindString}, nil
	case isAlpha(c) || c == '_':
		switch name := p.ident(); name {
		case "i":
			return goExpr{text: "i", kind: kindInt}, nil
		case "true", "false":
			return goExpr{text: name, kind: kindAny}, nil
		case "nil":
			return goExpr{text: "nil", kind: kindAny}, nil
		default:
			return goExpr{}, p.errorf("identifier %q", name)
		}
	case c == 0:
		return goExpr{}, p.errorf("unexpected end of expression")
	}
	return goExpr{}, p.errorf("unexpected %q", string(c))
}

func (p *seriesParser) number() goExpr {
	var b strings.Builder
	kind := kindInt
	for !p.done() {
		c := p.src[p.pos]
		switch {
		case isDigit(c):
			b.WriteByte(c)
		case c == '_':
		case c == '.' && kind == kindInt && p.pos+1 < len(p.src) && isDigit(p.src[p.pos+1]):
			kind = kindFloat
			b.WriteByte(c)
		default:
			return goExpr{text: b.String(), kind: kind, constant: true}
		}
		p.pos++
	}
	return goExpr{text: b.String(), kind: kind, constant: true}
}

func (p *seriesParser) singleQuoted() (goExpr, error) {
	p.pos++
	var b strings.Builder
	for !p.done() {
		c := p.src[p.pos]
		switch {
		case c == '\'':
			p.pos++
			return goExpr{text: strconv.Quote(b.String()), kind: kindString}, nil
		case c == '\\' && p.pos+1 < len(p.src) && (p.src[p.pos+1] == '\'' || p.src[p.pos+1] == '\\'):
			b.WriteByte(p.src[p.pos+1])
			p.pos += 2
			continue
		default:
			b.WriteByte(c)
		}
		p.pos++
	}
	return goExpr{}, p.errorf("unterminated string")
}

// doubleQuoted renders interpolated strings as fmt.Sprintf calls.
func (p *seriesParser) doubleQuoted() (goExpr, error) {
	p.pos++
	var (
		lit    strings.Builder
		format strings.Builder
		args   []string
	)
	for !p.done() {
		c := p.src[p.pos]
		switch {
		case c == '"':
			p.pos++
			if len(args) == 0 {
				return goExpr{text: strconv.Quote(lit.String()), kind: kindString}, nil
			}
			p.need(emitter.ImportFmt)
			text := "fmt.Sprintf(" + strconv.Quote(format.String()) + ", " + strings.Join(args, ", ") + ")"
			return goExpr{text: text, kind: kindString}, nil
		case c == '\\' && p.pos+1 < len(p.src):
			r := unescape(p.src[p.pos+1])
			lit.WriteByte(r)
			writeFormat(&format, r)
			p.pos += 2
		case c == '#' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '{':
			p.pos += 2
			e, err := p.expr()
			if err != nil {
				return goExpr{}, err
			}
			if err := p.expect("}"); err != nil {
				return goExpr{}, err
			}
			args = append(args, e.text)
			format.WriteString("%v")
		default:
			lit.WriteByte(c)
			writeFormat(&format, c)
			p.pos++
		}
	}
	return goExpr{}, p.errorf("unterminated string")
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	}
	return c
}

func writeFormat(b *strings.Builder, c byte) {
	if c == '%' {
		b.WriteString("%%")
		return
	}
	b.WriteByte(c)
}

func (p *seriesParser) hash() (goExpr, error) {
	p.pos++
	var entries []string
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			break
		}

		key, err := p.hashKey()
		if err != nil {
			return goExpr{}, err
		}
		val, err := p.expr()
		if err != nil {
			return goExpr{}, err
		}
		entries = append(entries, key+": "+val.text)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return goExpr{}, p.errorf("expected , or }")
		}
	}
	return goExpr{text: "map[string]any{" + strings.Join(entries, ", ") + "}", kind: kindAny}, nil
}

// hashKey reads `key =>` or the `key:` shorthand.
func (p *seriesParser) hashKey() (string, error) {
	start := p.pos
	if name := p.ident(); name != "" && p.peek() == ':' && !strings.HasPrefix(p.src[p.pos:], "::") {
		p.pos++
		return strconv.Quote(name), nil
	}
	p.pos = start

	key, err := p.expr()
	if err != nil {
		return "", err
	}
	if key.kind != kindString {
		return "", p.errorf("hash key %s is not a string", key.text)
	}
	if err := p.expect("=>"); err != nil {
		return "", err
	}
	return key.text, nil
}

func (p *seriesParser) array() (goExpr, error) {
	p.pos++
	var elems []goExpr
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			break
		}
		e, err := p.expr()
		if err != nil {
			return goExpr{}, err
		}
		elems = append(elems, e)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
		default:
			return goExpr{}, p.errorf("expected , or ]")
		}
	}

	texts := make([]string, len(elems))
	for i, e := range elems {
		texts[i] = e.text
	}
	return goExpr{text: "[]any{" + strings.Join(texts, ", ") + "}", kind: kindArray, elems: elems}, nil
}
