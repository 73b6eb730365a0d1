// Package grn tokenizes groonga command lines into Invocations.
//
// Two surface forms are accepted:
//
//	select Users --filter 'age > 20' --limit 3
//	/d/select.json?table=Users&filter=age+%3E+20
//
// Arguments are kept in first-seen order. Bare arguments are bound to the
// command's positional parameters where they appear; commands without a
// definition keep them under their zero-based position ("0", "1", ...).
package grn

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrEmptyCommand is returned for a command line with no command name.
var ErrEmptyCommand = errors.New("empty command")

// Arg is one command argument.
type Arg struct {
	Key   string
	Value string
}

// Arguments is an ordered list of command arguments with unique keys.
type Arguments []Arg

// Get returns the value for key.
func (a Arguments) Get(key string) (string, bool) {
	for _, arg := range a {
		if arg.Key == key {
			return arg.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present.
func (a Arguments) Has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

// Set replaces the value of key in place or appends it.
func (a *Arguments) Set(key, value string) {
	for i := range *a {
		if (*a)[i].Key == key {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Arg{Key: key, Value: value})
}

// Keys returns argument keys in order.
func (a Arguments) Keys() []string {
	keys := make([]string, len(a))
	for i, arg := range a {
		keys[i] = arg.Key
	}
	return keys
}

// Invocation is a tokenized command before argument normalization.
type Invocation struct {
	Name       string
	Args       Arguments
	OutputType string // from --output_type or the URL extension
	Raw        string // source text including continuations
}

// Clone returns a copy that does not share the argument slice.
func (inv Invocation) Clone() Invocation {
	out := inv
	out.Args = append(Arguments(nil), inv.Args...)
	return out
}

// String formats the invocation back into command syntax with every value
// double-quoted.
func (inv Invocation) String() string {
	var b strings.Builder
	b.WriteString(inv.Name)
	for _, arg := range inv.Args {
		b.WriteString(" --")
		b.WriteString(arg.Key)
		b.WriteString(" ")
		b.WriteString(quote(arg.Value))
	}
	return b.String()
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// Parse tokenizes a command line. Continuation sequences (backslash followed
// by a newline) are joined first.
func Parse(command string) (Invocation, error) {
	text := strings.ReplaceAll(command, "\\\r\n", " ")
	text = strings.ReplaceAll(text, "\\\n", " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return Invocation{}, ErrEmptyCommand
	}

	var inv Invocation
	var err error
	if strings.HasPrefix(text, "/d/") {
		inv, err = parseURL(text)
	} else {
		inv, err = parseCommandLine(text)
	}
	if err != nil {
		return Invocation{}, err
	}
	inv.Raw = command

	if ot, ok := inv.Args.Get("output_type"); ok {
		inv.OutputType = ot
	}

	return inv, nil
}

func parseCommandLine(text string) (Invocation, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return Invocation{}, err
	}
	if len(tokens) == 0 {
		return Invocation{}, ErrEmptyCommand
	}

	inv := Invocation{Name: tokens[0]}
	params, known := PositionalParameters(inv.Name)
	n := 0
	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		if strings.HasPrefix(tok, "--") && len(tok) > 2 {
			value := ""
			if i+1 < len(tokens) {
				value = tokens[i+1]
				i++
			}
			inv.Args.Set(tok[2:], value)
			continue
		}
		switch {
		case !known:
			inv.Args.Set(strconv.Itoa(n), tok)
		case n < len(params):
			inv.Args.Set(params[n], tok)
		default:
			return Invocation{}, fmt.Errorf("%s: unexpected positional argument %q", inv.Name, tok)
		}
		n++
	}

	return inv, nil
}

// tokenize splits on unquoted whitespace. Single and double quotes group
// text; inside quotes a backslash escapes the next character, with \n, \t
// and \r producing control characters.
func tokenize(text string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inToken := false
	var quote rune

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if quote != 0 {
			switch ch {
			case quote:
				quote = 0
			case '\\':
				if i+1 >= len(runes) {
					return nil, fmt.Errorf("dangling escape in %q", text)
				}
				i++
				cur.WriteRune(unescape(runes[i]))
			default:
				cur.WriteRune(ch)
			}
			continue
		}

		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		case ch == '\'' || ch == '"':
			quote = ch
			inToken = true
		case ch == '\\' && i+1 < len(runes):
			i++
			cur.WriteRune(runes[i])
			inToken = true
		default:
			cur.WriteRune(ch)
			inToken = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in %q", quote, text)
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

func unescape(ch rune) rune {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	}
	return ch
}

// parseURL handles the HTTP path form /d/<name>[.<type>][?<query>].
func parseURL(text string) (Invocation, error) {
	rest := strings.TrimPrefix(text, "/d/")
	path, query, _ := strings.Cut(rest, "?")

	var inv Invocation
	name, ext, hasExt := strings.Cut(path, ".")
	inv.Name = name
	if inv.Name == "" {
		return Invocation{}, ErrEmptyCommand
	}
	if hasExt {
		inv.OutputType = ext
	}

	if query == "" {
		return inv, nil
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return Invocation{}, fmt.Errorf("invalid query key %q: %w", k, err)
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return Invocation{}, fmt.Errorf("invalid query value for %s: %w", key, err)
		}
		inv.Args.Set(key, val)
	}
	return inv, nil
}
