package emitter

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/opal-lang/grnconv/core/value"
)

// Literal renders values as Go composite literals, one element per line.
// Objects keep their key order.
type Literal struct {
	// MapType is the type objects are rendered as, such as "map[string]any"
	// or "groongar.Args".
	MapType string
	imports Imports
}

// NewLiteral returns a Literal recording the imports its output needs into
// imports, which may be nil.
func NewLiteral(mapType string, imports Imports) Literal {
	return Literal{MapType: mapType, imports: imports}
}

// Lines renders v. The first line carries no indentation; following lines
// are indented by depth tabs.
func (l Literal) Lines(v any, depth int) []string {
	switch t := v.(type) {
	case *value.Object:
		if t.Len() == 0 {
			return []string{l.MapType + "{}"}
		}
		lines := []string{l.MapType + "{"}
		t.Range(func(k string, e any) bool {
			lines = append(lines, l.entry(strconv.Quote(k)+": ", e, depth+1)...)
			return true
		})
		return append(lines, indent(depth)+"}")
	case []any:
		if len(t) == 0 {
			return []string{"[]any{}"}
		}
		lines := []string{"[]any{"}
		for _, e := range t {
			lines = append(lines, l.entry("", e, depth+1)...)
		}
		return append(lines, indent(depth)+"}")
	}
	return []string{l.Scalar(v)}
}

func (l Literal) entry(prefix string, v any, depth int) []string {
	lines := l.Lines(v, depth)
	lines[0] = indent(depth) + prefix + lines[0]
	lines[len(lines)-1] += ","
	return lines
}

// Scalar renders a non-container value.
func (l Literal) Scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(t)
	case string:
		return strconv.Quote(t)
	case json.Number:
		l.need(ImportJSON)
		return "json.Number(" + strconv.Quote(t.String()) + ")"
	case *big.Int:
		l.need(ImportJSON)
		return "json.Number(" + strconv.Quote(t.String()) + ")"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return formatFloat(t)
	}
	return strconv.Quote(fmt.Sprint(v))
}

func (l Literal) need(path string) {
	if l.imports != nil {
		l.imports.Add(path)
	}
}

// formatFloat keeps a float64 literal a floating-point constant so it is not
// typed int when stored in an interface.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func indent(depth int) string {
	return strings.Repeat("\t", depth)
}
