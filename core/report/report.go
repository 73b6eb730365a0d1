// Package report accumulates conversion facts (command usage, skipped
// assertions, applied key aliases, ...) as nested tallies.
//
// Partial reports are combined with Merge: numbers add, booleans AND, lists
// concatenate and mappings merge key-wise. Per-transcript reports can
// therefore be produced independently and folded together in any order.
package report

import (
	"io"

	"gopkg.in/yaml.v3"
)

// Report is a nested tally keyed by fact name.
type Report map[string]any

// New returns an empty report.
func New() Report {
	return Report{}
}

// Merge folds src into r and returns r.
func (r Report) Merge(src Report) Report {
	mergeMaps(r, src)
	return r
}

// Count adds one at the nested path, creating intermediate mappings.
//
//	r.Count("skip_reasons", "output_type!=json")
func (r Report) Count(path ...string) {
	r.Add(1, path...)
}

// Add merges v at the nested path.
func (r Report) Add(v any, path ...string) {
	if len(path) == 0 {
		return
	}
	r.Merge(nest(v, path))
}

// Append concatenates items to the list at the nested path.
func (r Report) Append(items []any, path ...string) {
	r.Add(items, path...)
}

// WriteYAML writes the report with sorted keys.
func (r Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(r)); err != nil {
		return err
	}
	return enc.Close()
}

func nest(v any, path []string) Report {
	out := Report{path[len(path)-1]: v}
	for i := len(path) - 2; i >= 0; i-- {
		out = Report{path[i]: map[string]any(out)}
	}
	return out
}

// Merge combines two values following the report rules. An int and a float
// add as floats. Other values of different kinds are not combined; src wins.
// Mappings are merged into dst in place.
func Merge(dst, src any) any {
	switch d := dst.(type) {
	case int:
		switch s := src.(type) {
		case int:
			return d + s
		case float64:
			return float64(d) + s
		}
	case float64:
		switch s := src.(type) {
		case float64:
			return d + s
		case int:
			return d + float64(s)
		}
	case bool:
		if s, ok := src.(bool); ok {
			return d && s
		}
	case []any:
		if s, ok := src.([]any); ok {
			out := make([]any, 0, len(d)+len(s))
			out = append(out, d...)
			return append(out, clone(s).([]any)...)
		}
	case map[string]any:
		if s, ok := asMap(src); ok {
			mergeMaps(d, s)
			return d
		}
	case Report:
		if s, ok := asMap(src); ok {
			mergeMaps(d, s)
			return d
		}
	}
	return clone(src)
}

func mergeMaps(dst, src map[string]any) {
	for k, sv := range src {
		if dv, ok := dst[k]; ok {
			dst[k] = Merge(dv, sv)
		} else {
			dst[k] = clone(sv)
		}
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Report:
		return m, true
	}
	return nil, false
}

// clone deep-copies mappings and lists so merged reports never share
// mutable state with their sources.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	case Report:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	}
	return v
}
