package converter

import (
	"strconv"
	"strings"
	"time"

	"github.com/opal-lang/grnconv/pkg/grntestkit"
	"github.com/opal-lang/grnconv/runtime/directive"
)

// Advice is the conversion-time view of a test's grntestkit.Advice. Env
// values are Go expressions over the test's variables.
type Advice struct {
	TestPath    string
	Commands    []string
	Pragma      []string
	Env         []directive.EnvVar
	OmitReasons []string
	Timeout     time.Duration
	Require     grntestkit.Requirements
}

// AddCommand records a command name once.
func (a *Advice) AddCommand(name string) {
	for _, c := range a.Commands {
		if c == name {
			return
		}
	}
	a.Commands = append(a.Commands, name)
}

// Literal renders the advice as a grntestkit.Advice composite literal.
func (a *Advice) Literal() string {
	var b strings.Builder
	b.WriteString("grntestkit.Advice{\n")
	field(&b, "TestPath", strconv.Quote(a.TestPath))
	if len(a.Commands) > 0 {
		field(&b, "Commands", stringSlice(a.Commands))
	}
	if len(a.Pragma) > 0 {
		entries := make([]string, len(a.Pragma))
		for i, p := range a.Pragma {
			entries[i] = strconv.Quote(p) + ": true"
		}
		field(&b, "Pragma", "map[string]bool{"+strings.Join(entries, ", ")+"}")
	}
	if env := dedupeEnv(a.Env); len(env) > 0 {
		entries := make([]string, len(env))
		for i, e := range env {
			entries[i] = strconv.Quote(e.Key) + ": " + e.Expr
		}
		field(&b, "Env", "map[string]string{"+strings.Join(entries, ", ")+"}")
	}
	if len(a.OmitReasons) > 0 {
		field(&b, "Omit", "true")
		field(&b, "OmitReasons", stringSlice(a.OmitReasons))
	}
	if a.Timeout > 0 {
		field(&b, "Timeout", strconv.FormatInt(int64(a.Timeout/time.Second), 10)+" * time.Second")
	}
	if r := requirements(a.Require); r != "" {
		field(&b, "Require", r)
	}
	b.WriteString("}")
	return b.String()
}

func field(b *strings.Builder, name, expr string) {
	b.WriteString("\t" + name + ": " + expr + ",\n")
}

func stringSlice(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[]string{" + strings.Join(quoted, ", ") + "}"
}

// dedupeEnv keeps the last value of each key at its first position.
func dedupeEnv(env []directive.EnvVar) []directive.EnvVar {
	index := make(map[string]int, len(env))
	var out []directive.EnvVar
	for _, e := range env {
		if i, ok := index[e.Key]; ok {
			out[i] = e
			continue
		}
		index[e.Key] = len(out)
		out = append(out, e)
	}
	return out
}

func requirements(r grntestkit.Requirements) string {
	var fields []string
	add := func(name, v string) {
		if v != "" {
			fields = append(fields, name+": "+strconv.Quote(v))
		}
	}
	add("Platform", r.Platform)
	add("Interface", r.Interface)
	add("Testee", r.Testee)
	add("InputType", r.InputType)
	if r.ApacheArrow {
		fields = append(fields, "ApacheArrow: true")
	}
	if len(fields) == 0 {
		return ""
	}
	return "grntestkit.Requirements{" + strings.Join(fields, ", ") + "}"
}
