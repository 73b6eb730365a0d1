package emitter

import (
	"fmt"
	"sort"
	"strconv"
)

// Dialect renders single assertions of generated tests. Every method
// returns one statement so a skipped assertion can be commented out line by
// line. The test handle is always named t.
type Dialect interface {
	Name() string
	Imports() []string
	True(expr string) string
	False(expr string) string
	NoError(expr string) string
	Error(expr string) string
	Equal(expected, actual string) string
}

var dialects = map[string]Dialect{
	"testify": Testify{},
	"go-cmp":  GoCmp{},
}

// DialectByName returns a registered dialect.
func DialectByName(name string) (Dialect, error) {
	if d, ok := dialects[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("unknown test dialect %q (available: %v)", name, DialectNames())
}

// DialectNames lists registered dialects.
func DialectNames() []string {
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Testify asserts with github.com/stretchr/testify/assert.
type Testify struct{}

func (Testify) Name() string      { return "testify" }
func (Testify) Imports() []string { return []string{"github.com/stretchr/testify/assert"} }

func (Testify) True(expr string) string    { return "assert.True(t, " + expr + ")" }
func (Testify) False(expr string) string   { return "assert.False(t, " + expr + ")" }
func (Testify) NoError(expr string) string { return "assert.NoError(t, " + expr + ")" }
func (Testify) Error(expr string) string   { return "assert.Error(t, " + expr + ")" }

func (Testify) Equal(expected, actual string) string {
	return "assert.Equal(t, " + expected + ", " + actual + ")"
}

// GoCmp compares with github.com/google/go-cmp/cmp and reports through
// t.Errorf.
type GoCmp struct{}

func (GoCmp) Name() string      { return "go-cmp" }
func (GoCmp) Imports() []string { return []string{"github.com/google/go-cmp/cmp"} }

func (GoCmp) True(expr string) string {
	return "if !(" + expr + ") { t.Errorf(\"%s: want true\", " + strconv.Quote(expr) + ") }"
}

func (GoCmp) False(expr string) string {
	return "if " + expr + " { t.Errorf(\"%s: want false\", " + strconv.Quote(expr) + ") }"
}

func (GoCmp) NoError(expr string) string {
	return "if err := " + expr + "; err != nil { t.Errorf(\"unexpected error: %v\", err) }"
}

func (GoCmp) Error(expr string) string {
	return "if " + expr + " == nil { t.Errorf(\"%s: want error\", " + strconv.Quote(expr) + ") }"
}

func (GoCmp) Equal(expected, actual string) string {
	return "if diff := cmp.Diff(" + expected + ", " + actual + "); diff != \"\" { t.Errorf(\"mismatch (-want +got):\\n%s\", diff) }"
}
