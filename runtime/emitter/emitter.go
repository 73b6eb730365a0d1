// Package emitter renders reconciled transcript commands as Go statements:
// the client call with its normalized arguments and the assertions on the
// recorded response.
package emitter

import (
	"strconv"
	"strings"

	"github.com/opal-lang/grnconv/core/invariant"
	"github.com/opal-lang/grnconv/core/transcript"
	"github.com/opal-lang/grnconv/core/value"
)

// ArgsType is the argument map type of the generated client.
const ArgsType = "groongar.Args"

// ClientVar and ContextVar name the client and context in generated tests.
const (
	ClientVar  = "g"
	ContextVar = "ctx"
)

// Emitter renders the commands of one transcript.
type Emitter struct {
	testPath   string
	dialect    Dialect
	imports    Imports
	usesClient bool
}

// EmitterOpt configures an Emitter.
type EmitterOpt func(*Emitter)

// WithDialect selects the assertion dialect. The default is Testify.
func WithDialect(d Dialect) EmitterOpt {
	return func(e *Emitter) {
		e.dialect = d
	}
}

// New returns an Emitter for the transcript at testPath.
func New(testPath string, opts ...EmitterOpt) *Emitter {
	e := &Emitter{testPath: testPath, dialect: Testify{}, imports: Imports{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TestPath returns the transcript path commands are identified by.
func (e *Emitter) TestPath() string { return e.testPath }

// Dialect returns the assertion dialect in use.
func (e *Emitter) Dialect() Dialect { return e.dialect }

// Imports returns the imports required by everything emitted so far.
func (e *Emitter) Imports() Imports { return e.imports }

// UseClient records that emitted code calls the client.
func (e *Emitter) UseClient() { e.usesClient = true }

// UsesClient reports whether any emitted code calls the client.
func (e *Emitter) UsesClient() bool { return e.usesClient }

// TestID identifies a command within the suite.
func TestID(testPath string, seq int) string {
	return testPath + ":" + strconv.Itoa(seq)
}

// MethodName converts a command name to the client method name:
// table_create becomes TableCreate.
func MethodName(command string) string {
	var b strings.Builder
	for _, word := range strings.Split(command, "_") {
		if word == "" {
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	return b.String()
}

// CountStr is the variable suffix for a sequence number. Synthetic negative
// ids become _t1, _t2, ...
func CountStr(seq int) string {
	if seq < 0 {
		return "_t" + strconv.Itoa(-seq)
	}
	return strconv.Itoa(seq)
}

// Command emits the statements for one command. skipReason, when set,
// comments out the assertions.
func (e *Emitter) Command(elem transcript.Element, args *value.Object, skipReason string) []string {
	invariant.Precondition(elem.IsCommand(), "element must be a command, got %s", elem.Kind)
	e.UseClient()
	name := elem.Name()
	n := CountStr(elem.Seq)
	lines := []string{"// " + TestID(e.testPath, elem.Seq)}

	if name == "load" {
		if values, ok := args.Get("values"); ok {
			if arr, ok := values.([]any); ok {
				vl := e.literal("map[string]any").Lines(arr, 0)
				vl[0] = "values" + n + " := " + vl[0]
				lines = append(lines, vl...)
			}
		}
	}

	call := e.callLines(name, n, args)
	if elem.Seq > 0 {
		call[0] = "r" + n + " := " + call[0]
	}
	lines = append(lines, call...)

	if elem.Seq <= 0 {
		return lines
	}

	skip := ""
	if skipReason != "" {
		skip = "// "
		lines = append(lines, "// SKIP: "+skipReason)

		// Commented-out assertions need no imports.
		used := e.imports
		e.imports = Imports{}
		defer func() { e.imports = used }()
	}

	if elem.Response.IsError() {
		msg, _ := elem.Response.ErrorMessage()
		return append(lines, e.errorLines(n, msg, skip)...)
	}
	return append(lines, e.successLines(name, n, elem.Response, skip)...)
}

func (e *Emitter) callLines(name, n string, args *value.Object) []string {
	head := ClientVar + "." + MethodName(name) + "(" + ContextVar + ", "
	if args == nil || args.Len() == 0 {
		return []string{head + "nil)"}
	}

	lines := []string{head + ArgsType + "{"}
	lit := e.literal(ArgsType)
	args.Range(func(k string, v any) bool {
		if _, isArray := v.([]any); isArray && k == "values" && name == "load" {
			lines = append(lines, "\t"+strconv.Quote(k)+": values"+n+",")
			return true
		}
		lines = append(lines, lit.entry(strconv.Quote(k)+": ", v, 1)...)
		return true
	})
	return append(lines, "})")
}

func (e *Emitter) errorLines(n, msg, skip string) []string {
	d := e.dialect
	e.imports.Add(d.Imports()...)
	e.imports.Add(ImportStrings)

	r := "r" + n
	lines := []string{
		skip + d.False(r+".OK"),
		skip + d.Error(r+".Err"),
		"if " + r + ".Err != nil {",
		"\t" + skip + "errMsg := " + strconv.Quote(msg),
	}

	expected := "strings.TrimSpace(errMsg)"
	actual := "strings.TrimSpace(" + r + ".Err.Error())"
	if strings.Contains(msg, "<db/db.") {
		e.imports.Add(ImportRegexp)
		expected = "regexp.MustCompile(`<db/db\\.[\\s\\S]*$`).ReplaceAllString(" + expected + ", \"\")"
		actual = "regexp.MustCompile(`<[^<]*$`).ReplaceAllString(" + actual + ", \"\")"
	}
	lines = append(lines, "\t"+skip+d.Equal(expected, actual), "}")
	return lines
}

func (e *Emitter) successLines(name, n string, resp *transcript.Response, skip string) []string {
	d := e.dialect
	e.imports.Add(d.Imports()...)

	r := "r" + n
	expected := "expected" + n
	lines := []string{
		skip + d.NoError(r+".Err"),
		skip + d.True(r+".OK"),
		"if " + r + ".OK {",
	}

	block := e.expectedBlock(name, expected, r, resp)
	for _, l := range block {
		lines = append(lines, "\t"+skip+l)
	}
	return append(lines, "}")
}

// expectedBlock declares the expected value and compares it.
func (e *Emitter) expectedBlock(name, expected, r string, resp *transcript.Response) []string {
	d := e.dialect
	res := resp.Value()

	if text, ok := res.(string); ok && resp.Form == transcript.FormRaw && (name == "dump" || strings.HasPrefix(text, "<?")) {
		e.imports.Add(ImportStrings, ImportFmt)
		lines := []string{expected + " := []string{"}
		for _, l := range strings.Split(text, "\n") {
			lines = append(lines, "\t"+strconv.Quote(l)+",")
		}
		lines = append(lines, "}")
		return append(lines, d.Equal(
			"strings.TrimSpace(strings.Join("+expected+", \"\\n\"))",
			"strings.TrimSpace(fmt.Sprint("+r+".Value))",
		))
	}

	lines := e.literal("map[string]any").Lines([]any{res}, 0)
	lines[0] = expected + " := " + lines[0]

	switch name {
	case "object_inspect":
		e.imports.Add(ImportGrntestkit)
		lines = append(lines, d.Equal(expected, "[]any{grntestkit.FixObjectInspect("+r+".Value)}"))
	case "object_list":
		e.imports.Add(ImportGrntestkit)
		lines = append(lines, d.Equal(
			"[]any{grntestkit.FixObjectList("+expected+"[0])}",
			"[]any{grntestkit.FixObjectList("+r+".Value)}",
		))
	default:
		lines = append(lines, d.Equal(expected, "[]any{"+r+".Value}"))
	}
	return lines
}

func (e *Emitter) literal(mapType string) Literal {
	return NewLiteral(mapType, e.imports)
}
