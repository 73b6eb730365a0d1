// Package converter turns one reconciled transcript into a Go test file:
// it drives the normalizer, directive interpreter and emitter over the
// elements, builds the test's advice and renders the file.
package converter

import (
	"errors"
	"fmt"
	"go/token"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/opal-lang/grnconv/core/report"
	"github.com/opal-lang/grnconv/core/transcript"
	"github.com/opal-lang/grnconv/runtime/directive"
	"github.com/opal-lang/grnconv/runtime/emitter"
	"github.com/opal-lang/grnconv/runtime/normalizer"
	"github.com/opal-lang/grnconv/runtime/parser"
	"github.com/opal-lang/grnconv/runtime/reconciler"
)

// DefaultClientImport is the import path of the generated groonga client.
const DefaultClientImport = "github.com/opal-lang/groongar"

// IsolatedBuildTag guards tests that change process-wide groonga state.
const IsolatedBuildTag = "grntest_isolated"

// ErrIncludesNotConfigured is returned for a script using #@include when the
// converter was built without WithIncludes.
var ErrIncludesNotConfigured = errors.New("#@include needs an include filesystem")

// Transcript is a script transcript with its expected output.
type Transcript struct {
	TestPath string // suite/<dir>/<name>, without extension
	Script   string
	Expected string
}

// Result is a converted transcript.
type Result struct {
	TestPath    string
	FileName    string // slash-separated, relative to the output root
	Source      []byte
	Isolated    bool
	Fingerprint string
	CopyPaths   []string
	Report      report.Report
}

// Converter converts transcripts. It is safe for concurrent use.
type Converter struct {
	dialect      emitter.Dialect
	clientImport string
	tables       Tables
	includes     fs.FS
	cache        *reconciler.IncludeCache
}

// Option configures a Converter.
type Option func(*Converter)

// WithDialect selects the assertion dialect of generated tests.
func WithDialect(d emitter.Dialect) Option {
	return func(c *Converter) {
		c.dialect = d
	}
}

// WithClientImport sets the import path of the groonga client.
func WithClientImport(path string) Option {
	return func(c *Converter) {
		if path != "" {
			c.clientImport = path
		}
	}
}

// WithTables replaces the exception tables.
func WithTables(t Tables) Option {
	return func(c *Converter) {
		c.tables = t
	}
}

// WithIncludes resolves #@include pragmas against fsys. cache may be shared
// between converters.
func WithIncludes(fsys fs.FS, cache *reconciler.IncludeCache) Option {
	return func(c *Converter) {
		c.includes = fsys
		c.cache = cache
	}
}

// New returns a Converter.
func New(opts ...Option) *Converter {
	c := &Converter{
		dialect:      emitter.Testify{},
		clientImport: DefaultClientImport,
		tables:       DefaultTables(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fingerprint digests the inputs a generated file depends on.
func (c *Converter) Fingerprint(tr Transcript) (string, error) {
	fi := &fingerprintInput{
		Version:      FingerprintVersion,
		TestPath:     tr.TestPath,
		Script:       tr.Script,
		Expected:     tr.Expected,
		Dialect:      c.dialect.Name(),
		ClientImport: c.clientImport,
		Omit:         c.tables.Omit[tr.TestPath],
		Drop:         c.tables.Fixups[tr.TestPath].Drop,
	}
	prefix := tr.TestPath + ":"
	for id, reason := range c.tables.Skip {
		if strings.HasPrefix(id, prefix) {
			fi.Skip = append(fi.Skip, id+"="+reason)
		}
	}
	slices.Sort(fi.Skip)
	return fi.Fingerprint()
}

// Convert converts one transcript.
func (c *Converter) Convert(tr Transcript) (*Result, error) {
	rep := report.New()
	elems, err := c.elements(tr, rep)
	if err != nil {
		return nil, err
	}

	em := emitter.New(tr.TestPath, emitter.WithDialect(c.dialect))
	run := &conversion{
		tables: c.tables,
		em:     em,
		norm:   normalizer.New(tr.TestPath),
		interp: directive.New(tr.TestPath, em, rep),
		report: rep,
		advice: &Advice{TestPath: tr.TestPath},
	}
	if reason, ok := c.tables.Omit[tr.TestPath]; ok {
		run.interp.Omit(reason)
	}

	body, err := run.body(elems)
	if err != nil {
		return nil, err
	}
	rep.Merge(run.norm.Report())

	facts := run.interp.Facts()
	adv := run.advice
	adv.Pragma = facts.Pragmas
	adv.Env = facts.Env
	adv.OmitReasons = facts.OmitReasons
	adv.Timeout = facts.Timeout
	adv.Require = facts.Require
	if adv.Timeout > 0 {
		em.Imports().Add(emitter.ImportTime)
	}

	fp, err := c.Fingerprint(tr)
	if err != nil {
		return nil, err
	}

	base := path.Base(tr.TestPath)
	data := &TemplateData{
		TestPath:    tr.TestPath,
		Fingerprint: fp,
		PackageName: PackageName(tr.TestPath),
		Imports:     c.imports(em.Imports()),
		OmitReasons: facts.OmitReasons,
		FuncName:    FuncName(base),
		Advice:      adv.Literal(),
		UsesClient:  em.UsesClient(),
		Body:        body,
	}
	names := FileNames(tr.TestPath)
	fileName := names[0]
	if run.isolated {
		data.BuildTag = IsolatedBuildTag
		fileName = names[1]
	}

	src, err := Render(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		TestPath:    tr.TestPath,
		FileName:    fileName,
		Source:      src,
		Isolated:    run.isolated,
		Fingerprint: fp,
		CopyPaths:   facts.CopyPaths,
		Report:      rep,
	}, nil
}

// elements parses, expands and reconciles a transcript. Include usage is
// recorded into rep.
func (c *Converter) elements(tr Transcript, rep report.Report) ([]transcript.Element, error) {
	script, err := parser.Parse(tr.Script, parser.WithSource(tr.TestPath+".test"))
	if err != nil {
		return nil, err
	}
	if c.includes != nil {
		x := reconciler.NewExpander(c.includes, c.cache)
		script, err = x.Expand(script)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tr.TestPath, err)
		}
		rep.Merge(x.Report())
	} else {
		for _, e := range script {
			if e.Kind != transcript.KindPragma {
				continue
			}
			if name, ok := reconciler.IncludePath(e.Text); ok {
				return nil, fmt.Errorf("%s: include %s: %w", tr.TestPath, name, ErrIncludesNotConfigured)
			}
		}
	}

	expected, err := parser.Parse(tr.Expected, parser.WithResponses(), parser.WithSource(tr.TestPath+".expected"))
	if err != nil {
		return nil, err
	}
	if fix, ok := c.tables.Fixups[tr.TestPath]; ok {
		expected = reconciler.ApplyFixup(expected, fix)
	}

	elems, err := reconciler.Reconcile(script, expected)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tr.TestPath, err)
	}
	return elems, nil
}

func (c *Converter) imports(used emitter.Imports) []string {
	std := []string{"context", "path/filepath", "testing"}
	other := []string{emitter.ImportGrntestkit, c.clientSpec()}
	for _, p := range used.List() {
		if p == emitter.ImportGrntestkit || slices.Contains(std, p) {
			continue
		}
		if isStdlib(p) {
			std = append(std, p)
		} else {
			other = append(other, p)
		}
	}
	slices.Sort(std)
	slices.Sort(other)

	specs := make([]string, 0, len(std)+len(other)+1)
	for _, p := range std {
		specs = append(specs, strconv.Quote(p))
	}
	specs = append(specs, "")
	for _, p := range other {
		if strings.Contains(p, " ") {
			specs = append(specs, p)
			continue
		}
		specs = append(specs, strconv.Quote(p))
	}
	return specs
}

// clientSpec imports the client under the name generated code uses.
func (c *Converter) clientSpec() string {
	if path.Base(c.clientImport) == "groongar" {
		return c.clientImport
	}
	return "groongar " + strconv.Quote(c.clientImport)
}

func isStdlib(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}

// PackageName derives the package of a generated file from the directory of
// its transcript.
func PackageName(testPath string) string {
	dir := path.Base(path.Dir(testPath))
	if dir == "." || dir == "/" {
		return "grntest"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(dir) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	name := b.String()
	if token.IsKeyword(name) || !token.IsIdentifier(name) || name == "_" {
		name = "grn_" + name
	}
	return name
}

// FuncName derives the test function name from a transcript name:
// duplicated_id_key becomes TestDuplicatedIdKey.
func FuncName(base string) string {
	var b strings.Builder
	b.WriteString("Test")
	upper := true
	for _, r := range base {
		if r >= unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FileNames returns the regular and the isolated file name a test can be
// generated as.
func FileNames(testPath string) []string {
	dir, base := path.Split(testPath)
	base = fileBase(base)
	return []string{dir + base + "_test.go", dir + base + "_isolated_test.go"}
}

// fileBase keeps generated file names visible to the go tool, which
// ignores names starting with _ or .
func fileBase(base string) string {
	if strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".") {
		return "x" + base
	}
	return base
}

// conversion is the state of one Convert call.
type conversion struct {
	tables   Tables
	em       *emitter.Emitter
	norm     *normalizer.Normalizer
	interp   *directive.Interpreter
	report   report.Report
	advice   *Advice
	isolated bool
}

func (cv *conversion) body(elems []transcript.Element) ([]string, error) {
	sink := directive.NewSink(cv.em.Imports())
	for _, elem := range elems {
		scope := cv.interp.State().Scope

		var (
			lines []string
			err   error
		)
		switch elem.Kind {
		case transcript.KindCommand:
			lines, err = cv.command(elem)
		case transcript.KindExport:
			lines, err = cv.interp.Export(elem.Text)
		case transcript.KindPragma:
			lines, err = cv.interp.Pragma(elem.Text)
		default:
			lines = directive.CommentLines(elem.Text)
		}
		if err != nil {
			return nil, err
		}

		sink.Push(scope, lines...)
		sink.Push(scope, "")
		sink.Transition(scope, cv.interp.State().Scope)
	}
	return sink.Finish(), nil
}

func (cv *conversion) command(elem transcript.Element) ([]string, error) {
	inv := elem.Invocation
	args, err := cv.norm.Normalize(inv)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", emitter.TestID(cv.em.TestPath(), elem.Seq), err)
	}

	cv.advice.AddCommand(inv.Name)
	cv.report.Add(1, "commands", inv.Name, "count")
	cv.report.Add(normalizer.ArgsInfo(inv), "commands", inv.Name, "args")

	skip := ""
	if elem.Seq > 0 {
		skip = cv.tables.skipReason(emitter.TestID(cv.em.TestPath(), elem.Seq), inv)
		if skip != "" {
			cv.report.Count("skip_reasons", skip)
		}
	}
	if reason := isolationReason(inv); reason != "" {
		cv.isolated = true
		cv.report.Count("isolation_reasons", reason)
	}

	return cv.em.Command(elem, args, skip), nil
}
