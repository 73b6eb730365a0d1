// Package directive interprets the #@ pragmas and #$ exports of a
// transcript. Directives either emit statements into the generated test,
// change the interpreter state (timeout, on-error scope, logging) or record
// facts that end up in the test's Advice.
package directive

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/opal-lang/grnconv/core/invariant"
	"github.com/opal-lang/grnconv/core/report"
	"github.com/opal-lang/grnconv/pkg/grntestkit"
	"github.com/opal-lang/grnconv/runtime/emitter"
)

var (
	// ErrUnknownDirective is returned for a pragma no rule matches.
	ErrUnknownDirective = errors.New("unknown directive")
	// ErrUnknownExport is returned for an export that is not KEY=VALUE.
	ErrUnknownExport = errors.New("unexpected export")
	// ErrUnknownVariable is returned for a #{name} substitution other than
	// db_directory and db_path.
	ErrUnknownVariable = errors.New("unknown variable")
)

// Variables of the generated test that #{...} substitutions refer to.
const (
	DBDirectoryVar = "dbDirectory"
	DBPathVar      = "dbPath"
)

// State is the interpreter state directives change.
type State struct {
	Timeout time.Duration
	Scope   Scope
	Logging bool
}

// EnvVar is an exported variable with its value as a Go expression.
type EnvVar struct {
	Key  string
	Expr string
}

// Facts are what the directives of a transcript tell about the test as a
// whole.
type Facts struct {
	OmitReasons []string
	Pragmas     []string
	Env         []EnvVar
	Timeout     time.Duration
	Require     grntestkit.Requirements
	CopyPaths   []string
}

// Interpreter applies the directives of one transcript in order.
type Interpreter struct {
	testPath string
	em       *emitter.Emitter
	report   report.Report
	state    State
	facts    Facts
}

// New returns an Interpreter for the transcript at testPath. Emitted lines
// use the dialect and import set of em.
func New(testPath string, em *emitter.Emitter, rep report.Report) *Interpreter {
	invariant.NotNil(em, "emitter")
	if rep == nil {
		rep = report.New()
	}
	return &Interpreter{
		testPath: testPath,
		em:       em,
		report:   rep,
		state:    State{Logging: true},
	}
}

// State returns the current state.
func (in *Interpreter) State() State { return in.state }

// Facts returns the facts recorded so far.
func (in *Interpreter) Facts() Facts { return in.facts }

// Report returns the report directives record into.
func (in *Interpreter) Report() report.Report { return in.report }

// Omit records a reason to skip the whole test.
func (in *Interpreter) Omit(reason string) {
	in.report.Count("omit_reasons", reason)
	for _, r := range in.facts.OmitReasons {
		if r == reason {
			return
		}
	}
	in.facts.OmitReasons = append(in.facts.OmitReasons, reason)
}

// Pragma interprets a #@ line and returns the lines to emit for it, starting
// with the pragma itself as a comment.
func (in *Interpreter) Pragma(text string) ([]string, error) {
	line := strings.TrimSpace(text)
	lines := CommentLines(text)

	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		in.notePragma(r.name)
		out, err := r.apply(in, m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.testPath, err)
		}
		return append(lines, out...), nil
	}

	return nil, in.unknown(line)
}

func (in *Interpreter) notePragma(name string) {
	for _, p := range in.facts.Pragmas {
		if p == name {
			return
		}
	}
	in.facts.Pragmas = append(in.facts.Pragmas, name)
}

func (in *Interpreter) unknown(line string) error {
	name := ""
	if m := directiveName.FindStringSubmatch(line); m != nil {
		name = m[1]
	}
	if s := suggest(name); s != "" {
		return fmt.Errorf("%s: %w: %q (did you mean #@%s?)", in.testPath, ErrUnknownDirective, line, s)
	}
	return fmt.Errorf("%s: %w: %q", in.testPath, ErrUnknownDirective, line)
}

// suggest returns the known directive closest to name.
func suggest(name string) string {
	if name == "" {
		return ""
	}
	names := Names()
	ranks := fuzzy.RankFindFold(name, names)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", len(name)/2+1
	for _, n := range names {
		if d := fuzzy.LevenshteinDistance(name, n); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

var exportPattern = regexp.MustCompile(`^#\$(\w+)=(.+)`)

// Export interprets a #$KEY=VALUE line: the variable is set for the rest of
// the test and recorded for the client environment.
func (in *Interpreter) Export(text string) ([]string, error) {
	line := strings.TrimSpace(text)
	m := exportPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("%s: %w: %q", in.testPath, ErrUnknownExport, line)
	}

	expr, err := Interpolate(m[2])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.testPath, err)
	}
	in.facts.Env = append(in.facts.Env, EnvVar{Key: m[1], Expr: expr})
	return []string{"// " + line, "t.Setenv(" + strconv.Quote(m[1]) + ", " + expr + ")"}, nil
}

// CommentLines renders a comment element as Go line comments.
func CommentLines(text string) []string {
	parts := strings.Split(strings.TrimSpace(text), "\n")
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = strings.TrimRight("// "+p, " ")
	}
	return lines
}

var substitution = regexp.MustCompile(`#\{(\w+)\}`)

// Interpolate turns a grntest string with #{db_directory} and #{db_path}
// substitutions into a Go string expression.
func Interpolate(s string) (string, error) {
	var parts []string
	rest := s
	for {
		loc := substitution.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		if loc[0] > 0 {
			parts = append(parts, strconv.Quote(rest[:loc[0]]))
		}
		switch name := rest[loc[2]:loc[3]]; name {
		case "db_directory":
			parts = append(parts, DBDirectoryVar)
		case "db_path":
			parts = append(parts, DBPathVar)
		default:
			return "", fmt.Errorf("%w: #{%s}", ErrUnknownVariable, name)
		}
		rest = rest[loc[1]:]
	}
	if rest != "" || len(parts) == 0 {
		parts = append(parts, strconv.Quote(rest))
	}
	return strings.Join(parts, " + "), nil
}

func (in *Interpreter) timeout(m []string) ([]string, error) {
	secs, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, err
	}
	in.state.Timeout = time.Duration(secs) * time.Second
	if in.state.Timeout > in.facts.Timeout {
		in.facts.Timeout = in.state.Timeout
	}
	return nil, nil
}

func (in *Interpreter) timeoutDefault([]string) ([]string, error) {
	in.state.Timeout = 0
	return nil, nil
}

func (in *Interpreter) omitDirective(m []string) ([]string, error) {
	in.Omit(strings.Fields(m[0])[0])
	return nil, nil
}

func (in *Interpreter) suggestCreateDataset(m []string) ([]string, error) {
	in.em.UseClient()
	return []string{
		emitter.ClientVar + ".SuggestCreateDataset(" + emitter.ContextVar + ", " + strconv.Quote(m[1]) + ")",
	}, nil
}

func (in *Interpreter) onErrorOmit([]string) ([]string, error) {
	in.state.Scope = ScopeBuffering
	in.report.Count("pragma", "#@on-error omit")
	return nil, nil
}

func (in *Interpreter) onErrorDefault([]string) ([]string, error) {
	in.state.Scope = ScopeNormal
	return nil, nil
}

// copyPath copies a fixture relative to the suite root. The generated test
// runs in the directory of its transcript, so the source is prefixed with
// one ../ per directory level.
func (in *Interpreter) copyPath(m []string) ([]string, error) {
	src, dest := m[1], m[2]
	destExpr, err := Interpolate(dest)
	if err != nil {
		return nil, err
	}

	in.report.Count("pragma", "#@copy-path", "src", src)
	in.report.Count("pragma", "#@copy-path", "dest", dest)
	in.facts.CopyPaths = append(in.facts.CopyPaths, src)

	in.em.Imports().Add(emitter.ImportGrntestkit)
	rel := strings.Repeat("../", depth(in.testPath)) + src
	return []string{"grntestkit.CopyPath(t, " + strconv.Quote(rel) + ", " + destExpr + ")"}, nil
}

func depth(testPath string) int {
	dir := path.Dir(testPath)
	if dir == "." || dir == "/" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}

func (in *Interpreter) sleep(m []string) ([]string, error) {
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, err
	}
	in.em.Imports().Add(emitter.ImportGrntestkit, emitter.ImportTime)

	d := time.Duration(secs * float64(time.Second))
	return []string{
		in.em.Dialect().NoError("grntestkit.Sleep(" + emitter.ContextVar + ", " + durationExpr(d) + ")"),
	}, nil
}

func durationExpr(d time.Duration) string {
	if d%time.Second == 0 {
		return strconv.FormatInt(int64(d/time.Second), 10) + "*time.Second"
	}
	return strconv.FormatInt(int64(d/time.Millisecond), 10) + "*time.Millisecond"
}

// generateSeries loads records built from a Ruby expression. Expressions
// that cannot be translated omit the test instead of failing conversion.
func (in *Interpreter) generateSeries(m []string) ([]string, error) {
	from, to, table := m[1], m[2], m[3]
	src := strings.TrimSpace(strings.ReplaceAll(m[4], `\'`, `'`))

	imports := emitter.Imports{}
	expr, err := TranslateSeries(src, imports)
	if err != nil {
		in.Omit("#@generate-series")
		in.report.Count("unsupported_series", src)
		return []string{"// " + err.Error()}, nil
	}
	in.em.Imports().Add(imports.List()...)
	in.em.Imports().Add(emitter.ImportGrntestkit)
	in.em.UseClient()

	call := "grntestkit.GenerateSeries(" + from + ", " + to +
		", func(i int) any { return " + expr + " }" +
		", func(values []any) error { return " + emitter.ClientVar + ".Load(" + emitter.ContextVar +
		", " + emitter.ArgsType + "{\"table\": " + strconv.Quote(table) + ", \"values\": values}).Err })"
	return []string{in.em.Dialect().NoError(call)}, nil
}

func (in *Interpreter) disableLogging([]string) ([]string, error) {
	in.state.Logging = false
	return nil, nil
}

func (in *Interpreter) enableLogging([]string) ([]string, error) {
	in.state.Logging = true
	return nil, nil
}

func (in *Interpreter) requireInputType(m []string) ([]string, error) {
	in.facts.Require.InputType = m[1]
	return nil, nil
}

func (in *Interpreter) requireInterface(m []string) ([]string, error) {
	in.facts.Require.Interface = m[1]
	return nil, nil
}

func (in *Interpreter) requireTestee(m []string) ([]string, error) {
	in.facts.Require.Testee = m[1]
	return nil, nil
}

func (in *Interpreter) requireApacheArrow([]string) ([]string, error) {
	in.facts.Require.ApacheArrow = true
	return nil, nil
}

func (in *Interpreter) requirePlatform(m []string) ([]string, error) {
	in.facts.Require.Platform = m[1]
	return nil, nil
}
