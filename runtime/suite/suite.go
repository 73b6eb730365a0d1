package suite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opal-lang/grnconv/core/report"
	"github.com/opal-lang/grnconv/runtime/converter"
)

// ErrRubyScript marks tests written as Ruby scripts, which have no
// transcript to convert.
var ErrRubyScript = errors.New("ruby script test")

// Suite converts the transcripts of one test root.
type Suite struct {
	fsys      fs.FS
	conv      *converter.Converter
	logger    *zap.Logger
	limit     int
	keepGoing bool
	metrics   *Metrics
}

// Option configures a Suite.
type Option func(*Suite)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Suite) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConcurrency bounds the number of transcripts converted at once.
// Values below 1 use GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(s *Suite) {
		s.limit = n
	}
}

// WithKeepGoing records conversion failures in the summary instead of
// stopping at the first one.
func WithKeepGoing(keepGoing bool) Option {
	return func(s *Suite) {
		s.keepGoing = keepGoing
	}
}

// WithMetrics records conversions into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Suite) {
		s.metrics = m
	}
}

// New returns a Suite reading transcripts and fixtures from fsys, the test
// root containing the suite directory.
func New(fsys fs.FS, conv *converter.Converter, opts ...Option) *Suite {
	s := &Suite{fsys: fsys, conv: conv, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.limit < 1 {
		s.limit = runtime.GOMAXPROCS(0)
	}
	return s
}

// Failure is a transcript that could not be converted.
type Failure struct {
	TestPath string
	Err      error
}

// Summary is the outcome of converting an index.
type Summary struct {
	RunID    string
	Results  []*converter.Result // sorted by test path
	Skipped  []string
	Failures []Failure
	Report   report.Report
}

// Convert converts every complete entry of idx.
func (s *Suite) Convert(ctx context.Context, idx *Index) (*Summary, error) {
	results := make([]*converter.Result, len(idx.Complete))
	errs := make([]error, len(idx.Complete))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, f := range idx.Complete {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.convertOne(f)
			if err != nil {
				errs[i] = err
				if s.keepGoing || errors.Is(err, ErrRubyScript) {
					return nil
				}
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &Summary{RunID: uuid.NewString(), Report: report.New()}
	sum.Report.Add(sum.RunID, "run_id")
	if len(idx.Incomplete) > 0 {
		missing := make([]any, len(idx.Incomplete))
		for i, p := range idx.Incomplete {
			missing[i] = p
			s.logger.Warn("not enough files", zap.String("test", p))
		}
		sum.Report.Append(missing, "not enough files")
	}

	for i, f := range idx.Complete {
		switch err := errs[i]; {
		case errors.Is(err, ErrRubyScript):
			sum.Skipped = append(sum.Skipped, f.TestPath)
			sum.Report.Count("unsupported_scripts", f.Script)
		case err != nil:
			sum.Failures = append(sum.Failures, Failure{TestPath: f.TestPath, Err: err})
			sum.Report.Append([]any{f.TestPath}, "conversion_errors")
		default:
			sum.Results = append(sum.Results, results[i])
			sum.Report.Merge(results[i].Report)
		}
	}

	s.logger.Info("converted suite",
		zap.String("run_id", sum.RunID),
		zap.Int("converted", len(sum.Results)),
		zap.Int("skipped", len(sum.Skipped)),
		zap.Int("failed", len(sum.Failures)),
		zap.Int("incomplete", len(idx.Incomplete)))
	return sum, nil
}

func (s *Suite) transcript(f Files) (converter.Transcript, error) {
	script, err := fs.ReadFile(s.fsys, f.Script)
	if err != nil {
		return converter.Transcript{}, err
	}
	expected, err := fs.ReadFile(s.fsys, f.Expected)
	if err != nil {
		return converter.Transcript{}, err
	}
	return converter.Transcript{TestPath: f.TestPath, Script: string(script), Expected: string(expected)}, nil
}

func (s *Suite) convertOne(f Files) (*converter.Result, error) {
	if f.Ruby() {
		s.logger.Debug("skipping ruby script", zap.String("test", f.TestPath))
		s.metrics.observe(OutcomeSkipped, 0, 0, false)
		return nil, fmt.Errorf("%s: %w", f.TestPath, ErrRubyScript)
	}

	tr, err := s.transcript(f)
	if err != nil {
		s.metrics.observe(OutcomeFailed, 0, 0, false)
		return nil, fmt.Errorf("read %s: %w", f.TestPath, err)
	}

	start := time.Now()
	res, err := s.conv.Convert(tr)
	if err != nil {
		s.metrics.observe(OutcomeFailed, 0, 0, false)
		s.logger.Error("conversion failed", zap.String("test", f.TestPath), zap.Error(err))
		return nil, fmt.Errorf("convert %s: %w", f.TestPath, err)
	}
	s.metrics.observe(OutcomeConverted, time.Since(start), commandCount(res.Report), res.Isolated)
	s.logger.Debug("converted",
		zap.String("test", f.TestPath),
		zap.String("file", res.FileName),
		zap.Bool("isolated", res.Isolated))
	return res, nil
}

func commandCount(rep report.Report) int {
	commands, _ := rep["commands"].(map[string]any)
	n := 0
	for _, c := range commands {
		if m, ok := c.(map[string]any); ok {
			if count, ok := m["count"].(int); ok {
				n += count
			}
		}
	}
	return n
}

// Write stores the generated tests of sum below outDir and copies the
// fixtures they reference. A generated file of the other isolation kind is
// removed so a test is never defined twice.
func (s *Suite) Write(outDir string, sum *Summary) error {
	fixtures := make(map[string]bool)
	for _, res := range sum.Results {
		target := filepath.Join(outDir, filepath.FromSlash(res.FileName))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, res.Source, 0o644); err != nil {
			return err
		}
		for _, other := range converter.FileNames(res.TestPath) {
			if other == res.FileName {
				continue
			}
			if err := removeGenerated(filepath.Join(outDir, filepath.FromSlash(other))); err != nil {
				return err
			}
		}
		for _, src := range res.CopyPaths {
			fixtures[src] = true
		}
	}

	srcs := make([]string, 0, len(fixtures))
	for src := range fixtures {
		srcs = append(srcs, src)
	}
	sort.Strings(srcs)
	for _, src := range srcs {
		if err := s.copyFixture(outDir, src); err != nil {
			return err
		}
	}
	s.logger.Info("wrote generated tests",
		zap.String("out", outDir),
		zap.Int("files", len(sum.Results)),
		zap.Int("fixtures", len(srcs)))
	return nil
}

func (s *Suite) copyFixture(outDir, src string) error {
	name := path.Clean(strings.TrimPrefix(src, "/"))
	if !fs.ValidPath(name) {
		return fmt.Errorf("invalid fixture path %q", src)
	}
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return fmt.Errorf("copy fixture: %w", err)
	}
	target := filepath.Join(outDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}

// removeGenerated deletes name if it is a generated test.
func removeGenerated(name string) error {
	data, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, ok := converter.ReadFingerprint(data); !ok {
		return nil
	}
	return os.Remove(name)
}

// Staleness of a generated test.
const (
	StaleMissing  = "missing"
	StaleOutdated = "outdated"
)

// Stale is a generated test that no longer matches its transcripts.
type Stale struct {
	TestPath string
	Reason   string
}

// Check compares the fingerprints of the generated tests below outDir with
// the transcripts of idx.
func (s *Suite) Check(idx *Index, outDir string) ([]Stale, error) {
	var stale []Stale
	for _, f := range idx.Complete {
		if f.Ruby() {
			continue
		}
		tr, err := s.transcript(f)
		if err != nil {
			return nil, err
		}
		want, err := s.conv.Fingerprint(tr)
		if err != nil {
			return nil, err
		}

		reason := StaleMissing
		for _, name := range converter.FileNames(f.TestPath) {
			data, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(name)))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			reason = StaleOutdated
			if got, ok := converter.ReadFingerprint(data); ok && got == want {
				reason = ""
				break
			}
		}
		if reason != "" {
			stale = append(stale, Stale{TestPath: f.TestPath, Reason: reason})
		}
	}
	return stale, nil
}

// Clean removes every generated test below outDir and returns the removed
// paths relative to outDir.
func Clean(outDir string) ([]string, error) {
	var removed []string
	err := filepath.WalkDir(outDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, "_test.go") {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if _, ok := converter.ReadFingerprint(data); !ok {
			return nil
		}
		if err := os.Remove(p); err != nil {
			return err
		}
		rel, _ := filepath.Rel(outDir, p)
		removed = append(removed, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return removed, err
}
