package reconciler

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/opal-lang/grnconv/core/report"
	"github.com/opal-lang/grnconv/core/transcript"
	"github.com/opal-lang/grnconv/runtime/parser"
)

// ErrIncludeCycle is returned when an included file includes itself,
// directly or indirectly.
var ErrIncludeCycle = errors.New("include cycle")

// DefaultIncludeCacheSize bounds the number of parsed include files kept.
const DefaultIncludeCacheSize = 256

var includePattern = regexp.MustCompile(`^#@include\s+(\S+)`)

// IncludeCache holds expanded include files by name. Cached slices are
// never handed out directly. It is safe for concurrent use.
type IncludeCache struct {
	entries *lru.Cache[string, []transcript.Element]
}

// NewIncludeCache returns a cache holding at most size files.
func NewIncludeCache(size int) (*IncludeCache, error) {
	if size <= 0 {
		size = DefaultIncludeCacheSize
	}
	entries, err := lru.New[string, []transcript.Element](size)
	if err != nil {
		return nil, fmt.Errorf("create include cache: %w", err)
	}
	return &IncludeCache{entries: entries}, nil
}

func (c *IncludeCache) get(name string) ([]transcript.Element, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(name)
}

func (c *IncludeCache) put(name string, elems []transcript.Element) {
	if c == nil {
		return
	}
	c.entries.Add(name, elems)
}

// Len returns the number of cached files.
func (c *IncludeCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// IncludePath returns the target of an #@include pragma.
func IncludePath(pragma string) (string, bool) {
	m := includePattern.FindStringSubmatch(pragma)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Expander replaces #@include pragmas of a script transcript with the
// commands of the included file. Included commands get sequence number 0
// so they are never matched against the expected transcript.
type Expander struct {
	fsys   fs.FS
	cache  *IncludeCache
	report report.Report
}

// NewExpander reads includes from fsys, relative to its root. cache may be
// nil.
func NewExpander(fsys fs.FS, cache *IncludeCache) *Expander {
	return &Expander{fsys: fsys, cache: cache, report: report.New()}
}

// Report returns include usage recorded so far.
func (x *Expander) Report() report.Report { return x.report }

// Expand returns elems with includes expanded.
func (x *Expander) Expand(elems []transcript.Element) ([]transcript.Element, error) {
	return x.expand(elems, nil)
}

func (x *Expander) expand(elems []transcript.Element, stack []string) ([]transcript.Element, error) {
	out := make([]transcript.Element, 0, len(elems))
	for _, e := range elems {
		if e.Kind == transcript.KindPragma {
			if name, ok := IncludePath(e.Text); ok {
				included, err := x.include(name, stack)
				if err != nil {
					return nil, err
				}
				out = append(out, transcript.CloneAll(included)...)
				continue
			}
		}
		out = append(out, e.Clone())
	}
	return out, nil
}

func (x *Expander) include(name string, stack []string) ([]transcript.Element, error) {
	x.report.Count("pragma", "#@include", name)

	key := path.Clean(strings.TrimPrefix(name, "/"))
	for _, s := range stack {
		if s == key {
			return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, strings.Join(append(stack, key), " -> "))
		}
	}

	if cached, ok := x.cache.get(key); ok {
		return cached, nil
	}

	data, err := fs.ReadFile(x.fsys, key)
	if err != nil {
		return nil, fmt.Errorf("include %s: %w", name, err)
	}
	parsed, err := parser.Parse(string(data), parser.WithSource(key))
	if err != nil {
		return nil, fmt.Errorf("include %s: %w", name, err)
	}

	expanded, err := x.expand(parsed, append(stack, key))
	if err != nil {
		return nil, err
	}
	for i := range expanded {
		if expanded[i].IsCommand() {
			expanded[i].Seq = 0
		}
	}

	x.cache.put(key, expanded)
	return expanded, nil
}
