// Package suite converts a whole grntest suite: it pairs script and expected
// transcripts, converts them in parallel, writes the generated tests with
// their fixtures and keeps them up to date.
package suite

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Root is the directory under the test root that holds the transcripts.
const Root = "suite"

const transcriptGlob = Root + "/**/*.{test,rb,expected}"

// Files are the transcripts of one test, as paths in the suite file system.
type Files struct {
	TestPath string
	Script   string // .test or .rb
	Expected string
}

// Ruby reports whether the script is a Ruby test, which is not a transcript.
func (f Files) Ruby() bool { return strings.HasSuffix(f.Script, ".rb") }

// Index is the result of discovery, sorted by test path.
type Index struct {
	Complete   []Files
	Incomplete []string // test paths missing a script or expected file
}

// Discover pairs the transcripts below Root. When patterns are given only
// test paths matching one of them are kept.
func Discover(fsys fs.FS, patterns ...string) (*Index, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid test pattern %q", p)
		}
	}

	matches, err := doublestar.Glob(fsys, transcriptGlob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("discover transcripts: %w", err)
	}

	byPath := make(map[string]*Files)
	for _, m := range matches {
		ext := path.Ext(m)
		testPath := strings.TrimSuffix(m, ext)
		if !selected(testPath, patterns) {
			continue
		}
		f, ok := byPath[testPath]
		if !ok {
			f = &Files{TestPath: testPath}
			byPath[testPath] = f
		}
		switch ext {
		case ".expected":
			f.Expected = m
		case ".test":
			f.Script = m
		case ".rb":
			if f.Script == "" {
				f.Script = m
			}
		}
	}

	idx := &Index{}
	for _, f := range byPath {
		if f.Script == "" || f.Expected == "" {
			idx.Incomplete = append(idx.Incomplete, f.TestPath)
			continue
		}
		idx.Complete = append(idx.Complete, *f)
	}
	sort.Slice(idx.Complete, func(i, j int) bool { return idx.Complete[i].TestPath < idx.Complete[j].TestPath })
	sort.Strings(idx.Incomplete)
	return idx, nil
}

func selected(testPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, testPath); ok {
			return true
		}
	}
	return false
}

// Only returns the complete entries whose test path is in paths.
func (idx *Index) Only(paths map[string]bool) *Index {
	out := &Index{}
	for _, f := range idx.Complete {
		if paths[f.TestPath] {
			out.Complete = append(out.Complete, f)
		}
	}
	return out
}
