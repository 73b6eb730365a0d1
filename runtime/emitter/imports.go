package emitter

import "sort"

// Import paths referenced by emitted code.
const (
	ImportJSON       = "encoding/json"
	ImportFmt        = "fmt"
	ImportRegexp     = "regexp"
	ImportStrings    = "strings"
	ImportTime       = "time"
	ImportGrntestkit = "github.com/opal-lang/grnconv/pkg/grntestkit"
)

// Imports is the set of packages emitted lines depend on.
type Imports map[string]bool

// Add records paths.
func (im Imports) Add(paths ...string) {
	for _, p := range paths {
		im[p] = true
	}
}

// List returns the recorded paths sorted.
func (im Imports) List() []string {
	out := make([]string, 0, len(im))
	for p := range im {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
