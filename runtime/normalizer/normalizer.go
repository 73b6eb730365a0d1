// Package normalizer turns the flat string arguments of a groonga command
// into the nested, typed arguments the generated client accepts.
//
//	--drilldown[label].columns[x].type UInt32 --limit 10
//
// becomes
//
//	{drilldowns: {label: {columns: {x: {type: "UInt32"}}}}, limit: 10}
package normalizer

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/opal-lang/grnconv/core/grn"
	"github.com/opal-lang/grnconv/core/report"
	"github.com/opal-lang/grnconv/core/value"
)

// ErrInvalidValues is returned when the values of a load are not JSON.
var ErrInvalidValues = errors.New("invalid load values")

// ForceStringKeys never get numeric coercion.
var ForceStringKeys = []string{"script", "query", "filter", "output_columns", "string"}

// MaxSafeInteger is the largest integer every client representation holds
// exactly. Larger magnitudes become *big.Int.
const MaxSafeInteger = 1<<53 - 1

var (
	groupPattern   = regexp.MustCompile(`^(\w+)\[([.\w]+)\]\.`)
	integerPattern = regexp.MustCompile(`^-?\d+$`)
	decimalPattern = regexp.MustCompile(`^-?[\d.]+$`)
	labelPattern   = regexp.MustCompile(`\[[.\w]+\]`)
	flagsPattern   = regexp.MustCompile(`^[A-Z_,|\s]+$`)
)

var groupAliases = map[string]string{
	"column":    "columns",
	"drilldown": "drilldowns",
}

// keyAlias renames an argument key. Recorded aliases correct misspellings
// or deprecated names and are reported per test.
type keyAlias struct {
	from, to string
	command  string // only for this command when set
	record   bool
}

var keyAliases = []keyAlias{
	{from: "default_normalizer", to: "normalizer", record: true},
	{from: "normalize", to: "normalizer", command: "table_create", record: true},
	{from: "token-fitlers", to: "token_filters", record: true},
	{from: "sort_by", to: "sort_keys", record: true},
	{from: "window.sort_keys", to: "window_sort_keys"},
	{from: "window.group_keys", to: "window_group_keys"},
}

// Normalizer normalizes the commands of one transcript and records what it
// had to fix.
type Normalizer struct {
	testPath string
	report   report.Report
}

// New returns a Normalizer reporting under testPath.
func New(testPath string) *Normalizer {
	return &Normalizer{testPath: testPath, report: report.New()}
}

// Report returns the facts recorded so far.
func (n *Normalizer) Report() report.Report { return n.report }

// Normalize converts the arguments of inv. Argument order is kept; keys of
// nested groups appear where the group was first seen.
func (n *Normalizer) Normalize(inv grn.Invocation) (*value.Object, error) {
	out := value.NewObject()
	for _, arg := range inv.Args {
		if err := n.put(out, arg.Key, arg.Value, inv.Name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (n *Normalizer) put(dst *value.Object, key, val, command string) error {
	if m := groupPattern.FindStringSubmatch(key); m != nil {
		group := n.child(dst, fixGroupKey(m[1]), key)
		label := n.child(group, m[2], key)
		return n.put(label, key[len(m[0]):], val, command)
	}

	if command == "load" {
		switch {
		case key == "columns" && val == "":
			return nil
		case key == "values":
			v, err := value.Decode(val)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidValues, err)
			}
			dst.Set(n.fixKey(key, command), v)
			return nil
		}
	}

	dst.Set(n.fixKey(key, command), Coerce(key, val))
	return nil
}

// child returns the object stored under key, replacing a scalar that a
// nested argument collides with.
func (n *Normalizer) child(dst *value.Object, key, arg string) *value.Object {
	if v, ok := dst.Get(key); ok {
		if obj, ok := v.(*value.Object); ok {
			return obj
		}
		n.report.Count("conflicting_keys", n.testPath, arg)
	}
	obj := value.NewObject()
	dst.Set(key, obj)
	return obj
}

func fixGroupKey(key string) string {
	if alias, ok := groupAliases[key]; ok {
		return alias
	}
	return key
}

func (n *Normalizer) fixKey(key, command string) string {
	for _, a := range keyAliases {
		if a.from != key || (a.command != "" && a.command != command) {
			continue
		}
		if a.record {
			n.report.Count("fixed_keys", n.testPath, key)
		}
		return a.to
	}
	return key
}

// Coerce converts an argument value. Keys in ForceStringKeys stay strings;
// integers become int64, or *big.Int beyond MaxSafeInteger; decimals become
// float64. Anything else, including decimals that do not parse such as
// "1.2.3", stays a string.
func Coerce(key, val string) any {
	if slices.Contains(ForceStringKeys, key) {
		return val
	}

	if integerPattern.MatchString(val) {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil && i <= MaxSafeInteger && i >= -MaxSafeInteger {
			return i
		}
		if b, ok := new(big.Int).SetString(val, 10); ok {
			return b
		}
		return val
	}

	if decimalPattern.MatchString(val) {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}

	return val
}

// ArgType classifies a raw argument value as "<string>", "<integer>" or
// "<float>".
func ArgType(key, val string) string {
	if slices.Contains(ForceStringKeys, key) {
		return "<string>"
	}
	if decimalPattern.MatchString(val) {
		if !strings.Contains(val, ".") {
			return "<integer>"
		}
		if val != "." {
			return "<float>"
		}
	}
	return "<string>"
}

// ArgsInfo summarizes the argument shapes of inv for reporting. Labels are
// collapsed to "[]"; flag-like values are kept verbatim, other values are
// reduced to their ArgType.
func ArgsInfo(inv grn.Invocation) map[string]any {
	info := report.New()
	if len(inv.Args) == 0 {
		info.Count("<empty>")
		return info
	}
	for _, arg := range inv.Args {
		key := labelPattern.ReplaceAllString(arg.Key, "[]")
		if flagsPattern.MatchString(arg.Value) {
			info.Count(key, arg.Value)
		} else {
			info.Count(key, ArgType(arg.Key, arg.Value))
		}
	}
	return info
}
