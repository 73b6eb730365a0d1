package converter

import (
	"strings"

	"github.com/opal-lang/grnconv/core/grn"
	"github.com/opal-lang/grnconv/runtime/reconciler"
)

// Tables are the per-test exceptions the converter applies.
type Tables struct {
	// Omit maps a test path to the reason the whole test is skipped.
	Omit map[string]string
	// Skip maps a test id (test path:sequence) to the reason its
	// assertions are commented out.
	Skip map[string]string
	// Fixups are applied to expected transcripts before reconciliation.
	Fixups map[string]reconciler.Fixup
}

// DefaultTables returns the built-in exceptions.
func DefaultTables() Tables {
	return Tables{
		Omit: map[string]string{
			"suite/response/jsonp": "jsonp",
			"suite/index_column_diff/missings/with_section/apache_arrow": "unsupported Apache Arrow",
		},
		Skip: map[string]string{
			"suite/load/array/duplicated_id_key:4":                                         "can't represent duplicated id",
			"suite/load/array/duplicated_id_key:5":                                         "can't represent duplicated id",
			"suite/load/max/int64:4":                                                       "can't handle 64 bit integers",
			"suite/load/max/uint64:4":                                                      "can't handle 64 bit integers",
			"suite/index_column_diff/int64_vector:8":                                       "can't handle 64 bit integers",
			"suite/select/function/math_abs/uint64/max:5":                                  "can't handle 64 bit integers",
			"suite/select/filter/arithmetic_operation/unary_minus/uint64_over_int64_max:5": "can't handle 64 bit integers",
			"suite/select/filter/arithmetic_operation/unary_minus/uint64:5":                "can't handle 64 bit integers",
		},
		Fixups: map[string]reconciler.Fixup{},
	}
}

// Merge overlays o onto t. Entries of o win.
func (t Tables) Merge(o Tables) Tables {
	out := Tables{
		Omit:   make(map[string]string, len(t.Omit)+len(o.Omit)),
		Skip:   make(map[string]string, len(t.Skip)+len(o.Skip)),
		Fixups: make(map[string]reconciler.Fixup, len(t.Fixups)+len(o.Fixups)),
	}
	for _, src := range []Tables{t, o} {
		for k, v := range src.Omit {
			out.Omit[k] = v
		}
		for k, v := range src.Skip {
			out.Skip[k] = v
		}
		for k, v := range src.Fixups {
			out.Fixups[k] = v
		}
	}
	return out
}

// OutputTypeNotJSON is the skip and isolation reason for commands whose
// response is not JSON.
const OutputTypeNotJSON = "output_type!=json"

func (t Tables) skipReason(testID string, inv grn.Invocation) string {
	if reason, ok := t.Skip[testID]; ok {
		return reason
	}
	if inv.OutputType != "" && inv.OutputType != "json" {
		return OutputTypeNotJSON
	}
	return ""
}

// isolationReason names why a command changes state shared by the whole
// groonga process, so its test must not run alongside others.
func isolationReason(inv grn.Invocation) string {
	switch {
	case inv.Name == "cache_limit":
		return "command_name=cache_limit"
	case inv.Name == "tokenize" && argIs(inv, "normalizer", "NormalizerAuto"):
		return "command_name=tokenize&normalizer=NormalizerAuto"
	case inv.OutputType != "" && inv.OutputType != "json":
		return OutputTypeNotJSON
	case strings.HasPrefix(inv.Name, "query_log_flags_"):
		return "command_name=query_log_flags_*"
	}
	return ""
}

func argIs(inv grn.Invocation, key, want string) bool {
	v, ok := inv.Args.Get(key)
	return ok && v == want
}
