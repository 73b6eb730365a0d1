package converter

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/grnconv/runtime/directive"
	"github.com/opal-lang/grnconv/runtime/emitter"
	"github.com/opal-lang/grnconv/runtime/reconciler"
)

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

var basic = Transcript{
	TestPath: "suite/select/basic",
	Script: lines(
		"table_create Users TABLE_HASH_KEY ShortText",
		"select Users --limit 1",
	),
	Expected: lines(
		"table_create Users TABLE_HASH_KEY ShortText",
		"[[0,0.0,0.0],true]",
		"select Users --limit 1",
		`[[0,0.0,0.0],[[[0],[["_id","UInt32"],["_key","ShortText"]]]]]`,
	),
}

func TestConvertBasic(t *testing.T) {
	res, err := New().Convert(basic)
	require.NoError(t, err)

	src := string(res.Source)
	assert.Equal(t, "suite/select/basic_test.go", res.FileName)
	assert.False(t, res.Isolated)
	assert.True(t, strings.HasPrefix(src, "// Code generated by grnconv from suite/select/basic. DO NOT EDIT.\n"))
	assert.Contains(t, src, "package grn_select\n")
	assert.Contains(t, src, "func TestBasic(t *testing.T) {")
	assert.Contains(t, src, `"github.com/opal-lang/groongar"`)
	assert.Contains(t, src, `"github.com/stretchr/testify/assert"`)
	assert.Contains(t, src, "r1 := g.TableCreate(ctx, groongar.Args{")
	assert.Contains(t, src, `"limit": 1,`)
	assert.Contains(t, src, "assert.Equal(t, expected2, []any{r2.Value})")
	assert.Contains(t, src, `[]string{"table_create", "select"}`)
	assert.NotContains(t, src, "_ = g")
	assert.NotContains(t, src, "//go:build")

	fp, ok := ReadFingerprint(res.Source)
	require.True(t, ok)
	assert.Equal(t, res.Fingerprint, fp)
	assert.Len(t, fp, 64)

	commands := res.Report["commands"].(map[string]any)
	assert.Equal(t, 1, commands["select"].(map[string]any)["count"])
	assert.Equal(t, map[string]any{"table": map[string]any{"<string>": 1}, "limit": map[string]any{"<integer>": 1}},
		commands["select"].(map[string]any)["args"])
}

func TestConvertIsDeterministic(t *testing.T) {
	a, err := New().Convert(basic)
	require.NoError(t, err)
	b, err := New().Convert(basic)
	require.NoError(t, err)
	assert.Equal(t, string(a.Source), string(b.Source))

	other, err := New(WithDialect(emitter.GoCmp{})).Convert(basic)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint, other.Fingerprint)
	assert.Contains(t, string(other.Source), "cmp.Diff(expected2, []any{r2.Value})")
}

func TestConvertOnErrorRegion(t *testing.T) {
	tr := Transcript{
		TestPath: "suite/t/on_error",
		Script: lines(
			"#@on-error omit",
			"status",
			"#@on-error default",
			"status",
		),
		Expected: lines(
			"status",
			`[[0,0.0,0.0],{"alloc_count":1}]`,
			"status",
			`[[0,0.0,0.0],{"alloc_count":1}]`,
		),
	}
	res, err := New().Convert(tr)
	require.NoError(t, err)

	src := string(res.Source)
	assert.Equal(t, 1, strings.Count(src, "if !grntestkit.Try(t, func(t grntestkit.T) {"))
	tryAt := strings.Index(src, "grntestkit.Try")
	assert.Less(t, tryAt, strings.Index(src, "r1 := g.Status"))
	assert.Greater(t, strings.Index(src, "r2 := g.Status"), strings.Index(src, "\treturn\n"))
	assert.NotContains(t, src, "\n\n\t}) {")
	assert.Contains(t, src, "\t\treturn\n\t}\n\n")
	assert.Equal(t, map[string]any{"#@on-error omit": 1}, res.Report["pragma"])
}

func TestConvertIsolated(t *testing.T) {
	tr := Transcript{
		TestPath: "suite/cache_limit/set",
		Script:   lines("cache_limit 10"),
		Expected: lines("cache_limit 10", "[[0,0.0,0.0],100]"),
	}
	res, err := New().Convert(tr)
	require.NoError(t, err)

	assert.True(t, res.Isolated)
	assert.Equal(t, "suite/cache_limit/set_isolated_test.go", res.FileName)
	assert.Contains(t, string(res.Source), "//go:build "+IsolatedBuildTag+"\n\npackage cache_limit")
	assert.Equal(t, map[string]any{"command_name=cache_limit": 1}, res.Report["isolation_reasons"])
}

func TestConvertOmitAndSkipTables(t *testing.T) {
	tr := Transcript{
		TestPath: "suite/response/jsonp",
		Script:   lines("status"),
		Expected: lines("status", "[[0,0.0,0.0],1]"),
	}
	tables := DefaultTables().Merge(Tables{Skip: map[string]string{"suite/response/jsonp:1": "callback"}})
	res, err := New(WithTables(tables)).Convert(tr)
	require.NoError(t, err)

	src := string(res.Source)
	assert.Contains(t, src, "// OMIT: jsonp")
	assert.Contains(t, src, `[]string{"jsonp"}`)
	assert.Contains(t, src, "// SKIP: callback")
	assert.Contains(t, src, "// assert.NoError(t, r1.Err)")
	assert.Equal(t, map[string]any{"callback": 1}, res.Report["skip_reasons"])
	assert.Equal(t, map[string]any{"jsonp": 1}, res.Report["omit_reasons"])
}

func TestConvertDirectivesAndAdvice(t *testing.T) {
	tr := Transcript{
		TestPath: "suite/t/advice",
		Script: lines(
			"#@timeout 30",
			"#@require-platform !windows",
			"#$GRN_ENABLE_REFERENCE_COUNT=yes",
			"# a note",
		),
		Expected: lines("# a note"),
	}
	res, err := New().Convert(tr)
	require.NoError(t, err)

	src := string(res.Source)
	assert.Contains(t, src, "30 * time.Second")
	assert.Contains(t, src, `"time"`)
	assert.Contains(t, src, `grntestkit.Requirements{Platform: "!windows"}`)
	assert.Contains(t, src, `map[string]string{"GRN_ENABLE_REFERENCE_COUNT": "yes"}`)
	assert.Contains(t, src, `t.Setenv("GRN_ENABLE_REFERENCE_COUNT", "yes")`)
	assert.Contains(t, src, "// # a note")
	assert.Contains(t, src, "_ = g")
}

func TestConvertIncludes(t *testing.T) {
	fsys := fstest.MapFS{
		"include/users.grn": {Data: []byte("table_create Users TABLE_HASH_KEY ShortText\n")},
	}
	cache, err := reconciler.NewIncludeCache(0)
	require.NoError(t, err)

	tr := Transcript{
		TestPath: "suite/t/include",
		Script:   lines("#@include include/users.grn", "select Users"),
		Expected: lines("select Users", `[[0,0.0,0.0],[[[0],[["_id","UInt32"]]]]]`),
	}
	res, err := New(WithIncludes(fsys, cache)).Convert(tr)
	require.NoError(t, err)

	src := string(res.Source)
	assert.Contains(t, src, "// suite/t/include:-1\n\tg.TableCreate(ctx, groongar.Args{")
	assert.Contains(t, src, "r1 := g.Select(ctx")
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, map[string]any{"#@include": map[string]any{"include/users.grn": 1}}, res.Report["pragma"])
}

func TestConvertCopyPath(t *testing.T) {
	tr := Transcript{
		TestPath: "suite/object_remove/corrupt",
		Script:   lines("#@copy-path fixture/object_remove/too_small.data #{db_path}.0000100"),
		Expected: "",
	}
	res, err := New().Convert(tr)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixture/object_remove/too_small.data"}, res.CopyPaths)
	assert.Contains(t, string(res.Source), `grntestkit.CopyPath(t, "../../fixture/object_remove/too_small.data", dbPath+".0000100")`)
}

func TestConvertErrors(t *testing.T) {
	_, err := New().Convert(Transcript{
		TestPath: "suite/t/mismatch",
		Script:   lines("status", "status"),
		Expected: lines("status", "[[0,0.0,0.0],1]"),
	})
	assert.ErrorIs(t, err, reconciler.ErrSequenceMismatch)

	_, err = New().Convert(Transcript{
		TestPath: "suite/t/unknown",
		Script:   lines("#@frobnicate"),
	})
	assert.True(t, errors.Is(err, directive.ErrUnknownDirective))
	assert.Contains(t, err.Error(), "suite/t/unknown")
}

func TestConvertIncludeWithoutFilesystem(t *testing.T) {
	_, err := New().Convert(Transcript{
		TestPath: "suite/t/include",
		Script:   lines("#@include include/users.grn", "status"),
		Expected: lines("status", "[[0,0.0,0.0],1]"),
	})
	require.ErrorIs(t, err, ErrIncludesNotConfigured)
	assert.Contains(t, err.Error(), "suite/t/include: include include/users.grn")
}

func TestNames(t *testing.T) {
	assert.Equal(t, "grn_select", PackageName("suite/select/basic"))
	assert.Equal(t, "index_column_diff", PackageName("suite/index_column_diff/x"))
	assert.Equal(t, "grn_64bit", PackageName("suite/64bit/x"))
	assert.Equal(t, "math_abs", PackageName("suite/select/function/math-abs/x"))
	assert.Equal(t, "grntest", PackageName("x"))

	assert.Equal(t, "TestDuplicatedIdKey", FuncName("duplicated_id_key"))
	assert.Equal(t, "TestUint64OverInt64Max", FuncName("uint64_over_int64_max"))
	assert.Equal(t, "TestJsonp", FuncName("jsonp"))
}

func TestAdviceLiteral(t *testing.T) {
	a := &Advice{TestPath: "suite/t"}
	a.AddCommand("load")
	a.AddCommand("load")
	a.Env = []directive.EnvVar{{Key: "A", Expr: `"1"`}, {Key: "B", Expr: "dbPath"}, {Key: "A", Expr: `"2"`}}

	want := "grntestkit.Advice{\n" +
		"\tTestPath: \"suite/t\",\n" +
		"\tCommands: []string{\"load\"},\n" +
		"\tEnv: map[string]string{\"A\": \"2\", \"B\": dbPath},\n" +
		"}"
	assert.Equal(t, want, a.Literal())
}

func TestReadFingerprint(t *testing.T) {
	_, ok := ReadFingerprint([]byte("package x\n// grnconv:fingerprint abc\n"))
	assert.False(t, ok)

	fp, ok := ReadFingerprint([]byte("// Code generated\n// grnconv:fingerprint abc \n\npackage x\n"))
	assert.True(t, ok)
	assert.Equal(t, "abc", fp)
}

func TestTablesMerge(t *testing.T) {
	base := DefaultTables()
	merged := base.Merge(Tables{
		Omit:   map[string]string{"suite/response/jsonp": "callbacks"},
		Fixups: map[string]reconciler.Fixup{"suite/t": {Drop: []int{2}}},
	})
	assert.Equal(t, "callbacks", merged.Omit["suite/response/jsonp"])
	assert.Equal(t, "jsonp", base.Omit["suite/response/jsonp"])
	assert.Len(t, merged.Skip, len(base.Skip))
	assert.Equal(t, []int{2}, merged.Fixups["suite/t"].Drop)
}
