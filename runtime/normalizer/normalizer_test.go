package normalizer

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/grnconv/core/grn"
	"github.com/opal-lang/grnconv/core/value"
)

func obj(kv ...any) *value.Object {
	o := value.NewObject()
	for i := 0; i < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1])
	}
	return o
}

func normalize(t *testing.T, n *Normalizer, command string) *value.Object {
	t.Helper()
	inv, err := grn.Parse(command)
	require.NoError(t, err)
	got, err := n.Normalize(inv)
	require.NoError(t, err)
	return got
}

var objectComparer = cmp.Comparer(func(a, b *value.Object) bool { return a.Equal(b) })

func TestNormalizeDrilldownColumns(t *testing.T) {
	command := `select Items \
  --drilldown[label].keys price \
  --drilldown[label].output_columns _key,_nsubrecs,tax_included \
  --drilldown[label].column[tax_included.x].stage initial \
  --drilldown[label].column[tax_included.x].type UInt32 \
  --drilldown[label].column[tax_included.x].flags COLUMN_SCALAR \
  --drilldown[label].column[tax_included.x].value '_key * 1.08'`

	want := obj(
		"table", "Items",
		"drilldowns", obj(
			"label", obj(
				"keys", "price",
				"output_columns", "_key,_nsubrecs,tax_included",
				"columns", obj(
					"tax_included.x", obj(
						"stage", "initial",
						"type", "UInt32",
						"flags", "COLUMN_SCALAR",
						"value", "_key * 1.08",
					),
				),
			),
		),
	)

	got := normalize(t, New("test"), command)
	if diff := cmp.Diff(want, got, objectComparer); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeWindowKeys(t *testing.T) {
	command := `select Logs \
  --columns[a].flags "COLUMN_SCALAR" \
  --columns[a].window.sort_keys "b" \
  --columns[b].flags "COLUMN_SCALAR" \
  --columns[b].window.group_keys "a"`

	want := obj(
		"table", "Logs",
		"columns", obj(
			"a", obj("flags", "COLUMN_SCALAR", "window_sort_keys", "b"),
			"b", obj("flags", "COLUMN_SCALAR", "window_group_keys", "a"),
		),
	)

	n := New("test")
	got := normalize(t, n, command)
	if diff := cmp.Diff(want, got, objectComparer); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
	assert.NotContains(t, n.Report(), "fixed_keys")
}

func TestNormalizeLoadValues(t *testing.T) {
	n := New("test")
	got := normalize(t, n, `load --table Bookmarks --columns "" --values '[["_key","title"],["http://groonga.org/","Groonga"]]'`)

	assert.Equal(t, []string{"table", "values"}, got.Keys())
	values, _ := got.Get("values")
	want := []any{
		[]any{"_key", "title"},
		[]any{"http://groonga.org/", "Groonga"},
	}
	assert.Equal(t, want, values)
}

func TestNormalizeLoadObjectValues(t *testing.T) {
	got := normalize(t, New("test"), `load --table Bookmarks --values '[{"_key":"a","n":1}]'`)

	values, _ := got.Get("values")
	want := []any{obj("_key", "a", "n", json.Number("1"))}
	if diff := cmp.Diff(want, values, objectComparer); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeLoadInvalidValues(t *testing.T) {
	inv, err := grn.Parse(`load --table Users --values '[1,'`)
	require.NoError(t, err)

	_, err = New("test").Normalize(inv)
	assert.True(t, errors.Is(err, ErrInvalidValues))
}

func TestNormalizeNumbers(t *testing.T) {
	got := normalize(t, New("test"), "select Entries --offset -1 --limit 1 --test -1.23")

	want := obj("table", "Entries", "offset", int64(-1), "limit", int64(1), "test", -1.23)
	if diff := cmp.Diff(want, got, objectComparer); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeFixedKeys(t *testing.T) {
	n := New("test")
	got := normalize(t, n, "table_create Terms TABLE_PAT_KEY ShortText --normalize NormalizerAuto --default_normalizer NormalizerAuto")

	assert.Equal(t, []string{"name", "flags", "key_type", "normalizer"}, got.Keys())

	want := map[string]any{
		"fixed_keys": map[string]any{
			"test": map[string]any{"normalize": 1, "default_normalizer": 1},
		},
	}
	assert.Equal(t, want, map[string]any(n.Report()))
}

func TestNormalizeKeepsNormalizeOutsideTableCreate(t *testing.T) {
	n := New("test")
	got := normalize(t, n, "select Users --normalize yes")
	assert.Equal(t, []string{"table", "normalize"}, got.Keys())
	assert.Empty(t, n.Report())
}

func TestNormalizeConflictingGroup(t *testing.T) {
	n := New("test")
	got := normalize(t, n, "select Users --columns x --columns[a].type UInt32")

	cols, _ := got.Get("columns")
	require.IsType(t, &value.Object{}, cols)
	assert.Contains(t, n.Report(), "conflicting_keys")
}

func TestCoerce(t *testing.T) {
	bigVal, _ := new(big.Int).SetString("18446744073709551615", 10)

	tests := []struct {
		key, val string
		want     any
	}{
		{"limit", "10", int64(10)},
		{"offset", "-1", int64(-1)},
		{"limit", "9007199254740991", int64(9007199254740991)},
		{"id", "9007199254740992", big.NewInt(9007199254740992)},
		{"id", "18446744073709551615", bigVal},
		{"id", "-9007199254740993", big.NewInt(-9007199254740993)},
		{"ratio", "1.5", 1.5},
		{"ratio", ".5", 0.5},
		{"version", "1.2.3", "1.2.3"},
		{"dot", ".", "."},
		{"filter", "10", "10"},
		{"query", "1.5", "1.5"},
		{"table", "Users", "Users"},
	}

	for _, tt := range tests {
		got := Coerce(tt.key, tt.val)
		if b, ok := tt.want.(*big.Int); ok {
			gb, ok := got.(*big.Int)
			require.True(t, ok, "Coerce(%q, %q) = %#v", tt.key, tt.val, got)
			assert.Equal(t, 0, b.Cmp(gb))
			continue
		}
		assert.Equal(t, tt.want, got, "Coerce(%q, %q)", tt.key, tt.val)
	}
}

func TestArgsInfo(t *testing.T) {
	inv, err := grn.Parse("select Users --drilldown[a].keys name --limit 10 --ratio 0.5 --flags COLUMN_SCALAR|WITH_POSITION")
	require.NoError(t, err)

	want := map[string]any{
		"drilldown[].keys": map[string]any{"<string>": 1},
		"limit":            map[string]any{"<integer>": 1},
		"ratio":            map[string]any{"<float>": 1},
		"flags":            map[string]any{"COLUMN_SCALAR|WITH_POSITION": 1},
		"table":            map[string]any{"<string>": 1},
	}
	assert.Equal(t, want, ArgsInfo(inv))

	empty := ArgsInfo(grn.Invocation{Name: "status"})
	assert.Equal(t, map[string]any{"<empty>": 1}, empty)
}
