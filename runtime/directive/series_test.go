package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/grnconv/runtime/emitter"
)

func TestTranslateSeries(t *testing.T) {
	tests := []struct {
		ruby string
		want string
		fmt  bool
	}{
		{`{"_key" => i.to_s}`, `map[string]any{"_key": fmt.Sprint(i)}`, true},
		{`{"n" => i, "f" => i.to_f / 2}`, `map[string]any{"n": i, "f": float64(i) / 2}`, false},
		{`{"key" => "key#{i}"}`, `map[string]any{"key": fmt.Sprintf("key%v", i)}`, true},
		{`{"key" => "%04d" % i}`, `map[string]any{"key": fmt.Sprintf("%04d", i)}`, true},
		{`{"key" => "%d-%d" % [i, i + 1]}`, `map[string]any{"key": fmt.Sprintf("%d-%d", i, i + 1)}`, true},
		{`{"rate" => "100%#{i}"}`, `map[string]any{"rate": fmt.Sprintf("100%%%v", i)}`, true},
		{`{key: 'it\'s', "tags" => ["a", :b]}`, `map[string]any{"key": "it's", "tags": []any{"a", "b"}}`, false},
		{`{"n" => -(i % 10) * 1_000}`, `map[string]any{"n": -(i % 10) * 1000}`, false},
		{`{"ok" => true, "none" => nil, "x" => 1.5 + i}`, `map[string]any{"ok": true, "none": nil, "x": 1.5 + float64(i)}`, false},
		{`{"s" => "a" + "b"}`, `map[string]any{"s": "a" + "b"}`, false},
		{`{}`, `map[string]any{}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.ruby, func(t *testing.T) {
			imports := emitter.Imports{}
			got, err := TranslateSeries(tt.ruby, imports)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.fmt, imports[emitter.ImportFmt])
		})
	}
}

func TestTranslateSeriesErrors(t *testing.T) {
	for _, ruby := range []string{
		`{"t" => Time.at(i)}`,
		`{"n" => i.succ}`,
		`{"n" => "a" - 1}`,
		`{1 => i}`,
		`{"a" => i`,
		`"unterminated`,
		`{"a" => i} extra`,
		`{"f" => 1.5 % 2}`,
		``,
	} {
		_, err := TranslateSeries(ruby, nil)
		assert.ErrorIs(t, err, ErrSeriesExpression, ruby)
	}
}
