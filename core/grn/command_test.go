package grn

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		expected Invocation
	}{
		{
			name:     "bare command",
			command:  "status",
			expected: Invocation{Name: "status"},
		},
		{
			name:    "named flags keep order",
			command: "select Users --limit 3 --filter 'age > 20'",
			expected: Invocation{
				Name: "select",
				Args: Arguments{
					{Key: "table", Value: "Users"},
					{Key: "limit", Value: "3"},
					{Key: "filter", Value: "age > 20"},
				},
			},
		},
		{
			name:    "positional arguments follow definitions",
			command: "table_create Users TABLE_HASH_KEY ShortText",
			expected: Invocation{
				Name: "table_create",
				Args: Arguments{
					{Key: "name", Value: "Users"},
					{Key: "flags", Value: "TABLE_HASH_KEY"},
					{Key: "key_type", Value: "ShortText"},
				},
			},
		},
		{
			name:    "double quotes with escapes",
			command: `select Memos --filter "content @ \"b\""`,
			expected: Invocation{
				Name: "select",
				Args: Arguments{
					{Key: "table", Value: "Memos"},
					{Key: "filter", Value: `content @ "b"`},
				},
			},
		},
		{
			name:    "empty quoted value",
			command: `column_create Users name --source ""`,
			expected: Invocation{
				Name: "column_create",
				Args: Arguments{
					{Key: "table", Value: "Users"},
					{Key: "name", Value: "name"},
					{Key: "source", Value: ""},
				},
			},
		},
		{
			name:    "positional between flags",
			command: "select --filter true Users --drilldown[x].keys a",
			expected: Invocation{
				Name: "select",
				Args: Arguments{
					{Key: "filter", Value: "true"},
					{Key: "table", Value: "Users"},
					{Key: "drilldown[x].keys", Value: "a"},
				},
			},
		},
		{
			name:    "similar table",
			command: "table_create_similar Copy Users",
			expected: Invocation{
				Name: "table_create_similar",
				Args: Arguments{
					{Key: "name", Value: "Copy"},
					{Key: "base_table", Value: "Users"},
				},
			},
		},
		{
			name:    "command without definition keeps positions",
			command: "my_plugin_command first --flag x second",
			expected: Invocation{
				Name: "my_plugin_command",
				Args: Arguments{
					{Key: "0", Value: "first"},
					{Key: "flag", Value: "x"},
					{Key: "1", Value: "second"},
				},
			},
		},
		{
			name:    "trailing flag without value",
			command: "dump --tables",
			expected: Invocation{
				Name: "dump",
				Args: Arguments{{Key: "tables", Value: ""}},
			},
		},
		{
			name:    "output type from flag",
			command: "table_list --output_type xml",
			expected: Invocation{
				Name:       "table_list",
				Args:       Arguments{{Key: "output_type", Value: "xml"}},
				OutputType: "xml",
			},
		},
		{
			name:    "url form",
			command: "/d/select.json?table=Users&filter=age+%3E+20",
			expected: Invocation{
				Name: "select",
				Args: Arguments{
					{Key: "table", Value: "Users"},
					{Key: "filter", Value: "age > 20"},
				},
				OutputType: "json",
			},
		},
		{
			name:     "url form without query",
			command:  "/d/status",
			expected: Invocation{Name: "status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.command)
			require.NoError(t, err)
			tt.expected.Raw = tt.command
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.command, diff)
			}
		})
	}
}

func TestParseContinuation(t *testing.T) {
	command := "select Users \\\n  --limit 1 \\\n  --offset 2"
	got, err := Parse(command)
	require.NoError(t, err)

	assert.Equal(t, "select", got.Name)
	assert.Equal(t, []string{"table", "limit", "offset"}, got.Args.Keys())
	assert.Equal(t, command, got.Raw)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{"empty", "   "},
		{"unterminated quote", `select Users --filter "age > 1`},
		{"positional overflow", "table_list extra"},
		{"bad url escape", "/d/select?table=%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.command)
			assert.Error(t, err)
		})
	}

	_, err := Parse("")
	assert.True(t, errors.Is(err, ErrEmptyCommand))
}

func TestInvocationString(t *testing.T) {
	inv, err := Parse(`logical_range_filter Logs timestamp --filter 'message == "x"'`)
	require.NoError(t, err)

	want := `logical_range_filter --filter "message == \"x\"" --logical_table "Logs" --shard_key "timestamp"`
	assert.Equal(t, want, inv.String())

	again, err := Parse(inv.String())
	require.NoError(t, err)
	assert.Equal(t, inv.Args, again.Args)
}

func TestArgumentsSet(t *testing.T) {
	var args Arguments
	args.Set("a", "1")
	args.Set("b", "2")
	args.Set("a", "3")

	if diff := cmp.Diff(Arguments{{"a", "3"}, {"b", "2"}}, args); diff != "" {
		t.Errorf("Set mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, args.Has("b"))
	assert.False(t, args.Has("c"))
}

func TestInvocationClone(t *testing.T) {
	inv, err := Parse("select Users")
	require.NoError(t, err)

	clone := inv.Clone()
	clone.Args.Set("table", "Other")

	v, _ := inv.Args.Get("table")
	assert.Equal(t, "Users", v)
}
