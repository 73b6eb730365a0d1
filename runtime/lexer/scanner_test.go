package lexer

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/grnconv/core/transcript"
)

// lines joins its arguments with newlines and terminates the result.
func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func TestScanAndPeek(t *testing.T) {
	s := New("aaaaa\nbbbbb\nccccc")

	for _, want := range []string{"aaaaa\n", "bbbbb\n", "ccccc"} {
		got, ok := s.Peek()
		require.True(t, ok)
		assert.Equal(t, want, got)
		got, ok = s.Scan()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := s.Peek()
	assert.False(t, ok)
	_, ok = s.Scan()
	assert.False(t, ok)
	assert.True(t, s.Done())
}

func TestEmptyInput(t *testing.T) {
	s := New("")
	assert.True(t, s.Done())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "", s.ReadRest())
}

func TestReadRest(t *testing.T) {
	text := "aaaaa\nbbbbb\nccccc"

	s := New(text)
	assert.Equal(t, text, s.ReadRest())
	_, ok := s.Scan()
	assert.False(t, ok)
	assert.Equal(t, "", s.ReadRest())

	s = New(text)
	s.Scan()
	assert.Equal(t, "bbbbb\nccccc", s.ReadRest())
	assert.Equal(t, "", s.ReadRest())
}

func TestScanValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{"empty array", "[]", "[]", true},
		{"object is not a value block", "{}", "", false},
		{"blank lines inside", "[\n\n\n]", "[\n\n\n]", true},
		{"indented", "  [1,\n2]\n", "  [1,\n2]\n", true},
		{"not at line start", "x [1]\n", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := New(tt.input).ScanValues()
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanValuesAfterLoad(t *testing.T) {
	text := lines(
		"load --table SmallNumbers",
		"[",
		`["_key","id_uint8"],`,
		"[10,11],",
		"[20,22],",
		"[30,33]",
		"]",
		"[[0,0.0,0.0],3]",
	)
	s := New(text)

	cmd, ok := s.ScanCommand()
	require.True(t, ok)
	assert.Equal(t, "load --table SmallNumbers\n", cmd)

	values, found, err := s.ScanValues()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, lines("[", `["_key","id_uint8"],`, "[10,11],", "[20,22],", "[30,33]", "]"), values)

	resp, ok := s.ScanResponse()
	require.True(t, ok)
	assert.Equal(t, "[[0,0.0,0.0],3]\n", resp)
}

func TestScanValuesUnterminated(t *testing.T) {
	_, _, err := New("[\n[1,2],\n").ScanValues()
	assert.True(t, errors.Is(err, ErrUnterminatedValues))
}

func TestScanCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
		found bool
	}{
		{"status\n", "status\n", true},
		{"/d/status.json\n", "/d/status.json\n", true},
		{"select \\\n --table Users \\\n  --command_version 3\n", "select \\\n --table Users \\\n  --command_version 3\n", true},
		{"[]\n", "", false},
		{"# comment\n", "", false},
		{"\n", "", false},
	}

	for _, tt := range tests {
		got, found := New(tt.input).ScanCommand()
		assert.Equal(t, tt.found, found, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestScanComments(t *testing.T) {
	text := lines(
		"#$GRN_II_BUILDER_BLOCK_THRESHOLD=5",
		"#@collect-query-log true",
		`#>delete --filter "_key @^ \"b\"" --table "Users"`,
		`#:000000000000000 filter(2): #<accessor _key(Users)> "b" prefix`,
		"#:000000000000000 delete(2): [0][1]",
		"#:000000000000000 send(0)",
		"#<000000000000000 rc=0",
		"# TODO",
		"# TODO",
		"#|i| [object][search][index][key][near] <Terms.index>",
		"#|i| grn_ii_sel > (a k)",
		"#|i| n=2 (a k)",
		"#|i| exact: 2",
		"#|i| hits=2",
		"#@collect-query-log false",
		"# TODO",
		"table_create Data TABLE_NO_KEY",
	)

	s := New(text)
	comments, err := s.ScanComments()
	require.NoError(t, err)

	kinds := make([]transcript.Kind, len(comments))
	for i, c := range comments {
		kinds[i] = c.Kind
	}
	want := []transcript.Kind{
		transcript.KindExport,
		transcript.KindPragma,
		transcript.KindQueryLog,
		transcript.KindNote,
		transcript.KindLog,
		transcript.KindPragma,
		transcript.KindNote,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("comment kinds mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 16, s.Index())
	assert.Equal(t, "# TODO\n# TODO\n", comments[3].Text)
	assert.True(t, strings.HasSuffix(comments[2].Text, "#<000000000000000 rc=0\n"))

	cmd, ok := s.ScanCommand()
	require.True(t, ok)
	assert.Equal(t, "table_create Data TABLE_NO_KEY\n", cmd)
}

func TestScanCommentsUnknownSigil(t *testing.T) {
	s := New("#!ruby\n")
	_, err := s.ScanComments()
	assert.True(t, errors.Is(err, ErrUnknownSigil))
}

func TestScanCommentsNone(t *testing.T) {
	s := New("status\n")
	comments, err := s.ScanComments()
	require.NoError(t, err)
	assert.Empty(t, comments)
	assert.Equal(t, 0, s.Index())
}

func TestScanResponse(t *testing.T) {
	s := New(lines(
		"[[0,0.0,0.0],true]",
		"column_create LargeNumbers id_text COLUMN_SCALAR Text",
	))

	resp, ok := s.ScanResponse()
	require.True(t, ok)
	assert.Equal(t, "[[0,0.0,0.0],true]\n", resp)

	_, ok = s.ScanResponse()
	assert.False(t, ok)

	cmd, ok := s.ScanCommand()
	require.True(t, ok)
	assert.Equal(t, "column_create LargeNumbers id_text COLUMN_SCALAR Text\n", cmd)
}

func TestScanResponseMultiline(t *testing.T) {
	s := New(lines(
		"[",
		"  [0, 0.0, 0.0],",
		"  true",
		"]",
		"#@disable-logging",
	))
	resp, ok := s.ScanResponse()
	require.True(t, ok)
	assert.Equal(t, "[\n  [0, 0.0, 0.0],\n  true\n]\n", resp)
	assert.Equal(t, 4, s.Index())
}

func TestScanResponseFunc(t *testing.T) {
	s := New(lines("func(1, 2)", "[1]"))
	resp, ok := s.ScanResponse()
	require.True(t, ok)
	assert.Equal(t, "func(1, 2)\n", resp)
	assert.Equal(t, 1, s.Index())
}

func TestScanDumpResponse(t *testing.T) {
	s := New(lines(
		"dump   --dump_plugins no   --dump_schema no",
		"load --table Data",
		"[",
		`["_id","numbers"],`,
		"[1,[1,-2]],",
		"[2,[-3,4]]",
		"]",
		"",
		"column_create Numbers data_numbers COLUMN_INDEX Data numbers",
		"select Data --filter 'numbers @ -2'",
		`[[0,0.0,0.0],[[[1],[["_id","UInt32"],["numbers","Int32"]],[1,[1,-2]]]]]`,
	))

	cmd, ok := s.ScanCommand()
	require.True(t, ok)
	assert.Equal(t, "dump   --dump_plugins no   --dump_schema no\n", cmd)

	res := s.ScanDumpResponse()
	assert.True(t, strings.HasSuffix(res, "numbers\n"), "got %q", res)

	cmd, ok = s.ScanCommand()
	require.True(t, ok)
	assert.Equal(t, "select Data --filter 'numbers @ -2'\n", cmd)

	resp, ok := s.ScanResponse()
	require.True(t, ok)
	assert.Equal(t, `[[0,0.0,0.0],[[[1],[["_id","UInt32"],["numbers","Int32"]],[1,[1,-2]]]]]`+"\n", resp)
}

func TestScanDumpResponseSentinel(t *testing.T) {
	s := New(lines(
		"dump",
		"table_create Users TABLE_HASH_KEY ShortText",
		"table_create Users2 TABLE_HASH_KEY ShortText",
		"[[0,0.0,0.0],true]",
	))
	s.ScanCommand()

	res := s.ScanDumpResponse()
	assert.Equal(t, "table_create Users TABLE_HASH_KEY ShortText\n", res)

	cmd, ok := s.ScanCommand()
	require.True(t, ok)
	assert.Equal(t, "table_create Users2 TABLE_HASH_KEY ShortText\n", cmd)
}

func TestScanDumpResponseEmpty(t *testing.T) {
	text := "dump   --dump_plugins no   --dump_schema no\n"
	s := New(text)

	cmd, ok := s.ScanCommand()
	require.True(t, ok)
	assert.Equal(t, text, cmd)
	assert.Equal(t, "", s.ScanDumpResponse())
}

func TestScanDumpResponseApacheArrow(t *testing.T) {
	s := New(lines(
		"logical_range_filter Logs time   --command_version 3   --output_type apache-arrow",
		"_key: string",
		"time: timestamp[ns]",
		"  _key\ttime",
		"0\t2015-02-03 23:59:58\t2015-02-03T23:59:58+09:00",
		"========================================",
		"return_code: int32",
		"-- metadata --",
		"  return_code\t               start_time\telapsed_time",
		"0\t          0\t1970-01-01T09:00:00+09:00\t    0.000000",
		`#>logical_range_filter --command_version "3" --logical_table "Logs" --output_type "apache-arrow" --shard_key "time"`,
		"#:000000000000000 output(3)",
		"#<000000000000000 rc=0",
		"logical_range_filter Logs time   --command_version 3   --output_type apache-arrow",
	))

	_, ok := s.ScanCommand()
	require.True(t, ok)

	res := s.ScanDumpResponse()
	assert.True(t, strings.HasSuffix(res, "0.000000\n"))

	comments, err := s.ScanComments()
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	cmd, ok := s.ScanCommand()
	require.True(t, ok)
	assert.Equal(t, "logical_range_filter Logs time   --command_version 3   --output_type apache-arrow\n", cmd)
}

func TestSkipEmptyLines(t *testing.T) {
	s := New(lines(
		"table_create Users TABLE_HASH_KEY ShortText",
		"",
		"  ",
		"column_create Users name COLUMN_SCALAR ShortText",
	))

	s.SkipEmptyLines()
	assert.Equal(t, 0, s.Index())
	s.ScanCommand()
	assert.Equal(t, 1, s.Index())
	s.SkipEmptyLines()
	assert.Equal(t, 3, s.Index())
	s.SkipEmptyLines()
	assert.Equal(t, 3, s.Index())

	cmd, ok := s.ScanCommand()
	require.True(t, ok)
	assert.Equal(t, "column_create Users name COLUMN_SCALAR ShortText\n", cmd)
}
