package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/grnconv/core/transcript"
	"github.com/opal-lang/grnconv/runtime/lexer"
)

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

type shape struct {
	Kind transcript.Kind
	Name string
	Seq  int
}

func shapes(elems []transcript.Element) []shape {
	out := make([]shape, len(elems))
	for i, e := range elems {
		out[i] = shape{Kind: e.Kind, Name: e.Name(), Seq: e.Seq}
	}
	return out
}

func TestParseExpected(t *testing.T) {
	text := lines(
		"table_create Users TABLE_HASH_KEY ShortText",
		"[[0,0.0,0.0],true]",
		"column_create Users name COLUMN_SCALAR ShortText",
		"[[0,0.0,0.0],true]",
		"load --table Users",
		"[",
		`{"_key": "bob", "name": "Bob"},`,
		`{"_key": "alice", "name": "Alice"}`,
		"]",
		"[[0,0.0,0.0],2]",
		"dump --sort_hash_table yes",
		"table_create Users TABLE_HASH_KEY ShortText",
		"column_create Users name COLUMN_SCALAR ShortText",
		"",
		"load --table Users",
		"[",
		`["_key","name"],`,
		`["alice","Alice"],`,
		`["bob","Bob"]`,
		"]",
	)

	elems, err := Parse(text, WithResponses())
	require.NoError(t, err)

	want := []shape{
		{transcript.KindCommand, "table_create", 1},
		{transcript.KindCommand, "column_create", 2},
		{transcript.KindCommand, "load", 3},
		{transcript.KindCommand, "dump", 4},
	}
	if diff := cmp.Diff(want, shapes(elems)); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}

	values, ok := elems[2].Invocation.Args.Get("values")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(values, "[\n"))
	assert.Equal(t, 2, mustInt(t, elems[2].Response.Value()))

	assert.Equal(t, transcript.FormRaw, elems[3].Response.Form)
	assert.True(t, strings.HasSuffix(elems[3].Response.Text, `["bob","Bob"]`+"\n]\n"))
}

func TestParseScriptLeadingComment(t *testing.T) {
	text := lines(
		"#@on-error omit",
		"plugin_register sharding",
		"#@on-error default",
		"",
		"dump",
	)

	elems, err := Parse(text)
	require.NoError(t, err)

	want := []shape{
		{transcript.KindPragma, "", 0},
		{transcript.KindCommand, "plugin_register", 1},
		{transcript.KindPragma, "", 0},
		{transcript.KindCommand, "dump", 2},
	}
	if diff := cmp.Diff(want, shapes(elems)); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, elems[1].Response)
}

func TestParseDisableLogging(t *testing.T) {
	text := lines(
		"status",
		"#@disable-logging",
		"table_create Tmp TABLE_NO_KEY",
		"table_remove Tmp",
		"#@enable-logging",
		"status",
	)

	elems, err := Parse(text)
	require.NoError(t, err)

	var seqs []int
	for _, e := range elems {
		if e.IsCommand() {
			seqs = append(seqs, e.Seq)
		}
	}
	assert.Equal(t, []int{1, 0, 0, 2}, seqs)
}

func TestParseErrorResponse(t *testing.T) {
	text := lines(
		"select Users --filter 'x'",
		`[[[-22,0.0,0.0],"invalid expression"],[]]`,
	)

	elems, err := Parse(text, WithResponses())
	require.NoError(t, err)
	require.Len(t, elems, 1)

	msg, ok := elems[0].Response.ErrorMessage()
	require.True(t, ok)
	assert.Equal(t, "invalid expression", msg)
}

func TestParseXMLUsesDumpStrategy(t *testing.T) {
	text := lines(
		"status --output_type xml",
		`<?xml version="1.0" encoding="utf-8"?>`,
		"<RESULT CODE=\"0\" UP=\"0.0\" ELAPSED=\"0.0\">",
		"</RESULT>",
		"#@enable-logging",
	)

	elems, err := Parse(text, WithResponses())
	require.NoError(t, err)
	require.Len(t, elems, 2)
	assert.Equal(t, transcript.FormRaw, elems[0].Response.Form)
	assert.True(t, strings.HasPrefix(elems[0].Response.Text, "<?xml"))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		opts    []ParserOpt
		wantErr error
	}{
		{
			name:    "missing response",
			text:    lines("status", "table_list"),
			opts:    []ParserOpt{WithResponses()},
			wantErr: ErrMissingResponse,
		},
		{
			name:    "load without values",
			text:    lines("load --table Users", "status"),
			wantErr: ErrMissingValues,
		},
		{
			name:    "unterminated values",
			text:    lines("load --table Users", "[", "[1,2],"),
			wantErr: lexer.ErrUnterminatedValues,
		},
		{
			name:    "unknown sigil",
			text:    lines("status", "#!bin"),
			wantErr: lexer.ErrUnknownSigil,
		},
		{
			name:    "stuck on value line",
			text:    lines("[1, 2]"),
			wantErr: ErrNoProgress,
		},
		{
			name:    "untokenizable command",
			text:    lines(`select Users --filter "unterminated`),
			wantErr: ErrInvalidCommand,
		},
		{
			name: "malformed response",
			text: lines("status", "[[0,0.0,0.0],"),
			opts: []ParserOpt{WithResponses()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, tt.opts...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}

			var perr *ParseError
			assert.True(t, errors.As(err, &perr))
		})
	}
}

func TestParseErrorMessage(t *testing.T) {
	_, err := Parse(lines("status", "[1]"), WithSource("suite/x.test"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suite/x.test:2: no line was scanned")
	assert.Contains(t, err.Error(), "  2 | [1]")
}

func TestParseTelemetry(t *testing.T) {
	p := New(WithResponses(), WithTelemetryBasic())
	_, err := p.Parse(lines("status", "[[0,0.0,0.0],true]", "# note"))
	require.NoError(t, err)

	tel := p.Telemetry()
	require.NotNil(t, tel)
	assert.Equal(t, 3, tel.LineCount)
	assert.Equal(t, 2, tel.ElementCount)
	assert.Equal(t, 1, tel.CommandCount)
	assert.Equal(t, 1, tel.ResponseCount)

	assert.Nil(t, New().Telemetry())
}

func mustInt(t *testing.T, v any) int {
	t.Helper()
	n, ok := v.(interface{ Int64() (int64, error) })
	require.True(t, ok, "not a number: %#v", v)
	i, err := n.Int64()
	require.NoError(t, err)
	return int(i)
}
