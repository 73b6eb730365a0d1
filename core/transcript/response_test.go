package transcript

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/grnconv/core/grn"
	"github.com/opal-lang/grnconv/core/value"
)

func TestParseResponseLegacySuccess(t *testing.T) {
	r, err := ParseResponse("[[0,0.0,0.0],true]")
	require.NoError(t, err)

	assert.Equal(t, FormLegacy, r.Form)
	assert.False(t, r.IsError())
	assert.Equal(t, true, r.Value())
	_, ok := r.ErrorMessage()
	assert.False(t, ok)
}

func TestParseResponseLegacyNestedError(t *testing.T) {
	r, err := ParseResponse(`[[[-22,0.0,0.0],"[column][create] nonexistent source: <nonexistent>"],false]`)
	require.NoError(t, err)

	assert.True(t, r.IsError())
	assert.Equal(t, int64(-22), r.Header.ReturnCode)
	msg, ok := r.ErrorMessage()
	require.True(t, ok)
	assert.Equal(t, "[column][create] nonexistent source: <nonexistent>", msg)
	assert.Equal(t, false, r.Value())
}

func TestParseResponseLegacyFlatError(t *testing.T) {
	r, err := ParseResponse(`[[-22,0,0], "invalid expression"]`)
	require.NoError(t, err)

	msg, ok := r.ErrorMessage()
	require.True(t, ok)
	assert.Equal(t, "invalid expression", msg)
}

func TestParseResponseVersioned(t *testing.T) {
	text := `{
  "header": {
    "return_code": -22,
    "start_time": 0.0,
    "elapsed_time": 0.0,
    "error": {
      "message": "[table][load][Users] neither _key nor _id is assigned",
      "function": "grn_loader_on_no_identifier_error",
      "file": "load.c",
      "line": 0
    }
  },
  "body": {"n_loaded_records": 2, "loaded_ids": [1, 0, 2]}
}`
	r, err := ParseResponse(text)
	require.NoError(t, err)

	assert.Equal(t, FormVersioned, r.Form)
	msg, ok := r.ErrorMessage()
	require.True(t, ok)
	assert.Equal(t, "[table][load][Users] neither _key nor _id is assigned", msg)
	assert.Equal(t, "load.c", r.Header.Error.File)

	body, ok := r.Value().(*value.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"n_loaded_records", "loaded_ids"}, body.Keys())
	n, _ := body.Get("n_loaded_records")
	assert.Equal(t, json.Number("2"), n)
}

func TestParseResponseVersionedRejected(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing header", `{"body": 1}`},
		{"return code not integer", `{"header": {"return_code": "x", "start_time": 0, "elapsed_time": 0}, "body": 1}`},
		{"error without non-zero code", `{"header": {"return_code": 0, "start_time": 0, "elapsed_time": 0, "error": {"message": "m"}}, "body": 1}`},
		{"non-zero code without error", `{"header": {"return_code": -1, "start_time": 0, "elapsed_time": 0}, "body": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.text)
			assert.True(t, errors.Is(err, ErrMalformedResponse), "got %v", err)
		})
	}
}

func TestParseResponseRaw(t *testing.T) {
	for _, text := range []string{
		"table_create Users TABLE_HASH_KEY ShortText\n",
		"func(1, 2)",
		`<?xml version="1.0" encoding="utf-8"?>`,
	} {
		r, err := ParseResponse(text)
		require.NoError(t, err)
		assert.Equal(t, FormRaw, r.Form)
		assert.Equal(t, text, r.Value())
		assert.False(t, r.IsError())
	}
}

func TestParseResponseMalformed(t *testing.T) {
	_, err := ParseResponse("[[0,0.0,0.0],")
	assert.Error(t, err)

	_, err = ParseResponse(`["x", 1]`)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestElementClone(t *testing.T) {
	inv, err := grn.Parse("select Users")
	require.NoError(t, err)
	e := NewCommand("select Users", inv, 1)

	c := e.Clone()
	c.Invocation.Args.Set("table", "Other")
	c.Seq = 2

	v, _ := e.Invocation.Args.Get("table")
	assert.Equal(t, "Users", v)
	assert.Equal(t, 1, e.Seq)
}

func TestMaxSeqAndKindString(t *testing.T) {
	elems := []Element{
		NewCommand("a", grn.Invocation{Name: "a"}, 1),
		{Kind: KindNote, Text: "# note", Seq: 9},
		NewCommand("b", grn.Invocation{Name: "b"}, 3),
		NewCommand("c", grn.Invocation{Name: "c"}, 0),
	}
	assert.Equal(t, 3, MaxSeq(elems))
	assert.Equal(t, "query_log", KindQueryLog.String())
	assert.Equal(t, "", elems[1].Name())
}
