package ipc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMsg_GetAstBytes(t *testing.T) {
	t.Parallel()

	msg, err := decodeMsg([]byte(`{"tag":"GetAstBytes","module":"m","format":"ConvertedForms"}`))
	require.NoError(t, err)
	assert.Equal(t, GetAstBytes{Module: "m", Format: ConvertedForms}, msg)
}

func TestDecodeMsg_AllFormats(t *testing.T) {
	t.Parallel()

	formats := []ASTFormat{
		RawForms, ConvertedForms, RawStub, ConvertedStub,
		ExpandedStub, ContractiveStub, CovariantStub, TransitiveStub,
	}

	for _, format := range formats {
		line := `{"tag":"GetAstBytes","module":"m","format":"` + string(format) + `"}`

		msg, err := decodeMsg([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, GetAstBytes{Module: "m", Format: format}, msg)
	}
}

func TestDecodeMsg_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := decodeMsg([]byte(`{"tag":"GetAstBytes","module":"m","format":"HyperStub"}`))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDecodeMsg_Lifecycle(t *testing.T) {
	t.Parallel()

	msg, err := decodeMsg([]byte(`{"tag":"EqwalizingStart","module":"m"}`))
	require.NoError(t, err)
	assert.Equal(t, EqwalizingStart{Module: "m"}, msg)

	msg, err = decodeMsg([]byte(`{"tag":"EqwalizingDone","module":"m"}`))
	require.NoError(t, err)
	assert.Equal(t, EqwalizingDone{Module: "m"}, msg)

	msg, err = decodeMsg([]byte(`{"tag":"EnteringModule","module":"m"}`))
	require.NoError(t, err)
	assert.Equal(t, EnteringModule{Module: "m"}, msg)

	msg, err = decodeMsg([]byte(`{"tag":"Dependencies","modules":["a","b"]}`))
	require.NoError(t, err)
	assert.Equal(t, Dependencies{Modules: []string{"a", "b"}}, msg)
}

func TestDecodeMsg_Done(t *testing.T) {
	t.Parallel()

	line := `{"tag":"Done","diagnostics":{"m":[{"range":{"start":1,"end":4},` +
		`"message":"oops","uri":"file:///m.erl","code":"incompatible_types",` +
		`"expressionOrNull":"X","explanationOrNull":null}]}}`

	msg, err := decodeMsg([]byte(line))
	require.NoError(t, err)

	done, ok := msg.(Done)
	require.True(t, ok)
	require.Len(t, done.Diagnostics["m"], 1)

	diag := done.Diagnostics["m"][0]
	assert.Equal(t, TextRange{Start: 1, End: 4}, diag.Range)
	assert.Equal(t, "oops", diag.Message)
	assert.Equal(t, "incompatible_types", diag.Code)
	require.NotNil(t, diag.Expression)
	assert.Equal(t, "X", *diag.Expression)
	assert.Nil(t, diag.Explanation)
}

func TestDecodeMsg_DoneWithoutDiagnostics(t *testing.T) {
	t.Parallel()

	msg, err := decodeMsg([]byte(`{"tag":"Done"}`))
	require.NoError(t, err)

	done, ok := msg.(Done)
	require.True(t, ok)
	assert.NotNil(t, done.Diagnostics)
	assert.Empty(t, done.Diagnostics)
}

func TestDecodeMsg_UnknownTag(t *testing.T) {
	t.Parallel()

	msg, err := decodeMsg([]byte(`{"tag":"Telemetry","payload":42}`))
	require.NoError(t, err)
	assert.Equal(t, Unknown{Tag: "Telemetry"}, msg)
}

func TestDecodeMsg_Malformed(t *testing.T) {
	t.Parallel()

	_, err := decodeMsg([]byte(`{"tag":`))
	require.Error(t, err)
}

func TestEncodeMsg_GetAstBytesReply(t *testing.T) {
	t.Parallel()

	data, err := encodeMsg(GetAstBytesReply{AstBytesLen: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"GetAstBytesReply","ast_bytes_len":7}`, string(data))
}

func TestEncodeMsg_ZeroLengthReplyKeepsField(t *testing.T) {
	t.Parallel()

	// The zero-length reply is the module-absent signal; the field must not
	// be omitted as an empty value.
	data, err := encodeMsg(GetAstBytesReply{AstBytesLen: 0})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"GetAstBytesReply","ast_bytes_len":0}`, string(data))
}

func TestEncodeMsg_BareTags(t *testing.T) {
	t.Parallel()

	data, err := encodeMsg(CannotCompleteRequest{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"CannotCompleteRequest"}`, string(data))

	data, err = encodeMsg(ELPEnteringModule{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"ELPEnteringModule"}`, string(data))

	data, err = encodeMsg(ELPExitingModule{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"ELPExitingModule"}`, string(data))
}

func TestDiagnostics_RoundTrip(t *testing.T) {
	t.Parallel()

	expr := "foo(Bar)"
	diags := map[string][]Diagnostic{
		"m1": {
			{
				Range:      TextRange{Start: 0, End: 10},
				Message:    "incompatible types",
				URI:        "file:///m1.erl",
				Code:       "incompatible_types",
				Expression: &expr,
			},
		},
		"m2": {
			{Range: TextRange{Start: 5, End: 5}, Message: "redundant fixme", URI: "file:///m2.erl", Code: "redundant_fixme"},
		},
	}

	data, err := json.Marshal(diags)
	require.NoError(t, err)

	var decoded map[string][]Diagnostic

	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, diags, decoded)
}

func TestTextRange_RejectsInverted(t *testing.T) {
	t.Parallel()

	var r TextRange

	err := json.Unmarshal([]byte(`{"start":5,"end":4}`), &r)
	require.ErrorIs(t, err, ErrInvalidRange)
}
