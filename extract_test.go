package modelbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFunctionCall_NoFence(t *testing.T) {
	call, err := ExtractFunctionCall("The capital of France is Paris.")
	require.NoError(t, err)
	assert.Nil(t, call)
}

func TestExtractFunctionCall_IncompleteFence(t *testing.T) {
	// Closing fence not yet received: no match, no error.
	call, err := ExtractFunctionCall("Let me look that up.\n```json\n{\"name\": \"lookup\", \"arguments\":")
	require.NoError(t, err)
	assert.Nil(t, call)
}

func TestExtractFunctionCall_ObjectArguments(t *testing.T) {
	text := "Sure.\n```json\n{\"name\": \"lookup\", \"arguments\": {\"q\": \"x\"}}\n```\n"
	call, err := ExtractFunctionCall(text)
	require.NoError(t, err)
	require.NotNil(t, call)
	assert.Equal(t, "lookup", call.Name)
	assert.JSONEq(t, `{"q": "x"}`, call.Arguments)
}

func TestExtractFunctionCall_StringArguments(t *testing.T) {
	text := "```\n{\"name\": \"lookup\", \"arguments\": \"{\\\"q\\\": \\\"x\\\"}\"}\n```"
	call, err := ExtractFunctionCall(text)
	require.NoError(t, err)
	require.NotNil(t, call)
	assert.Equal(t, "lookup", call.Name)
	assert.JSONEq(t, `{"q": "x"}`, call.Arguments)
}

func TestExtractFunctionCall_UnfencedSurroundingText(t *testing.T) {
	text := "I'll call the tool now:\n```json\n{\"name\": \"search\", \"arguments\": {\"query\": \"go streams\", \"limit\": 3}}\n```\nDone."
	call, err := ExtractFunctionCall(text)
	require.NoError(t, err)
	require.NotNil(t, call)
	assert.Equal(t, "search", call.Name)
	assert.JSONEq(t, `{"query": "go streams", "limit": 3}`, call.Arguments)
}

func TestExtractFunctionCall_MalformedJSON(t *testing.T) {
	text := "```json\n{\"name\": \"lookup\", \"arguments\": {broken}\n```"
	call, err := ExtractFunctionCall(text)
	require.Error(t, err)
	assert.Nil(t, call)
}

func TestExtractFunctionCall_MissingKeys(t *testing.T) {
	// A fenced JSON object without both keys is not a tool call.
	call, err := ExtractFunctionCall("```json\n{\"name\": \"plain code sample\"}\n```")
	require.NoError(t, err)
	assert.Nil(t, call)

	call, err = ExtractFunctionCall("```json\n{\"arguments\": {\"q\": 1}, \"name\": \"\"}\n```")
	require.NoError(t, err)
	assert.Nil(t, call)
}
