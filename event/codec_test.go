package event

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeloop/block"
	"codeloop/exec"
)

func TestCodecRoundTripsCodeBlock(t *testing.T) {
	b := block.New("fetch", block.LangPython, "print('hi')")
	b.Version = 3

	encoded := Encode(map[string]any{"block": b})

	// The encoded form must survive JSON.
	raw, err := json.Marshal(encoded)
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))

	decoded := Decode(wire)
	got, ok := decoded["block"].(*block.CodeBlock)
	require.True(t, ok)
	assert.Equal(t, "fetch", got.Name)
	assert.Equal(t, block.LangPython, got.Language)
	assert.Equal(t, "print('hi')", got.Code)
	assert.Equal(t, 3, got.Version)
}

func TestCodecRoundTripsResults(t *testing.T) {
	results := []exec.Result{
		&exec.ExecResult{Stdout: "out"},
		&exec.ProcessResult{ExecResult: exec.ExecResult{Stderr: "boom"}, ReturnCode: 2},
		&exec.PythonResult{
			ExecResult: exec.ExecResult{Stdout: "ok"},
			States:     map[string]any{"success": true},
		},
	}
	for _, r := range results {
		encoded := Encode(map[string]any{"result": r})
		raw, err := json.Marshal(encoded)
		require.NoError(t, err)
		var wire map[string]any
		require.NoError(t, json.Unmarshal(raw, &wire))

		decoded := Decode(wire)
		got, ok := decoded["result"].(exec.Result)
		require.True(t, ok)
		assert.Equal(t, r.Kind(), got.Kind())
		assert.Equal(t, r.HasError(), got.HasError())
	}
}

func TestCodecRoundTripsError(t *testing.T) {
	encoded := Encode(map[string]any{"err": errors.New("it broke")})
	decoded := Decode(encoded)
	got, ok := decoded["err"].(error)
	require.True(t, ok)
	assert.Equal(t, "it broke", got.Error())
}

func TestCodecWalksNestedContainers(t *testing.T) {
	b := block.New("inner", block.LangBash, "ls")
	encoded := Encode(map[string]any{
		"nested": map[string]any{
			"list": []any{b, "plain", 7},
		},
	})
	decoded := Decode(encoded)
	nested := decoded["nested"].(map[string]any)
	list := nested["list"].([]any)
	_, ok := list[0].(*block.CodeBlock)
	assert.True(t, ok)
	assert.Equal(t, "plain", list[1])
}

func TestCodecFiltersUnserializable(t *testing.T) {
	encoded := Encode(map[string]any{"ch": make(chan int)})
	assert.Equal(t, "<filtered>", encoded["ch"])
}

func TestCodecPassesUnknownTagsThrough(t *testing.T) {
	wire := map[string]any{
		"thing": map[string]any{typeKey: "future_type", "payload": "x"},
	}
	decoded := Decode(wire)
	m, ok := decoded["thing"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x", m["payload"])
}

func TestCodecNil(t *testing.T) {
	assert.Nil(t, Encode(nil))
	assert.Nil(t, Decode(nil))
}
