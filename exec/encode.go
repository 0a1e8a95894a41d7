package exec

import (
	"encoding/json"

	"codeloop/block"
)

// Result payloads cross the event codec and the persisted task state, so they
// carry an explicit type tag and version instead of relying on Go types.

const (
	typeKey    = "__type__"
	versionKey = "__ver__"
)

// EncodeResult converts a result to its tagged, JSON-safe representation.
func EncodeResult(r Result) map[string]any {
	m := toMap(r)
	m[typeKey] = r.Kind()
	m[versionKey] = 1
	return m
}

// DecodeResult reconstructs a result from its tagged representation. ok is
// false when the map does not carry a known result tag.
func DecodeResult(m map[string]any) (Result, bool) {
	tag, _ := m[typeKey].(string)
	switch tag {
	case "exec_result":
		r := &ExecResult{}
		fromMap(m, r)
		return r, true
	case "process_result":
		r := &ProcessResult{}
		fromMap(m, r)
		return r, true
	case "python_result":
		r := &PythonResult{}
		fromMap(m, r)
		return r, true
	default:
		return nil, false
	}
}

// EncodeExecution converts a history entry to its tagged representation.
func EncodeExecution(x Execution) map[string]any {
	return map[string]any{
		"block":  toMap(x.Block),
		"result": EncodeResult(x.Result),
	}
}

// DecodeExecution reconstructs a history entry.
func DecodeExecution(m map[string]any) (Execution, bool) {
	var x Execution
	bm, ok := m["block"].(map[string]any)
	if !ok {
		return x, false
	}
	b := &block.CodeBlock{}
	fromMap(bm, b)
	x.Block = b

	rm, ok := m["result"].(map[string]any)
	if !ok {
		return x, false
	}
	r, ok := DecodeResult(rm)
	if !ok {
		return x, false
	}
	x.Result = r
	return x, true
}

func toMap(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}

func fromMap(m map[string]any, dst any) {
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	_ = json.Unmarshal(raw, dst)
}
