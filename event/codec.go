package event

import (
	"encoding/json"
	"errors"

	"codeloop/block"
	"codeloop/exec"
)

// Recorded payloads must survive a JSON round trip and come back as the same
// domain objects. Each domain type gets an explicit tagged representation;
// Decode is the exact inverse of Encode. Unknown tags and plain values pass
// through untouched, and values that cannot be represented in JSON degrade to
// a placeholder instead of failing the recording.

const (
	typeKey    = "__type__"
	versionKey = "__ver__"

	typeCodeBlock = "code_block"
	typeError     = "error"

	filteredPlaceholder = "<filtered>"
)

// Encode converts an event payload into a JSON-safe representation.
func Encode(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = encodeValue(v)
	}
	return out
}

func encodeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case *block.CodeBlock:
		m := map[string]any{
			typeKey:    typeCodeBlock,
			versionKey: 1,
			"name":     t.Name,
			"language": string(t.Language),
			"code":     t.Code,
			"version":  t.Version,
		}
		if t.Path != "" {
			m["path"] = t.Path
		}
		return m
	case exec.Result:
		return exec.EncodeResult(t)
	case error:
		return map[string]any{
			typeKey:    typeError,
			versionKey: 1,
			"message":  t.Error(),
		}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = encodeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = encodeValue(inner)
		}
		return out
	default:
		if _, err := json.Marshal(v); err != nil {
			return filteredPlaceholder
		}
		return v
	}
}

// Decode reconstructs domain objects from an encoded payload.
func Decode(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = decodeValue(v)
	}
	return out
}

func decodeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if tag, ok := t[typeKey].(string); ok {
			return reconstruct(tag, t)
		}
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = decodeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = decodeValue(inner)
		}
		return out
	default:
		return v
	}
}

func reconstruct(tag string, m map[string]any) any {
	switch tag {
	case typeCodeBlock:
		b := &block.CodeBlock{
			Name:    stringField(m, "name"),
			Code:    stringField(m, "code"),
			Path:    stringField(m, "path"),
			Version: intField(m, "version"),
		}
		b.Language = block.Language(stringField(m, "language"))
		return b
	case typeError:
		return errors.New(stringField(m, "message"))
	default:
		if r, ok := exec.DecodeResult(m); ok {
			return r
		}
		// Unknown type: keep the raw representation.
		return m
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
