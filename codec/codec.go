// Package codec converts JSON text to the msgpack payloads that cross into
// wrap modules, and back for display.
package codec

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wippyai/wrap-client/errors"
)

// Encode produces the canonical msgpack encoding of a JSON document.
// Integral numbers are encoded as integers, map keys are sorted.
func Encode(jsonText []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonText))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "parse JSON")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.InvalidInput(errors.PhaseEncode, "trailing data after JSON value")
	}

	return Marshal(normalize(v))
}

// EncodeString is Encode for a textual value.
func EncodeString(jsonText string) ([]byte, error) {
	return Encode([]byte(jsonText))
}

// Marshal encodes an arbitrary Go value as msgpack with sorted map keys.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "encode msgpack")
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes msgpack into v.
func Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "decode msgpack")
	}
	return nil
}

// Decode renders a msgpack payload as JSON text. Binary values become
// base64 strings, the encoding/json default for []byte.
func Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte("null"), nil
	}

	var v any
	if err := Unmarshal(data, &v); err != nil {
		return nil, err
	}

	out, err := json.Marshal(jsonSafe(v))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "render JSON")
	}
	return out, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		return number(t)
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}

func number(n json.Number) any {
	s := n.String()
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u
	}
	f, err := n.Float64()
	if err != nil {
		return s
	}
	return f
}

// jsonSafe rewrites msgpack-decoded values that encoding/json rejects:
// maps with non-string keys and non-finite floats.
func jsonSafe(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = jsonSafe(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[keyString(k)] = jsonSafe(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = jsonSafe(e)
		}
		return t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case float32:
		return jsonSafe(float64(t))
	default:
		return v
	}
}

func keyString(k any) string {
	switch t := k.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
