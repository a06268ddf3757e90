package wrap

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"

	"github.com/wippyai/wrap-client/codec"
	"github.com/wippyai/wrap-client/errors"
)

// Env is an immutable JSON object bound to a module. The zero value is the
// empty environment.
type Env struct {
	raw []byte
}

// ParseEnv validates text as a JSON object. Comments and trailing commas are
// accepted and stripped.
func ParseEnv(text string) (Env, error) {
	return ParseEnvBytes([]byte(text))
}

// ParseEnvBytes is ParseEnv for a byte slice.
func ParseEnvBytes(data []byte) (Env, error) {
	stripped := jsonc.ToJSON(data)
	if !gjson.ValidBytes(stripped) {
		return Env{}, errors.InvalidEnv("not valid JSON", nil)
	}
	res := gjson.ParseBytes(stripped)
	if !res.IsObject() {
		return Env{}, errors.InvalidEnv("env must be a JSON object, got "+res.Type.String(), nil)
	}
	return Env{raw: []byte(res.Raw)}, nil
}

// EnvFromMap builds an Env from a decoded object.
func EnvFromMap(m map[string]any) (Env, error) {
	if len(m) == 0 {
		return Env{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return Env{}, errors.InvalidEnv("encode object", err)
	}
	return Env{raw: raw}, nil
}

// MustEnv is like ParseEnv but panics on error.
func MustEnv(text string) Env {
	env, err := ParseEnv(text)
	if err != nil {
		panic(err)
	}
	return env
}

// IsEmpty reports whether the env has no keys.
func (e Env) IsEmpty() bool {
	if len(e.raw) == 0 {
		return true
	}
	empty := true
	gjson.ParseBytes(e.raw).ForEach(func(_, _ gjson.Result) bool {
		empty = false
		return false
	})
	return empty
}

// Bytes returns the JSON text of the env. The empty env renders as "{}".
func (e Env) Bytes() []byte {
	if len(e.raw) == 0 {
		return []byte("{}")
	}
	out := make([]byte, len(e.raw))
	copy(out, e.raw)
	return out
}

// String returns the JSON text of the env.
func (e Env) String() string {
	return string(e.Bytes())
}

// Value returns the serialized JSON of a single top-level key.
func (e Env) Value(key string) ([]byte, bool) {
	for _, m := range e.members() {
		if m.key == key {
			return []byte(m.val), true
		}
	}
	return nil, false
}

// Keys returns the top-level keys in document order.
func (e Env) Keys() []string {
	members := e.members()
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = m.key
	}
	return keys
}

// Merge returns e with the top-level keys of other applied over it.
func (e Env) Merge(other Env) Env {
	if other.IsEmpty() {
		return e
	}
	if e.IsEmpty() {
		return other
	}

	merged := e.members()
	index := make(map[string]int, len(merged))
	for i, m := range merged {
		index[m.key] = i
	}
	for _, m := range other.members() {
		if i, ok := index[m.key]; ok {
			merged[i].val = m.val
			continue
		}
		index[m.key] = len(merged)
		merged = append(merged, m)
	}
	return Env{raw: render(merged)}
}

// member is one top-level key of an env object. raw is the key as written,
// still quoted and escaped; key is its decoded form.
type member struct {
	key string
	raw string
	val string
}

// members lists the top-level keys in document order. A key repeated in the
// source keeps its first position and its last value.
func (e Env) members() []member {
	var out []member
	var index map[string]int
	gjson.ParseBytes(e.raw).ForEach(func(k, v gjson.Result) bool {
		m := member{key: k.String(), raw: k.Raw, val: v.Raw}
		if i, ok := index[m.key]; ok {
			out[i].val = m.val
			return true
		}
		if index == nil {
			index = make(map[string]int)
		}
		index[m.key] = len(out)
		out = append(out, m)
		return true
	})
	return out
}

func render(members []member) []byte {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(m.raw)
		b.WriteByte(':')
		b.WriteString(m.val)
	}
	b.WriteByte('}')
	return b.Bytes()
}

// Equal reports whether both envs hold the same keys with the same values,
// regardless of key order or formatting.
func (e Env) Equal(other Env) bool {
	if e.IsEmpty() || other.IsEmpty() {
		return e.IsEmpty() == other.IsEmpty()
	}
	a, err := codec.Encode(e.raw)
	if err != nil {
		return false
	}
	b, err := codec.Encode(other.raw)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Msgpack encodes the env for bytecode modules.
func (e Env) Msgpack() ([]byte, error) {
	if e.IsEmpty() {
		return nil, nil
	}
	return codec.Encode(e.raw)
}

// EnvHolder is implemented by module state that owns an environment slot.
type EnvHolder interface {
	SetEnv(Env)
	Env() Env
}

// EnvSlot is a module-scoped environment. Plugin modules embed it to read
// the environment the client pushed before the current call.
type EnvSlot struct {
	env Env
	mu  sync.RWMutex
}

// SetEnv replaces the slot's environment.
func (s *EnvSlot) SetEnv(env Env) {
	s.mu.Lock()
	s.env = env
	s.mu.Unlock()
}

// Env returns the slot's environment.
func (s *EnvSlot) Env() Env {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.env
}

// EnvValue returns the serialized JSON of one key of the slot's environment.
func (s *EnvSlot) EnvValue(key string) ([]byte, bool) {
	return s.Env().Value(key)
}
