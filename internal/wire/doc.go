// Package wire turns loosely shaped API payloads into domain values. Every
// field is looked up under its snake_case key, then its camelCase key, then
// falls back to a fixed default.
package wire

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cast"
)

// Doc is one decoded JSON object.
type Doc map[string]any

// Value is the result of a field lookup. A JSON null counts as absent.
type Value struct {
	v  any
	ok bool
}

func decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeDoc parses a JSON object. A non-object body yields an empty Doc.
func DecodeDoc(body []byte) (Doc, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Doc{}, nil
	}
	v, err := decode(body)
	if err != nil {
		return nil, err
	}
	return asDoc(v), nil
}

// DecodeList accepts a bare array or an object carrying the array under
// envelope. Missing or null lists decode to an empty slice.
func DecodeList(body []byte, envelope string) ([]Doc, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []Doc{}, nil
	}
	v, err := decode(body)
	if err != nil {
		return nil, err
	}
	if arr, ok := v.([]any); ok {
		return docs(arr), nil
	}
	return asDoc(v).Get(envelope).List(), nil
}

func asDoc(v any) Doc {
	if m, ok := v.(map[string]any); ok {
		return Doc(m)
	}
	return Doc{}
}

func docs(arr []any) []Doc {
	out := make([]Doc, 0, len(arr))
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			out = append(out, Doc(m))
		}
	}
	return out
}

// Camel converts a snake_case key to camelCase.
func Camel(snake string) string {
	parts := strings.Split(snake, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// Get returns the first present value among keys, trying each key in
// snake_case and then camelCase.
func (d Doc) Get(keys ...string) Value {
	for _, k := range keys {
		for _, name := range []string{k, Camel(k)} {
			if v, ok := d[name]; ok && v != nil {
				return Value{v: plain(v), ok: true}
			}
		}
	}
	return Value{}
}

// plain unwraps json.Number so cast sees an int64 or float64.
func plain(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func (v Value) Present() bool { return v.ok }

func (v Value) String(def string) string {
	if !v.ok {
		return def
	}
	s, err := cast.ToStringE(v.v)
	if err != nil {
		return def
	}
	return s
}

func (v Value) NullString() *string {
	if !v.ok {
		return nil
	}
	s, err := cast.ToStringE(v.v)
	if err != nil {
		return nil
	}
	return &s
}

// ID renders an identifier as a string whatever its wire type.
func (v Value) ID() string { return v.String("") }

func (v Value) Int(def int) int {
	if !v.ok {
		return def
	}
	n, err := cast.ToIntE(v.v)
	if err != nil {
		f, ferr := cast.ToFloat64E(v.v)
		if ferr != nil {
			return def
		}
		return int(f)
	}
	return n
}

func (v Value) Float(def float64) float64 {
	if !v.ok {
		return def
	}
	f, err := cast.ToFloat64E(v.v)
	if err != nil {
		return def
	}
	return f
}

func (v Value) NullFloat() *float64 {
	if !v.ok {
		return nil
	}
	f, err := cast.ToFloat64E(v.v)
	if err != nil {
		return nil
	}
	return &f
}

func (v Value) Bool(def bool) bool {
	if !v.ok {
		return def
	}
	b, err := cast.ToBoolE(v.v)
	if err != nil {
		return def
	}
	return b
}

// Strings reads a list of scalars. A string holding a JSON array is decoded
// first, since some backends store option lists as text.
func (v Value) Strings() []string {
	if !v.ok {
		return []string{}
	}
	raw := v.v
	if s, ok := raw.(string); ok {
		var arr []any
		if err := json.Unmarshal([]byte(s), &arr); err != nil {
			return []string{}
		}
		raw = arr
	}
	arr, ok := raw.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if e == nil {
			continue
		}
		if s, err := cast.ToStringE(plain(e)); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func (v Value) Doc() (Doc, bool) {
	if !v.ok {
		return nil, false
	}
	m, ok := v.v.(map[string]any)
	return Doc(m), ok
}

func (v Value) List() []Doc {
	if !v.ok {
		return []Doc{}
	}
	arr, ok := v.v.([]any)
	if !ok {
		return []Doc{}
	}
	return docs(arr)
}

// Time accepts RFC 3339 style strings and unix seconds.
func (v Value) Time() time.Time {
	t := v.NullTime()
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (v Value) NullTime() *time.Time {
	if !v.ok {
		return nil
	}
	if s, isStr := v.v.(string); isStr && strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := cast.ToTimeE(v.v)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
