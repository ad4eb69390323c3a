package dashboard

import (
	"bytes"
	"encoding/json"
)

// Value is an opaque JSON value taken from the payload.
// The zero Value is absent, which is distinct from an explicit null.
type Value struct {
	raw     []byte
	present bool
}

// RawValue wraps already-encoded JSON. An empty slice is treated as null.
func RawValue(raw []byte) Value {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("null")
	}
	return Value{raw: append([]byte(nil), raw...), present: true}
}

// Present reports whether the field existed in the payload.
func (v Value) Present() bool { return v.present }

// IsNull reports whether the value is absent or an explicit null.
func (v Value) IsNull() bool {
	return !v.present || bytes.Equal(v.raw, []byte("null"))
}

// Raw returns the encoded JSON, or nil when absent.
func (v Value) Raw() []byte {
	if !v.present {
		return nil
	}
	return append([]byte(nil), v.raw...)
}

// Pretty returns the value indented by two spaces with key order preserved.
// Absent values print as null.
func (v Value) Pretty() string {
	if !v.present {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, v.raw, "", "  "); err != nil {
		return string(v.raw)
	}
	return buf.String()
}

// Compact returns the value without insignificant whitespace.
func (v Value) Compact() string {
	if !v.present {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v.raw); err != nil {
		return string(v.raw)
	}
	return buf.String()
}

// Text renders the value the way it reads inline: strings unquoted,
// everything else as compact JSON. Absent and null render as fallback.
func (v Value) Text(fallback string) string {
	if v.IsNull() {
		return fallback
	}
	if len(v.raw) > 0 && v.raw[0] == '"' {
		var s string
		if err := jsonAPI.Unmarshal(v.raw, &s); err == nil {
			return s
		}
	}
	return v.Compact()
}

// MarshalJSON encodes absent values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	return v.Raw(), nil
}

// UnmarshalJSON keeps the raw bytes.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = RawValue(data)
	return nil
}
