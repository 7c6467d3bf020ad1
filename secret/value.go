package secret

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

const redacted = "[REDACTED]"

// Value is a secret string. The zero Value is unset.
type Value struct {
	s string
}

// New wraps s.
func New(s string) Value { return Value{s: s} }

// Reveal returns the plaintext.
func (v Value) Reveal() string { return v.s }

// IsSet reports whether the value is non-empty.
func (v Value) IsSet() bool { return v.s != "" }

// String returns "[REDACTED]" for set values and "" otherwise.
func (v Value) String() string {
	if v.s == "" {
		return ""
	}
	return redacted
}

// GoString keeps %#v from leaking the plaintext.
func (v Value) GoString() string { return "secret.Value(" + v.String() + ")" }

// MarshalJSON writes the redacted form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// MarshalYAML writes the redacted form.
func (v Value) MarshalYAML() (any, error) {
	return v.String(), nil
}

// UnmarshalYAML reads a plain scalar.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v.s = s
	return nil
}

// Decode implements envdecode.Decoder.
func (v *Value) Decode(s string) error {
	v.s = s
	return nil
}
