package config

import "encoding/json"

const redacted = "[REDACTED]"

// Secret is a configuration value that must never reach logs or responses.
// Formatting it with fmt or encoding/json yields a placeholder.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string {
	return s.String()
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Reveal returns the raw value. Only key loading should call it.
func (s Secret) Reveal() string {
	return string(s)
}
