package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const redacted = "[REDACTED]"

// Secret holds a credential. It prints redacted in every format and is trimmed on load,
// since keys pasted into .env files often carry stray whitespace.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// Reveal returns the raw value for use on the wire
func (s Secret) Reveal() string {
	return string(s)
}

// Hint shows the last four characters of long secrets so operators can tell keys apart
func (s Secret) Hint() string {
	if len(s) < 12 {
		return s.String()
	}
	return "****" + string(s[len(s)-4:])
}

// UnmarshalYAML trims surrounding whitespace from the decoded value
func (s *Secret) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*s = Secret(strings.TrimSpace(raw))
	return nil
}

func (s Secret) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// GoString keeps %#v from leaking the value
func (s Secret) GoString() string {
	return `"` + s.String() + `"`
}
