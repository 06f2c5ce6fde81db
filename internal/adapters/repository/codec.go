package repository

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/okian/animpath/internal/domain/path"
)

const yamlIndent = 2

// Encode renders st as a YAML asset.
func Encode(st path.State) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(yamlIndent)
	if err := enc.Encode(st); err != nil {
		return nil, fmt.Errorf("encode asset: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode asset: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a YAML asset. Unknown fields are rejected. The result is
// not validated against the path invariants; path.FromState does that.
func Decode(b []byte) (path.State, error) {
	var st path.State
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&st); err != nil {
		return path.State{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return st, nil
}
