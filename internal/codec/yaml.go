package codec

import (
	"bytes"
	"math"

	"gopkg.in/yaml.v3"
)

type yamlFormat struct{}

func (yamlFormat) marshal(w *wireNode) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (yamlFormat) unmarshal(data []byte, w *wireNode) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(w)
}

type plainNumber wireNumber

// MarshalYAML writes negative zero as -0.0; the plain scalar -0 resolves to
// an integer and loses its sign.
func (n wireNumber) MarshalYAML() (any, error) {
	if n.Value == nil || *n.Value != 0 || !math.Signbit(*n.Value) {
		return plainNumber(n), nil
	}
	return map[string]*yaml.Node{
		"value": {Kind: yaml.ScalarNode, Tag: "!!float", Value: "-0.0"},
	}, nil
}
