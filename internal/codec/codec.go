// Package codec serializes syntax trees as tagged objects in JSON, YAML or CBOR.
//
// Every node is an object with a single key naming its variant:
//
//	{"Subtract":{"left":{"Number":{"value":3.1}},"right":{"Number":{"value":2}}}}
package codec

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/funvibe/walc/internal/ast"
)

// Format names a serialization format.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	CBOR Format = "cbor"
)

// MaxDepth is the deepest tree, counted in nodes from root to leaf, that
// Encode writes and Decode reads. Every format nests two levels per node.
const MaxDepth = 1024

var (
	// ErrUnknownFormat is returned for a format name or file extension with no codec.
	ErrUnknownFormat = errors.New("unknown tree format")
	// ErrTooDeep is returned for a tree nested deeper than MaxDepth.
	ErrTooDeep = fmt.Errorf("tree nested deeper than %d nodes", MaxDepth)
	// ErrNonFiniteLeaf is returned for a NaN or infinite Number leaf.
	ErrNonFiniteLeaf = errors.New("non-finite number leaf")
)

type format interface {
	marshal(w *wireNode) ([]byte, error)
	unmarshal(data []byte, w *wireNode) error
}

var formats = map[Format]format{
	JSON: jsonFormat{},
	YAML: yamlFormat{},
	CBOR: cborFormat{},
}

var extensions = map[string]Format{
	".json": JSON,
	".yaml": YAML,
	".yml":  YAML,
	".cbor": CBOR,
}

// Formats returns the supported format names, sorted.
func Formats() []Format {
	names := make([]Format, 0, len(formats))
	for f := range formats {
		names = append(names, f)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if f == "yml" {
		f = YAML
	}
	if _, ok := formats[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return f, nil
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: extension %q", ErrUnknownFormat, ext)
}

// Encode serializes the tree.
func Encode(f Format, n ast.Node) ([]byte, error) {
	impl, ok := formats[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	w, err := toWire(n, 1)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	data, err := impl.marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	return data, nil
}

// Decode parses a tree. Unknown fields and nodes with zero or several
// variant keys are rejected.
func Decode(f Format, data []byte) (ast.Node, error) {
	impl, ok := formats[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	var w wireNode
	if err := impl.unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f, err)
	}
	n, err := fromWire(&w, 1)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f, err)
	}
	return n, nil
}
