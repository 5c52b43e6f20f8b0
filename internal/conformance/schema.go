// Package conformance runs data-driven cases against both execution engines
// and the bytecode generator. Cases come from YAML suites and txtar archives.
package conformance

import (
	"gopkg.in/yaml.v3"
)

// Suite represents a complete YAML test file
type Suite struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Cases       []Case `yaml:"cases"`
}

// Case represents a single program and what running it must produce
type Case struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Skip        interface{} `yaml:"skip,omitempty"` // bool or string
	Tree        yaml.Node   `yaml:"tree"`           // tagged-object tree
	Expect      Expectation `yaml:"expect"`
}

// Expectation defines what result is expected from a case. Exactly one of
// Value and Error must be set; Code and Disasm are optional extra checks on
// the generator.
type Expectation struct {
	Value     *float64 `yaml:"value,omitempty"`     // result on both engines
	Tolerance float64  `yaml:"tolerance,omitempty"` // absolute; 0 means bit-exact
	Error     string   `yaml:"error,omitempty"`     // error kind, e.g. DivisionByZero
	Code      string   `yaml:"code,omitempty"`      // generated stream as hex, whitespace ignored
	Disasm    string   `yaml:"disasm,omitempty"`    // Disassemble output without the header line
}

// IsSkipped returns true if this case should be skipped
func (c *Case) IsSkipped() (bool, string) {
	switch v := c.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
	case string:
		return true, v
	}
	return false, ""
}
