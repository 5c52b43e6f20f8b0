package conformance

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/txtar"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/codec"
)

// LoadedCase represents a case with its decoded tree and source file
type LoadedCase struct {
	File  string
	Suite string
	Case  Case
	Tree  ast.Node
}

// ID names the case for reports: file/case.
func (lc LoadedCase) ID() string {
	return lc.File + "/" + lc.Case.Name
}

// LoadDir walks dir and loads every .yaml/.yml suite and .txtar archive,
// in lexical path order.
func LoadDir(dir string) ([]LoadedCase, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml", ".txtar":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(paths)

	var loaded []LoadedCase
	for _, path := range paths {
		cases, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for i := range cases {
			if rel, err := filepath.Rel(dir, path); err == nil {
				cases[i].File = filepath.ToSlash(rel)
			}
		}
		loaded = append(loaded, cases...)
	}
	return loaded, nil
}

// LoadFile loads one suite or archive.
func LoadFile(path string) ([]LoadedCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if filepath.Ext(path) == ".txtar" {
		lc, err := ParseArchive(filepath.Base(path), data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		lc.File = path
		return []LoadedCase{lc}, nil
	}
	cases, err := ParseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i := range cases {
		cases[i].File = path
	}
	return cases, nil
}

// ParseSuite decodes a YAML suite and the tree of every case.
func ParseSuite(data []byte) ([]LoadedCase, error) {
	var suite Suite
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&suite); err != nil {
		return nil, fmt.Errorf("parsing suite: %w", err)
	}

	loaded := make([]LoadedCase, 0, len(suite.Cases))
	for _, c := range suite.Cases {
		if c.Name == "" {
			return nil, fmt.Errorf("suite %s: case without a name", suite.Name)
		}
		treeYAML, err := yaml.Marshal(&c.Tree)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		tree, err := codec.Decode(codec.YAML, treeYAML)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		if err := c.Expect.validate(); err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		loaded = append(loaded, LoadedCase{Suite: suite.Name, Case: c, Tree: tree})
	}
	return loaded, nil
}

// Archive members
const (
	archiveTree   = "tree.json"
	archiveExpect = "expect"
	archiveCode   = "code.hex"
	archiveDisasm = "disasm"
)

// ParseArchive decodes a txtar case: tree.json and expect (YAML
// Expectation) are required, code.hex and disasm are optional. The archive
// comment becomes the description.
func ParseArchive(name string, data []byte) (LoadedCase, error) {
	ar := txtar.Parse(data)
	files := make(map[string][]byte, len(ar.Files))
	for _, f := range ar.Files {
		files[f.Name] = f.Data
	}

	treeData, ok := files[archiveTree]
	if !ok {
		return LoadedCase{}, fmt.Errorf("archive has no %s", archiveTree)
	}
	tree, err := codec.Decode(codec.JSON, treeData)
	if err != nil {
		return LoadedCase{}, err
	}

	c := Case{
		Name:        strings.TrimSuffix(name, filepath.Ext(name)),
		Description: strings.TrimSpace(string(ar.Comment)),
	}
	expectData, ok := files[archiveExpect]
	if !ok {
		return LoadedCase{}, fmt.Errorf("archive has no %s", archiveExpect)
	}
	dec := yaml.NewDecoder(bytes.NewReader(expectData))
	dec.KnownFields(true)
	if err := dec.Decode(&c.Expect); err != nil {
		return LoadedCase{}, fmt.Errorf("parsing %s: %w", archiveExpect, err)
	}
	if code, ok := files[archiveCode]; ok {
		c.Expect.Code = string(code)
	}
	if disasm, ok := files[archiveDisasm]; ok {
		c.Expect.Disasm = string(disasm)
	}
	if err := c.Expect.validate(); err != nil {
		return LoadedCase{}, err
	}
	return LoadedCase{Suite: c.Name, Case: c, Tree: tree}, nil
}

func (e *Expectation) validate() error {
	switch {
	case e.Value == nil && e.Error == "":
		return fmt.Errorf("expect needs a value or an error")
	case e.Value != nil && e.Error != "":
		return fmt.Errorf("expect has both a value and an error")
	}
	if e.Error != "" {
		if _, ok := errorKinds[e.Error]; !ok {
			return fmt.Errorf("unknown error kind %q", e.Error)
		}
	}
	if e.Tolerance < 0 {
		return fmt.Errorf("negative tolerance")
	}
	return nil
}
