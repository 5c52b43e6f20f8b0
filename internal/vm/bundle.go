package vm

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/funvibe/walc/internal/config"
)

// Bundle is the on-disk container of a compiled program. The stream inside
// keeps its headerless form; the container adds the slot table and, optionally,
// the source tree so the program can be re-checked against the evaluator.
type Bundle struct {
	// Code is the instruction stream
	Code []byte `cbor:"code"`

	// Names maps slot -> identifier
	Names []string `cbor:"names,omitempty"`

	// Source is the tree the stream was generated from, in the JSON tree format
	Source []byte `cbor:"source,omitempty"`

	// Created is when the bundle was written
	Created time.Time `cbor:"created"`

	// Compiler is the walc version that produced Code
	Compiler string `cbor:"compiler,omitempty"`
}

var (
	bundleEnc cbor.EncMode
	bundleDec cbor.DecMode
)

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	if bundleEnc, err = opts.EncMode(); err != nil {
		panic(err)
	}
	if bundleDec, err = (cbor.DecOptions{ExtraReturnErrors: cbor.ExtraDecErrorUnknownField}).DecMode(); err != nil {
		panic(err)
	}
}

// Bundle errors
var (
	ErrBundleTooShort  = errors.New("bundle data too short")
	ErrBundleMagic     = errors.New("invalid magic number, expected " + config.BundleMagic)
	ErrBundleVersion   = errors.New("unsupported bundle version")
	ErrBundleSlotTable = errors.New("invalid slot table")
)

const bundleHeaderSize = len(config.BundleMagic) + 1

// NewBundle wraps a compiled program.
func NewBundle(p *Program, source []byte) *Bundle {
	return &Bundle{
		Code:     p.Code,
		Names:    p.Names,
		Source:   source,
		Created:  time.Now().UTC(),
		Compiler: config.Version,
	}
}

// Program returns the stream and slot table held by the bundle.
func (b *Bundle) Program() *Program {
	return &Program{Code: b.Code, Names: b.Names}
}

// Serialize converts a Bundle to binary format.
// Format:
// - Magic number (4 bytes): "WALB"
// - Version (1 byte): 0x01
// - CBOR-encoded Bundle data
func (b *Bundle) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteString(config.BundleMagic)
	buf.WriteByte(config.BundleVersion)

	payload, err := bundleEnc.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("bundle cbor encoding failed: %w", err)
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

// IsBundle reports whether data starts with the bundle magic.
func IsBundle(data []byte) bool {
	return len(data) >= len(config.BundleMagic) && string(data[:len(config.BundleMagic)]) == config.BundleMagic
}

// DeserializeBundle reads data written by Serialize.
func DeserializeBundle(data []byte) (*Bundle, error) {
	if len(data) < bundleHeaderSize {
		return nil, ErrBundleTooShort
	}
	if !IsBundle(data) {
		return nil, ErrBundleMagic
	}

	version := data[len(config.BundleMagic)]
	if version != config.BundleVersion {
		return nil, fmt.Errorf("%w: %d (this binary supports version %d)", ErrBundleVersion, version, config.BundleVersion)
	}

	var b Bundle
	if err := bundleDec.Unmarshal(data[bundleHeaderSize:], &b); err != nil {
		return nil, fmt.Errorf("bundle cbor decoding failed: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("bundle validation failed: %w", err)
	}
	return &b, nil
}

// Validate checks the slot table: names are non-empty and distinct, and
// every well-formed store/load in the stream addresses a named slot.
// The stream itself is not executed, so arithmetic faults are not detected.
func (b *Bundle) Validate() error {
	if len(b.Names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(b.Names))
	for i, name := range b.Names {
		if name == "" {
			return fmt.Errorf("%w: slot %d has no name", ErrBundleSlotTable, i)
		}
		if seen[name] {
			return fmt.Errorf("%w: %q appears twice", ErrBundleSlotTable, name)
		}
		seen[name] = true
	}

	for offset := 0; offset < len(b.Code); {
		op := Opcode(b.Code[offset])
		next := offset + 1 + op.OperandSize()
		if !op.Valid() || next > len(b.Code) {
			break
		}
		if op == OP_STORE || op == OP_LOAD {
			if slot := int(readSlot(b.Code, offset+1)); slot >= len(b.Names) {
				return fmt.Errorf("%w: %s at offset %d uses slot %d of %d", ErrBundleSlotTable, op, offset, slot, len(b.Names))
			}
		}
		offset = next
	}
	return nil
}
