package vm

import (
	"encoding/binary"
	"math"
)

// Chunk accumulates an instruction stream. The stream has no header:
// the end of the slice is the end of the program.
type Chunk struct {
	Code []byte
}

// NewChunk creates a new empty chunk
func NewChunk() *Chunk {
	return &Chunk{Code: make([]byte, 0, 64)}
}

// WriteOp writes an opcode with no operand.
func (c *Chunk) WriteOp(op Opcode) {
	c.Code = append(c.Code, byte(op))
}

// WritePush writes OP_PUSH followed by v as 8 little-endian bytes.
func (c *Chunk) WritePush(v float64) {
	c.Code = append(c.Code, byte(OP_PUSH))
	c.Code = binary.LittleEndian.AppendUint64(c.Code, math.Float64bits(v))
}

// WriteSlot writes a variable instruction followed by its 2-byte little-endian slot.
func (c *Chunk) WriteSlot(op Opcode, slot uint16) {
	c.Code = append(c.Code, byte(op))
	c.Code = binary.LittleEndian.AppendUint16(c.Code, slot)
}

// Len returns the number of bytes in the chunk
func (c *Chunk) Len() int {
	return len(c.Code)
}

// readFloat decodes the float operand at offset; the caller checks bounds.
func readFloat(code []byte, offset int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(code[offset : offset+FloatOperandSize]))
}

// readSlot decodes the slot operand at offset; the caller checks bounds.
func readSlot(code []byte, offset int) uint16 {
	return binary.LittleEndian.Uint16(code[offset : offset+SlotOperandSize])
}
