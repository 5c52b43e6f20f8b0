package codec

import (
	"github.com/fxamacker/cbor/v2"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	if cborEnc, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err)
	}
	opts := cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		// Room past MaxDepth so fromWire reports ErrTooDeep itself.
		MaxNestedLevels: 2*MaxDepth + 4,
	}
	if cborDec, err = opts.DecMode(); err != nil {
		panic(err)
	}
}

type cborFormat struct{}

func (cborFormat) marshal(w *wireNode) ([]byte, error) {
	return cborEnc.Marshal(w)
}

func (cborFormat) unmarshal(data []byte, w *wireNode) error {
	return cborDec.Unmarshal(data, w)
}
