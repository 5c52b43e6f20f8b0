package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type jsonFormat struct{}

func (jsonFormat) marshal(w *wireNode) ([]byte, error) {
	return json.Marshal(w)
}

func (jsonFormat) unmarshal(data []byte, w *wireNode) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(w); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("trailing data after tree")
	}
	return nil
}
