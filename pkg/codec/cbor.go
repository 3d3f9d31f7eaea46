package codec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: cbor encoder: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType:    reflect.TypeOf(map[string]any(nil)),
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("codec: cbor decoder: " + err.Error())
	}
}

type cborDet struct{}

// CBOR encodes deterministically (sorted keys, smallest integers) and, like
// JSONStrict, refuses unknown struct fields.
var CBOR Codec = cborDet{}

func (cborDet) Marshal(v any) ([]byte, error) { return cborEnc.Marshal(v) }

func (cborDet) Unmarshal(data []byte, v any) error {
	if err := cborDec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cbor decode: %w", err)
	}
	return nil
}

func (cborDet) ContentType() string { return "application/cbor" }
func (cborDet) Name() string        { return "cbor" }
