package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// JSONStrict rejects unknown fields and trailing content, so a caller that
// misspells a struct field gets invalid_arguments instead of a zero value.
var JSONStrict Codec = jsonStrict{}

type jsonStrict struct{}

func (jsonStrict) Name() string        { return "json" }
func (jsonStrict) ContentType() string { return "application/json" }

// Marshal leaves HTML characters unescaped and drops the encoder's newline.
func (jsonStrict) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (jsonStrict) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("json trailing content")
	}
	return nil
}
