// Package codec holds the wire encodings of the remote command surface.
package codec

import (
	"fmt"
	"mime"
	"strings"

	"github.com/joeydtaylor/steeze-command/pkg/value"
)

type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	ContentType() string
	Name() string
}

// ByName resolves a manifest codec name; the empty name means JSON.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSONStrict, nil
	case "cbor":
		return CBOR, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// ForContentType picks the codec for a Content-Type or Accept header value,
// falling back to JSON.
func ForContentType(header string) Codec {
	mt, _, err := mime.ParseMediaType(header)
	if err == nil && mt == CBOR.ContentType() {
		return CBOR
	}
	return JSONStrict
}

// DecodeArgs turns loosely decoded arguments into values of the given types.
// Scalars are converted directly; anything else is re-encoded with c and
// decoded into a fresh value of the target type.
func DecodeArgs(c Codec, types []value.Type, raw []any) ([]value.Value, error) {
	if len(raw) != len(types) {
		return nil, fmt.Errorf("want %d arguments, got %d", len(types), len(raw))
	}
	out := make([]value.Value, len(raw))
	for i, r := range raw {
		v, err := value.Convert(types[i], r)
		if err != nil {
			b, merr := c.Marshal(r)
			if merr != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			if v, err = value.Decode(types[i], b, c.Unmarshal); err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
		}
		out[i] = v
	}
	return out, nil
}

// EncodeArgs reads the current value of every argument for transmission.
func EncodeArgs(args []value.Value) ([]any, error) {
	return value.Snapshot(args)
}
