package electrician

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/joeydtaylor/steeze-command/pkg/manifest"
)

// forwardOptions is the publisher side of a [relay] section.
type forwardOptions struct {
	targets  []string
	headers  map[string]string
	compress bool
	aesKey   string // raw 32 bytes, empty disables encryption
	tls      manifest.ClientTLS
}

func forwardFromManifest(r *manifest.Relay) (forwardOptions, error) {
	if r == nil || len(r.Targets) == 0 {
		return forwardOptions{}, fmt.Errorf("relay: no targets")
	}
	key, err := decodeKey(r.AES256Hex)
	if err != nil {
		return forwardOptions{}, err
	}
	o := forwardOptions{
		targets:  append([]string(nil), r.Targets...),
		headers:  r.Headers,
		compress: r.Compress,
		aesKey:   key,
	}
	if r.TLS != nil {
		o.tls = *r.TLS
	}
	return o, nil
}

// receiveOptions is the [relay.receiver] section.
type receiveOptions struct {
	address string
	buffer  uint32
	aesKey  string
	tls     manifest.ReceiverTLS
}

func receiveFromManifest(r *manifest.Relay) (receiveOptions, error) {
	if r == nil || r.Receiver == nil || strings.TrimSpace(r.Receiver.Address) == "" {
		return receiveOptions{}, fmt.Errorf("relay: no receiver address")
	}
	rc := r.Receiver
	key, err := decodeKey(rc.AES256Hex)
	if err != nil {
		return receiveOptions{}, fmt.Errorf("receiver: %w", err)
	}
	buf := rc.BufferSize
	if buf <= 0 {
		buf = 1024
	}
	o := receiveOptions{address: rc.Address, buffer: uint32(buf), aesKey: key}
	if rc.TLS != nil {
		o.tls = *rc.TLS
	}
	return o, nil
}

// decodeKey turns 64 hex chars into the raw 32 byte key the relays expect.
func decodeKey(hexKey string) (string, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return "", nil
	}
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != 32 {
		return "", fmt.Errorf("relay: aes256_key_hex must be 64 hex chars (32 bytes)")
	}
	return string(raw), nil
}
