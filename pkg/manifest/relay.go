package manifest

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Relay publishes fire-and-forget invocations to peers and, optionally,
// receives them for local components.
type Relay struct {
	Targets   []string          `toml:"targets"` // host:port of peer receivers
	AES256Hex string            `toml:"aes256_key_hex"`
	Compress  bool              `toml:"compress"` // snappy
	Headers   map[string]string `toml:"headers"`  // static headers on every frame
	TLS       *ClientTLS        `toml:"tls"`
	Receiver  *Receiver         `toml:"receiver"`
}

type ClientTLS struct {
	Enable     bool   `toml:"enable"`
	ClientCert string `toml:"client_cert"`
	ClientKey  string `toml:"client_key"`
	CA         string `toml:"ca"`
}

// ReceiverTLS configures TLS termination for the relay receiver.
type ReceiverTLS struct {
	Enable     bool   `toml:"enable"`
	ServerCert string `toml:"server_cert"`
	ServerKey  string `toml:"server_key"`
	CA         string `toml:"ca"`
	ServerName string `toml:"server_name"`
}

type Receiver struct {
	Address    string       `toml:"address"`     // host:port
	BufferSize int          `toml:"buffer_size"` // default 1024 if 0
	AES256Hex  string       `toml:"aes256_key_hex"`
	TLS        *ReceiverTLS `toml:"tls"`
}

func (r *Relay) validate() error {
	for i, t := range r.Targets {
		r.Targets[i] = strings.TrimSpace(t)
		if r.Targets[i] == "" {
			return fmt.Errorf("targets[%d] is empty", i)
		}
	}
	if err := checkAESHex(r.AES256Hex); err != nil {
		return err
	}
	if r.TLS != nil && r.TLS.Enable {
		if strings.TrimSpace(r.TLS.ClientCert) == "" || strings.TrimSpace(r.TLS.ClientKey) == "" || strings.TrimSpace(r.TLS.CA) == "" {
			return fmt.Errorf("tls: client_cert, client_key, and ca are required when enable=true")
		}
	}
	if rc := r.Receiver; rc != nil {
		if strings.TrimSpace(rc.Address) == "" {
			return fmt.Errorf("receiver: address required")
		}
		if rc.BufferSize == 0 {
			rc.BufferSize = 1024
		}
		if rc.BufferSize < 0 {
			return fmt.Errorf("receiver: buffer_size must be >= 0")
		}
		if err := checkAESHex(rc.AES256Hex); err != nil {
			return fmt.Errorf("receiver: %w", err)
		}
		if rc.TLS != nil && rc.TLS.Enable {
			if strings.TrimSpace(rc.TLS.ServerCert) == "" || strings.TrimSpace(rc.TLS.ServerKey) == "" || strings.TrimSpace(rc.TLS.CA) == "" {
				return fmt.Errorf("receiver tls: server_cert, server_key, and ca are required when enable=true")
			}
		}
	}
	if len(r.Targets) == 0 && r.Receiver == nil {
		return fmt.Errorf("at least one target or a receiver is required")
	}
	return nil
}

func checkAESHex(k string) error {
	if k = strings.TrimSpace(k); k == "" {
		return nil
	}
	if _, err := hex.DecodeString(k); err != nil || len(k) != 64 {
		return fmt.Errorf("aes256_key_hex must be 32 bytes (64 hex)")
	}
	return nil
}
