// Package electrician carries fire-and-forget command invocations between
// processes over electrician relays.
package electrician

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"

	"github.com/joeydtaylor/electrician/pkg/builder"
	"github.com/joeydtaylor/steeze-command/pkg/codec"
	"github.com/joeydtaylor/steeze-command/pkg/core"
	"github.com/joeydtaylor/steeze-command/pkg/manifest"
	"go.uber.org/zap"
)

// Publisher implements core.RelayPublisher with a Wire[[]byte] feeding a
// ForwardRelay. Envelopes are CBOR encoded.
type Publisher struct {
	submit func(context.Context, []byte) error
	stop   func()
	once   sync.Once
	log    *zap.Logger
}

// NewPublisher builds and starts the forward pipeline for cfg.
func NewPublisher(ctx context.Context, cfg *manifest.Relay, log *zap.Logger) (*Publisher, error) {
	o, err := forwardFromManifest(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	logger := builder.NewLogger(builder.LoggerWithDevelopment(false))
	wire := builder.NewWire[[]byte](ctx, builder.WireWithLogger[[]byte](logger))

	relay := builder.NewForwardRelay[[]byte](
		ctx,
		builder.ForwardRelayWithLogger[[]byte](logger),
		builder.ForwardRelayWithTarget[[]byte](o.targets...),
		builder.ForwardRelayWithPerformanceOptions[[]byte](builder.NewPerformanceOptions(o.compress, builder.COMPRESS_SNAPPY)),
		builder.ForwardRelayWithSecurityOptions[[]byte](builder.NewSecurityOptions(o.aesKey != "", builder.ENCRYPTION_AES_GCM), o.aesKey),
		builder.ForwardRelayWithTLSConfig[[]byte](builder.NewTlsClientConfig(
			o.tls.Enable, o.tls.ClientCert, o.tls.ClientKey, o.tls.CA,
			tls.VersionTLS13, tls.VersionTLS13,
		)),
		builder.ForwardRelayWithStaticHeaders[[]byte](o.headers),
		builder.ForwardRelayWithInput(wire),
	)

	if err := wire.Start(ctx); err != nil {
		return nil, fmt.Errorf("relay wire start: %w", err)
	}
	if err := relay.Start(ctx); err != nil {
		wire.Stop()
		return nil, fmt.Errorf("relay start: %w", err)
	}
	log.Info("relay publisher started", zap.Strings("targets", o.targets))

	return &Publisher{
		submit: func(ctx context.Context, b []byte) error { return wire.Submit(ctx, b) },
		stop: func() {
			relay.Stop()
			wire.Stop()
		},
		log: log,
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, inv core.Invocation) error {
	return publish(ctx, p.submit, inv)
}

func publish(ctx context.Context, submit func(context.Context, []byte) error, inv core.Invocation) error {
	if inv.Component == "" || inv.Command == "" {
		return errors.New("relay: invocation needs component and command")
	}
	b, err := codec.CBOR.Marshal(inv)
	if err != nil {
		return fmt.Errorf("relay: encode: %w", err)
	}
	if err := submit(ctx, b); err != nil {
		publishes.WithLabelValues("error").Inc()
		return err
	}
	publishes.WithLabelValues("sent").Inc()
	return nil
}

func (p *Publisher) Stop() {
	p.once.Do(func() {
		p.stop()
		p.log.Info("relay publisher stopped")
	})
}
