package electrician

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/joeydtaylor/electrician/pkg/builder"
	"github.com/joeydtaylor/steeze-command/pkg/codec"
	"github.com/joeydtaylor/steeze-command/pkg/command"
	"github.com/joeydtaylor/steeze-command/pkg/component"
	"github.com/joeydtaylor/steeze-command/pkg/core"
	"github.com/joeydtaylor/steeze-command/pkg/manifest"
	"go.uber.org/zap"
)

// StartReceiver wires ReceivingRelay[[]byte] -> Wire[[]byte]{dispatch} and,
// when the section also names targets, -> ForwardRelay so invocations travel
// on to the next hop after being dispatched here.
func StartReceiver(ctx context.Context, cfg *manifest.Relay, peers *component.Peers, log *zap.Logger) (stop func(), err error) {
	rx, err := receiveFromManifest(cfg)
	if err != nil {
		return nil, err
	}
	if peers == nil {
		return nil, errors.New("receiver: peers required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	logger := builder.NewLogger(builder.LoggerWithDevelopment(false))
	wire := builder.NewWire[[]byte](
		ctx,
		builder.WireWithLogger[[]byte](logger),
		builder.WireWithTransformer[[]byte](dispatchFrame(peers, log)),
	)

	var forwardStop func()
	var forwardStart func(context.Context) error
	if len(cfg.Targets) > 0 {
		o, err := forwardFromManifest(cfg)
		if err != nil {
			return nil, err
		}
		f := builder.NewForwardRelay[[]byte](
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
		forwardStart, forwardStop = f.Start, f.Stop
	}

	r := builder.NewReceivingRelay[[]byte](
		ctx,
		builder.ReceivingRelayWithAddress[[]byte](rx.address),
		builder.ReceivingRelayWithBufferSize[[]byte](rx.buffer),
		builder.ReceivingRelayWithLogger[[]byte](logger),
		builder.ReceivingRelayWithOutput(wire),
		builder.ReceivingRelayWithTLSConfig[[]byte](builder.NewTlsServerConfig(
			rx.tls.Enable, rx.tls.ServerCert, rx.tls.ServerKey, rx.tls.CA, rx.tls.ServerName,
			tls.VersionTLS13, tls.VersionTLS13,
		)),
		builder.ReceivingRelayWithDecryptionKey[[]byte](rx.aesKey),
	)

	// Start: wire -> forward -> receiver
	if err := wire.Start(ctx); err != nil {
		return nil, err
	}
	stopDrain := func() {}
	if forwardStart == nil {
		stopDrain = drain(ctx, wire.GetOutputChannel())
	}
	if forwardStart != nil {
		if err := forwardStart(ctx); err != nil {
			wire.Stop()
			return nil, err
		}
	}
	if err := r.Start(ctx); err != nil {
		if forwardStop != nil {
			forwardStop()
		}
		stopDrain()
		wire.Stop()
		return nil, err
	}
	log.Info("relay receiver listening", zap.String("address", rx.address))

	// Stop in reverse
	return func() {
		r.Stop()
		if forwardStop != nil {
			forwardStop()
		}
		stopDrain()
		wire.Stop()
	}, nil
}

// dispatchFrame is the wire transformer: it submits each frame to peers and
// passes it through unchanged so a forward relay can take it on.
func dispatchFrame(peers *component.Peers, log *zap.Logger) func([]byte) ([]byte, error) {
	return func(b []byte) ([]byte, error) {
		if _, err := Receive(peers, b); err != nil {
			log.Warn("relayed invocation dropped", zap.Error(err))
			return b, err
		}
		return b, nil
	}
}

// drain consumes a wire's output when there is no next hop. The returned
// func stops it and waits.
func drain(ctx context.Context, out <-chan []byte) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-out:
				if !ok {
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// Receive decodes one envelope and submits it to the named component. The
// returned handle is the local dispatch; the sender never sees it.
func Receive(peers *component.Peers, frame []byte) (command.Handle, error) {
	var inv core.Invocation
	if err := codec.CBOR.Unmarshal(frame, &inv); err != nil {
		received.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("receiver: decode: %w", err)
	}
	h, err := Dispatch(peers, inv)
	code := "accepted"
	if err != nil {
		code, _ = core.ErrorCode(err)
	}
	received.WithLabelValues(code).Inc()
	return h, err
}

// Dispatch submits inv to the component and command it names, decoding its
// arguments against the registered signature.
func Dispatch(peers *component.Peers, inv core.Invocation) (command.Handle, error) {
	c, ok := peers.Get(inv.Component)
	if !ok {
		return nil, fmt.Errorf("component %q: %w", inv.Component, command.ErrNotFound)
	}
	f, ok := c.Commands().Factory(inv.Command)
	if !ok {
		return nil, fmt.Errorf("%q: %w", inv.Command, command.ErrNotFound)
	}
	args, err := codec.DecodeArgs(codec.CBOR, f.Signature().Args, inv.Args)
	if err != nil {
		return nil, fmt.Errorf("%q: %w: %v", inv.Command, command.ErrInvalidArguments, err)
	}
	h, err := f.Produce(args)
	if err != nil {
		return nil, err
	}
	if err := h.Submit(); err != nil {
		return h, err
	}
	return h, nil
}
