package core

import (
	"fmt"
	"io"
	"net/http"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joeydtaylor/steeze-command/pkg/codec"
	"github.com/joeydtaylor/steeze-command/pkg/command"
	"github.com/joeydtaylor/steeze-command/pkg/component"
	"github.com/joeydtaylor/steeze-command/pkg/manifest"
	httpx "github.com/joeydtaylor/steeze-command/pkg/transport/httpx"
	"go.uber.org/zap"
)

const maxInvokeBody = 1 << 20

// surface serves the command repositories of every peer component over
// HTTP, using only names, metadata and dispatch tickets.
type surface struct {
	peers   *component.Peers
	tickets *Tickets
	relay   RelayPublisher
	creds   CredentialsProvider
	codec   codec.Codec
	log     *zap.Logger
}

func newSurface(cfg manifest.Remote, d BuildDeps) (*surface, error) {
	c, err := codec.ByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	s := &surface{
		peers:   d.Peers,
		tickets: d.Tickets,
		relay:   d.Relay,
		creds:   d.Creds,
		codec:   c,
		log:     d.Log,
	}
	if s.tickets == nil {
		s.tickets = NewTickets(cfg.DispatchTTL())
	}
	if s.relay == nil {
		s.relay = NoopRelay{}
	}
	if s.creds == nil {
		s.creds = NoAuthProvider{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s, nil
}

// responseCodec honours an explicit Accept header and otherwise uses the
// manifest default.
func (s *surface) responseCodec(r *http.Request) codec.Codec {
	switch accept := r.Header.Get("Accept"); accept {
	case "", "*/*":
		return s.codec
	default:
		return codec.ForContentType(accept)
	}
}

func (s *surface) component(r *http.Request) (*component.Component, error) {
	name := httpx.Param(r, "component")
	c, ok := s.peers.Get(name)
	if !ok {
		return nil, fmt.Errorf("component %q: %w", name, command.ErrNotFound)
	}
	return c, nil
}

func (s *surface) listComponents(w http.ResponseWriter, r *http.Request) {
	writeBody(w, s.responseCodec(r), ComponentList{Components: s.peers.Names()}, http.StatusOK)
}

func (s *surface) listCommands(w http.ResponseWriter, r *http.Request) {
	rc := s.responseCodec(r)
	c, err := s.component(r)
	if err != nil {
		writeError(w, rc, err)
		return
	}
	writeBody(w, rc, c.Commands().Descriptions(), http.StatusOK)
}

func (s *surface) describe(w http.ResponseWriter, r *http.Request) {
	rc := s.responseCodec(r)
	c, err := s.component(r)
	if err != nil {
		writeError(w, rc, err)
		return
	}
	name := httpx.Param(r, "name")
	d, ok := c.Commands().Describe(name)
	if !ok {
		writeError(w, rc, fmt.Errorf("%q: %w", name, command.ErrNotFound))
		return
	}
	writeBody(w, rc, d, http.StatusOK)
}

func (s *surface) readInvoke(w http.ResponseWriter, r *http.Request) (InvokeRequest, codec.Codec, error) {
	in := InvokeRequest{}
	rq := codec.ForContentType(r.Header.Get("Content-Type"))
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInvokeBody))
	if err != nil {
		return in, rq, fmt.Errorf("%w: %v", command.ErrInvalidArguments, err)
	}
	if len(body) == 0 {
		return in, rq, nil
	}
	if err := rq.Unmarshal(body, &in); err != nil {
		return in, rq, fmt.Errorf("%w: %v", command.ErrInvalidArguments, err)
	}
	return in, rq, nil
}

// invoke produces a handle from the component's factory, submits it and
// returns a ticket for polling.
func (s *surface) invoke(w http.ResponseWriter, r *http.Request) {
	rc := s.responseCodec(r)
	c, err := s.component(r)
	if err != nil {
		writeError(w, rc, err)
		return
	}
	name := httpx.Param(r, "name")
	f, ok := c.Commands().Factory(name)
	if !ok {
		writeError(w, rc, fmt.Errorf("%q: %w", name, command.ErrNotFound))
		return
	}
	in, rq, err := s.readInvoke(w, r)
	if err != nil {
		writeError(w, rc, err)
		return
	}
	args, err := codec.DecodeArgs(rq, f.Signature().Args, in.Args)
	if err != nil {
		writeError(w, rc, fmt.Errorf("%q: %w: %v", name, command.ErrInvalidArguments, err))
		return
	}
	h, err := f.Produce(args)
	if err != nil {
		writeError(w, rc, err)
		return
	}
	if err := h.Submit(); err != nil {
		s.log.Warn("remote dispatch refused",
			zap.String("component", c.Name()),
			zap.String("command", name),
			zap.String("requestId", chimd.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, rc, err)
		return
	}
	id := s.tickets.Put(c.Name(), h)
	writeBody(w, rc, dispatchOf(id, c.Name(), h, h.State()), http.StatusAccepted)
}

func (s *surface) poll(w http.ResponseWriter, r *http.Request) {
	rc := s.responseCodec(r)
	id := httpx.Param(r, "id")
	tk, ok := s.tickets.Get(id)
	if !ok {
		writeError(w, rc, fmt.Errorf("dispatch %q: %w", id, command.ErrNotFound))
		return
	}
	writeBody(w, rc, dispatchOf(id, tk.component, tk.h, tk.h.Evaluate()), http.StatusOK)
}

func (s *surface) discard(w http.ResponseWriter, r *http.Request) {
	id := httpx.Param(r, "id")
	if !s.tickets.Delete(id) {
		writeError(w, s.responseCodec(r), fmt.Errorf("dispatch %q: %w", id, command.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// relayInvoke forwards the raw arguments to the relay; the receiving peer
// decodes them against its own signature.
func (s *surface) relayInvoke(w http.ResponseWriter, r *http.Request) {
	rc := s.responseCodec(r)
	in, _, err := s.readInvoke(w, r)
	if err != nil {
		writeError(w, rc, err)
		return
	}
	inv := Invocation{
		ID:        uuid.NewString(),
		Component: httpx.Param(r, "component"),
		Command:   httpx.Param(r, "name"),
		Args:      in.Args,
		Headers:   map[string]string{},
	}
	rid := chimd.GetReqID(r.Context())
	if rid != "" {
		inv.Headers["X-Request-Id"] = rid
	}
	creds, err := s.creds.Issue(r.Context(), r)
	if err != nil {
		s.log.Warn("relay credentials unavailable",
			zap.String("request_id", rid),
			zap.String("component", inv.Component),
			zap.String("command", inv.Command),
			zap.Error(err))
		writeBody(w, rc, ErrorBody{Code: "credentials_failed", Error: err.Error()}, http.StatusBadGateway)
		return
	}
	creds.apply(inv.Headers)
	if err := s.relay.Publish(r.Context(), inv); err != nil {
		if code, _ := ErrorCode(err); code == "internal" {
			writeBody(w, rc, ErrorBody{Code: "relay_failed", Error: err.Error()}, http.StatusBadGateway)
			return
		}
		writeError(w, rc, err)
		return
	}
	writeBody(w, rc, Dispatch{
		ID:        inv.ID,
		Component: inv.Component,
		Command:   inv.Command,
		State:     command.Dispatched.String(),
	}, http.StatusAccepted)
}

func dispatchOf(id, comp string, h command.Handle, st command.State) Dispatch {
	d := Dispatch{ID: id, Component: comp, Command: h.Name(), State: st.String()}
	if st == command.Failed {
		if err := h.Err(); err != nil {
			d.Code, _ = ErrorCode(err)
			d.Error = err.Error()
		}
	}
	return d
}
