// Package remote reaches the commands of a component served by another
// process. A Client is a command.Remoter: its proxies produce handles that
// submit over HTTP and poll their dispatch ticket on Evaluate.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-command/pkg/codec"
	"github.com/joeydtaylor/steeze-command/pkg/command"
	"github.com/joeydtaylor/steeze-command/pkg/core"
	"github.com/joeydtaylor/steeze-command/pkg/value"
	"go.uber.org/zap"
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

type Client struct {
	base      *url.URL
	component string
	hc        Doer
	codec     codec.Codec
	timeout   time.Duration
	decorate  []func(*http.Request)
	log       *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc Doer) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithCodec selects the request and response encoding.
func WithCodec(cd codec.Codec) Option {
	return func(c *Client) {
		if cd != nil {
			c.codec = cd
		}
	}
}

// WithTimeout bounds each request made on behalf of a handle.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithBearer presents an assertion token on every request.
func WithBearer(token string) Option {
	return func(c *Client) {
		token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
		c.decorate = append(c.decorate, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
	}
}

// WithCookie sends a session cookie on every request.
func WithCookie(name, val string) Option {
	return func(c *Client) {
		c.decorate = append(c.decorate, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: name, Value: val})
		})
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a client for the named component behind baseURL.
func New(baseURL, component string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote: base url %q must be http or https", baseURL)
	}
	if strings.TrimSpace(component) == "" {
		return nil, errors.New("remote: component required")
	}
	c := &Client{
		base:      u,
		component: component,
		hc:        &http.Client{Timeout: 10 * time.Second},
		codec:     codec.JSONStrict,
		timeout:   5 * time.Second,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		if o != nil {
			o(c)
		}
	}
	c.log = c.log.With(zap.String("remote", u.Host), zap.String("component", component))
	return c, nil
}

func (c *Client) Component() string { return c.component }

func (c *Client) endpoint(parts ...string) string {
	u := *c.base
	for _, p := range parts {
		u.Path += "/" + url.PathEscape(p)
	}
	return u.String()
}

// do sends in (when non-nil) and decodes a 2xx response into out. Error
// responses come back as the matching command sentinel.
func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := c.codec.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", c.codec.ContentType())
	if in != nil {
		req.Header.Set("Content-Type", c.codec.ContentType())
	}
	for _, d := range c.decorate {
		d(req)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return c.decodeError(res, b)
	}
	if out == nil || len(b) == 0 {
		return nil
	}
	return codec.ForContentType(res.Header.Get("Content-Type")).Unmarshal(b, out)
}

func (c *Client) decodeError(res *http.Response, b []byte) error {
	var eb core.ErrorBody
	if err := codec.ForContentType(res.Header.Get("Content-Type")).Unmarshal(b, &eb); err == nil {
		if s := core.ErrorForCode(eb.Code); s != nil {
			return fmt.Errorf("%w: %s", s, eb.Error)
		}
	}
	switch res.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrDenied, res.Status)
	}
	return fmt.Errorf("remote: %s: %s", res.Status, strings.TrimSpace(string(b)))
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.timeout)
}

// Components lists the components served by the peer.
func (c *Client) Components(ctx context.Context) ([]string, error) {
	var out core.ComponentList
	if err := c.do(ctx, http.MethodGet, c.endpoint("components"), nil, &out); err != nil {
		return nil, err
	}
	return out.Components, nil
}

// Commands lists the dynamically visible commands of the component.
func (c *Client) Commands(ctx context.Context) ([]command.Description, error) {
	var out []command.Description
	err := c.do(ctx, http.MethodGet, c.endpoint("components", c.component, "commands"), nil, &out)
	return out, err
}

func (c *Client) Describe(ctx context.Context, name string) (command.Description, error) {
	var out command.Description
	err := c.do(ctx, http.MethodGet, c.endpoint("components", c.component, "commands", name), nil, &out)
	return out, err
}

// Signature resolves a description's argument type names.
func Signature(d command.Description) (command.Signature, error) {
	types := make([]value.Type, len(d.Args))
	for i, a := range d.Args {
		t, ok := value.Lookup(a.Type)
		if !ok {
			return command.Signature{}, fmt.Errorf("%s: argument %d: unknown type %q", d.Name, i, a.Type)
		}
		types[i] = t
	}
	return command.Sig(types...), nil
}

// Proxy implements command.Remoter. The remote signature must equal sig.
func (c *Client) Proxy(name string, sig command.Signature) (command.Invoker, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	d, err := c.Describe(ctx, name)
	if err != nil {
		return nil, err
	}
	remoteSig, err := Signature(d)
	if err != nil {
		return nil, err
	}
	if !remoteSig.Equal(sig) {
		return nil, fmt.Errorf("%q: %w: remote is %s, requested %s", name, command.ErrInvalidArguments, remoteSig, sig)
	}
	return &Proxy{c: c, name: name, sig: sig}, nil
}

// Lookup is Proxy with the signature taken from the peer.
func (c *Client) Lookup(ctx context.Context, name string) (*Proxy, error) {
	d, err := c.Describe(ctx, name)
	if err != nil {
		return nil, err
	}
	sig, err := Signature(d)
	if err != nil {
		return nil, err
	}
	return &Proxy{c: c, name: name, sig: sig}, nil
}

var (
	// ErrUnreachable: the peer could not be contacted.
	ErrUnreachable = errors.New("remote: unreachable")
	// ErrDenied: the peer refused the caller's credentials.
	ErrDenied = errors.New("remote: access denied")
)

func unreachable(err error) bool { return errors.Is(err, ErrUnreachable) }
