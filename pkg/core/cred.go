package core

import (
	"context"
	"net/http"
)

// DownstreamCredentials are attached to relayed invocations so the receiving
// peer can tell who asked.
type DownstreamCredentials struct {
	HeaderName  string
	HeaderValue string
	Extra       map[string]string
}

type CredentialsProvider interface {
	Issue(ctx context.Context, r *http.Request) (DownstreamCredentials, error)
}

func (c DownstreamCredentials) apply(hdrs map[string]string) {
	if c.HeaderName == "" || c.HeaderValue == "" {
		return
	}
	hdrs[c.HeaderName] = c.HeaderValue
	for k, v := range c.Extra {
		hdrs[k] = v
	}
}
