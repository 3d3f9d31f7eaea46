package core

import (
	"net/http"

	"github.com/joeydtaylor/steeze-command/pkg/component"
	"github.com/joeydtaylor/steeze-command/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-command/pkg/middleware/logger"
	httpx "github.com/joeydtaylor/steeze-command/pkg/transport/httpx"
	"go.uber.org/zap"
)

type BuildDeps struct {
	Auth    *auth.Middleware
	LogMW   *logger.Middleware
	Metrics http.Handler
	Router  httpx.Router
	Peers   *component.Peers
	Relay   RelayPublisher
	Creds   CredentialsProvider
	// Tickets defaults to a store using the manifest's dispatch TTL.
	Tickets *Tickets
	Log     *zap.Logger
}
