// Package bundlefx provides the HTTP middleware stack on its own, for
// services that mount command routes on a router they already own.
package bundlefx

import (
	"github.com/joeydtaylor/steeze-command/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-command/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-command/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module provided to fx
var Module = fx.Options(
	fx.Provide(auth.ConfigFromEnv),
	auth.Module,
	logger.Module,
	metrics.Module,
)
