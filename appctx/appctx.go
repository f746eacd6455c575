// Package appctx holds the Application Context of spec.md §9: one value
// constructed at startup bundling every process-wide dependency, passed
// explicitly into each endpoint handler instead of living behind package
// globals.
package appctx

import (
	"github.com/taipm/argoproxy/attacklog"
	"github.com/taipm/argoproxy/config"
	"github.com/taipm/argoproxy/images"
	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/logging"
	"github.com/taipm/argoproxy/registry"
	"github.com/taipm/argoproxy/session"
	"github.com/taipm/argoproxy/toolcall"
)

// Context bundles every dependency an endpoint handler needs.
type Context struct {
	Config    *config.Config
	Session   *session.Session
	Registry  *registry.Registry
	Images    *images.Pipeline
	Logger    logging.Logger
	LeakLog   *toolcall.LeakLogger
	AttackLog *attacklog.Writer
}

// New wires the pieces together. fetcher/cache may be nil (the registry
// then starts from seed only, refreshed later by the caller); seed is the
// bundled fallback catalogue used until the first successful Refresh.
func New(cfg *config.Config, fetcher registry.Fetcher, cache registry.SnapshotCache, seed []ir.ModelEntry, logger logging.Logger) *Context {
	if logger == nil {
		logger = logging.NoopLogger{}
	}

	sess := session.New(cfg.Session, nil)

	return &Context{
		Config:    cfg,
		Session:   sess,
		Registry:  registry.New(fetcher, cache, seed),
		Images:    images.New(sess, logger, 0),
		Logger:    logger,
		LeakLog:   toolcall.NewLeakLogger(cfg.LeakLogDir, logger),
		AttackLog: attacklog.NewWriter(cfg.AttackLogDir, nil),
	}
}
