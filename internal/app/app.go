// Package app wires configuration, logging, telemetry, the risk engine and
// the conversation shell for the command binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/neorisk-server/internal/config"
	"github.com/neorisk-server/internal/conversation"
	"github.com/neorisk-server/internal/domain"
	"github.com/neorisk-server/internal/logging"
	"github.com/neorisk-server/internal/riskconfig"
	"github.com/neorisk-server/internal/service"
	"github.com/neorisk-server/internal/telemetry"
)

// App holds the shared components of a running process
type App struct {
	Config   *config.Manager
	Logger   *logrus.Logger
	Risk     *domain.RiskConfig
	Assessor *service.AssessmentService
	Shell    *conversation.Shell

	closers []func() error
}

// Options adjust bootstrap for a particular binary
type Options struct {
	// ConfigFile is an explicit config.yaml path; empty searches the defaults
	ConfigFile string
	// StdoutReserved moves stdout logging to stderr, for stdio transports
	StdoutReserved bool
	// SkipTelemetry leaves the global no-op providers installed
	SkipTelemetry bool
}

// New loads configuration and builds every component. The risk table is
// loaded and validated before anything else starts.
func New(ctx context.Context, opts Options) (*App, error) {
	manager, err := config.NewManagerFromFile(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg := manager.GetConfig()

	logCfg := cfg.Logging
	if opts.StdoutReserved && (logCfg.Output == "" || strings.EqualFold(logCfg.Output, logging.OutputStdout)) {
		logCfg.Output = logging.OutputStderr
	}
	logger, closeLog, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: manager, Logger: logger}
	a.closers = append(a.closers, closeLog)

	if !opts.SkipTelemetry {
		shutdown, err := telemetry.Init(ctx, cfg.Telemetry, logger)
		if err != nil {
			logger.WithError(err).Warn("Telemetry disabled")
		} else {
			a.closers = append(a.closers, func() error {
				telemetry.Flush(shutdown, logger)
				return nil
			})
		}
	}

	risk, err := riskconfig.LoadFile(cfg.Risk.ConfigPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Risk = risk
	a.Assessor = service.NewAssessmentService(risk, logger)

	logger.WithFields(logrus.Fields{
		"source":    sourceName(cfg.Risk.ConfigPath),
		"version":   risk.Version,
		"max_score": risk.MaxScore(),
	}).Info("Risk configuration loaded")

	store, err := NewSessionStore(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}
	a.Shell = conversation.NewShell(a.Assessor, store, logger)

	return a, nil
}

// NewSessionStore builds the configured conversation store
func NewSessionStore(cfg *domain.Config, logger *logrus.Logger) (conversation.SessionStore, error) {
	switch strings.ToLower(cfg.Session.Store) {
	case "", "memory":
		return conversation.NewMemorySessionStore(cfg.Session.MaxSessions, cfg.Session.TTL), nil
	case "redis":
		store, err := conversation.NewRedisSessionStore(cfg.Redis, cfg.Session, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis session store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session store: %s", cfg.Session.Store)
	}
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func sourceName(path string) string {
	if path == "" {
		return riskconfig.DefaultSource
	}
	return path
}
