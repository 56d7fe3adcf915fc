package app

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/buildgrid/internal/build"
	"github.com/specialistvlad/buildgrid/internal/config"
	"github.com/specialistvlad/buildgrid/internal/logging"
	"github.com/specialistvlad/buildgrid/internal/metrics"
)

// Option configures an App.
type Option func(*App)

// WithGroup spawns build commands into group instead of a local process
// group. It is used by tests.
func WithGroup(group build.Group) Option {
	return func(a *App) { a.group = group }
}

// WithMetrics replaces the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithCommandOutput sets where spawned commands write. It defaults to the
// application output.
func WithCommandOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	config  *config.Config
	outW    io.Writer
	stdout  io.Writer
	stderr  io.Writer
	logger  *slog.Logger
	metrics *metrics.Metrics
	group   build.Group

	httpServer *http.Server
}

// New creates an App with its own isolated logger and metrics registry.
// Log records go to outW.
func New(cfg *config.Config, outW io.Writer, opts ...Option) *App {
	a := &App{
		config:  cfg,
		outW:    outW,
		stdout:  outW,
		stderr:  outW,
		logger:  logging.New(cfg.Log.Level, cfg.Log.Format, outW),
		metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger.Debug("Logger configured successfully.", "level", cfg.Log.Level, "format", cfg.Log.Format)
	return a
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Metrics returns the application metrics.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

func (a *App) controllerOptions() []build.Option {
	opts := []build.Option{
		build.WithLogger(a.logger),
		build.WithLimit(a.config.Limit),
		build.WithMetrics(a.metrics),
		build.WithOutput(a.stdout, a.stderr),
	}
	if a.group != nil {
		opts = append(opts, build.WithGroup(a.group))
	}
	return opts
}
