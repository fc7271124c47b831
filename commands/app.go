// Package commands implements the boardsync CLI subcommands and the
// shared application wiring behind them.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/boardsync/boardsync/board"
	"github.com/boardsync/boardsync/cache"
	"github.com/boardsync/boardsync/config"
	"github.com/boardsync/boardsync/events"
	"github.com/boardsync/boardsync/metrics"
	"github.com/boardsync/boardsync/projectsync"
	"github.com/boardsync/boardsync/rest"
	"github.com/boardsync/boardsync/session"
)

// App holds the wired application: config, session, REST client, event
// channel, and both sync controllers. Built once per command invocation.
type App struct {
	Config   *config.Config
	Token    *session.FileToken
	Client   *rest.Client
	Channel  *events.Channel
	Projects *projectsync.Controller
	Board    *board.Controller
	Metrics  *metrics.Metrics

	logger         *slog.Logger
	snapshots      *cache.Snapshots
	embeddedServer *natsserver.Server
	watchCancel    context.CancelFunc
}

// NewApp loads configuration and wires the full client stack. The
// returned App must be closed.
func NewApp(logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.NewLoader(logger).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return newAppWithConfig(cfg, logger)
}

func newAppWithConfig(cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, logger: logger, Metrics: metrics.New()}

	token := session.NewFileToken(cfg.Session.TokenPath, logger)
	a.Token = token

	watchCtx, cancel := context.WithCancel(context.Background())
	a.watchCancel = cancel
	go func() {
		if err := token.Watch(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Token rotation watch stopped", "error", err)
		}
	}()

	a.Client = rest.NewClient(cfg.API.BaseURL, token,
		rest.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		rest.WithLogger(logger),
		rest.WithMetrics(a.Metrics))

	natsURL := cfg.NATS.URL
	if cfg.NATS.Embedded {
		ns, url, err := events.StartEmbeddedServer()
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("start embedded event server: %w", err)
		}
		a.embeddedServer = ns
		natsURL = url
		logger.Debug("Embedded event server started", "url", url)
	}

	channelOpts := []events.Option{
		events.WithLogger(logger),
		events.WithMetrics(a.Metrics),
	}
	if cfg.Client.Name != "" {
		channelOpts = append(channelOpts, events.WithClientID(cfg.Client.Name))
	}
	channel, err := events.Connect(natsURL, channelOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect event channel: %w", err)
	}
	a.Channel = channel

	projectOpts := []projectsync.Option{
		projectsync.WithLogger(logger),
		projectsync.WithMetrics(a.Metrics),
	}
	boardOpts := []board.Option{
		board.WithLogger(logger),
		board.WithMetrics(a.Metrics),
	}

	if cfg.Cache.Enabled {
		snapshots, err := cache.Open(cfg.Cache.Path, cache.WithLogger(logger))
		if err != nil {
			logger.Warn("Snapshot cache unavailable", "path", cfg.Cache.Path, "error", err)
		} else {
			a.snapshots = snapshots
			projectOpts = append(projectOpts, projectsync.WithSnapshotter(snapshots))
			boardOpts = append(boardOpts, board.WithSnapshotter(snapshots))
		}
	}

	a.Projects = projectsync.New(a.Client, a.Channel, projectOpts...)
	a.Board = board.New(a.Client, a.Channel, boardOpts...)

	if err := a.Projects.Start(); err != nil {
		a.Close()
		return nil, fmt.Errorf("start project controller: %w", err)
	}

	return a, nil
}

// Close releases the app in reverse wiring order.
func (a *App) Close() {
	if a.Board != nil {
		a.Board.Close()
	}
	if a.Projects != nil {
		a.Projects.Stop()
	}
	if a.Channel != nil {
		a.Channel.Close()
	}
	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}
	if a.snapshots != nil {
		if err := a.snapshots.Close(); err != nil {
			a.logger.Warn("Failed to close snapshot cache", "error", err)
		}
	}
	if a.watchCancel != nil {
		a.watchCancel()
	}
}

// commandContext returns the per-command timeout context.
func (a *App) commandContext() (context.Context, context.CancelFunc) {
	timeout := a.Config.API.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}
