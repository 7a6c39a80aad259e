// Package app assembles the client from configuration and owns its background lifecycle.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhorman9/elevideo/internal/api"
	"github.com/jhorman9/elevideo/internal/config"
	"github.com/jhorman9/elevideo/internal/controller"
	"github.com/jhorman9/elevideo/internal/credential"
	"github.com/jhorman9/elevideo/internal/gateway"
	"github.com/jhorman9/elevideo/internal/heartbeat"
	xlog "github.com/jhorman9/elevideo/internal/log"
	"github.com/jhorman9/elevideo/internal/ports"
)

// App bundles one configured client instance.
type App struct {
	Config   config.Config
	Logger   zerolog.Logger
	Store    credential.Store
	Client   *api.Client
	Auth     *gateway.Auth
	Projects *gateway.Projects
	Videos   *gateway.Videos
	Pinger   *heartbeat.Pinger // nil when the heartbeat is disabled

	notifier  ports.Notifier
	navigator ports.Navigator
}

type options struct {
	store      credential.Store
	httpClient *http.Client
	downloader ports.Downloader
	notifier   ports.Notifier
	navigator  ports.Navigator
}

// Option customises New
type Option func(*options)

// WithStore uses store instead of the configured credential backend.
func WithStore(s credential.Store) Option {
	return func(o *options) { o.store = s }
}

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithDownloader sets the sink for video downloads.
func WithDownloader(d ports.Downloader) Option {
	return func(o *options) { o.downloader = d }
}

// WithPorts sets the notification and navigation sinks handed to controllers.
func WithPorts(n ports.Notifier, nav ports.Navigator) Option {
	return func(o *options) {
		o.notifier = n
		o.navigator = nav
	}
}

// New wires config, credential store, HTTP client, gateways and pinger.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	o := options{notifier: ports.Discard, navigator: ports.Discard}
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = credential.Open(ctx, cfg, xlog.WithComponent(logger, "credential"))
		if err != nil {
			return nil, fmt.Errorf("failed to open credential store: %w", err)
		}
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = api.NewHTTPClient()
	}
	clientOpts := []api.Option{
		api.WithHTTPClient(httpClient),
		api.WithLogger(xlog.WithComponent(logger, "api")),
	}
	if cfg.RequestTimeout > 0 {
		clientOpts = append(clientOpts, api.WithTimeout(cfg.RequestTimeout))
	}
	client := api.New(cfg.BackendURL, store, clientOpts...)

	videoOpts := []gateway.VideosOption{gateway.WithLogger(xlog.WithComponent(logger, "videos"))}
	if o.downloader != nil {
		videoOpts = append(videoOpts, gateway.WithDownloader(o.downloader))
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Client:    client,
		Auth:      gateway.NewAuth(client, store),
		Projects:  gateway.NewProjects(client),
		Videos:    gateway.NewVideos(client, videoOpts...),
		notifier:  o.notifier,
		navigator: o.navigator,
	}
	if cfg.Heartbeat.Enabled {
		a.Pinger = heartbeat.New(cfg.EffectiveHealthURL(),
			heartbeat.WithInterval(cfg.Heartbeat.Interval),
			heartbeat.WithHTTPClient(httpClient),
			heartbeat.WithLogger(xlog.WithComponent(logger, "heartbeat")),
		)
	}
	return a, nil
}

// ProjectsController builds a projects controller wired to the app's ports and page size.
func (a *App) ProjectsController(ctx context.Context, opts ...controller.Option) *controller.Projects {
	return controller.NewProjects(ctx, a.Projects, a.controllerOptions(opts)...)
}

// VideosController builds a videos controller for projectID.
func (a *App) VideosController(ctx context.Context, projectID int64, opts ...controller.Option) *controller.Videos {
	return controller.NewVideos(ctx, a.Videos, projectID, a.controllerOptions(opts)...)
}

func (a *App) controllerOptions(extra []controller.Option) []controller.Option {
	base := []controller.Option{
		controller.WithSize(a.Config.PageSize),
		controller.WithNotifier(a.notifier),
		controller.WithNavigator(a.navigator),
		controller.WithLogger(xlog.WithComponent(a.Logger, "controller")),
	}
	return append(base, extra...)
}

// Run runs fn with the pinger alive in the background. The pinger stops when fn
// returns or ctx is cancelled.
func (a *App) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	if a.Pinger != nil {
		g.Go(func() error {
			return a.Pinger.Run(runCtx)
		})
	}
	g.Go(func() error {
		defer cancel()
		return fn(runCtx)
	})
	return g.Wait()
}

// Close releases the credential backend when it holds a connection.
func (a *App) Close() error {
	if c, ok := a.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
