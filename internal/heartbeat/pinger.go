// Package heartbeat keeps a cold-starting backend warm by probing its health endpoint.
package heartbeat

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultInterval is the time between probes.
const DefaultInterval = 5 * time.Minute

var (
	pingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elevideo_heartbeat_pings_total",
		Help: "Health probes by result",
	}, []string{"result"}) // ok|http_error|transport_error

	lastPing = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "elevideo_heartbeat_last_ping_timestamp_seconds",
		Help: "Unix time of the last completed probe",
	})
)

// Pinger issues an unauthenticated GET against URL every Interval.
type Pinger struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Pinger
type Option func(*Pinger)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(p *Pinger) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithHTTPClient sets the client used for probes.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pinger) {
		if c != nil {
			p.client = c
		}
	}
}

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pinger) { p.logger = l }
}

// New creates a pinger for url.
func New(url string, opts ...Option) *Pinger {
	p := &Pinger{
		url:      url,
		interval: DefaultInterval,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the configured probe interval
func (p *Pinger) Interval() time.Duration { return p.interval }

// Run probes immediately and then on every tick until ctx is done. It always returns nil.
func (p *Pinger) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Ping(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Ping(ctx)
		}
	}
}

// Start runs the pinger in a goroutine. Calling Start on a running pinger is a no-op.
func (p *Pinger) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()
}

// Stop cancels a started pinger and waits for its goroutine to exit.
func (p *Pinger) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Ping performs one probe. Failures are logged and never retried.
func (p *Pinger) Ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		pingsTotal.WithLabelValues("transport_error").Inc()
		p.logger.Warn().Err(err).Str("url", p.url).Msg("invalid health url")
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		pingsTotal.WithLabelValues("transport_error").Inc()
		p.logger.Warn().Err(err).Str("url", p.url).Msg("health probe failed")
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	lastPing.SetToCurrentTime()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		pingsTotal.WithLabelValues("http_error").Inc()
		p.logger.Warn().Int("status", resp.StatusCode).Str("url", p.url).Msg("health probe returned non-2xx")
		return
	}
	pingsTotal.WithLabelValues("ok").Inc()
	p.logger.Debug().Str("url", p.url).Msg("health probe ok")
}
