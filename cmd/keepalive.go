package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jhorman9/elevideo/internal/app"
)

var (
	metricsAddr string

	errHeartbeatDisabled = errors.New("heartbeat is disabled in the configuration")
)

var keepaliveCmd = &cobra.Command{
	Use:   "keepalive",
	Short: "Ping the backend health endpoint until interrupted",
	Long: `Keeps a cold-starting backend warm by probing its health endpoint at the
configured heartbeat interval. With --metrics-addr, probe counters are served
at /metrics and a liveness check at /healthz.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if a.Pinger == nil {
				return errHeartbeatDisabled
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Pinging %s every %s\n", cfg.EffectiveHealthURL(), a.Pinger.Interval())
			if metricsAddr == "" {
				<-ctx.Done()
				return nil
			}
			return serveMetrics(ctx, metricsAddr, cmd)
		})
	},
}

func init() {
	rootCmd.AddCommand(keepaliveCmd)
	keepaliveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for /metrics and /healthz (e.g. :9090)")
}

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}

// serveMetrics blocks until ctx is done, then shuts the server down.
func serveMetrics(ctx context.Context, addr string, cmd *cobra.Command) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           metricsRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Serving metrics on http://%s/metrics\n", ln.Addr())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	return nil
}
