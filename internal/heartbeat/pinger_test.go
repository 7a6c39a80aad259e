package heartbeat

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jhorman9/elevideo/internal/testsupport/fakeapi"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func TestPinger_PingsImmediately(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	p := New(srv.URL+"/api/health", WithInterval(time.Hour))
	p.Start(context.Background())
	require.Eventually(t, func() bool { return srv.HealthHits() == 1 }, 2*time.Second, 5*time.Millisecond)
	p.Stop()

	reqs := srv.RequestsTo(http.MethodGet, "/api/health")
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Header.Get("Authorization"))
}

func TestPinger_RepeatsOnInterval(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	p := New(srv.URL+"/api/health", WithInterval(10*time.Millisecond))
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.HealthHits() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestPinger_FailuresAreCounted(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	srv.Fail(http.MethodGet, "/api/health", http.StatusServiceUnavailable, "")

	httpBefore := testutil.ToFloat64(pingsTotal.WithLabelValues("http_error"))
	okBefore := testutil.ToFloat64(pingsTotal.WithLabelValues("ok"))

	p := New(srv.URL + "/api/health")
	p.Ping(context.Background())
	p.Ping(context.Background())

	assert.Equal(t, httpBefore+1, testutil.ToFloat64(pingsTotal.WithLabelValues("http_error")))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(pingsTotal.WithLabelValues("ok")))
}

func TestPinger_TransportFailureDoesNotStop(t *testing.T) {
	srv := fakeapi.New()
	url := srv.URL + "/api/health"
	srv.Close()

	before := testutil.ToFloat64(pingsTotal.WithLabelValues("transport_error"))
	p := New(url, WithInterval(5*time.Millisecond))
	p.Start(context.Background())
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(pingsTotal.WithLabelValues("transport_error")) >= before+2
	}, 2*time.Second, 5*time.Millisecond)
	p.Stop()
}

func TestPinger_StartStopIdempotent(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	p := New(srv.URL+"/api/health", WithInterval(time.Hour))
	p.Stop()
	p.Start(context.Background())
	p.Start(context.Background())
	require.Eventually(t, func() bool { return srv.HealthHits() == 1 }, 2*time.Second, 5*time.Millisecond)
	p.Stop()
	p.Stop()
	assert.Equal(t, 1, srv.HealthHits())
}
