package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jhorman9/elevideo/internal/config"
	"github.com/jhorman9/elevideo/internal/credential"
	"github.com/jhorman9/elevideo/internal/gateway"
	"github.com/jhorman9/elevideo/internal/models"
	"github.com/jhorman9/elevideo/internal/ports/portstest"
	"github.com/jhorman9/elevideo/internal/testsupport/fakeapi"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func testConfig(srv *fakeapi.Server) config.Config {
	cfg := config.Default()
	cfg.BackendURL = srv.URL
	cfg.Credential.Backend = config.BackendMemory
	cfg.Heartbeat.Interval = time.Hour
	return cfg
}

func TestNew_WiresGateways(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	srv.AddProject("P", "")

	a, err := New(context.Background(), testConfig(srv), zerolog.Nop(),
		WithStore(credential.NewMemoryStore(fakeapi.DefaultToken)))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, srv.URL, a.Client.BaseURL())
	require.NotNil(t, a.Pinger)
	assert.Equal(t, time.Hour, a.Pinger.Interval())

	page, err := a.Projects.List(context.Background(), gateway.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, page.Content, 1)
}

func TestNew_HeartbeatDisabled(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	cfg := testConfig(srv)
	cfg.Heartbeat.Enabled = false

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, a.Pinger)

	require.NoError(t, a.Run(context.Background(), func(context.Context) error { return nil }))
	assert.Zero(t, srv.HealthHits())
}

func TestNew_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	srv := fakeapi.New()
	defer srv.Close()
	cfg := testConfig(srv)
	cfg.Credential.Backend = config.BackendRedis
	cfg.Credential.RedisAddr = mr.Addr()

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	_, err = a.Auth.Login(context.Background(), fakeapi.DefaultEmail, fakeapi.DefaultPassword)
	require.NoError(t, err)
	got, err := mr.Get(config.DefaultRedisKey)
	require.NoError(t, err)
	assert.Equal(t, fakeapi.DefaultToken, got)
	require.NoError(t, a.Close())
}

func TestNew_UnknownBackend(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	cfg := testConfig(srv)
	cfg.Credential.Backend = "vault"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestRun_PingerLivesForTheCommand(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	a, err := New(context.Background(), testConfig(srv), zerolog.Nop())
	require.NoError(t, err)

	err = a.Run(context.Background(), func(ctx context.Context) error {
		assert.Eventually(t, func() bool { return srv.HealthHits() == 1 }, 2*time.Second, 5*time.Millisecond)
		return nil
	})
	require.NoError(t, err)
}

func TestRun_ReturnsCommandError(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	a, err := New(context.Background(), testConfig(srv), zerolog.Nop())
	require.NoError(t, err)

	boom := errors.New("boom")
	err = a.Run(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	a, err := New(context.Background(), testConfig(srv), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx, func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
	}()
	require.Eventually(t, func() bool { return srv.HealthHits() >= 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestControllers_UseAppPorts(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()
	rec := &portstest.Recorder{}
	cfg := testConfig(srv)
	cfg.PageSize = 1
	srv.AddProject("A", "")
	srv.AddProject("B", "")

	a, err := New(context.Background(), cfg, zerolog.Nop(),
		WithStore(credential.NewMemoryStore(fakeapi.DefaultToken)),
		WithPorts(rec, rec),
		WithDownloader(rec))
	require.NoError(t, err)

	pc := a.ProjectsController(context.Background())
	st := pc.State()
	assert.Len(t, st.Items, 1)
	assert.Equal(t, 2, st.TotalPages)

	p := srv.Projects()[0]
	v := srv.AddVideo(p.ID, "intro", "mp4", models.VideoUploaded)
	vc := a.VideosController(context.Background(), p.ID)
	require.NoError(t, vc.Download(context.Background(), v))
	assert.Len(t, rec.Downloads(), 1)

	srv.SetToken("")
	_ = pc.Fetch(context.Background())
	assert.Equal(t, []string{"/login"}, rec.Navigations())
}
