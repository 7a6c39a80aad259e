package credential

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhorman9/elevideo/internal/config"
	"github.com/jhorman9/elevideo/internal/crypto"
)

// exerciseStore checks the get/set/clear contract every backend shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	tok, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Set(ctx, "T"))
	tok, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T", tok)

	require.NoError(t, s.Set(ctx, "T2"))
	tok, _ = s.Get(ctx)
	assert.Equal(t, "T2", tok, "set replaces")

	require.NoError(t, s.Clear(ctx))
	tok, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Clear(ctx), "clearing an empty store is fine")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(""))
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore("seed")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Set(context.Background(), "x")
			_, _ = s.Get(context.Background())
			_ = s.Clear(context.Background())
		}()
	}
	wg.Wait()
}

func TestFileStore_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "token")
	s := NewFileStore(path)
	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), "T"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.True(t, s.Exists())
	assert.False(t, s.Sealed())
}

func TestFileStore_Sealed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	keyPath := filepath.Join(dir, config.SealingKeyFile)
	s := NewFileStore(path, WithSealingKey(keyPath))
	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), "secret-token"))
	assert.True(t, crypto.KeyExists(keyPath), "key generated on first write")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-token")

	tok, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret-token", tok)
}

func TestFileStore_SealedWithoutKeyReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	keyPath := filepath.Join(dir, config.SealingKeyFile)

	require.NoError(t, NewFileStore(path, WithSealingKey(keyPath)).Set(context.Background(), "secret"))
	require.NoError(t, crypto.RemoveKey(keyPath))

	tok, err := NewFileStore(path, WithSealingKey(keyPath)).Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)

	tok, err = NewFileStore(path).Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok, "sealed document ignored when sealing is off")
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, err := NewFileStore(path).Get(context.Background())
	require.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := newRedisStore(client, "", zerolog.Nop())
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), "shared"))
	got, err := mr.Get("elevideo:token")
	require.NoError(t, err)
	assert.Equal(t, "shared", got)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr}, zerolog.Nop())
	require.Error(t, err)
}

func TestOpen_SelectsBackend(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ELEVIDEO_CONFIG_DIR", dir)

	cfg := config.Default()
	s, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	fs, ok := s.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, config.CredentialFile), fs.Path())
	assert.False(t, fs.Sealed())

	cfg.Credential.Seal = true
	s, err = Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, s.(*FileStore).Sealed())

	cfg.Credential.Backend = config.BackendMemory
	s, err = Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	mr := miniredis.RunT(t)
	cfg.Credential.Backend = config.BackendRedis
	cfg.Credential.RedisAddr = mr.Addr()
	s, err = Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	_ = s.(*RedisStore).Close()

	cfg.Credential.Backend = "vault"
	_, err = Open(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}
