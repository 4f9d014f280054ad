package di

import (
	"context"
	"net"
	"testing"
	"time"

	internalrepo "QuantDesk/internal/repository"
	"QuantDesk/pkg/cache"
	"QuantDesk/pkg/config"
	applogger "QuantDesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestOptionalClientsAreSkipped(t *testing.T) {
	cfg := config.Default()

	rc, cleanup, err := ProvideRedisClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, rc)
	cleanup()

	producer, cleanup, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, producer)
	cleanup()

	ch, cleanup, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, ch)
	cleanup()
}

func TestProvideStateCacheMemory(t *testing.T) {
	svc, cleanup := ProvideStateCache(config.Default(), nil)
	defer cleanup()
	_, ok := svc.(*cache.MemoryCache)
	assert.True(t, ok)
}

func TestProvideActivitySinkDefaultsToLog(t *testing.T) {
	sink := ProvideActivitySink(config.Default(), applogger.Nop(), nil, nil, nil)
	_, ok := sink.(*internalrepo.LogActivitySink)
	assert.True(t, ok)
}

func TestProvideRateLimiter(t *testing.T) {
	cfg := config.Default()
	assert.NotNil(t, ProvideRateLimiter(cfg))
	cfg.RateLimit.Enabled = false
	assert.Nil(t, ProvideRateLimiter(cfg))
}

func TestProvideTrainingSimulatorUsesBundledNetworks(t *testing.T) {
	data, err := ProvideBundledData()
	require.NoError(t, err)
	sim := ProvideTrainingSimulator(config.Default(), data, nil, nil, applogger.Nop())
	defer sim.Shutdown()
	assert.Len(t, sim.Networks(), len(data.Networks()))
}

func TestInitializeAppWithDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = freePort(t)
	cfg.Logging.Level = "error"

	app, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, app.Start(context.Background()))
	select {
	case <-app.Restored():
	case <-time.After(5 * time.Second):
		t.Fatal("session restore did not finish")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))
}
