package di

import (
	"context"
	"fmt"
	"time"

	domrepo "QuantDesk/internal/domain/repository"
	"QuantDesk/internal/handler/api"
	mid "QuantDesk/internal/middleware"
	internalrepo "QuantDesk/internal/repository"
	"QuantDesk/internal/service/ratelimit"
	"QuantDesk/internal/usecase"
	"QuantDesk/pkg/cache"
	pkgch "QuantDesk/pkg/clickhouse"
	"QuantDesk/pkg/config"
	xhttp "QuantDesk/pkg/http"
	pkgkafka "QuantDesk/pkg/kafka"
	applogger "QuantDesk/pkg/logger"
	"QuantDesk/pkg/metrics"
	"QuantDesk/pkg/queue"
	"QuantDesk/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logging.Config)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry shared by the domain recorder and the HTTP server.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.New(reg)
}

// ProvideBundledData loads the embedded credentials, catalog and networks.
func ProvideBundledData() (*internalrepo.BundledData, error) {
	d, err := internalrepo.LoadBundledData()
	if err != nil {
		return nil, fmt.Errorf("bundled data: %w", err)
	}
	return d, nil
}

// ProvideRedisClient connects to Redis when the state store or the activity
// queue needs it, and returns nil otherwise.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	needed := cfg.State.Backend == config.StateRedis ||
		cfg.State.Backend == config.StateLayered ||
		cfg.Activity.Backend == config.ActivityRedis
	if !needed {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.State.Redis.Addr),
		cache.WithRedisAuth(cfg.State.Redis.Password, cfg.State.Redis.DB),
		cache.WithRedisPool(cfg.State.Redis.PoolSize, 2, 30*time.Second),
		cache.WithRedisPrefix(cfg.State.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	client := rc.Client()
	return client, func() { _ = client.Close() }, nil
}

// ProvideStateCache selects the cache backend behind persisted dashboard state.
func ProvideStateCache(cfg *config.Config, rc *redis.Client) (cache.Service, func()) {
	var svc cache.Service
	switch cfg.State.Backend {
	case config.StateRedis:
		svc = cache.NewRedisCacheFromClient(rc, cfg.State.Redis.Prefix)
	case config.StateLayered:
		svc = cache.NewLayeredCache(
			cache.NewRedisCacheFromClient(rc, cfg.State.Redis.Prefix),
			cache.WithLayeredMemorySize(cfg.State.Memory.MaxSize),
		)
	default:
		svc = cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.State.Memory.MaxSize),
			cache.WithMemoryCleanup(cfg.State.Memory.CleanupInterval),
		)
	}
	// The redis client is closed by its own cleanup, so only the memory tier is released here.
	return svc, func() {
		if _, ok := svc.(*cache.RedisCache); !ok {
			_ = svc.Close()
		}
	}
}

// ProvideStateStore wraps the cache as the dashboard's key-value store.
func ProvideStateStore(c cache.Service) domrepo.StateStore {
	return internalrepo.NewCacheStateStore(c)
}

// ProvideKafkaProducer creates a Kafka producer when activity or log shipping uses it.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if cfg.Activity.Backend != config.ActivityKafka && !cfg.Logging.Collector.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideClickHouseClient creates a ClickHouse client and the activity table
// when activity.backend is clickhouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if cfg.Activity.Backend != config.ActivityClickHouse {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, fmt.Sprintf(internalrepo.ActivityTableDDL, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideActivitySink selects where activity events are delivered.
func ProvideActivitySink(cfg *config.Config, l *applogger.Logger, producer *pkgkafka.Producer, ch *pkgch.Client, rc *redis.Client) domrepo.ActivitySink {
	switch cfg.Activity.Backend {
	case config.ActivityKafka:
		return internalrepo.NewKafkaActivitySink(producer, cfg.Kafka.Topic)
	case config.ActivityClickHouse:
		return internalrepo.NewClickHouseActivitySink(ch.DB(), cfg.ClickHouse.Table)
	case config.ActivityRedis:
		q := queue.NewRedisPublisher(l, rc, queue.WithKeyPrefix(cfg.Activity.QueuePrefix))
		return internalrepo.NewQueueActivitySink(q)
	default:
		return internalrepo.NewLogActivitySink(l)
	}
}

// ProvideActivityPipeline buffers activity events in front of the sink.
func ProvideActivityPipeline(cfg *config.Config, sink domrepo.ActivitySink, m domrepo.Metrics, l *applogger.Logger) *mid.ActivityPipeline {
	return mid.NewActivityPipeline(sink, m, l,
		mid.WithBufferSize(cfg.Activity.BufferSize),
		mid.WithBatch(cfg.Activity.BatchSize, cfg.Activity.FlushInterval),
		mid.WithRetry(cfg.Activity.MaxRetries, cfg.Activity.BackoffMin, cfg.Activity.BackoffMax),
	)
}

func ProvideActivityRecorder(p *mid.ActivityPipeline) domrepo.ActivityRecorder { return p }

func ProvideCredentialStore(d *internalrepo.BundledData) domrepo.CredentialStore { return d }

func ProvideCatalogSource(d *internalrepo.BundledData) domrepo.CatalogSource { return d }

// ProvideSessionManager creates the session manager. Restore runs at app start.
func ProvideSessionManager(creds domrepo.CredentialStore, store domrepo.StateStore, rec domrepo.ActivityRecorder, m domrepo.Metrics, l *applogger.Logger) *usecase.SessionManager {
	return usecase.NewSessionManager(creds, store, rec, m, l)
}

func ProvideRouteGuard(sessions *usecase.SessionManager) *usecase.RouteGuard {
	return usecase.NewRouteGuard(sessions)
}

// ProvideGridWorkspace creates the parameter-grid workspace and restores the catalog.
func ProvideGridWorkspace(store domrepo.StateStore, source domrepo.CatalogSource, rec domrepo.ActivityRecorder, m domrepo.Metrics, l *applogger.Logger) *usecase.GridWorkspace {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return usecase.NewGridWorkspace(ctx, store, source, rec, m, l)
}

// ProvideTrainingSimulator creates the training simulator with configured stage delays.
func ProvideTrainingSimulator(cfg *config.Config, source domrepo.CatalogSource, rec domrepo.ActivityRecorder, m domrepo.Metrics, l *applogger.Logger) *usecase.TrainingSimulator {
	delays := usecase.TrainingDelays{
		Retrieve:  cfg.Training.RetrieveDelay,
		FirstPass: cfg.Training.FirstPassDelay,
		NextPass:  cfg.Training.NextPassDelay,
		Build:     cfg.Training.BuildDelay,
		Finalize:  cfg.Training.FinalizeDelay,
		Complete:  cfg.Training.CompleteDelay,
	}
	return usecase.NewTrainingSimulator(source.Networks(), usecase.RealScheduler(), delays, rec, m, l)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.Refill)
}

// ProvideHandlers builds the console's HTTP handlers around one serializer.
func ProvideHandlers(
	l *applogger.Logger,
	sessions *usecase.SessionManager,
	guard *usecase.RouteGuard,
	workspace *usecase.GridWorkspace,
	training *usecase.TrainingSimulator,
	limiter *ratelimit.Limiter,
) []xhttp.Handler {
	serial := api.NewSerializer()
	return []xhttp.Handler{
		api.NewAuthEchoHandler(l, sessions, guard, serial, limiter),
		api.NewDashboardEchoHandler(l, sessions, guard, workspace, training, serial),
		api.NewTrainingEchoHandler(l, guard, training, serial),
	}
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler, reg *prometheus.Registry) *xhttp.Server {
	path := cfg.Metrics.Path
	if !cfg.Metrics.Enabled {
		path = ""
	}
	return xhttp.NewServer(l, handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithMetrics(path, reg, reg),
	)
}

// ProvideApp creates the application and attaches the log collector when enabled.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	sessions *usecase.SessionManager,
	guard *usecase.RouteGuard,
	pipeline *mid.ActivityPipeline,
	training *usecase.TrainingSimulator,
	producer *pkgkafka.Producer,
) *server.App {
	if cfg.Logging.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.Interval,
			CountThreshold: cfg.Logging.Collector.CountThreshold,
			Topic:          cfg.Logging.Collector.Topic,
			Publisher:      producer,
		})
	}
	return server.New(cfg, l, httpServer, sessions, guard, pipeline, training)
}
