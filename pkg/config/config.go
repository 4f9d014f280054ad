package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"QuantDesk/pkg/logger"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// State backends.
const (
	StateMemory  = "memory"
	StateRedis   = "redis"
	StateLayered = "layered"
)

// Activity backends.
const (
	ActivityNone       = "none"
	ActivityKafka      = "kafka"
	ActivityClickHouse = "clickhouse"
	ActivityRedis      = "redis"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Logging struct {
		logger.Config `yaml:",inline"`
		Collector     struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"quantdesk.logs"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	State struct {
		Backend string `yaml:"backend" default:"memory"`
		Redis   struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size" default:"10"`
			Prefix   string `yaml:"prefix" default:"quantdesk"`
		} `yaml:"redis"`
		Memory struct {
			MaxSize         int           `yaml:"max_size" default:"1000"`
			CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1m"`
		} `yaml:"memory"`
	} `yaml:"state"`
	Activity struct {
		Backend       string        `yaml:"backend" default:"none"`
		BufferSize    int           `yaml:"buffer_size" default:"256"`
		BatchSize     int           `yaml:"batch_size" default:"50"`
		FlushInterval time.Duration `yaml:"flush_interval" default:"2s"`
		MaxRetries    int           `yaml:"max_retries" default:"3"`
		BackoffMin    time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax    time.Duration `yaml:"backoff_max" default:"5s"`
		QueuePrefix   string        `yaml:"queue_prefix" default:"quantdesk:activity"`
	} `yaml:"activity"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"quantdesk.activity"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		Table            string        `yaml:"table" default:"activity_events"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Training struct {
		RetrieveDelay  time.Duration `yaml:"retrieve_delay" default:"5s"`
		FirstPassDelay time.Duration `yaml:"first_pass_delay" default:"10s"`
		NextPassDelay  time.Duration `yaml:"next_pass_delay" default:"5s"`
		BuildDelay     time.Duration `yaml:"build_delay" default:"20s"`
		FinalizeDelay  time.Duration `yaml:"finalize_delay" default:"3s"`
		CompleteDelay  time.Duration `yaml:"complete_delay" default:"2s"`
	} `yaml:"training"`
	RateLimit struct {
		Enabled  bool    `yaml:"enabled" default:"true"`
		Capacity float64 `yaml:"capacity" default:"20"`
		Refill   float64 `yaml:"refill_per_sec" default:"5"`
	} `yaml:"ratelimit"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of the defaults.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, applies environment overrides and validates.
// An empty path skips the file and starts from defaults.
func LoadWithEnv(path string) (*Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = Load(path); err != nil {
			return nil, err
		}
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("QUANTDESK_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("STATE_BACKEND"); v != "" {
		c.State.Backend = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.State.Redis.Addr = v
	}
	if v := getenv("ACTIVITY_BACKEND"); v != "" {
		c.Activity.Backend = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.State.Backend {
	case StateMemory:
	case StateRedis, StateLayered:
		if c.State.Redis.Addr == "" {
			return fmt.Errorf("state.redis.addr is required for backend '%s'", c.State.Backend)
		}
	default:
		return fmt.Errorf("state.backend must be 'memory', 'redis' or 'layered', got '%s'", c.State.Backend)
	}
	switch c.Activity.Backend {
	case ActivityNone:
	case ActivityKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when activity.backend is 'kafka'")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required")
		}
	case ActivityClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when activity.backend is 'clickhouse'")
		}
	case ActivityRedis:
		if c.State.Redis.Addr == "" {
			return fmt.Errorf("state.redis.addr is required when activity.backend is 'redis'")
		}
	default:
		return fmt.Errorf("activity.backend must be 'none', 'kafka', 'clickhouse' or 'redis', got '%s'", c.Activity.Backend)
	}
	if c.Activity.BufferSize <= 0 {
		return fmt.Errorf("activity.buffer_size must be positive")
	}
	if c.Logging.Collector.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("logging.collector requires kafka.brokers")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Capacity < 1 || c.RateLimit.Refill <= 0) {
		return fmt.Errorf("ratelimit.capacity must be >= 1 and ratelimit.refill_per_sec > 0")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
