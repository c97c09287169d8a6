package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Window is a session window in wall-clock HH:MM of the session timezone.
// PrevDay anchors the start on the calendar day before the trading date.
type Window struct {
	Start   string `yaml:"start" json:"start" validate:"required,datetime=15:04"`
	End     string `yaml:"end" json:"end" validate:"required,datetime=15:04"`
	PrevDay bool   `yaml:"prev_day" json:"prev_day"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production"`

	Input struct {
		Source string `yaml:"source" default:"csv" validate:"oneof=csv clickhouse"`
		Path   string `yaml:"path" validate:"required_if=Source csv"`
		Table  string `yaml:"table" default:"candles_1m"`
		Symbol string `yaml:"symbol" validate:"required_if=Source clickhouse"`
		From   string `yaml:"from" validate:"omitempty,datetime=2006-01-02"`
		To     string `yaml:"to" validate:"omitempty,datetime=2006-01-02"`
	} `yaml:"input"`

	Sessions struct {
		Timezone   string `yaml:"timezone" default:"America/New_York" validate:"required"`
		Asia       Window `yaml:"asia" default:"{\"start\":\"20:00\",\"end\":\"00:00\",\"prev_day\":true}"`
		London     Window `yaml:"london" default:"{\"start\":\"00:00\",\"end\":\"05:00\"}"`
		Transition Window `yaml:"transition" default:"{\"start\":\"05:00\",\"end\":\"08:30\"}"`
		NY         Window `yaml:"ny" default:"{\"start\":\"08:30\",\"end\":\"11:00\"}"`
	} `yaml:"sessions"`

	Regime struct {
		RollingWindow int     `yaml:"rolling_window" default:"200" validate:"gte=1"`
		MinPeriods    int     `yaml:"min_periods" default:"50" validate:"gte=1"`
		LowerQuantile float64 `yaml:"lower_quantile" default:"0.33" validate:"gt=0,lt=1"`
		UpperQuantile float64 `yaml:"upper_quantile" default:"0.66" validate:"gt=0,lt=1"`
	} `yaml:"regime"`

	Position struct {
		Tolerance float64 `yaml:"tolerance" default:"0.25" validate:"gte=0"`
	} `yaml:"position"`

	Outcome struct {
		FollowMinutes int `yaml:"penetration_follow_minutes" default:"30" validate:"gt=0"`
	} `yaml:"outcome"`

	Reliability struct {
		MediumN int `yaml:"medium_n" default:"50" validate:"gte=1"`
		HighN   int `yaml:"high_n" default:"150" validate:"gte=1"`
	} `yaml:"reliability"`

	Pipeline struct {
		// Workers bounds parallel labeling; 0 means one per CPU.
		Workers int `yaml:"workers" validate:"gte=0"`
	} `yaml:"pipeline"`

	Output struct {
		Dir     string `yaml:"dir" default:"output" validate:"required"`
		MapCSV  string `yaml:"map_csv" default:"ny_probability_map.csv"`
		MapJSON string `yaml:"map_json" default:"ny_probability_map.json"`
		DaysCSV string `yaml:"days_csv" default:"daily_sessions_with_labels.csv"`
	} `yaml:"output"`

	SQLite struct {
		Enabled  bool   `yaml:"enabled"`
		Path     string `yaml:"path" default:"data/variantmap.db"`
		KeepRuns int    `yaml:"keep_runs" default:"20" validate:"gte=0"`
	} `yaml:"sqlite"`

	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000" validate:"gt=0,lte=65535"`
		Database         string        `yaml:"database" default:"variantmap"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`

	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		MapTopic     string   `yaml:"map_topic" default:"variantmap.map"`
		DaysTopic    string   `yaml:"days_topic" default:"variantmap.days"`
		LogsTopic    string   `yaml:"logs_topic"`
		RequiredAcks int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5" validate:"gte=1"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"200" validate:"gte=1"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
			AutoTopic    bool          `yaml:"auto_topic"`
		} `yaml:"producer"`
	} `yaml:"kafka"`

	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" validate:"gte=0"`
		Prefix   string        `yaml:"prefix" default:"variantmap"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	// Queue runs async rebuilds through Redis; requires redis.enabled.
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers" default:"1" validate:"gte=1"`
		RetryLimit int           `yaml:"retry_limit" default:"3" validate:"gte=0"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
		Prefix     string        `yaml:"prefix" default:"variantmap:queue"`
	} `yaml:"queue"`

	Cache struct {
		MemorySize int           `yaml:"memory_size" default:"16" validate:"gte=1"`
		MemoryTTL  time.Duration `yaml:"memory_ttl" default:"1m"`
	} `yaml:"cache"`

	HTTP struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		AllowOrigins    []string      `yaml:"allow_origins"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity" default:"60" validate:"gte=0"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"2" validate:"gte=0"`
		} `yaml:"rate_limit"`
		AllowRebuild bool `yaml:"allow_rebuild"`
	} `yaml:"http"`

	Metrics struct {
		PushURL string `yaml:"push_url" validate:"omitempty,url"`
		Job     string `yaml:"job" default:"variantmap"`
	} `yaml:"metrics"`

	Webhook struct {
		URL     string            `yaml:"url" validate:"omitempty,url"`
		Headers map[string]string `yaml:"headers"`
		Top     int               `yaml:"top" default:"10" validate:"gte=0"`
		Timeout time.Duration     `yaml:"timeout" default:"10s"`
	} `yaml:"webhook"`

	Logging struct {
		Level   string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format  string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output  string `yaml:"output" default:"stdout"`
		Collect struct {
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
		} `yaml:"collect"`
	} `yaml:"logging"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// An empty path starts from the defaults.
func LoadWithEnv(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Override with environment variables
	if v := os.Getenv("VMAP_INPUT"); v != "" {
		c.Input.Path = v
	}
	if v := os.Getenv("VMAP_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("VMAP_TIMEZONE"); v != "" {
		c.Sessions.Timezone = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate runs tag validation plus the cross-field checks tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Regime.LowerQuantile >= c.Regime.UpperQuantile {
		return fmt.Errorf("%w: regime.lower_quantile (%v) must be < upper_quantile (%v)",
			ErrInvalidConfig, c.Regime.LowerQuantile, c.Regime.UpperQuantile)
	}
	if c.Regime.RollingWindow < c.Regime.MinPeriods {
		return fmt.Errorf("%w: regime.rolling_window (%d) must be >= min_periods (%d)",
			ErrInvalidConfig, c.Regime.RollingWindow, c.Regime.MinPeriods)
	}
	if c.Reliability.MediumN >= c.Reliability.HighN {
		return fmt.Errorf("%w: reliability.medium_n (%d) must be < high_n (%d)",
			ErrInvalidConfig, c.Reliability.MediumN, c.Reliability.HighN)
	}
	if _, err := time.LoadLocation(c.Sessions.Timezone); err != nil {
		return fmt.Errorf("%w: sessions.timezone: %v", ErrInvalidConfig, err)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka.brokers is required when kafka is enabled", ErrInvalidConfig)
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("%w: queue needs redis.enabled", ErrInvalidConfig)
	}
	if c.ClickHouse.Enabled || c.Input.Source == "clickhouse" {
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("%w: clickhouse.host is required", ErrInvalidConfig)
		}
	}
	from, to := c.Input.From, c.Input.To
	if from != "" && to != "" && from > to {
		return fmt.Errorf("%w: input.from (%s) must be <= input.to (%s)", ErrInvalidConfig, from, to)
	}
	return nil
}

// Location loads the session timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Sessions.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
