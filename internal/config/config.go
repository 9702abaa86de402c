package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/leadscout/internal/ratelimit"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig                       `yaml:"store" mapstructure:"store"`
	Log        LogConfig                         `yaml:"log" mapstructure:"log"`
	Server     ServerConfig                      `yaml:"server" mapstructure:"server"`
	Discovery  DiscoveryConfig                   `yaml:"discovery" mapstructure:"discovery"`
	Buckets    map[string]ratelimit.BucketConfig `yaml:"buckets" mapstructure:"buckets"`
	Places     PlacesConfig                      `yaml:"places" mapstructure:"places"`
	Firecrawl  FirecrawlConfig                   `yaml:"firecrawl" mapstructure:"firecrawl"`
	Perplexity PerplexityConfig                  `yaml:"perplexity" mapstructure:"perplexity"`
	Hunter     HunterConfig                      `yaml:"hunter" mapstructure:"hunter"`
	Apollo     ApolloConfig                      `yaml:"apollo" mapstructure:"apollo"`
}

// StoreConfig configures the run store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the serve-mode HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// Filters narrows a discovery run geographically and by industry.
type Filters struct {
	Industries   []string `yaml:"industries" mapstructure:"industries"`
	Locations    []string `yaml:"locations" mapstructure:"locations"`
	RadiusMeters int      `yaml:"radius_meters" mapstructure:"radius_meters"`
	MinRating    float64  `yaml:"min_rating" mapstructure:"min_rating"`
}

// RetryPolicy configures per-item retry for a stage's tool invocations.
type RetryPolicy struct {
	BaseDelayMS int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMS  int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// BaseDelay returns the base delay as a duration.
func (r RetryPolicy) BaseDelay() time.Duration { return time.Duration(r.BaseDelayMS) * time.Millisecond }

// MaxDelay returns the delay cap as a duration.
func (r RetryPolicy) MaxDelay() time.Duration { return time.Duration(r.MaxDelayMS) * time.Millisecond }

// DiscoveryConfig is the immutable per-run configuration: what to search
// for, how wide each stage may fan out, and when to stop.
type DiscoveryConfig struct {
	Market          string         `yaml:"market" mapstructure:"market"`
	Filters         Filters        `yaml:"filters" mapstructure:"filters"`
	Concurrency     map[string]int `yaml:"concurrency" mapstructure:"concurrency"`
	Retry           RetryPolicy    `yaml:"retry" mapstructure:"retry"`
	MaxProspects    int            `yaml:"max_prospects" mapstructure:"max_prospects"`
	RunTimeoutSecs  int            `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
	PipelineRetries int            `yaml:"pipeline_retries" mapstructure:"pipeline_retries"`
	ICPPath         string         `yaml:"icp_path" mapstructure:"icp_path"`
	MinICPScore     float64        `yaml:"min_icp_score" mapstructure:"min_icp_score"`
}

// StageConcurrency returns the configured in-flight cap for a stage,
// defaulting to 1 when unset.
func (d DiscoveryConfig) StageConcurrency(stage string) int {
	if n, ok := d.Concurrency[stage]; ok && n > 0 {
		return n
	}
	return 1
}

// RunTimeout returns the coarse pipeline ceiling as a duration (0 = none).
func (d DiscoveryConfig) RunTimeout() time.Duration {
	return time.Duration(d.RunTimeoutSecs) * time.Second
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// HunterConfig holds Hunter.io API settings.
type HunterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ApolloConfig holds Apollo.io API settings.
type ApolloConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadscout.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("discovery.filters.radius_meters", 50000)
	v.SetDefault("discovery.max_prospects", 50)
	v.SetDefault("discovery.run_timeout_secs", 1800)
	v.SetDefault("discovery.pipeline_retries", 2)
	v.SetDefault("discovery.min_icp_score", 0.3)
	v.SetDefault("discovery.concurrency", map[string]int{
		"discover": 2,
		"parse":    8,
		"enrich":   4,
		"contacts": 4,
		"validate": 8,
	})
	v.SetDefault("discovery.retry.base_delay_ms", 500)
	v.SetDefault("discovery.retry.max_delay_ms", 30000)
	v.SetDefault("discovery.retry.max_attempts", 3)
	v.SetDefault("places.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("hunter.base_url", "https://api.hunter.io/v2")
	v.SetDefault("apollo.base_url", "https://api.apollo.io/v1")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Buckets == nil {
		cfg.Buckets = ratelimit.DefaultBuckets()
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
