package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Remote    RemoteConfig
	Fallback  FallbackConfig
	Resolver  ResolverConfig
	Scan      ScanConfig
	Analysis  AnalysisConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig configures the internal product store
type StoreConfig struct {
	Type            string        `mapstructure:"type"` // "memory" or "postgres"
	DSN             string        `mapstructure:"dsn"`
	TTL             time.Duration `mapstructure:"ttl"` // memory only
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RemoteConfig configures the remote product service
type RemoteConfig struct {
	Kind        string        `mapstructure:"kind"` // "service" or "openfoodfacts"
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	RatePerHour int           `mapstructure:"rate_per_hour"`
}

// FallbackConfig configures the read-only fallback store
type FallbackConfig struct {
	Dir string `mapstructure:"dir"`
}

// ResolverConfig holds resolution chain options
type ResolverConfig struct {
	Coalesce bool `mapstructure:"coalesce"`
}

// ScanConfig holds scan session options
type ScanConfig struct {
	Threshold        int           `mapstructure:"threshold"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	StrictCandidates bool          `mapstructure:"strict_candidates"` // only tally EAN-8, UPC-A and EAN-13 shaped codes
}

// AnalysisConfig holds health analysis options
type AnalysisConfig struct {
	AdditivesFile string `mapstructure:"additives_file"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP     int `mapstructure:"per_ip"`      // requests per minute, 0 disables
	ScanPerIP int `mapstructure:"scan_per_ip"` // scan observations per minute, 0 disables
}

const (
	StoreTypeMemory   = "memory"
	StoreTypePostgres = "postgres"

	RemoteKindService       = "service"
	RemoteKindOpenFoodFacts = "openfoodfacts"
)

// Per-kind remote defaults, applied when remote.base_url or remote.timeout is unset
const (
	DefaultServiceBaseURL       = "http://localhost:8000"
	DefaultServiceTimeout       = 8 * time.Second
	DefaultOpenFoodFactsBaseURL = "https://world.openfoodfacts.net"
	DefaultOpenFoodFactsTimeout = 6 * time.Second
)

// Load loads configuration from environment variables and config files.
// configFile is optional; when empty the usual locations are searched.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/unpackeat/")
	}

	// UNPACKEAT_STORE_DSN -> store.dsn
	v.SetEnvPrefix("UNPACKEAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	applyRemoteDefaults(&config.Remote)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("store.type", StoreTypeMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.ttl", "720h") // 30 days
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.max_conn_lifetime", "1h")
	v.SetDefault("store.max_conn_idle_time", "10m")

	v.SetDefault("remote.kind", RemoteKindService)
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.timeout", time.Duration(0))
	v.SetDefault("remote.user_agent", "UnPackEat/1.0")
	v.SetDefault("remote.rate_per_hour", 3600)

	v.SetDefault("fallback.dir", "./data")

	v.SetDefault("resolver.coalesce", false)

	v.SetDefault("scan.threshold", 3)
	v.SetDefault("scan.session_ttl", "5m")
	v.SetDefault("scan.strict_candidates", false)

	v.SetDefault("analysis.additives_file", "")

	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.scan_per_ip", 1200) // a camera posts several frames per second
}

// applyRemoteDefaults fills base URL and timeout from the remote kind
func applyRemoteDefaults(remote *RemoteConfig) {
	switch remote.Kind {
	case RemoteKindOpenFoodFacts:
		if remote.BaseURL == "" {
			remote.BaseURL = DefaultOpenFoodFactsBaseURL
		}
		if remote.Timeout == 0 {
			remote.Timeout = DefaultOpenFoodFactsTimeout
		}
	case RemoteKindService:
		if remote.BaseURL == "" {
			remote.BaseURL = DefaultServiceBaseURL
		}
		if remote.Timeout == 0 {
			remote.Timeout = DefaultServiceTimeout
		}
	}
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Store.Type {
	case StoreTypeMemory:
	case StoreTypePostgres:
		if config.Store.DSN == "" {
			return fmt.Errorf("store DSN is required when store type is 'postgres' (set UNPACKEAT_STORE_DSN)")
		}
	default:
		return fmt.Errorf("store type must be 'memory' or 'postgres', got: %s", config.Store.Type)
	}

	if config.Remote.Kind != RemoteKindService && config.Remote.Kind != RemoteKindOpenFoodFacts {
		return fmt.Errorf("remote kind must be 'service' or 'openfoodfacts', got: %s", config.Remote.Kind)
	}

	if config.Remote.BaseURL == "" {
		return fmt.Errorf("remote base URL is required (set UNPACKEAT_REMOTE_BASE_URL)")
	}

	if config.Remote.Timeout <= 0 {
		return fmt.Errorf("remote timeout must be positive, got: %s", config.Remote.Timeout)
	}

	if config.Scan.Threshold < 1 {
		return fmt.Errorf("scan threshold must be at least 1, got: %d", config.Scan.Threshold)
	}

	return nil
}
