package config

import (
	"errors"
	"fmt"
	"os"

	"barbershop/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Push       PushConfig       `yaml:"push"`
	API        APIConfig        `yaml:"api"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Barbers    []string         `yaml:"barbers"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	PoolSize        int    `yaml:"pool_size"`
	CatalogCacheTTL int    `yaml:"catalog_cache_ttl"` // seconds
}

// PushConfig holds the VAPID key pair for the web-push transport. When the
// keys are empty the dispatcher starts disabled and bookings still succeed.
type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subject         string `yaml:"subject"`          // mailto: or https: contact
	DeliveryTimeout int    `yaml:"delivery_timeout"` // seconds, per delivery
	QueueSize       int    `yaml:"queue_size"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

// APIClientKey maps an API key to an already-authenticated caller identity.
// Role is either "client" or "admin".
type APIClientKey struct {
	Key    string `yaml:"key"`
	UserID string `yaml:"user_id"`
	Name   string `yaml:"name"`
	Role   string `yaml:"role"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment variables referenced in the YAML may come
	// from the process environment instead.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if len(c.Barbers) == 0 {
		return errors.New("at least one barber is required")
	}
	seen := make(map[string]bool, len(c.Barbers))
	for _, b := range c.Barbers {
		if b == "" {
			return errors.New("barber name must not be empty")
		}
		if seen[b] {
			return fmt.Errorf("duplicate barber name: %s", b)
		}
		seen[b] = true
	}

	// VAPID keys come as a pair or not at all.
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		return errors.New("push: vapid_public_key and vapid_private_key must both be set")
	}

	for _, k := range c.API.Auth.APIKeys {
		if k.Key == "" || k.UserID == "" {
			return errors.New("api key entries require key and user_id")
		}
		if k.Role != "client" && k.Role != "admin" {
			return fmt.Errorf("api key %s: role must be client or admin", k.Name)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = models.RateLimitRPS
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = models.RateLimitBurst
	}

	if c.Push.DeliveryTimeout == 0 {
		c.Push.DeliveryTimeout = models.DefaultDeliveryTimeoutSeconds
	}
	if c.Push.QueueSize == 0 {
		c.Push.QueueSize = models.DefaultDispatchQueueSize
	}
	if c.Push.Subject == "" {
		c.Push.Subject = "mailto:admin@localhost"
	}

	if c.Redis.CatalogCacheTTL == 0 {
		c.Redis.CatalogCacheTTL = models.DefaultCatalogCacheTTL
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
