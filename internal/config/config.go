package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/552020/futura-prealpha/internal/credential"
	"github.com/552020/futura-prealpha/pkg/config"
	"github.com/552020/futura-prealpha/pkg/logger"
)

type Config struct {
	Log    logger.Config       `yaml:"log"`
	Server config.ServerConfig `yaml:"server"`
	DB     config.DBConfig     `yaml:"db"`
	MQ     config.MQConfig     `yaml:"mq"`
	Redis  config.RedisConfig  `yaml:"redis"`
	OTel   config.OTelConfig   `yaml:"otel"`
	Relay  RelayConfig         `yaml:"relay"`
}

// RelayConfig selects the deployment variant: trigger collection and credential strategy.
type RelayConfig struct {
	Collection       string           `yaml:"collection"`
	Endpoint         string           `yaml:"endpoint"`
	Timeout          time.Duration    `yaml:"timeout"`
	MaxResponseBytes int64            `yaml:"max_response_bytes"`
	KeyPrefix        string           `yaml:"idempotency_prefix"`
	DedupTTL         time.Duration    `yaml:"dedup_ttl"`
	Credentials      CredentialConfig `yaml:"credentials"`
}

type CredentialConfig struct {
	Strategy   string `yaml:"strategy"` // env | store
	EnvVar     string `yaml:"env_var"`
	Owner      string `yaml:"owner"`
	PrimaryID  string `yaml:"primary_id"`
	FallbackID string `yaml:"fallback_id"`
}

func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfg, err := LoadFrom(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom reads base + env yaml from dir, applies env overrides and defaults, and validates.
func LoadFrom(env, dir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideOTelFromEnv(&cfg.OTel)
	overrideRelayFromEnv(&cfg.Relay)

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func overrideRelayFromEnv(cfg *RelayConfig) {
	if v := os.Getenv("RELAY_COLLECTION"); v != "" {
		cfg.Collection = v
	}
	if v := os.Getenv("RELAY_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("RELAY_CREDENTIAL_STRATEGY"); v != "" {
		cfg.Credentials.Strategy = v
	}
	if v := os.Getenv("RELAY_OWNER"); v != "" {
		cfg.Credentials.Owner = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.MQ.Queue == "" {
		c.MQ.Queue = "relay.mutations.q"
	}
	if c.Relay.Collection == "" {
		c.Relay.Collection = "demo"
	}
	if c.Relay.DedupTTL == 0 {
		c.Relay.DedupTTL = 24 * time.Hour
	}
	if c.Relay.Credentials.Strategy == "" {
		c.Relay.Credentials.Strategy = credential.StrategyEnv
	}
	if c.Relay.Credentials.EnvVar == "" {
		c.Relay.Credentials.EnvVar = credential.TokenName
	}
	if c.Relay.Credentials.PrimaryID == "" {
		c.Relay.Credentials.PrimaryID = "prod"
	}
	if c.Relay.Credentials.FallbackID == "" {
		c.Relay.Credentials.FallbackID = "dev"
	}
}

// Validate rejects configurations that cannot serve a single delivery.
func (c *Config) Validate() error {
	if err := c.checkResolved(); err != nil {
		return err
	}

	switch c.Relay.Credentials.Strategy {
	case credential.StrategyEnv:
	case credential.StrategyStore:
		if c.Relay.Credentials.Owner == "" {
			return fmt.Errorf("relay.credentials.owner is required for the store strategy")
		}
	default:
		return fmt.Errorf("unknown credential strategy %q", c.Relay.Credentials.Strategy)
	}
	if c.Relay.Credentials.PrimaryID == c.Relay.Credentials.FallbackID {
		return fmt.Errorf("relay.credentials primary_id and fallback_id must differ")
	}
	return nil
}

// checkResolved fails when a setting the process will use still holds a
// ${VAR} placeholder whose variable was not provided.
func (c *Config) checkResolved() error {
	fields := []struct {
		name  string
		value string
		used  bool
	}{
		{"relay.credentials.owner", c.Relay.Credentials.Owner, c.Relay.Credentials.Strategy == credential.StrategyStore},
		{"relay.endpoint", c.Relay.Endpoint, true},
		{"mq.url", c.MQ.URL, true},
		{"db.password", c.DB.Password, c.DB.Enabled()},
		{"redis.password", c.Redis.Password, c.Redis.Addr != ""},
	}

	var missing []string
	for _, f := range fields {
		if !f.used {
			continue
		}
		for _, name := range config.Unresolved(f.value) {
			missing = append(missing, fmt.Sprintf("%s (${%s})", f.name, name))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("unresolved config placeholders: %s", strings.Join(missing, ", "))
	}
	return nil
}
