package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "config.yaml"

type Config struct {
	Port          string `yaml:"port" validate:"required"`
	AllowedOrigin string `yaml:"allowed_origin" validate:"required"`
	// Upstream concierge API
	APIBaseURL        string        `yaml:"api_base_url" validate:"required,url"`
	AgentID           string        `yaml:"agent_id" validate:"required"`
	DistanceThreshold float64       `yaml:"distance_threshold" validate:"gt=0,lte=1"`
	DataLimit         int           `yaml:"data_limit" validate:"gt=0"`
	UpstreamTimeout   time.Duration `yaml:"upstream_timeout" validate:"gte=0"`
	// Sessions and client identity
	SessionTTL    time.Duration `yaml:"session_ttl" validate:"gt=0"`
	ClientIDStore string        `yaml:"client_id_store" validate:"oneof=memory file postgres redis"`
	ClientIDFile  string        `yaml:"client_id_file"`
	DatabaseURL   string        `yaml:"database_url" validate:"required_if=ClientIDStore postgres"`
	RedisAddr     string        `yaml:"redis_addr" validate:"required_if=ClientIDStore redis"`
	// Logging
	LogMode string `yaml:"log_mode" validate:"oneof=dev prod"`
	LogFile string `yaml:"log_file"`
}

// Defaults returns the configuration used when neither a YAML file nor the
// environment override a value.
func Defaults() Config {
	return Config{
		Port:              "8080",
		AllowedOrigin:     "*",
		APIBaseURL:        "http://localhost:8501/api",
		AgentID:           "1",
		DistanceThreshold: 0.65,
		DataLimit:         1000,
		SessionTTL:        2 * time.Hour,
		ClientIDStore:     "memory",
		ClientIDFile:      "data/client_ids.json",
		LogMode:           "dev",
	}
}

// Load builds the configuration from defaults, an optional YAML overlay and the
// environment (a .env file is honoured). Environment values win.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg := Defaults()

	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	cfg.Port = getEnvDefault("PORT", cfg.Port)
	cfg.AllowedOrigin = getEnvDefault("ALLOWED_ORIGIN", cfg.AllowedOrigin)
	cfg.APIBaseURL = strings.TrimRight(getEnvDefault("API_BASE_URL", cfg.APIBaseURL), "/")
	cfg.AgentID = getEnvDefault("AGENT_ID", cfg.AgentID)
	cfg.DistanceThreshold = getEnvFloatDefault("DISTANCE_THRESHOLD", cfg.DistanceThreshold)
	cfg.DataLimit = getEnvIntDefault("DATA_LIMIT", cfg.DataLimit)
	cfg.UpstreamTimeout = getEnvDurationDefault("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout)
	cfg.SessionTTL = getEnvDurationDefault("SESSION_TTL", cfg.SessionTTL)
	cfg.ClientIDStore = strings.ToLower(getEnvDefault("CLIENT_ID_STORE", cfg.ClientIDStore))
	cfg.ClientIDFile = getEnvDefault("CLIENT_ID_FILE", cfg.ClientIDFile)
	cfg.DatabaseURL = getEnvDefault("DB_URL", cfg.DatabaseURL)
	cfg.RedisAddr = getEnvDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.LogMode = strings.ToLower(getEnvDefault("LOG_MODE", cfg.LogMode))
	cfg.LogFile = getEnvDefault("LOG_FILE", cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the field constraints declared on Config.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func getEnvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloatDefault(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
