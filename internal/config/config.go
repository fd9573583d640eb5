// Package config loads runtime settings: built-in defaults, then an optional
// YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/studycards/internal/platform/envutil"
)

const DefaultConfigPath = "config/config.yaml"

// Duration decodes from "30s" style strings or integer nanoseconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v := strings.TrimSpace(node.Value)
	if v == "" {
		*d = 0
		return nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", v, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Env        string           `yaml:"env"`
	LogMode    string           `yaml:"log_mode"`
	HTTP       HTTPConfig       `yaml:"http"`
	Proxy      ProxyConfig      `yaml:"proxy"`
	Generation GenerationConfig `yaml:"generation"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Avatar     AvatarConfig     `yaml:"avatar"`
	Auth       AuthConfig       `yaml:"auth"`
	History    HistoryConfig    `yaml:"history"`
	Otel       OtelConfig       `yaml:"otel"`
}

type HTTPConfig struct {
	Addr               string   `yaml:"addr"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	ShutdownTimeout    Duration `yaml:"shutdown_timeout"`
}

type ProxyConfig struct {
	// Engine is "gemini" or "mock".
	Engine       string  `yaml:"engine"`
	GeminiAPIKey string  `yaml:"gemini_api_key"`
	GeminiModel  string  `yaml:"gemini_model"`
	Temperature  float32 `yaml:"temperature"`
}

type GenerationConfig struct {
	// BaseURL of the proxy; empty means the server's own address.
	BaseURL    string   `yaml:"base_url"`
	Timeout    Duration `yaml:"timeout"`
	RetryDelay Duration `yaml:"retry_delay"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type AvatarConfig struct {
	Bucket          string `yaml:"bucket"`
	CDNDomain       string `yaml:"cdn_domain"`
	Mode            string `yaml:"mode"`
	EmulatorHost    string `yaml:"emulator_host"`
	CredentialsFile string `yaml:"credentials_file"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

type OtelConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	SamplerRatio float64 `yaml:"sampler_ratio"`
}

func Default() Config {
	return Config{
		Env:     "development",
		LogMode: "development",
		HTTP: HTTPConfig{
			Addr:               ":8080",
			CORSAllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
			ShutdownTimeout:    Duration(10 * time.Second),
		},
		Proxy: ProxyConfig{Engine: "gemini", GeminiModel: "gemini-2.0-flash", Temperature: 0.7},
		Generation: GenerationConfig{
			Timeout:    Duration(30 * time.Second),
			RetryDelay: Duration(time.Second),
		},
		Database: DatabaseConfig{Driver: "sqlite"},
		Redis:    RedisConfig{Channel: "studycards:sse"},
		Avatar:   AvatarConfig{Mode: "gcs"},
		History:  HistoryConfig{Limit: 10},
		Otel:     OtelConfig{ServiceName: "studycards", SamplerRatio: 1},
	}
}

// Load resolves the config path from STUDYCARDS_CONFIG, falling back to
// DefaultConfigPath. A missing default file is not an error.
func Load() (Config, error) {
	path := strings.TrimSpace(os.Getenv("STUDYCARDS_CONFIG"))
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}
	return LoadFile(path, explicit)
}

func LoadFile(path string, required bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("APP_ENV", cfg.Env)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)

	cfg.HTTP.Addr = envutil.String("HTTP_ADDR", cfg.HTTP.Addr)
	if origins := envutil.List("CORS_ALLOWED_ORIGINS"); len(origins) > 0 {
		cfg.HTTP.CORSAllowedOrigins = origins
	}

	cfg.Proxy.Engine = envutil.String("PROXY_ENGINE", cfg.Proxy.Engine)
	cfg.Proxy.GeminiAPIKey = envutil.String("GEMINI_API_KEY", cfg.Proxy.GeminiAPIKey)
	cfg.Proxy.GeminiModel = envutil.String("GEMINI_MODEL", cfg.Proxy.GeminiModel)

	cfg.Generation.BaseURL = envutil.String("PROXY_BASE_URL", cfg.Generation.BaseURL)
	cfg.Generation.Timeout = Duration(envutil.Duration("GENERATION_TIMEOUT", cfg.Generation.Timeout.Std()))
	cfg.Generation.RetryDelay = Duration(envutil.Duration("GENERATION_RETRY_DELAY", cfg.Generation.RetryDelay.Std()))

	cfg.Database.Driver = envutil.String("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = envutil.String("DATABASE_DSN", cfg.Database.DSN)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.Avatar.Bucket = envutil.String("AVATAR_GCS_BUCKET_NAME", cfg.Avatar.Bucket)
	cfg.Avatar.CDNDomain = envutil.String("AVATAR_CDN_DOMAIN", cfg.Avatar.CDNDomain)
	cfg.Avatar.Mode = envutil.String("OBJECT_STORAGE_MODE", cfg.Avatar.Mode)
	cfg.Avatar.EmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", cfg.Avatar.EmulatorHost)
	cfg.Avatar.CredentialsFile = envutil.String("GCP_CREDENTIALS_FILE", cfg.Avatar.CredentialsFile)

	cfg.Auth.JWTSecret = envutil.String("JWT_SECRET_KEY", cfg.Auth.JWTSecret)
	cfg.Auth.Issuer = envutil.String("JWT_ISSUER", cfg.Auth.Issuer)

	cfg.History.Limit = envutil.Int("HISTORY_LIMIT", cfg.History.Limit)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
}

func (c Config) Validate() error {
	var errs []error
	switch c.LogMode {
	case "development", "production":
	default:
		errs = append(errs, fmt.Errorf("log_mode must be development or production, got %q", c.LogMode))
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	switch c.Proxy.Engine {
	case "gemini", "mock":
	default:
		errs = append(errs, fmt.Errorf("proxy.engine must be gemini or mock, got %q", c.Proxy.Engine))
	}
	if c.Generation.Timeout <= 0 {
		errs = append(errs, errors.New("generation.timeout must be positive"))
	}
	if c.Generation.RetryDelay < 0 {
		errs = append(errs, errors.New("generation.retry_delay must not be negative"))
	}
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	switch c.Avatar.Mode {
	case "gcs", "gcs_emulator":
	default:
		errs = append(errs, fmt.Errorf("avatar.mode must be gcs or gcs_emulator, got %q", c.Avatar.Mode))
	}
	if c.History.Limit < 1 {
		errs = append(errs, errors.New("history.limit must be at least 1"))
	}
	if c.Otel.SamplerRatio < 0 || c.Otel.SamplerRatio > 1 {
		errs = append(errs, errors.New("otel.sampler_ratio must be within 0..1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
