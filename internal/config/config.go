package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath       = "config.toml"
	DefaultHTTPAddr         = "127.0.0.1:8080"
	DefaultTransport        = TransportStdio
	DefaultBackendURL       = "https://api.scholarhub.dev/v1"
	DefaultBackendTimeout   = "30s"
	DefaultUserAgent        = "scholarhub-mcp"
	DefaultModuleConfigPath = "modules.json"
	DefaultHealthSchedule   = "@every 5m"

	TransportStdio = "stdio"
	TransportHTTP  = "http"

	EnvConfigPath = "CONFIG_PATH"
	EnvBackendURL = "SCHOLARHUB_API_URL"
	EnvAPIKey     = "SCHOLARHUB_API_KEY"
)

type Config struct {
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
	Backend BackendConfig `toml:"backend"`
	Modules ModulesConfig `toml:"modules"`
	Health  HealthConfig  `toml:"health"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=text json"`
}

type ServerConfig struct {
	Transport string `toml:"transport" validate:"oneof=stdio http"`
	Addr      string `toml:"addr" validate:"required"`
	// JWTSecret guards the /api admin routes when set.
	JWTSecret string `toml:"jwt_secret"`
}

type BackendConfig struct {
	BaseURL   string `toml:"base_url" validate:"required,url"`
	APIKey    string `toml:"api_key"`
	Timeout   string `toml:"timeout" validate:"required"`
	UserAgent string `toml:"user_agent"`
}

// TimeoutDuration parses Timeout, falling back to DefaultBackendTimeout.
func (c BackendConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.Timeout))
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultBackendTimeout)
	}
	return d
}

type ModulesConfig struct {
	ConfigPath string `toml:"config_path"`
	// StrictLoading makes any module load failure abort startup.
	StrictLoading bool `toml:"strict_loading"`
}

type HealthConfig struct {
	// Schedule is a cron spec for backend probes; empty disables probing.
	Schedule string `toml:"schedule"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Transport: DefaultTransport,
			Addr:      DefaultHTTPAddr,
		},
		Backend: BackendConfig{
			BaseURL:   DefaultBackendURL,
			Timeout:   DefaultBackendTimeout,
			UserAgent: DefaultUserAgent,
		},
		Modules: ModulesConfig{
			ConfigPath: DefaultModuleConfigPath,
		},
		Health: HealthConfig{
			Schedule: DefaultHealthSchedule,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if value := strings.TrimSpace(os.Getenv(EnvBackendURL)); value != "" {
		cfg.Backend.BaseURL = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvAPIKey)); value != "" {
		cfg.Backend.APIKey = value
	}
}

// Validate checks field constraints and reports every violation.
func Validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if _, err := time.ParseDuration(strings.TrimSpace(cfg.Backend.Timeout)); err != nil {
		return fmt.Errorf("invalid config: backend.timeout: %w", err)
	}
	return nil
}
