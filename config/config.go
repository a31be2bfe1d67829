// Package config loads the service configuration: config.yaml, optionally
// merged with secrets.yaml, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const (
	BackendFirebase = "firebase"
	BackendLocal    = "local"
)

// Config is the `signup` section of config.yaml.
type Config struct {
	Port    string `json:"port"`
	IsDebug bool   `json:"is_debug"`
	Backend string `json:"backend"`

	FirebaseCredentials string `json:"firebase_credentials"`
	FirebaseProjectID   string `json:"firebase_project_id"`

	DatabaseURL    string `json:"db_url"`
	DatabasePath   string `json:"db_path"`
	DatabaseDriver string `json:"db_driver"`

	RedisURL        string `json:"redis_url"`
	GuardTTLSeconds int    `json:"guard_ttl_seconds"`

	JWTKey            string `json:"jwt_key"`
	SessionTTLMinutes int    `json:"session_ttl_minutes"`
	SecureCookies     bool   `json:"secure_cookies"`

	DashboardPath string `json:"dashboard_path"`
	LoginPath     string `json:"login_path"`

	MetricsToken    string `json:"metrics_token"`
	MetricsUser     string `json:"metrics_user"`
	MetricsPassword string `json:"metrics_password"`

	LogSamplingTickMs  int `json:"log_sampling_tick_ms"`
	LogSamplingAfterMs int `json:"log_sampling_after_ms"`

	OtelEnabled        bool    `json:"otel_enabled"`
	OtelEndpoint       string  `json:"otel_endpoint"`
	OtelInsecure       bool    `json:"otel_insecure"`
	OtelSampleRate     float64 `json:"otel_sample_rate"`
	OtelServiceName    string  `json:"otel_service_name"`
	OtelServiceVersion string  `json:"otel_service_version"`
}

// Defaults fills zero values.
func (c *Config) Defaults() {
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.Backend == "" {
		c.Backend = BackendLocal
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "signup.db"
	}
	if c.GuardTTLSeconds <= 0 {
		c.GuardTTLSeconds = 30
	}
	if c.SessionTTLMinutes <= 0 {
		c.SessionTTLMinutes = 12 * 60
	}
	if c.DashboardPath == "" {
		c.DashboardPath = "/dashboard"
	}
	if c.LoginPath == "" {
		c.LoginPath = "/"
	}
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFirebase:
		if c.FirebaseCredentials == "" && c.FirebaseProjectID == "" {
			return errors.New("firebase backend needs firebase_credentials or firebase_project_id")
		}
	case BackendLocal:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if len(c.JWTKey) < 16 {
		return errors.New("jwt_key must be at least 16 characters")
	}
	return nil
}

// Load reads configPath and, if present, secretsPath, then applies env.
// A missing configPath is only an error when it was explicitly requested.
func Load(configPath, secretsPath string) (Config, error) {
	var cfg Config

	configMap := map[string]interface{}{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &configMap); err != nil {
			return cfg, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	secretsMap := map[string]interface{}{}
	if secretsPath != "" {
		if data, err := os.ReadFile(secretsPath); err == nil {
			if err := yaml.Unmarshal(data, &secretsMap); err != nil {
				return cfg, fmt.Errorf("parse secrets yaml: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read secrets: %w", err)
		}
	}

	merged, ok := mergeConfig(configMap, secretsMap).(map[string]interface{})
	if !ok {
		return cfg, errors.New("merged config is not a map")
	}
	section := getMap(merged, "signup")
	if section == nil {
		section = map[string]interface{}{}
	}

	payload, err := json.Marshal(section)
	if err != nil {
		return cfg, fmt.Errorf("encode signup config: %w", err)
	}
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return cfg, fmt.Errorf("decode signup config: %w", err)
	}

	applyEnv(&cfg)
	cfg.Defaults()
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"SIGNUP_PORT", &cfg.Port},
		{"SIGNUP_BACKEND", &cfg.Backend},
		{"SIGNUP_JWT_KEY", &cfg.JWTKey},
		{"SIGNUP_REDIS_URL", &cfg.RedisURL},
		{"SIGNUP_DATABASE_URL", &cfg.DatabaseURL},
		{"GOOGLE_APPLICATION_CREDENTIALS", &cfg.FirebaseCredentials},
		{"GOOGLE_CLOUD_PROJECT", &cfg.FirebaseProjectID},
		{"OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.OtelEndpoint},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.dst = v
		}
	}
}

// FirstExistingPath returns the first path that exists, or "".
func FirstExistingPath(paths ...string) string {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func mergeConfig(base, override interface{}) interface{} {
	if override == nil {
		return base
	}

	switch overrideTyped := override.(type) {
	case map[string]interface{}:
		baseMap, ok := base.(map[string]interface{})
		if !ok {
			baseMap = map[string]interface{}{}
		}
		result := map[string]interface{}{}
		for key, value := range baseMap {
			result[key] = value
		}
		for key, value := range overrideTyped {
			result[key] = mergeConfig(result[key], value)
		}
		return result
	case string:
		if overrideTyped == "" {
			return base
		}
		return overrideTyped
	default:
		return override
	}
}

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	v, ok := m[key]
	if !ok {
		return nil
	}
	out, _ := v.(map[string]interface{})
	return out
}
