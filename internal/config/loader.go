package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Storage driver names accepted in configuration.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config captures the runtime configuration of the reservation service.
type Config struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Storage StorageConfig `koanf:"storage"`
	Seed    SeedConfig    `koanf:"seed"`
}

type HTTPConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver    string `koanf:"driver"`
	SQLiteDSN string `koanf:"sqlite_dsn"`
}

type SeedConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Addr returns the host:port the HTTP server binds to.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from an optional YAML file, applies defaults, and
// lets environment variables override individual values.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	if err := applyEnvOverrides(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Storage.Driver != DriverSQLite && cfg.Storage.Driver != DriverMemory {
		return Config{}, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return Config{}, fmt.Errorf("invalid http port %d", cfg.HTTP.Port)
	}

	return cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.shutdown_timeout", 15*time.Second)

	setDefault(k, "storage.driver", DriverSQLite)
	setDefault(k, "storage.sqlite_dsn", "file:roombook.db")

	setDefault(k, "seed.enabled", true)
}

func applyEnvOverrides(k *koanf.Koanf) error {
	if host := strings.TrimSpace(os.Getenv("ROOMBOOK_HTTP_HOST")); host != "" {
		k.Set("http.host", host)
	}
	if portValue := strings.TrimSpace(os.Getenv("ROOMBOOK_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid ROOMBOOK_HTTP_PORT %q", portValue)
		}
		k.Set("http.port", port)
	}
	if driver := strings.TrimSpace(os.Getenv("ROOMBOOK_STORAGE_DRIVER")); driver != "" {
		k.Set("storage.driver", driver)
	}
	if dsn := strings.TrimSpace(os.Getenv("ROOMBOOK_SQLITE_DSN")); dsn != "" {
		k.Set("storage.sqlite_dsn", dsn)
	}
	if seed := strings.TrimSpace(os.Getenv("ROOMBOOK_SEED_ENABLED")); seed != "" {
		enabled, err := strconv.ParseBool(seed)
		if err != nil {
			return fmt.Errorf("invalid ROOMBOOK_SEED_ENABLED %q", seed)
		}
		k.Set("seed.enabled", enabled)
	}
	return nil
}

func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
