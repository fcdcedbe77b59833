package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config is the central typed configuration struct.
type Config struct {
	App     AppConfig     `koanf:"app"`
	Log     LogConfig     `koanf:"log"`
	DB      DBConfig      `koanf:"db"`
	Plugins PluginsConfig `koanf:"plugins"`
}

type AppConfig struct {
	Name  string `koanf:"name"`
	Env   string `koanf:"env"` // local | production | testing
	Debug bool   `koanf:"debug"`
	URL   string `koanf:"url"`
	Port  string `koanf:"port"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	File  string `koanf:"file"`
}

type DBConfig struct {
	Driver string `koanf:"driver"` // memory | sqlite
	DSN    string `koanf:"dsn"`
}

type PluginsConfig struct {
	// Manifest is the path of the plugin manifest (see LoadManifest).
	Manifest string `koanf:"manifest"`
}

// defaults maps every recognised environment variable to its fallback.
// APP_NAME fills app.name, PLUGINS_MANIFEST fills plugins.manifest.
var defaults = map[string]string{
	"APP_NAME":         "go-ioc",
	"APP_ENV":          "local",
	"APP_DEBUG":        "true",
	"APP_URL":          "http://localhost",
	"APP_PORT":         "8000",
	"LOG_LEVEL":        "info",
	"LOG_FILE":         "congratulations.log",
	"DB_DRIVER":        "memory",
	"DB_DSN":           "file:users.db?_pragma=busy_timeout(5000)",
	"PLUGINS_MANIFEST": "plugins.yaml",
}

func keyPath(name string) string {
	return strings.Replace(strings.ToLower(name), "_", ".", 1)
}

// Load reads the env files (.env by default, missing files are fine) and
// builds a Config from the environment. Empty variables keep their default.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string {
		if _, ok := defaults[s]; !ok || os.Getenv(s) == "" {
			return ""
		}
		return keyPath(s)
	}), nil); err != nil {
		return nil, err
	}
	for name, val := range defaults {
		if !k.Exists(keyPath(name)) {
			if err := k.Set(keyPath(name), val); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: decode environment: %w", err)
	}
	return &cfg, nil
}

// Get returns the environment variable key, or fallback when it is unset or
// empty. Plugins use it for settings outside Config, such as APP_SECRET.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
