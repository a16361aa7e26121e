package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"planethub/pkg/database"
)

const (
	DefaultRemoteURL = "https://university-api-alpha.vercel.app/api/planets"
	DefaultStoreKey  = "custom_planets"
	DefaultLocale    = "uk"

	DefaultMirrorFile = "data/planets.json"
)

// Config holds all runtime configuration.
// Values are populated from planethub.yaml, PLANETHUB_* env vars, and CLI flags.
type Config struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	TCPAddr         string        `mapstructure:"tcp_addr"`
	APIURL          string        `mapstructure:"api_url"`
	MirrorAddr      string        `mapstructure:"mirror_addr"`
	MirrorFile      string        `mapstructure:"mirror_file"`
	DBPath          string        `mapstructure:"db_path"`
	RemoteURL       string        `mapstructure:"remote_url"`
	RemoteTimeout   time.Duration `mapstructure:"remote_timeout"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Locale          string        `mapstructure:"locale"`
	StoreKey        string        `mapstructure:"store_key"`
	LogLevel        string        `mapstructure:"log_level"`
	Dev             bool          `mapstructure:"dev"`
}

// NewViper returns a viper instance wired to the PLANETHUB_ env prefix and the
// optional planethub.yaml config file.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("PLANETHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("planethub")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		v.AddConfigPath(filepath.Join(home, ".planethub"))
	}
	return v
}

// LoadConfig reads configuration from v, applying built-in defaults for any
// values not set by config file, environment, or flags.
func LoadConfig(v *viper.Viper) (Config, error) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("tcp_addr", ":7070")
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("mirror_addr", ":9000")
	v.SetDefault("mirror_file", DefaultMirrorFile)
	v.SetDefault("db_path", database.DefaultConfig().Path)
	v.SetDefault("remote_url", DefaultRemoteURL)
	v.SetDefault("remote_timeout", 10*time.Second)
	v.SetDefault("cache_ttl", 0)
	v.SetDefault("refresh_interval", 5*time.Minute)
	v.SetDefault("locale", DefaultLocale)
	v.SetDefault("store_key", DefaultStoreKey)
	v.SetDefault("log_level", "info")
	v.SetDefault("dev", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if strings.TrimSpace(cfg.StoreKey) == "" {
		cfg.StoreKey = DefaultStoreKey
	}
	return cfg, nil
}
