// Package config loads the layered kgq configuration: defaults, then a
// kgq.json/kgq.yaml sidecar file, then environment variables prefixed
// KGQ_ — merged with spf13/viper into one resolved view. CLI flags are not
// part of that view; cmd/kgq layers explicitly set flags on top of it.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// SidecarFileName is the well-known config sidecar name searched for in
// the data directory and the current working directory.
const SidecarFileName = "kgq"

// Config is the resolved, merged view of every configuration layer.
type Config struct {
	DataDir       string `mapstructure:"data_dir"`
	SourceKind    string `mapstructure:"source"`       // file | sql | http
	LogLevel      string `mapstructure:"log_level"`     // debug | info | warn | error
	OTELExporter  string `mapstructure:"otel_exporter"` // stdout | otlp | none
	OutputMode    string `mapstructure:"output"`        // json | pretty | markdown
	SQLDriver     string `mapstructure:"sql_driver"`
	SQLDSN        string `mapstructure:"sql_dsn"`
	RemoteURL     string `mapstructure:"remote_url"`
	Watch         bool   `mapstructure:"watch"`
}

func defaults() map[string]any {
	return map[string]any{
		"data_dir":      "./data",
		"source":        "file",
		"log_level":     "info",
		"otel_exporter": "stdout",
		"output":        "pretty",
		"sql_driver":    "dolt",
		"watch":         false,
	}
}

// Load builds a *viper.Viper with defaults, an optional kgq sidecar file
// found on searchPaths, and KGQ_-prefixed environment variables, then
// unmarshals it into a Config. CLI flags, if any, should be bound onto
// the returned viper instance by the caller before Load is called again,
// or merged directly via v.BindPFlags before Unmarshal.
func Load(searchPaths ...string) (*Config, *viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}

	v.SetConfigName(SidecarFileName)
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, nil, fmt.Errorf("reading kgq config: %w", err)
		}
	}

	v.SetEnvPrefix("KGQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling kgq config: %w", err)
	}
	return &cfg, v, nil
}
