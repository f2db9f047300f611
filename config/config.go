// Package config provides environment-based defaults for the delskim CLI.
// CLI flags override these values.
package config

import "github.com/kelseyhightower/envconfig"

// Config holds the pipeline defaults, read from DELSKIM_* environment
// variables.
type Config struct {
	Workers     int    `envconfig:"WORKERS" default:"1"`
	MaxEvents   int    `envconfig:"MAX_EVENTS" default:"0"`
	XsecPath    string `envconfig:"XSEC_PATH" default:"data/cross_sections.txt"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:""`
	ServeAddr   string `envconfig:"SERVE_ADDR" default:"tcp://0.0.0.0:5555"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("delskim", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
