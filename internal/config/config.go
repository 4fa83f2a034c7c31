// Package config loads process-level settings from the environment,
// following BrunoKrugel/snapshot2stream's caarlos0/env pattern. Per-invocation overrides (listen address, camera directory) are
// layered on top via flags in cmd/camstreamd; this package only covers the
// env-sourced defaults.
package config

import "github.com/caarlos0/env/v9"

// Config is the full set of environment-tunable daemon settings.
type Config struct {
	Server  Server
	Decoder Decoder
}

// Server holds the HTTP listener and camera registry settings.
type Server struct {
	Addr        string `env:"CAMSTREAM_ADDR" envDefault:"0.0.0.0:8876"`
	CameraDir   string `env:"CAMSTREAM_CAMERA_DIR" envDefault:"./cameras"`
	FrameWidth  int    `env:"CAMSTREAM_FRAME_WIDTH" envDefault:"960"`
	FrameHeight int    `env:"CAMSTREAM_FRAME_HEIGHT" envDefault:"540"`
}

// Decoder holds the reader loop's stall-detection thresholds (spec.md §9:
// flagged as values that should be configurable rather than fixed
// constants).
type Decoder struct {
	MaxEmptyReads      int `env:"CAMSTREAM_MAX_EMPTY_READS" envDefault:"150"`
	MaxRestartFailures int `env:"CAMSTREAM_MAX_RESTART_FAILURES" envDefault:"3"`
}

// New parses Config from the environment, applying envDefault values for
// anything unset.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
