package config

import "testing"

func TestNewAppliesDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:8876" {
		t.Errorf("Addr = %q, want default", cfg.Server.Addr)
	}
	if cfg.Server.CameraDir != "./cameras" {
		t.Errorf("CameraDir = %q, want default", cfg.Server.CameraDir)
	}
	if cfg.Server.FrameWidth != 960 || cfg.Server.FrameHeight != 540 {
		t.Errorf("frame size = %dx%d, want 960x540", cfg.Server.FrameWidth, cfg.Server.FrameHeight)
	}
	if cfg.Decoder.MaxEmptyReads != 150 {
		t.Errorf("MaxEmptyReads = %d, want 150", cfg.Decoder.MaxEmptyReads)
	}
	if cfg.Decoder.MaxRestartFailures != 3 {
		t.Errorf("MaxRestartFailures = %d, want 3", cfg.Decoder.MaxRestartFailures)
	}
}

func TestNewRespectsEnvOverride(t *testing.T) {
	t.Setenv("CAMSTREAM_ADDR", "127.0.0.1:9000")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q, want overridden value", cfg.Server.Addr)
	}
}
