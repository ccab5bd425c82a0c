package smelter

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Errorf("resolution = %dx%d, want 1920x1080", cfg.Width, cfg.Height)
	}
	if cfg.SwitchInterval != time.Second {
		t.Errorf("SwitchInterval = %v, want 1s", cfg.SwitchInterval)
	}
	if cfg.TotalDuration != 5*time.Second {
		t.Errorf("TotalDuration = %v, want 5s", cfg.TotalDuration)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero width", func(c *Config) { c.Width = 0 }, ErrInvalidResolution},
		{"negative height", func(c *Config) { c.Height = -1 }, ErrInvalidResolution},
		{"zero interval", func(c *Config) { c.SwitchInterval = 0 }, ErrInvalidInterval},
		{"negative duration", func(c *Config) { c.TotalDuration = -time.Second }, ErrInvalidDuration},
		{"zero frame rate", func(c *Config) { c.FrameRate = 0 }, ErrInvalidFrameRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConfigFrameCount(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.FrameCount(); got != 150 {
		t.Errorf("FrameCount() = %d, want 150", got)
	}

	cfg.TotalDuration = 2 * time.Second
	cfg.FrameRate = 25
	if got := cfg.FrameCount(); got != 50 {
		t.Errorf("FrameCount() = %d, want 50", got)
	}
}

func TestConfigFrameDuration(t *testing.T) {
	cfg := Config{FrameRate: 25}
	if got := cfg.FrameDuration(); got != 40*time.Millisecond {
		t.Errorf("FrameDuration() = %v, want 40ms", got)
	}
}
