package smelter

import (
	"errors"
	"time"
)

// Configuration errors.
var (
	ErrInvalidResolution = errors.New("smelter: invalid output resolution")
	ErrInvalidInterval   = errors.New("smelter: invalid switch interval")
	ErrInvalidDuration   = errors.New("smelter: invalid total duration")
	ErrInvalidFrameRate  = errors.New("smelter: invalid frame rate")
)

// Config holds the output geometry and timing of a composite run.
type Config struct {
	// Width and Height are the output resolution in pixels. Every frame,
	// still or video, is normalized to this geometry before upload.
	Width  int
	Height int

	// SwitchInterval is how long the composite holds one source before
	// cutting to the other. The image source owns the first interval.
	SwitchInterval time.Duration

	// TotalDuration is the length of the composite video.
	TotalDuration time.Duration

	// FrameRate is the composite video frame rate in frames per second.
	FrameRate int
}

// DefaultConfig returns the standard 1080p configuration: a 5 second
// composite alternating sources every second at 30 fps.
func DefaultConfig() Config {
	return Config{
		Width:          1920,
		Height:         1080,
		SwitchInterval: time.Second,
		TotalDuration:  5 * time.Second,
		FrameRate:      30,
	}
}

// Validate checks the configuration for values the pipeline cannot run
// with.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return ErrInvalidResolution
	}
	if c.SwitchInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.TotalDuration <= 0 {
		return ErrInvalidDuration
	}
	if c.FrameRate <= 0 {
		return ErrInvalidFrameRate
	}
	return nil
}

// FrameCount returns the number of frames in the composite video.
func (c Config) FrameCount() int {
	return int(c.TotalDuration.Seconds() * float64(c.FrameRate))
}

// FrameDuration returns the presentation duration of one frame.
func (c Config) FrameDuration() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}
