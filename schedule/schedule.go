// Package schedule decides which media source owns each instant of a
// composite timeline. The decision is a pure function of the timestamp,
// so every consumer of the timeline sees the same cut points regardless
// of when or how often it asks.
package schedule

import (
	"errors"
	"time"
)

// Source identifies which input owns a span of the timeline.
type Source int

const (
	// SourceImage is the still-image input. It owns the first interval.
	SourceImage Source = iota
	// SourceVideo is the video-stream input.
	SourceVideo
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceImage:
		return "image"
	case SourceVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Schedule validation errors.
var (
	ErrInvalidInterval = errors.New("schedule: switch interval must be positive")
	ErrInvalidDuration = errors.New("schedule: total duration must be positive")
)

// Schedule is a deterministic alternating timeline: the image source
// owns [0, interval), the video source owns [interval, 2*interval), and
// so on until the total duration. Switches are hard cuts; there is no
// blending across a boundary.
type Schedule struct {
	interval time.Duration
	total    time.Duration
}

// New builds a schedule that alternates sources every interval for the
// given total duration. The total does not have to be a multiple of the
// interval; the final segment is simply truncated.
func New(interval, total time.Duration) (*Schedule, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if total <= 0 {
		return nil, ErrInvalidDuration
	}
	return &Schedule{interval: interval, total: total}, nil
}

// SourceAt returns the source owning the instant t. Intervals are
// half-open, so the instant of a switch already belongs to the incoming
// source. The alternation keeps cycling past the total; stopping at the
// total is the caller's job. Negative instants belong to the first
// interval.
func (s *Schedule) SourceAt(t time.Duration) Source {
	if t < 0 {
		t = 0
	}
	if (t/s.interval)%2 == 0 {
		return SourceImage
	}
	return SourceVideo
}

// Total returns the timeline length.
func (s *Schedule) Total() time.Duration { return s.total }

// Segment is one contiguous span of the timeline owned by a single
// source. End is exclusive.
type Segment struct {
	Source Source
	Start  time.Duration
	End    time.Duration
}

// Segments returns the full cut list of the timeline in order.
func (s *Schedule) Segments() []Segment {
	var segs []Segment
	for start := time.Duration(0); start < s.total; start += s.interval {
		end := start + s.interval
		if end > s.total {
			end = s.total
		}
		segs = append(segs, Segment{
			Source: s.SourceAt(start),
			Start:  start,
			End:    end,
		})
	}
	return segs
}
