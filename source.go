package smelter

// FrameSource produces a stream of frames already normalized to the
// output resolution. NextFrame returns an error wrapping
// ErrSourceExhausted when the source has no further frames; callers
// treat that as fatal for their artifact rather than holding the last
// frame.
//
// Implementations are not safe for concurrent use; each artifact of the
// pipeline opens its own source.
type FrameSource interface {
	// NextFrame returns the next decoded frame.
	NextFrame() (Frame, error)

	// Close releases decoder resources. Safe to call more than once.
	Close() error
}
