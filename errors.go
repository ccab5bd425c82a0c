package smelter

import "errors"

// Failure taxonomy for the pipeline. Every error surfaced by a pipeline
// stage wraps one of these sentinels so callers can classify failures
// with errors.Is without depending on the failing stage's internals.
var (
	// ErrResourceExhausted reports a GPU memory allocation failure.
	// Non-recoverable: retrying an allocation under the same pressure is
	// futile in a short-lived pipeline, so no stage retries it.
	ErrResourceExhausted = errors.New("smelter: GPU resource exhausted")

	// ErrInvalidSource reports a malformed frame, such as zero dimensions
	// or a pixel buffer shorter than the declared geometry. Fatal for the
	// artifact consuming the frame; other artifacts are unaffected.
	ErrInvalidSource = errors.New("smelter: invalid source frame")

	// ErrSourceExhausted reports that a decoder ran out of frames before
	// the schedule was complete. Fatal for the artifact that needed more
	// footage, never a silent hold on the last frame.
	ErrSourceExhausted = errors.New("smelter: source exhausted")

	// ErrCaptureFailed reports a GPU readback or encode failure. Aborts
	// the current output artifact only.
	ErrCaptureFailed = errors.New("smelter: capture failed")
)
