// Package smelter renders a time-scheduled comparison between two media
// sources — a still image and a video stream — through a single GPU
// color-resampling stage.
//
// Both sources are normalized into [Frame] values and pushed through the
// same texture-sample-and-write render pass, so the output color is
// identical regardless of which source produced the frame. A fixed switch
// schedule alternates between the sources at a configurable interval to
// produce a short composite video, alongside one reference still per
// source.
//
// The package tree:
//
//   - smelter (this package): frame model, frame sources, configuration,
//     failure taxonomy, logging.
//   - schedule: the deterministic source-switch scheduler.
//   - sink: PNG still capture and the mp4 encoder session.
//   - pipeline: the orchestrator that wires sources, the GPU stage and
//     the sinks into the three output artifacts.
//
// Typical use is through the smelter-colors command:
//
//	smelter-colors -image RGBBW.jpg -video RGBBW.mp4
//
// which writes output_png.png, output_mp4.png and output.mp4 into the
// working directory.
package smelter
