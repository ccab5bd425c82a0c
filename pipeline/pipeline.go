// Package pipeline wires frame sources, the GPU resampling stage and
// the output sinks into the three artifacts of a composite run: one
// still per source plus the alternating video.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	smelter "github.com/one-click-studio/smelter-colors"
	"github.com/one-click-studio/smelter-colors/internal/gpu"
	"github.com/one-click-studio/smelter-colors/schedule"
	"github.com/one-click-studio/smelter-colors/sink"
)

// Artifact names used in error reports and logs.
const (
	ArtifactImageStill = "image-still"
	ArtifactVideoStill = "video-still"
	ArtifactComposite  = "composite"
)

// Default output file names.
const (
	DefaultImageStillPath = "output_png.png"
	DefaultVideoStillPath = "output_mp4.png"
	DefaultCompositePath  = "output.mp4"
)

// ArtifactError reports the failure of one output artifact. Artifacts
// fail independently; a run returns the joined ArtifactErrors of every
// artifact that did not complete.
type ArtifactError struct {
	// Artifact is the name of the failed output.
	Artifact string
	// Stage is the pipeline step that failed: decode, render, write or
	// encode.
	Stage string
	// Timestamp is the position on the artifact's timeline at the point
	// of failure. Zero for stills.
	Timestamp time.Duration
	// Err is the underlying failure.
	Err error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s: %s at %v: %v", e.Artifact, e.Stage, e.Timestamp, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// Options configures a pipeline run.
type Options struct {
	Config smelter.Config

	// ImagePath and VideoPath are the two input assets.
	ImagePath string
	VideoPath string

	// Output paths. Empty fields take the default file names in the
	// working directory.
	ImageStillPath string
	VideoStillPath string
	CompositePath  string

	// LoopVideo rewinds the composite's video input at end of stream so
	// a clip shorter than the schedule still fills it. Stills never
	// loop; they only need the first frame.
	LoopVideo bool
}

func (o *Options) applyDefaults() {
	if o.ImageStillPath == "" {
		o.ImageStillPath = DefaultImageStillPath
	}
	if o.VideoStillPath == "" {
		o.VideoStillPath = DefaultVideoStillPath
	}
	if o.CompositePath == "" {
		o.CompositePath = DefaultCompositePath
	}
}

// renderer is the GPU-facing surface the artifacts draw through.
// Satisfied by *gpu.Stage.
type renderer interface {
	RenderFrame(smelter.Frame) ([]byte, error)
}

// frameWriter is the encoding surface of the composite artifact.
// Satisfied by *sink.Encoder.
type frameWriter interface {
	WriteFrame(pix []byte) error
	Close() error
}

// Run produces the three output artifacts. Each artifact runs on its
// own goroutine with its own sources and its own render stage; the
// stages share one GPU device and queue. A failing artifact is reported
// as an ArtifactError and does not stop the others. Device acquisition
// failure aborts the whole run before any artifact starts.
func Run(ctx context.Context, opts Options) error {
	opts.applyDefaults()
	if err := opts.Config.Validate(); err != nil {
		return err
	}

	log := smelter.Logger()
	gpu.SetLogger(log)

	dev, err := gpu.OpenDevice()
	if err != nil {
		return fmt.Errorf("open GPU device: %w", err)
	}
	defer dev.Close()

	sched, err := schedule.New(opts.Config.SwitchInterval, opts.Config.TotalDuration)
	if err != nil {
		return err
	}

	// Stage construction goes through the shared device; keep it on one
	// goroutine and hand the finished stages to the artifacts.
	stages := make([]*gpu.Stage, 0, 3)
	defer func() {
		for _, s := range stages {
			s.Destroy()
		}
	}()
	for i := 0; i < 3; i++ {
		stage, err := gpu.NewStage(dev, opts.Config.Width, opts.Config.Height)
		if err != nil {
			return fmt.Errorf("create render stage: %w", err)
		}
		stages = append(stages, stage)
	}

	log.Info("pipeline starting",
		"image", opts.ImagePath,
		"video", opts.VideoPath,
		"resolution", fmt.Sprintf("%dx%d", opts.Config.Width, opts.Config.Height),
		"interval", opts.Config.SwitchInterval,
		"duration", opts.Config.TotalDuration)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		record(runImageStill(ctx, opts, stages[0]))
	}()
	go func() {
		defer wg.Done()
		record(runVideoStill(ctx, opts, stages[1]))
	}()
	go func() {
		defer wg.Done()
		record(runComposite(ctx, opts, stages[2], sched))
	}()
	wg.Wait()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	log.Info("pipeline finished",
		"image_still", opts.ImageStillPath,
		"video_still", opts.VideoStillPath,
		"composite", opts.CompositePath)
	return nil
}

func runImageStill(ctx context.Context, opts Options, r renderer) error {
	src, err := smelter.NewImageSource(opts.ImagePath, opts.Config.Width, opts.Config.Height)
	if err != nil {
		return &ArtifactError{Artifact: ArtifactImageStill, Stage: "decode", Err: err}
	}
	defer src.Close()
	return renderStill(ctx, ArtifactImageStill, src, r, opts.ImageStillPath, opts.Config)
}

func runVideoStill(ctx context.Context, opts Options, r renderer) error {
	src, err := smelter.NewVideoSource(opts.VideoPath, opts.Config.Width, opts.Config.Height)
	if err != nil {
		return &ArtifactError{Artifact: ArtifactVideoStill, Stage: "decode", Err: err}
	}
	defer src.Close()
	return renderStill(ctx, ArtifactVideoStill, src, r, opts.VideoStillPath, opts.Config)
}

// renderStill pulls one frame, pushes it through the resampling pass
// and writes the readback as a PNG.
func renderStill(ctx context.Context, artifact string, src smelter.FrameSource, r renderer, path string, cfg smelter.Config) error {
	if err := ctx.Err(); err != nil {
		return &ArtifactError{Artifact: artifact, Stage: "decode", Err: err}
	}
	frame, err := src.NextFrame()
	if err != nil {
		return &ArtifactError{Artifact: artifact, Stage: "decode", Err: err}
	}
	pix, err := r.RenderFrame(frame)
	if err != nil {
		return &ArtifactError{Artifact: artifact, Stage: "render", Err: err}
	}
	img, err := sink.ImageFromRGBA(pix, cfg.Width, cfg.Height)
	if err != nil {
		return &ArtifactError{Artifact: artifact, Stage: "write", Err: err}
	}
	if err := sink.WriteStillPNG(path, img); err != nil {
		return &ArtifactError{Artifact: artifact, Stage: "write", Err: err}
	}
	smelter.Logger().Debug("still written", "artifact", artifact, "path", path)
	return nil
}

func runComposite(ctx context.Context, opts Options, r renderer, sched *schedule.Schedule) error {
	imageSrc, err := smelter.NewImageSource(opts.ImagePath, opts.Config.Width, opts.Config.Height)
	if err != nil {
		return &ArtifactError{Artifact: ArtifactComposite, Stage: "decode", Err: err}
	}
	defer imageSrc.Close()

	var videoOpts []smelter.VideoSourceOption
	if opts.LoopVideo {
		videoOpts = append(videoOpts, smelter.WithLoop())
	}
	videoSrc, err := smelter.NewVideoSource(opts.VideoPath, opts.Config.Width, opts.Config.Height, videoOpts...)
	if err != nil {
		return &ArtifactError{Artifact: ArtifactComposite, Stage: "decode", Err: err}
	}
	defer videoSrc.Close()

	enc, err := sink.NewEncoder(opts.CompositePath, opts.Config.Width, opts.Config.Height, opts.Config.FrameRate)
	if err != nil {
		return &ArtifactError{Artifact: ArtifactComposite, Stage: "encode", Err: err}
	}
	return renderComposite(ctx, imageSrc, videoSrc, r, enc, opts.Config, sched)
}

// renderComposite walks the output timeline frame by frame, pulling
// each frame from whichever source owns its timestamp.
func renderComposite(ctx context.Context, imageSrc, videoSrc smelter.FrameSource, r renderer, enc frameWriter, cfg smelter.Config, sched *schedule.Schedule) error {
	frameCount := cfg.FrameCount()

	loopErr := func() error {
		for i := 0; i < frameCount; i++ {
			// Derive the timestamp from the index so per-frame duration
			// truncation cannot accumulate into an extra frame.
			ts := cfg.TotalDuration * time.Duration(i) / time.Duration(frameCount)
			select {
			case <-ctx.Done():
				return &ArtifactError{Artifact: ArtifactComposite, Stage: "decode", Timestamp: ts, Err: ctx.Err()}
			default:
			}

			var src smelter.FrameSource
			switch sched.SourceAt(ts) {
			case schedule.SourceImage:
				src = imageSrc
			default:
				src = videoSrc
			}

			frame, err := src.NextFrame()
			if err != nil {
				return &ArtifactError{Artifact: ArtifactComposite, Stage: "decode", Timestamp: ts, Err: err}
			}
			pix, err := r.RenderFrame(frame)
			if err != nil {
				return &ArtifactError{Artifact: ArtifactComposite, Stage: "render", Timestamp: ts, Err: err}
			}
			if err := enc.WriteFrame(pix); err != nil {
				return &ArtifactError{Artifact: ArtifactComposite, Stage: "encode", Timestamp: ts, Err: err}
			}
		}
		return nil
	}()

	closeErr := enc.Close()
	if loopErr != nil {
		return loopErr
	}
	if closeErr != nil {
		return &ArtifactError{Artifact: ArtifactComposite, Stage: "encode", Timestamp: cfg.TotalDuration, Err: closeErr}
	}
	smelter.Logger().Debug("composite written", "frames", cfg.FrameCount())
	return nil
}
