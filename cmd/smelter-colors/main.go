// Command smelter-colors renders a color comparison between a still
// image and a video: one reference still per input plus a short video
// alternating between them, all drawn through the same GPU resampling
// pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	smelter "github.com/one-click-studio/smelter-colors"
	"github.com/one-click-studio/smelter-colors/pipeline"
)

func main() {
	var (
		imagePath = flag.String("image", "RGBBW.jpg", "still image input (png or jpeg)")
		videoPath = flag.String("video", "RGBBW.mp4", "video input")
		outDir    = flag.String("out", ".", "output directory")
		width     = flag.Int("width", 1920, "output width")
		height    = flag.Int("height", 1080, "output height")
		interval  = flag.Duration("interval", time.Second, "source switch interval")
		duration  = flag.Duration("duration", 5*time.Second, "composite video duration")
		fps       = flag.Int("fps", 30, "composite video frame rate")
		noLoop    = flag.Bool("no-loop", false, "do not rewind the video input at end of stream")
		verbose   = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	smelter.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := smelter.Config{
		Width:          *width,
		Height:         *height,
		SwitchInterval: *interval,
		TotalDuration:  *duration,
		FrameRate:      *fps,
	}
	opts := pipeline.Options{
		Config:         cfg,
		ImagePath:      *imagePath,
		VideoPath:      *videoPath,
		ImageStillPath: filepath.Join(*outDir, pipeline.DefaultImageStillPath),
		VideoStillPath: filepath.Join(*outDir, pipeline.DefaultVideoStillPath),
		CompositePath:  filepath.Join(*outDir, pipeline.DefaultCompositePath),
		LoopVideo:      !*noLoop,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := pipeline.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "smelter-colors: %v\n", err)
		os.Exit(1)
	}
}
