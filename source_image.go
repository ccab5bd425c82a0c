package smelter

import (
	"fmt"
	"image"
	"io"
	"os"

	"golang.org/x/image/draw"

	_ "image/jpeg"
	_ "image/png"
)

// ImageSource is a FrameSource backed by a single still image. The image
// is decoded and normalized once at construction; NextFrame then returns
// the same frame indefinitely, so a still input can feed a video-length
// schedule.
type ImageSource struct {
	frame Frame
}

// NewImageSource decodes the image at path and normalizes it to the
// width x height output geometry. PNG and JPEG are supported.
func NewImageSource(path string, width, height int) (*ImageSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()
	return newImageSource(f, path, width, height)
}

func newImageSource(r io.Reader, name string, width, height int) (*ImageSource, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target dimensions %dx%d", ErrInvalidSource, width, height)
	}
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", name, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: image %s is empty", ErrInvalidSource, name)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, fillRect(bounds, width, height), draw.Src, nil)

	Logger().Debug("image source ready",
		"path", name,
		"format", format,
		"source", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
		"output", fmt.Sprintf("%dx%d", width, height))

	return &ImageSource{frame: Frame{
		Pix:    dst.Pix,
		Width:  width,
		Height: height,
		Format: PixelFormatRGBA8,
	}}, nil
}

// fillRect returns the centered sub-rectangle of src whose aspect ratio
// matches dstW:dstH. Scaling that sub-rectangle onto the full output
// fills the frame without letterboxing, cropping the overflowing axis.
func fillRect(src image.Rectangle, dstW, dstH int) image.Rectangle {
	srcW, srcH := src.Dx(), src.Dy()
	// Compare aspect ratios without floating point: srcW/srcH vs dstW/dstH.
	if srcW*dstH > dstW*srcH {
		// Source is wider than the output: crop left and right.
		cropW := dstW * srcH / dstH
		offset := (srcW - cropW) / 2
		return image.Rect(src.Min.X+offset, src.Min.Y, src.Min.X+offset+cropW, src.Max.Y)
	}
	// Source is taller (or matching): crop top and bottom.
	cropH := dstH * srcW / dstW
	offset := (srcH - cropH) / 2
	return image.Rect(src.Min.X, src.Min.Y+offset, src.Max.X, src.Min.Y+offset+cropH)
}

// NextFrame returns the normalized still. It never exhausts.
func (s *ImageSource) NextFrame() (Frame, error) {
	return s.frame, nil
}

// Close releases nothing; the decoded frame is plain memory.
func (s *ImageSource) Close() error { return nil }

var _ FrameSource = (*ImageSource)(nil)
