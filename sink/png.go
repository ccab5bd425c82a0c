// Package sink writes pipeline output to disk: PNG stills and the
// H.264/mp4 composite stream.
package sink

import (
	"fmt"
	"image"
	"image/png"
	"os"

	smelter "github.com/one-click-studio/smelter-colors"
)

// pngEncoder uses a fixed compression level so an identical input
// produces byte-identical output across runs.
var pngEncoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// WriteStillPNG encodes img to path. The file is written through a
// temporary name and renamed into place so a crash mid-encode never
// leaves a truncated artifact.
func WriteStillPNG(path string, img *image.RGBA) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("sink: empty image for %s", path)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", smelter.ErrCaptureFailed, tmp, err)
	}
	if err := pngEncoder.Encode(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: encode %s: %v", smelter.ErrCaptureFailed, path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: close %s: %v", smelter.ErrCaptureFailed, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %v", smelter.ErrCaptureFailed, path, err)
	}
	return nil
}

// ImageFromRGBA wraps tightly packed RGBA bytes in an *image.RGBA
// without copying.
func ImageFromRGBA(pix []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("sink: invalid image dimensions %dx%d", width, height)
	}
	if need := width * height * 4; len(pix) < need {
		return nil, fmt.Errorf("sink: pixel buffer %d bytes, need %d", len(pix), need)
	}
	return &image.RGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}
