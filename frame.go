package smelter

import "fmt"

// PixelFormat identifies the channel order of an interleaved 8-bit pixel
// buffer. Only formats the GPU can sample without software conversion are
// listed; planar formats are normalized by the decoding collaborator
// before a Frame is built.
type PixelFormat int

const (
	// PixelFormatRGBA8 is packed RGBA, 4 bytes per pixel.
	PixelFormatRGBA8 PixelFormat = iota
	// PixelFormatBGRA8 is packed BGRA, 4 bytes per pixel.
	PixelFormatBGRA8
)

// String returns the format name.
func (p PixelFormat) String() string {
	switch p {
	case PixelFormatRGBA8:
		return "RGBA8"
	case PixelFormatBGRA8:
		return "BGRA8"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// BytesPerPixel returns the byte size of one pixel, or 0 for an unknown
// format.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixelFormatRGBA8, PixelFormatBGRA8:
		return 4
	default:
		return 0
	}
}

// Frame is a rectangular pixel buffer produced by a decoder and consumed
// exactly once by the GPU upload stage. Rows are tightly packed
// (stride = Width * BytesPerPixel). Frames are immutable after creation
// by convention: no stage writes to Pix.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
	Format PixelFormat
}

// Validate reports whether the frame can be uploaded to the GPU.
// Zero or negative dimensions, an unknown pixel format, and a pixel
// buffer shorter than the declared geometry all wrap ErrInvalidSource.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidSource, f.Width, f.Height)
	}
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: unknown pixel format %v", ErrInvalidSource, f.Format)
	}
	if need := f.Width * f.Height * bpp; len(f.Pix) < need {
		return fmt.Errorf("%w: pixel buffer %d bytes, need %d", ErrInvalidSource, len(f.Pix), need)
	}
	return nil
}
