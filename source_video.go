package smelter

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
)

// VideoSource is a FrameSource backed by the first video stream of a
// media container. Decoded frames are rescaled and center-cropped to the
// output geometry and converted to RGBA before they leave the source.
type VideoSource struct {
	width  int
	height int
	loop   bool

	formatCtx *astiav.FormatContext
	codecCtx  *astiav.CodecContext
	stream    *astiav.Stream

	swsCtx *astiav.SoftwareScaleContext
	swsW   int
	swsH   int
	swsFmt astiav.PixelFormat

	packet    *astiav.Packet
	decFrame  *astiav.Frame
	rgbaFrame *astiav.Frame

	closed bool
}

// VideoSourceOption configures a VideoSource.
type VideoSourceOption func(*VideoSource)

// WithLoop makes the source seek back to the start of the stream on end
// of file instead of exhausting, so a short clip can feed a longer
// schedule.
func WithLoop() VideoSourceOption {
	return func(s *VideoSource) { s.loop = true }
}

// NewVideoSource opens the media file at path and prepares its first
// video stream for decoding at the width x height output geometry.
func NewVideoSource(path string, width, height int, opts ...VideoSourceOption) (*VideoSource, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target dimensions %dx%d", ErrInvalidSource, width, height)
	}

	s := &VideoSource{width: width, height: height}
	for _, opt := range opts {
		opt(s)
	}

	s.formatCtx = astiav.AllocFormatContext()
	if s.formatCtx == nil {
		return nil, errors.New("smelter: alloc format context")
	}
	if err := s.formatCtx.OpenInput(path, nil, nil); err != nil {
		s.formatCtx.Free()
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}
	if err := s.formatCtx.FindStreamInfo(nil); err != nil {
		s.release()
		return nil, fmt.Errorf("find stream info: %w", err)
	}

	for _, stream := range s.formatCtx.Streams() {
		if stream.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			s.stream = stream
			break
		}
	}
	if s.stream == nil {
		s.release()
		return nil, fmt.Errorf("%w: no video stream in %s", ErrInvalidSource, path)
	}

	codec := astiav.FindDecoder(s.stream.CodecParameters().CodecID())
	if codec == nil {
		s.release()
		return nil, fmt.Errorf("%w: no decoder for %s", ErrInvalidSource, s.stream.CodecParameters().CodecID())
	}
	s.codecCtx = astiav.AllocCodecContext(codec)
	if s.codecCtx == nil {
		s.release()
		return nil, errors.New("smelter: alloc codec context")
	}
	if err := s.stream.CodecParameters().ToCodecContext(s.codecCtx); err != nil {
		s.release()
		return nil, fmt.Errorf("apply codec parameters: %w", err)
	}
	if err := s.codecCtx.Open(codec, nil); err != nil {
		s.release()
		return nil, fmt.Errorf("open decoder: %w", err)
	}

	s.packet = astiav.AllocPacket()
	s.decFrame = astiav.AllocFrame()
	s.rgbaFrame = astiav.AllocFrame()

	Logger().Info("video source ready",
		"path", path,
		"codec", codec.Name(),
		"source", fmt.Sprintf("%dx%d", s.codecCtx.Width(), s.codecCtx.Height()),
		"output", fmt.Sprintf("%dx%d", width, height),
		"loop", s.loop)
	return s, nil
}

// NextFrame decodes, rescales and converts the next video frame. When
// the stream ends it either rewinds (with WithLoop) or returns an error
// wrapping ErrSourceExhausted.
func (s *VideoSource) NextFrame() (Frame, error) {
	if s.closed {
		return Frame{}, fmt.Errorf("%w: source closed", ErrSourceExhausted)
	}
	for {
		err := s.codecCtx.ReceiveFrame(s.decFrame)
		if err == nil {
			return s.convert(s.decFrame)
		}
		switch {
		case errors.Is(err, astiav.ErrEagain):
			if err := s.feed(); err != nil {
				return Frame{}, err
			}
		case errors.Is(err, astiav.ErrEof):
			if s.loop {
				if err := s.rewind(); err != nil {
					return Frame{}, err
				}
				continue
			}
			return Frame{}, fmt.Errorf("%w: video stream ended", ErrSourceExhausted)
		default:
			return Frame{}, fmt.Errorf("receive frame: %w", err)
		}
	}
}

// feed pushes the next packet of the video stream into the decoder. On
// container end of file it sends the flush packet so the decoder drains
// its remaining frames.
func (s *VideoSource) feed() error {
	for {
		if err := s.formatCtx.ReadFrame(s.packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				if err := s.codecCtx.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
					return fmt.Errorf("flush decoder: %w", err)
				}
				return nil
			}
			return fmt.Errorf("read packet: %w", err)
		}
		if s.packet.StreamIndex() != s.stream.Index() {
			s.packet.Unref()
			continue
		}
		err := s.codecCtx.SendPacket(s.packet)
		s.packet.Unref()
		if err != nil {
			return fmt.Errorf("send packet: %w", err)
		}
		return nil
	}
}

// rewind seeks the container back to the start of the stream and resets
// the decoder state.
func (s *VideoSource) rewind() error {
	if err := s.formatCtx.SeekFrame(s.stream.Index(), 0, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return fmt.Errorf("seek to start: %w", err)
	}
	s.codecCtx.FlushBuffers()
	Logger().Debug("video source rewound")
	return nil
}

// convert rescales a decoded frame so it covers the output geometry,
// converts it to RGBA and center-crops the overflowing axis.
func (s *VideoSource) convert(src *astiav.Frame) (Frame, error) {
	srcW, srcH := src.Width(), src.Height()
	if srcW <= 0 || srcH <= 0 {
		return Frame{}, fmt.Errorf("%w: decoded frame %dx%d", ErrInvalidSource, srcW, srcH)
	}
	coverW, coverH := coverSize(srcW, srcH, s.width, s.height)

	if s.swsCtx == nil || s.swsW != srcW || s.swsH != srcH || s.swsFmt != src.PixelFormat() {
		if s.swsCtx != nil {
			s.swsCtx.Free()
		}
		swsCtx, err := astiav.CreateSoftwareScaleContext(
			srcW, srcH, src.PixelFormat(),
			coverW, coverH, astiav.PixelFormatRgba,
			astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear))
		if err != nil {
			return Frame{}, fmt.Errorf("create scale context: %w", err)
		}
		s.swsCtx = swsCtx
		s.swsW, s.swsH, s.swsFmt = srcW, srcH, src.PixelFormat()
	}

	if err := s.swsCtx.ScaleFrame(src, s.rgbaFrame); err != nil {
		return Frame{}, fmt.Errorf("scale frame: %w", err)
	}
	data, err := s.rgbaFrame.Data().Bytes(1)
	if err != nil {
		return Frame{}, fmt.Errorf("read scaled frame: %w", err)
	}

	return Frame{
		Pix:    cropCenter(data, coverW, coverH, s.width, s.height),
		Width:  s.width,
		Height: s.height,
		Format: PixelFormatRGBA8,
	}, nil
}

// coverSize returns the smallest geometry with the srcW:srcH aspect
// ratio that covers dstW x dstH on both axes.
func coverSize(srcW, srcH, dstW, dstH int) (int, int) {
	// Compare aspect ratios without floating point: srcW/srcH vs dstW/dstH.
	if srcW*dstH > dstW*srcH {
		// Source is wider than the output: match height, overflow width.
		w := (srcW*dstH + srcH - 1) / srcH
		return w, dstH
	}
	h := (srcH*dstW + srcW - 1) / srcW
	return dstW, h
}

// cropCenter extracts the centered dstW x dstH window from a tightly
// packed RGBA buffer of srcW x srcH pixels. The copy also detaches the
// result from the scaler's reusable frame buffer.
func cropCenter(pix []byte, srcW, srcH, dstW, dstH int) []byte {
	x0 := (srcW - dstW) / 2
	y0 := (srcH - dstH) / 2
	out := make([]byte, dstW*dstH*4)
	for y := 0; y < dstH; y++ {
		srcOff := ((y0+y)*srcW + x0) * 4
		copy(out[y*dstW*4:(y+1)*dstW*4], pix[srcOff:srcOff+dstW*4])
	}
	return out
}

// Close releases the decoder, scaler and container resources.
func (s *VideoSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.release()
	return nil
}

func (s *VideoSource) release() {
	if s.swsCtx != nil {
		s.swsCtx.Free()
		s.swsCtx = nil
	}
	if s.packet != nil {
		s.packet.Free()
		s.packet = nil
	}
	if s.decFrame != nil {
		s.decFrame.Free()
		s.decFrame = nil
	}
	if s.rgbaFrame != nil {
		s.rgbaFrame.Free()
		s.rgbaFrame = nil
	}
	if s.codecCtx != nil {
		s.codecCtx.Free()
		s.codecCtx = nil
	}
	if s.formatCtx != nil {
		s.formatCtx.CloseInput()
		s.formatCtx.Free()
		s.formatCtx = nil
	}
}

var _ FrameSource = (*VideoSource)(nil)
