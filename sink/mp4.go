package sink

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	smelter "github.com/one-click-studio/smelter-colors"
)

// Encoder is an open H.264/mp4 encoding session. Frames are accepted as
// tightly packed RGBA buffers at a fixed geometry and frame rate;
// presentation timestamps are assigned from the write order.
type Encoder struct {
	width  int
	height int

	formatCtx *astiav.FormatContext
	codecCtx  *astiav.CodecContext
	stream    *astiav.Stream
	ioCtx     *astiav.IOContext

	swsCtx   *astiav.SoftwareScaleContext
	rgbFrame *astiav.Frame
	yuvFrame *astiav.Frame
	packet   *astiav.Packet

	pts    int64
	closed bool
}

// NewEncoder opens an mp4 container at path with a single H.264 video
// stream of the given geometry and frame rate.
func NewEncoder(path string, width, height, frameRate int) (*Encoder, error) {
	if width <= 0 || height <= 0 || frameRate <= 0 {
		return nil, fmt.Errorf("sink: invalid encoder parameters %dx%d@%d", width, height, frameRate)
	}

	codec := astiav.FindEncoder(astiav.CodecIDH264)
	if codec == nil {
		return nil, errors.New("sink: h264 encoder not available")
	}

	e := &Encoder{width: width, height: height}

	formatCtx, err := astiav.AllocOutputFormatContext(nil, "mp4", path)
	if err != nil {
		return nil, fmt.Errorf("alloc output context: %w", err)
	}
	e.formatCtx = formatCtx

	e.codecCtx = astiav.AllocCodecContext(codec)
	if e.codecCtx == nil {
		e.release()
		return nil, errors.New("sink: alloc codec context")
	}
	e.codecCtx.SetWidth(width)
	e.codecCtx.SetHeight(height)
	e.codecCtx.SetPixelFormat(astiav.PixelFormatYuv420P)
	e.codecCtx.SetTimeBase(astiav.NewRational(1, frameRate))
	e.codecCtx.SetFramerate(astiav.NewRational(frameRate, 1))
	if e.formatCtx.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader) {
		e.codecCtx.SetFlags(e.codecCtx.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}
	if err := e.codecCtx.Open(codec, nil); err != nil {
		e.release()
		return nil, fmt.Errorf("open encoder: %w", err)
	}

	e.stream = e.formatCtx.NewStream(codec)
	if e.stream == nil {
		e.release()
		return nil, errors.New("sink: alloc output stream")
	}
	if err := e.stream.CodecParameters().FromCodecContext(e.codecCtx); err != nil {
		e.release()
		return nil, fmt.Errorf("apply codec parameters: %w", err)
	}
	e.stream.SetTimeBase(e.codecCtx.TimeBase())

	ioCtx, err := astiav.OpenIOContext(path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite))
	if err != nil {
		e.release()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	e.ioCtx = ioCtx
	e.formatCtx.SetPb(ioCtx)

	if err := e.formatCtx.WriteHeader(nil); err != nil {
		e.release()
		return nil, fmt.Errorf("write header: %w", err)
	}

	swsCtx, err := astiav.CreateSoftwareScaleContext(
		width, height, astiav.PixelFormatRgba,
		width, height, astiav.PixelFormatYuv420P,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear))
	if err != nil {
		e.release()
		return nil, fmt.Errorf("create scale context: %w", err)
	}
	e.swsCtx = swsCtx

	e.rgbFrame = astiav.AllocFrame()
	e.rgbFrame.SetWidth(width)
	e.rgbFrame.SetHeight(height)
	e.rgbFrame.SetPixelFormat(astiav.PixelFormatRgba)
	if err := e.rgbFrame.AllocBuffer(1); err != nil {
		e.release()
		return nil, fmt.Errorf("alloc rgb frame: %w", err)
	}
	e.yuvFrame = astiav.AllocFrame()
	e.packet = astiav.AllocPacket()

	return e, nil
}

// WriteFrame converts one RGBA frame to YUV 4:2:0, encodes it and muxes
// any packets the encoder emits. Timestamps increase by one per call in
// the 1/frameRate timebase.
func (e *Encoder) WriteFrame(pix []byte) error {
	if e.closed {
		return errors.New("sink: encoder closed")
	}
	if need := e.width * e.height * 4; len(pix) < need {
		return fmt.Errorf("sink: pixel buffer %d bytes, need %d", len(pix), need)
	}

	if err := e.rgbFrame.MakeWritable(); err != nil {
		return fmt.Errorf("%w: make frame writable: %v", smelter.ErrCaptureFailed, err)
	}
	if err := e.rgbFrame.Data().SetBytes(pix, 1); err != nil {
		return fmt.Errorf("%w: fill rgb frame: %v", smelter.ErrCaptureFailed, err)
	}
	if err := e.swsCtx.ScaleFrame(e.rgbFrame, e.yuvFrame); err != nil {
		return fmt.Errorf("%w: convert to yuv: %v", smelter.ErrCaptureFailed, err)
	}
	e.yuvFrame.SetPts(e.pts)
	e.pts++

	if err := e.codecCtx.SendFrame(e.yuvFrame); err != nil {
		return fmt.Errorf("%w: send frame: %v", smelter.ErrCaptureFailed, err)
	}
	return e.drainPackets()
}

// drainPackets pulls every packet currently available from the encoder
// and writes it to the container.
func (e *Encoder) drainPackets() error {
	for {
		err := e.codecCtx.ReceivePacket(e.packet)
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: receive packet: %v", smelter.ErrCaptureFailed, err)
		}
		e.packet.RescaleTs(e.codecCtx.TimeBase(), e.stream.TimeBase())
		e.packet.SetStreamIndex(e.stream.Index())
		if err := e.formatCtx.WriteInterleavedFrame(e.packet); err != nil {
			e.packet.Unref()
			return fmt.Errorf("%w: write packet: %v", smelter.ErrCaptureFailed, err)
		}
		e.packet.Unref()
	}
}

// Close flushes the encoder, writes the container trailer and releases
// all FFmpeg resources. Safe to call more than once; only the first
// call does work.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if err := e.codecCtx.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		errs = append(errs, fmt.Errorf("%w: flush encoder: %v", smelter.ErrCaptureFailed, err))
	} else if err := e.drainPackets(); err != nil {
		errs = append(errs, err)
	}
	if err := e.formatCtx.WriteTrailer(); err != nil {
		errs = append(errs, fmt.Errorf("%w: write trailer: %v", smelter.ErrCaptureFailed, err))
	}
	e.release()
	return errors.Join(errs...)
}

func (e *Encoder) release() {
	if e.swsCtx != nil {
		e.swsCtx.Free()
		e.swsCtx = nil
	}
	if e.packet != nil {
		e.packet.Free()
		e.packet = nil
	}
	if e.rgbFrame != nil {
		e.rgbFrame.Free()
		e.rgbFrame = nil
	}
	if e.yuvFrame != nil {
		e.yuvFrame.Free()
		e.yuvFrame = nil
	}
	if e.codecCtx != nil {
		e.codecCtx.Free()
		e.codecCtx = nil
	}
	if e.ioCtx != nil {
		e.ioCtx.Close()
		e.ioCtx = nil
	}
	if e.formatCtx != nil {
		e.formatCtx.Free()
		e.formatCtx = nil
	}
}
