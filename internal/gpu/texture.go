package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	smelter "github.com/one-click-studio/smelter-colors"
)

// sourceTexture is the sampled input of the resampling pass. Each draw
// creates and releases its own; the handle never outlives the pass that
// sampled it.
type sourceTexture struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
	format gputypes.TextureFormat
}

// textureFormatFor maps a frame pixel format onto the texture format the
// sampler reads it as.
func textureFormatFor(f smelter.PixelFormat) (gputypes.TextureFormat, error) {
	switch f {
	case smelter.PixelFormatRGBA8:
		return gputypes.TextureFormatRGBA8Unorm, nil
	case smelter.PixelFormatBGRA8:
		return gputypes.TextureFormatBGRA8Unorm, nil
	default:
		return 0, fmt.Errorf("%w: no texture format for %v", smelter.ErrInvalidSource, f)
	}
}

func createSourceTexture(device hal.Device, w, h uint32, format gputypes.TextureFormat) (*sourceTexture, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "resample_source",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create source texture %dx%d: %v", smelter.ErrResourceExhausted, w, h, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "resample_source_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("%w: create source texture view: %v", smelter.ErrResourceExhausted, err)
	}
	return &sourceTexture{tex: tex, view: view, width: w, height: h, format: format}, nil
}

// upload copies tightly packed pixel rows into the texture.
func (t *sourceTexture) upload(queue hal.Queue, pix []byte) {
	queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
		},
		pix,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  t.width * 4,
			RowsPerImage: t.height,
		},
		&hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
}

func (t *sourceTexture) destroy(device hal.Device) {
	if t.view != nil {
		device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
		t.tex = nil
	}
}
