package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	smelter "github.com/one-click-studio/smelter-colors"
)

// copyBytesPerRowAlignment is the required alignment of BytesPerRow in a
// texture-to-buffer copy. Readback rows are padded up to it and the
// padding is stripped after the copy.
const copyBytesPerRowAlignment = 256

// renderTarget is the output end of the resampling pass: a render
// attachment texture plus a reusable staging buffer sized for the padded
// readback.
type renderTarget struct {
	tex     hal.Texture
	view    hal.TextureView
	staging hal.Buffer
	width   uint32
	height  uint32

	// paddedRow is the aligned byte width of one readback row.
	paddedRow uint32
}

func createRenderTarget(device hal.Device, w, h uint32) (*renderTarget, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "resample_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create target texture %dx%d: %v", smelter.ErrResourceExhausted, w, h, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "resample_target_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("%w: create target texture view: %v", smelter.ErrResourceExhausted, err)
	}

	paddedRow := paddedBytesPerRow(w * 4)
	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "resample_staging",
		Size:  uint64(paddedRow) * uint64(h),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		device.DestroyTextureView(view)
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("%w: create staging buffer: %v", smelter.ErrResourceExhausted, err)
	}

	return &renderTarget{
		tex:       tex,
		view:      view,
		staging:   staging,
		width:     w,
		height:    h,
		paddedRow: paddedRow,
	}, nil
}

func (t *renderTarget) destroy(device hal.Device) {
	if t.staging != nil {
		device.DestroyBuffer(t.staging)
		t.staging = nil
	}
	if t.view != nil {
		device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// paddedBytesPerRow rounds a tight row width up to the copy alignment.
func paddedBytesPerRow(row uint32) uint32 {
	rem := row % copyBytesPerRowAlignment
	if rem == 0 {
		return row
	}
	return row + copyBytesPerRowAlignment - rem
}

// stripRowPadding compacts a padded readback buffer into tightly packed
// rows. When the rows are already tight the buffer is returned as is.
func stripRowPadding(padded []byte, width, height, paddedRow uint32) []byte {
	tightRow := width * 4
	if tightRow == paddedRow {
		return padded
	}
	out := make([]byte, uint64(tightRow)*uint64(height))
	for y := uint32(0); y < height; y++ {
		copy(out[y*tightRow:(y+1)*tightRow], padded[y*paddedRow:y*paddedRow+tightRow])
	}
	return out
}
