package gpu

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	smelter "github.com/one-click-studio/smelter-colors"
)

//go:embed shaders/resample.wgsl
var resampleShaderSource string

// gpuTimeout bounds the fence wait after a submission.
const gpuTimeout = 5 * time.Second

// Stage is one instance of the color resampling pass bound to a fixed
// output geometry. Each output artifact owns a Stage; stages created
// from the same Device share its queue, so their submissions serialize
// on the hardware without further coordination.
type Stage struct {
	dev *Device

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	sampler    hal.Sampler

	target *renderTarget

	width  uint32
	height uint32
}

// NewStage builds the resampling pipeline for a width x height output.
func NewStage(dev *Device, width, height int) (*Stage, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: stage dimensions %dx%d", smelter.ErrInvalidSource, width, height)
	}
	s := &Stage{
		dev:    dev,
		width:  uint32(width),
		height: uint32(height),
	}
	if err := s.createPipeline(); err != nil {
		s.Destroy()
		return nil, err
	}
	target, err := createRenderTarget(dev.device, s.width, s.height)
	if err != nil {
		s.Destroy()
		return nil, err
	}
	s.target = target
	slogger().Debug("resample stage ready", "output", fmt.Sprintf("%dx%d", width, height))
	return s, nil
}

// createPipeline compiles the resample shader and creates the render
// pipeline plus the shared sampler.
func (s *Stage) createPipeline() error {
	if resampleShaderSource == "" {
		return fmt.Errorf("resample shader source is empty")
	}

	// Compile WGSL to SPIR-V up front so shader errors surface at stage
	// construction rather than first use.
	spirvBytes, err := naga.Compile(resampleShaderSource)
	if err != nil {
		return fmt.Errorf("compile resample shader: %w", err)
	}
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	shader, err := s.dev.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "resample_shader",
		Source: hal.ShaderSource{SPIRV: spirvCode},
	})
	if err != nil {
		return fmt.Errorf("create resample shader module: %w", err)
	}
	s.shader = shader

	// Bind group layout:
	//   Binding 0: source texture (texture_2d, fragment)
	//   Binding 1: sampler (fragment)
	bindLayout, err := s.dev.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "resample_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create resample bind layout: %w", err)
	}
	s.bindLayout = bindLayout

	pipeLayout, err := s.dev.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "resample_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{s.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create resample pipeline layout: %w", err)
	}
	s.pipeLayout = pipeLayout

	sampler, err := s.dev.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "resample_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create resample sampler: %w", err)
	}
	s.sampler = sampler

	pipeline, err := s.dev.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "resample_pipeline",
		Layout: s.pipeLayout,
		Vertex: hal.VertexState{
			Module:     s.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     s.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    gputypes.TextureFormatRGBA8Unorm,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create resample pipeline: %w", err)
	}
	s.pipeline = pipeline

	return nil
}

// RenderFrame uploads the frame, draws it through the resampling pass
// and returns the output as tightly packed RGBA rows. The returned
// buffer is freshly allocated and owned by the caller.
func (s *Stage) RenderFrame(frame smelter.Frame) ([]byte, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	format, err := textureFormatFor(frame.Format)
	if err != nil {
		return nil, err
	}

	// The source texture lives for exactly one draw; sources can change
	// every frame, so nothing is gained by caching it across calls.
	source, err := createSourceTexture(s.dev.device, uint32(frame.Width), uint32(frame.Height), format)
	if err != nil {
		return nil, err
	}
	defer source.destroy(s.dev.device)
	source.upload(s.dev.queue, frame.Pix)

	bindGroup, err := s.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "resample_bind",
		Layout: s.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: source.view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: s.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create bind group: %v", smelter.ErrResourceExhausted, err)
	}
	defer s.dev.device.DestroyBindGroup(bindGroup)

	return s.encodeAndReadback(bindGroup)
}

// encodeAndReadback encodes the resample pass, copies the target into
// the staging buffer, submits, waits and strips the row padding.
func (s *Stage) encodeAndReadback(bindGroup hal.BindGroup) ([]byte, error) {
	encoder, err := s.dev.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "resample_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("resample"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "resample_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       s.target.view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	rp.SetPipeline(s.pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	// The render pass leaves the target in attachment layout; the copy
	// below needs transfer-source layout.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: s.target.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	encoder.CopyTextureToBuffer(s.target.tex, s.target.staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  s.target.paddedRow,
			RowsPerImage: s.height,
		},
		TextureBase: hal.ImageCopyTexture{Texture: s.target.tex, MipLevel: 0},
		Size:        hal.Extent3D{Width: s.width, Height: s.height, DepthOrArrayLayers: 1},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer s.dev.device.FreeCommandBuffer(cmdBuf)

	fence, err := s.dev.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	defer s.dev.device.DestroyFence(fence)

	if err := s.dev.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("%w: submit: %v", smelter.ErrCaptureFailed, err)
	}
	fenceOK, err := s.dev.device.Wait(fence, 1, gpuTimeout)
	if err != nil || !fenceOK {
		return nil, fmt.Errorf("%w: wait for GPU: ok=%v err=%v", smelter.ErrCaptureFailed, fenceOK, err)
	}

	padded := make([]byte, uint64(s.target.paddedRow)*uint64(s.height))
	if err := s.dev.queue.ReadBuffer(s.target.staging, 0, padded); err != nil {
		return nil, fmt.Errorf("%w: readback: %v", smelter.ErrCaptureFailed, err)
	}
	return stripRowPadding(padded, s.width, s.height, s.target.paddedRow), nil
}

// Destroy releases all GPU resources held by the stage. Safe to call
// multiple times or on a partially constructed stage.
func (s *Stage) Destroy() {
	if s.target != nil {
		s.target.destroy(s.dev.device)
		s.target = nil
	}
	if s.pipeline != nil {
		s.dev.device.DestroyRenderPipeline(s.pipeline)
		s.pipeline = nil
	}
	if s.sampler != nil {
		s.dev.device.DestroySampler(s.sampler)
		s.sampler = nil
	}
	if s.pipeLayout != nil {
		s.dev.device.DestroyPipelineLayout(s.pipeLayout)
		s.pipeLayout = nil
	}
	if s.bindLayout != nil {
		s.dev.device.DestroyBindGroupLayout(s.bindLayout)
		s.bindLayout = nil
	}
	if s.shader != nil {
		s.dev.device.DestroyShaderModule(s.shader)
		s.shader = nil
	}
}
