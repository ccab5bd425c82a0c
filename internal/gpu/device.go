// Package gpu holds the color resampling stage: frames are uploaded as
// sampled textures, drawn through a full-screen render pass, and read
// back as tightly packed RGBA pixels. Every output artifact goes through
// this same pass so color handling cannot drift between them.
package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Device owns a GPU instance, logical device and submission queue for
// the lifetime of a pipeline run. Stages created from one Device share
// its queue.
type Device struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapter  string
}

// OpenDevice acquires a Vulkan device, preferring a discrete or
// integrated GPU over software adapters.
func OpenDevice() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	d := &Device{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		adapter:  selected.Info.Name,
	}
	slogger().Info("GPU device opened", "adapter", d.adapter)
	return d, nil
}

// Adapter returns the name of the selected GPU adapter.
func (d *Device) Adapter() string { return d.adapter }

// Close releases the logical device and the instance. Safe to call more
// than once.
func (d *Device) Close() {
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
		d.queue = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}
