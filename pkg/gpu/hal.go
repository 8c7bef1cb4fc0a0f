package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

// HALAllocator allocates storage buffers on a gogpu/wgpu HAL device.
//
// Thread Safety: HALAllocator is safe for concurrent use; the scene only calls it
// from the frame loop.
type HALAllocator struct {
	mu      sync.Mutex
	device  hal.Device
	queue   hal.Queue
	frames  int
	current int
	usage   gputypes.BufferUsage

	maxBufferSize uint64 // Largest single allocation (0 = unlimited)

	nextID  BufferHandle
	buffers map[BufferHandle]*halBuffer
	release func() // Destroys a device the allocator opened itself
}

type halBuffer struct {
	desc   BufferDesc
	copies []hal.Buffer
}

// NewHALAllocator shares the device of a gpucontext provider. The provider must
// expose HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func NewHALAllocator(provider gpucontext.DeviceProvider, framesInFlight int) (*HALAllocator, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALDevice)
	}
	return NewHALAllocatorFromDevice(device, queue, framesInFlight), nil
}

// NewNoopAllocator opens a device on the wgpu noop backend. Buffers are real HAL
// resources held in host memory; no work is executed.
func NewNoopAllocator(framesInFlight int) (*HALAllocator, error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoHALDevice, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no noop adapter", ErrNoHALDevice)
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: %v", ErrNoHALDevice, err)
	}

	a := NewHALAllocatorFromDevice(open.Device, open.Queue, framesInFlight)
	a.release = func() {
		open.Device.Destroy()
		instance.Destroy()
	}
	core.Log().Debug("noop device opened", "adapter", adapters[0].Info.Name, "frames", a.frames)
	return a, nil
}

// NewHALAllocatorFromDevice wraps an existing device and queue
func NewHALAllocatorFromDevice(device hal.Device, queue hal.Queue, framesInFlight int) *HALAllocator {
	if framesInFlight < 1 {
		framesInFlight = 1
	}
	return &HALAllocator{
		device:  device,
		queue:   queue,
		frames:  framesInFlight,
		usage:   gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
		buffers: make(map[BufferHandle]*halBuffer),
	}
}

// SetMaxBufferSize sets the device limit checked before each allocation
func (a *HALAllocator) SetMaxBufferSize(size uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.maxBufferSize = size
}

// Allocate implements Allocator. Either every copy is created or none is.
func (a *HALAllocator) Allocate(desc BufferDesc) (BufferHandle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	size := uint64(desc.Size())
	if a.maxBufferSize > 0 && size > a.maxBufferSize {
		return InvalidHandle, fmt.Errorf("%w: %s needs %d bytes, device limit %d",
			ErrCapacityExhausted, desc.Label, size, a.maxBufferSize)
	}

	buf := &halBuffer{desc: desc, copies: make([]hal.Buffer, 0, a.frames)}
	for i := 0; i < a.frames; i++ {
		b, err := a.device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("%s[%d]", desc.Label, i),
			Size:  size,
			Usage: a.usage,
		})
		if err != nil {
			for _, created := range buf.copies {
				a.device.DestroyBuffer(created)
			}
			core.Log().Error("buffer allocation failed", "label", desc.Label, "size", size, "err", err)
			return InvalidHandle, fmt.Errorf("%w: %s (%d bytes): %v", ErrCapacityExhausted, desc.Label, size, err)
		}
		buf.copies = append(buf.copies, b)
	}

	a.nextID++
	a.buffers[a.nextID] = buf
	return a.nextID, nil
}

// Free implements Allocator
func (a *HALAllocator) Free(handle BufferHandle) {
	a.mu.Lock()
	buf, ok := a.buffers[handle]
	if ok {
		delete(a.buffers, handle)
	}
	a.mu.Unlock()

	if ok {
		for _, b := range buf.copies {
			a.device.DestroyBuffer(b)
		}
	}
}

// Upload implements Allocator
func (a *HALAllocator) Upload(handle BufferHandle, frame int, data []byte) error {
	a.mu.Lock()
	buf, ok := a.buffers[handle]
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBuffer, handle)
	}
	if frame < 0 || frame >= len(buf.copies) {
		return fmt.Errorf("%w: %d", ErrInvalidFrame, frame)
	}
	if len(data) != buf.desc.Size() {
		return fmt.Errorf("%w: %s got %d bytes, want %d", ErrInvalidPayloadSize, buf.desc.Label, len(data), buf.desc.Size())
	}
	if err := a.queue.WriteBuffer(buf.copies[frame], 0, data); err != nil {
		return fmt.Errorf("write %s[%d]: %w", buf.desc.Label, frame, err)
	}
	return nil
}

// Buffer returns the physical copy for frame, for binding into descriptor sets
func (a *HALAllocator) Buffer(handle BufferHandle, frame int) (hal.Buffer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.buffers[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBuffer, handle)
	}
	if frame < 0 || frame >= len(buf.copies) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrame, frame)
	}
	return buf.copies[frame], nil
}

// CurrentFrame implements Allocator
func (a *HALAllocator) CurrentFrame() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// FramesInFlight implements Allocator
func (a *HALAllocator) FramesInFlight() int {
	return a.frames
}

// Advance implements FrameAllocator
func (a *HALAllocator) Advance() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = (a.current + 1) % a.frames
}

// Live returns the number of allocations not yet freed
func (a *HALAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers)
}

// SetCurrentFrame is called by the presenter when it acquires a frame slot
func (a *HALAllocator) SetCurrentFrame(frame int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = frame % a.frames
}

// WaitIdle implements Allocator
func (a *HALAllocator) WaitIdle() error {
	if err := a.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	return nil
}

// Close destroys every remaining buffer, then the device if this allocator
// opened it
func (a *HALAllocator) Close() {
	a.mu.Lock()
	buffers := a.buffers
	a.buffers = make(map[BufferHandle]*halBuffer)
	release := a.release
	a.release = nil
	a.mu.Unlock()

	for _, buf := range buffers {
		for _, b := range buf.copies {
			a.device.DestroyBuffer(b)
		}
	}
	if release != nil {
		release()
	}
}
