package gpu

import (
	"fmt"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

// InitialCapacity is the element capacity of a new or cleared buffer
const InitialCapacity = 2

// ObjectBuffers is a growable typed array backed by one double-buffered allocation.
//
// Capacity is always a power of two >= Count. Growth reallocates the device buffer,
// so any binding made against the old allocation must be rebuilt; growth is reported
// through the bool results instead of being hidden.
type ObjectBuffers struct {
	alloc    Allocator
	label    string
	layout   Layout
	handle   BufferHandle
	count    int
	capacity int
}

// NewObjectBuffers allocates an empty buffer with capacity InitialCapacity
func NewObjectBuffers(alloc Allocator, label string, layout Layout) (*ObjectBuffers, error) {
	b := &ObjectBuffers{alloc: alloc, label: label, layout: layout}
	handle, err := alloc.Allocate(b.desc(InitialCapacity))
	if err != nil {
		return nil, err
	}
	b.handle = handle
	b.capacity = InitialCapacity
	return b, nil
}

func (b *ObjectBuffers) desc(capacity int) BufferDesc {
	return BufferDesc{
		Label:      b.label,
		Stride:     b.layout.Stride(),
		Capacity:   capacity,
		HeaderSize: b.layout.HeaderSize(),
	}
}

// AddElement appends one logical element, doubling capacity first when full.
// Returns true when the allocation was replaced.
func (b *ObjectBuffers) AddElement() (bool, error) {
	if b.handle == InvalidHandle {
		return false, ErrBufferDestroyed
	}
	grew := false
	if b.count == b.capacity {
		if err := b.resize(b.capacity * 2); err != nil {
			return false, err
		}
		grew = true
	}
	b.count++
	return grew, nil
}

// SetElementCount sets the logical count to n, growing to the smallest power of two >= n
// when needed. Returns true when the allocation was replaced.
func (b *ObjectBuffers) SetElementCount(n int) (bool, error) {
	if b.handle == InvalidHandle {
		return false, ErrBufferDestroyed
	}
	if n < 0 {
		n = 0
	}
	grew := false
	if n > b.capacity {
		if err := b.resize(nextPowerOfTwo(n)); err != nil {
			return false, err
		}
		grew = true
	}
	b.count = n
	return grew, nil
}

// RemoveElement drops one logical element. Capacity never shrinks.
func (b *ObjectBuffers) RemoveElement() {
	if b.count > 0 {
		b.count--
	}
}

// Clear returns the buffer to its initial state (capacity InitialCapacity, count 0)
// with a fresh allocation.
func (b *ObjectBuffers) Clear() error {
	if b.handle == InvalidHandle {
		return ErrBufferDestroyed
	}
	if err := b.resize(InitialCapacity); err != nil {
		return err
	}
	b.count = 0
	return nil
}

// resize waits for the device to release the old allocation, allocates the new one,
// then frees the old one. On failure the old allocation is kept.
func (b *ObjectBuffers) resize(capacity int) error {
	if err := b.alloc.WaitIdle(); err != nil {
		return fmt.Errorf("resize %s: %w", b.label, err)
	}

	handle, err := b.alloc.Allocate(b.desc(capacity))
	if err != nil {
		return fmt.Errorf("resize %s %d -> %d: %w", b.label, b.capacity, capacity, err)
	}

	core.Log().Debug("buffer resized", "name", b.label, "from", b.capacity, "to", capacity)

	b.alloc.Free(b.handle)
	b.handle = handle
	b.capacity = capacity
	return nil
}

// NewPayload returns a zeroed payload sized for the current capacity
func (b *ObjectBuffers) NewPayload() *Payload {
	return NewPayload(b.layout, b.capacity)
}

// Fill overwrites the current frame's copy. data must be exactly Size() bytes.
func (b *ObjectBuffers) Fill(data []byte) error {
	if b.handle == InvalidHandle {
		return ErrBufferDestroyed
	}
	if len(data) != b.Size() {
		return fmt.Errorf("%w: %s got %d bytes, want %d", ErrInvalidPayloadSize, b.label, len(data), b.Size())
	}
	return b.alloc.Upload(b.handle, b.alloc.CurrentFrame(), data)
}

// Destroy frees the allocation. The buffer cannot be used afterwards.
func (b *ObjectBuffers) Destroy() {
	if b.handle == InvalidHandle {
		return
	}
	b.alloc.Free(b.handle)
	b.handle = InvalidHandle
	b.count = 0
	b.capacity = 0
}

// Count returns the logical element count
func (b *ObjectBuffers) Count() int { return b.count }

// Capacity returns the number of element slots allocated
func (b *ObjectBuffers) Capacity() int { return b.capacity }

// Size returns header + stride * capacity
func (b *ObjectBuffers) Size() int { return b.layout.Size(b.capacity) }

// Handle returns the current allocation
func (b *ObjectBuffers) Handle() BufferHandle { return b.handle }

// Label returns the buffer name
func (b *ObjectBuffers) Label() string { return b.label }

// Layout returns the buffer layout
func (b *ObjectBuffers) Layout() Layout { return b.layout }

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
