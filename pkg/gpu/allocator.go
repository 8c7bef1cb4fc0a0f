package gpu

// BufferHandle identifies a double-buffered allocation owned by an Allocator
type BufferHandle uint64

// InvalidHandle is never returned by a successful Allocate
const InvalidHandle BufferHandle = 0

// BufferDesc describes a storage buffer of header + stride * capacity bytes
type BufferDesc struct {
	Label      string
	Stride     int
	Capacity   int
	HeaderSize int
}

// Size returns the byte size of one physical copy
func (d BufferDesc) Size() int {
	return d.HeaderSize + d.Stride*d.Capacity
}

// Allocator is the contract the scene core needs from the graphics layer.
// Every allocation holds one physical copy per frame in flight.
type Allocator interface {
	// Allocate creates FramesInFlight copies of a buffer sized desc.Size().
	Allocate(desc BufferDesc) (BufferHandle, error)
	// Free destroys every copy. The caller guarantees the device is idle.
	Free(handle BufferHandle)
	// Upload overwrites the copy used by frame.
	Upload(handle BufferHandle, frame int, data []byte) error
	// CurrentFrame returns the in-flight slot being written this frame.
	CurrentFrame() int
	// FramesInFlight returns the number of physical copies per allocation.
	FramesInFlight() int
	// WaitIdle blocks until the device has finished all submitted work.
	WaitIdle() error
}

// FrameAllocator is an Allocator whose in-flight slot the presenter steps
// once per dispatched frame
type FrameAllocator interface {
	Allocator
	// Advance moves to the next in-flight slot.
	Advance()
}
