package gpu

import (
	"fmt"
	"sync"
)

// MemoryAllocator keeps buffers in host memory. It backs headless rendering and tests,
// and enforces an optional byte budget the way a device enforces its heap size.
type MemoryAllocator struct {
	mu      sync.Mutex
	frames  int
	current int
	budget  int // Max total bytes across all copies (0 = unlimited)
	used    int
	nextID  BufferHandle
	buffers map[BufferHandle]*memoryBuffer

	waitIdleCalls int
}

type memoryBuffer struct {
	desc   BufferDesc
	copies [][]byte
}

// NewMemoryAllocator creates an allocator with framesInFlight copies per buffer
func NewMemoryAllocator(framesInFlight int) *MemoryAllocator {
	if framesInFlight < 1 {
		framesInFlight = 1
	}
	return &MemoryAllocator{
		frames:  framesInFlight,
		buffers: make(map[BufferHandle]*memoryBuffer),
	}
}

// SetBudget limits the total bytes the allocator may hold (0 = unlimited)
func (m *MemoryAllocator) SetBudget(bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budget = bytes
}

// Allocate implements Allocator
func (m *MemoryAllocator) Allocate(desc BufferDesc) (BufferHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := desc.Size() * m.frames
	if m.budget > 0 && m.used+total > m.budget {
		return InvalidHandle, fmt.Errorf("%w: %s needs %d bytes, %d of %d in use",
			ErrCapacityExhausted, desc.Label, total, m.used, m.budget)
	}

	buf := &memoryBuffer{desc: desc, copies: make([][]byte, m.frames)}
	for i := range buf.copies {
		buf.copies[i] = make([]byte, desc.Size())
	}

	m.nextID++
	m.buffers[m.nextID] = buf
	m.used += total
	return m.nextID, nil
}

// Free implements Allocator
func (m *MemoryAllocator) Free(handle BufferHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if buf, ok := m.buffers[handle]; ok {
		m.used -= buf.desc.Size() * m.frames
		delete(m.buffers, handle)
	}
}

// Upload implements Allocator
func (m *MemoryAllocator) Upload(handle BufferHandle, frame int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, ok := m.buffers[handle]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBuffer, handle)
	}
	if frame < 0 || frame >= m.frames {
		return fmt.Errorf("%w: %d", ErrInvalidFrame, frame)
	}
	if len(data) != buf.desc.Size() {
		return fmt.Errorf("%w: %s got %d bytes, want %d", ErrInvalidPayloadSize, buf.desc.Label, len(data), buf.desc.Size())
	}
	copy(buf.copies[frame], data)
	return nil
}

// CurrentFrame implements Allocator
func (m *MemoryAllocator) CurrentFrame() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// FramesInFlight implements Allocator
func (m *MemoryAllocator) FramesInFlight() int {
	return m.frames
}

// Advance moves to the next in-flight slot
func (m *MemoryAllocator) Advance() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = (m.current + 1) % m.frames
}

// WaitIdle implements Allocator. Host memory is always idle; calls are counted.
func (m *MemoryAllocator) WaitIdle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitIdleCalls++
	return nil
}

// WaitIdleCalls returns how many times WaitIdle was called
func (m *MemoryAllocator) WaitIdleCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitIdleCalls
}

// Contents returns a copy of the bytes stored for frame
func (m *MemoryAllocator) Contents(handle BufferHandle, frame int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, ok := m.buffers[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBuffer, handle)
	}
	if frame < 0 || frame >= m.frames {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrame, frame)
	}
	out := make([]byte, len(buf.copies[frame]))
	copy(out, buf.copies[frame])
	return out, nil
}

// Live returns the number of allocations currently held
func (m *MemoryAllocator) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffers)
}

// BytesInUse returns the total bytes held across all copies
func (m *MemoryAllocator) BytesInUse() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}
