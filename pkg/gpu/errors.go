// Package gpu owns the GPU-resident storage buffers the scene serializes into.
package gpu

import "errors"

// Buffer errors.
var (
	// ErrCapacityExhausted is returned when the device cannot honor an allocation size.
	// It is the only fatal error of the scene core.
	ErrCapacityExhausted = errors.New("gpu: device allocation capacity exhausted")

	// ErrBufferDestroyed is returned when operating on a destroyed buffer.
	ErrBufferDestroyed = errors.New("gpu: buffer has been destroyed")

	// ErrUnknownBuffer is returned for a handle the allocator does not own.
	ErrUnknownBuffer = errors.New("gpu: unknown buffer handle")

	// ErrInvalidPayloadSize is returned when an upload does not match the allocation size.
	ErrInvalidPayloadSize = errors.New("gpu: payload size does not match buffer size")

	// ErrInvalidFrame is returned for a frame index outside [0, framesInFlight).
	ErrInvalidFrame = errors.New("gpu: frame index out of range")

	// ErrNoHALDevice is returned when a device provider does not expose a HAL device.
	ErrNoHALDevice = errors.New("gpu: provider does not expose a HAL device")
)
