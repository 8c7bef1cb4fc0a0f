package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraConfig contains the user-facing camera parameters
type CameraConfig struct {
	Position   mgl32.Vec3 `yaml:"position"`
	LookAt     mgl32.Vec3 `yaml:"lookAt"`
	Up         mgl32.Vec3 `yaml:"up"`
	FOV        float32    `yaml:"fov"`        // Vertical field of view in degrees
	Aperture   float32    `yaml:"aperture"`   // Lens aperture for depth of field
	FocusDepth float32    `yaml:"focusDepth"` // Distance to the focal plane
}

// DefaultCameraConfig returns the camera used when a preset does not set one
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Position:   mgl32.Vec3{0, 1, -8},
		LookAt:     mgl32.Vec3{0, 0, 0},
		Up:         mgl32.Vec3{0, 1, 0},
		FOV:        80,
		Aperture:   0,
		FocusDepth: 10,
	}
}

// Camera is the interactive viewpoint shared by picking and the frame loop
type Camera struct {
	Position   mgl32.Vec3
	Direction  mgl32.Vec3
	Up         mgl32.Vec3
	FOV        float32
	Aperture   float32
	FocusDepth float32

	moved bool
}

// NewCamera creates a camera from a config
func NewCamera(config CameraConfig) *Camera {
	up := config.Up
	if up.Len() == 0 {
		up = mgl32.Vec3{0, 1, 0}
	}
	direction := config.LookAt.Sub(config.Position)
	if direction.Len() == 0 {
		direction = mgl32.Vec3{0, 0, 1}
	}
	fov := config.FOV
	if fov <= 0 {
		fov = 80
	}
	focus := config.FocusDepth
	if focus <= 0 {
		focus = 10
	}

	return &Camera{
		Position:   config.Position,
		Direction:  direction.Normalize(),
		Up:         up.Normalize(),
		FOV:        fov,
		Aperture:   config.Aperture,
		FocusDepth: focus,
	}
}

// TanHFov returns tan(fov/2)
func (c *Camera) TanHFov() float32 {
	return math32.Tan(mgl32.DegToRad(c.FOV) * 0.5)
}

// View returns the world-to-camera matrix
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Direction), c.Up)
}

// Projection returns a perspective matrix for the given aspect ratio
func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, 0.01, 1000)
}

// Move translates the camera along its local axes (right, up, forward)
func (c *Camera) Move(delta mgl32.Vec3) {
	if delta.Len() == 0 {
		return
	}
	forward := c.Direction.Normalize()
	right := forward.Cross(c.Up).Normalize()
	up := right.Cross(forward)

	c.Position = c.Position.
		Add(right.Mul(delta.X())).
		Add(up.Mul(delta.Y())).
		Add(forward.Mul(delta.Z()))
	c.moved = true
}

// Rotate turns the view direction by yaw (around Up) and pitch (around right), in radians
func (c *Camera) Rotate(yaw, pitch float32) {
	if yaw == 0 && pitch == 0 {
		return
	}
	right := c.Direction.Cross(c.Up).Normalize()
	rot := mgl32.HomogRotate3D(-yaw, c.Up).Mul4(mgl32.HomogRotate3D(-pitch, right))
	dir := rot.Mul4x1(c.Direction.Vec4(0)).Vec3().Normalize()

	// Keep away from the poles so right stays defined
	if math32.Abs(dir.Dot(c.Up)) > 0.999 {
		dir = mgl32.HomogRotate3D(-yaw, c.Up).Mul4x1(c.Direction.Vec4(0)).Vec3().Normalize()
	}
	c.Direction = dir
	c.moved = true
}

// SetFocusDepth changes the focal distance and counts as a camera move
func (c *Camera) SetFocusDepth(depth float32) {
	if depth <= 0 || depth == c.FocusDepth {
		return
	}
	c.FocusDepth = depth
	c.moved = true
}

// CheckMoved returns true once after any change to the camera
func (c *Camera) CheckMoved() bool {
	moved := c.moved
	c.moved = false
	return moved
}
