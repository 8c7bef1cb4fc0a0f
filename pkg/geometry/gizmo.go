package geometry

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Gizmo motion limits, applied per frame so one fast drag cannot teleport an object
const (
	MaxGizmoLinearSpeed  = 50.0      // world units per second
	MaxGizmoScaleSpeed   = 50.0      // scale units per second
	MaxGizmoAngularSpeed = math32.Pi // radians per second
	meshScaleSpeedFactor = 0.2
)

// MaxStepPerFrame converts a speed into the largest step allowed this frame
func MaxStepPerFrame(speed, dt float32) float32 {
	if speed > 0 && dt > 0 {
		return speed * dt
	}
	return 0
}

// ClampVecDelta shortens delta to at most maxLength, keeping its direction
func ClampVecDelta(delta mgl32.Vec3, maxLength float32) mgl32.Vec3 {
	if maxLength <= 0 {
		return mgl32.Vec3{}
	}
	length := delta.Len()
	if length <= maxLength {
		return delta
	}
	return delta.Mul(maxLength / length)
}

// ClampVecDeltaPerAxis clamps each component to [-maxDelta, maxDelta]
func ClampVecDeltaPerAxis(delta mgl32.Vec3, maxDelta float32) mgl32.Vec3 {
	if maxDelta <= 0 {
		return mgl32.Vec3{}
	}
	return mgl32.Vec3{
		ClampScalarDelta(delta[0], maxDelta),
		ClampScalarDelta(delta[1], maxDelta),
		ClampScalarDelta(delta[2], maxDelta),
	}
}

// ClampScalarDelta clamps delta to [-maxDelta, maxDelta]
func ClampScalarDelta(delta, maxDelta float32) float32 {
	if maxDelta <= 0 {
		return 0
	}
	return mgl32.Clamp(delta, -maxDelta, maxDelta)
}

// IsInvalid reports whether any matrix element is NaN or infinite
func IsInvalid(m mgl32.Mat4) bool {
	for _, v := range m {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func isInvalidVec(v mgl32.Vec3) bool {
	for _, c := range v {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return true
		}
	}
	return false
}

// TRS is a transform split into translation, XYZ euler rotation (degrees) and scale
type TRS struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Vec3
	Scale       mgl32.Vec3
}

// Decompose splits an affine transform without shear into TRS.
// Rotation is applied X first, then Y, then Z.
func Decompose(m mgl32.Mat4) TRS {
	scale := mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
	rot := rotationPart(m, scale)

	// rot = Rz * Ry * Rx
	sy := mgl32.Clamp(-rot.At(2, 0), -1, 1)
	y := math32.Asin(sy)
	var x, z float32
	if math32.Abs(sy) < 0.9999 {
		x = math32.Atan2(rot.At(2, 1), rot.At(2, 2))
		z = math32.Atan2(rot.At(1, 0), rot.At(0, 0))
	} else {
		// Gimbal lock: fold everything into X
		x = math32.Atan2(-rot.At(1, 2), rot.At(1, 1))
		z = 0
	}

	return TRS{
		Translation: m.Col(3).Vec3(),
		Rotation:    mgl32.Vec3{mgl32.RadToDeg(x), mgl32.RadToDeg(y), mgl32.RadToDeg(z)},
		Scale:       scale,
	}
}

// Matrix recomposes T * Rz * Ry * Rx * S
func (t TRS) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z()).
		Mul4(eulerMatrix(t.Rotation)).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

func eulerMatrix(degrees mgl32.Vec3) mgl32.Mat4 {
	return mgl32.HomogRotate3DZ(mgl32.DegToRad(degrees.Z())).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(degrees.Y()))).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(degrees.X())))
}

func rotationPart(m mgl32.Mat4, scale mgl32.Vec3) mgl32.Mat4 {
	cols := [3]mgl32.Vec4{}
	for i := 0; i < 3; i++ {
		c := m.Col(i).Vec3()
		if scale[i] > 0 {
			c = c.Mul(1 / scale[i])
		}
		cols[i] = c.Vec4(0)
	}
	return mgl32.Mat4FromCols(cols[0], cols[1], cols[2], mgl32.Vec4{0, 0, 0, 1})
}

// Manipulation is one frame of gizmo input: requested world translation, additive
// scale per axis, and world rotation as XYZ euler radians.
type Manipulation struct {
	Translate mgl32.Vec3
	Scale     mgl32.Vec3
	Rotate    mgl32.Vec3
}

// Manipulate applies a rate-limited gizmo delta to o and reports whether it changed.
// Spheres translate and scale uniformly (X drives the radius), planes translate and
// rotate, boxes and meshes take all three.
func Manipulate(o *Object, m Manipulation, dt float32) bool {
	if isInvalidVec(m.Translate) || isInvalidVec(m.Scale) || isInvalidVec(m.Rotate) {
		return false
	}

	linear := ClampVecDelta(m.Translate, MaxStepPerFrame(MaxGizmoLinearSpeed, dt))
	angular := ClampVecDelta(m.Rotate, MaxStepPerFrame(MaxGizmoAngularSpeed, dt))

	switch o.Kind {
	case KindSphere:
		scale := ClampScalarDelta(m.Scale.X(), MaxStepPerFrame(MaxGizmoScaleSpeed, dt))
		if linear.Len() == 0 && scale == 0 {
			return false
		}
		o.Sphere.Center = o.Sphere.Center.Add(linear)
		o.Sphere.Radius = math32.Max(o.Sphere.Radius+scale, MinSphereRadius)
		return true

	case KindPlane:
		if linear.Len() == 0 && angular.Len() == 0 {
			return false
		}
		frame := worldRotation(angular).Mul4(o.Plane.Frame())
		if IsInvalid(frame) {
			return false
		}
		o.Plane.Point = o.Plane.Point.Add(linear)
		o.Plane.Normal = frame.Col(2).Vec3().Normalize()
		return true

	case KindBox:
		scale := ClampVecDeltaPerAxis(m.Scale, MaxStepPerFrame(MaxGizmoScaleSpeed, dt))
		next, ok := manipulateTransform(o.Box.Transform, linear, scale, angular)
		if ok {
			o.Box.Transform = next
		}
		return ok

	case KindMesh:
		if o.Mesh == nil {
			return false
		}
		scale := ClampVecDeltaPerAxis(m.Scale, MaxStepPerFrame(MaxGizmoScaleSpeed*meshScaleSpeedFactor, dt))
		next, ok := manipulateTransform(o.Mesh.Transform, linear, scale, angular)
		if ok {
			o.Mesh.Transform = next
		}
		return ok
	}
	return false
}

// manipulateTransform rotates about the object's own origin in world axes
func manipulateTransform(current mgl32.Mat4, linear, scale, angular mgl32.Vec3) (mgl32.Mat4, bool) {
	if linear.Len() == 0 && scale.Len() == 0 && angular.Len() == 0 {
		return current, false
	}

	trs := Decompose(current)
	rot := worldRotation(angular).Mul4(rotationPart(current, trs.Scale))

	trs.Translation = trs.Translation.Add(linear)
	trs.Scale = clampScale(trs.Scale.Add(scale))

	next := mgl32.Translate3D(trs.Translation.X(), trs.Translation.Y(), trs.Translation.Z()).
		Mul4(rot).
		Mul4(mgl32.Scale3D(trs.Scale.X(), trs.Scale.Y(), trs.Scale.Z()))
	if IsInvalid(next) {
		return current, false
	}
	return next, true
}

func worldRotation(radians mgl32.Vec3) mgl32.Mat4 {
	return mgl32.HomogRotate3DZ(radians.Z()).
		Mul4(mgl32.HomogRotate3DY(radians.Y())).
		Mul4(mgl32.HomogRotate3DX(radians.X()))
}

func clampScale(s mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{math32.Max(s[0], MinScale), math32.Max(s[1], MinScale), math32.Max(s[2], MinScale)}
}
