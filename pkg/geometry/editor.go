package geometry

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Properties is the editable view of an object's geometry.
// Position is the sphere center, plane point, or transform translation.
type Properties struct {
	Name     string
	Position mgl32.Vec3
	Radius   float32    // Sphere only
	Normal   mgl32.Vec3 // Plane only
	Rotation mgl32.Vec3 // Box/mesh euler degrees
	Scale    mgl32.Vec3 // Box/mesh
}

// Properties extracts the editable fields
func (o *Object) Properties() Properties {
	p := Properties{Name: o.Name}
	switch o.Kind {
	case KindSphere:
		p.Position = o.Sphere.Center
		p.Radius = o.Sphere.Radius
	case KindPlane:
		p.Position = o.Plane.Point
		p.Normal = o.Plane.Normal
	case KindBox:
		trs := Decompose(o.Box.Transform)
		p.Position, p.Rotation, p.Scale = trs.Translation, trs.Rotation, trs.Scale
	case KindMesh:
		if o.Mesh != nil {
			trs := Decompose(o.Mesh.Transform)
			p.Position, p.Rotation, p.Scale = trs.Translation, trs.Rotation, trs.Scale
		}
	}
	return p
}

// SetProperties writes edited fields back and reports whether the geometry changed.
// Renaming alone does not count as a change since nothing on the GPU depends on names.
// Radius is kept non-negative, the plane normal is renormalized and box/mesh scale
// stays at or above MinScale.
func (o *Object) SetProperties(p Properties) bool {
	o.Name = p.Name
	before := o.Properties()

	switch o.Kind {
	case KindSphere:
		if p.Position == before.Position && p.Radius == before.Radius {
			return false
		}
		o.Sphere.Center = p.Position
		o.Sphere.Radius = math32.Max(p.Radius, 0)
		return true

	case KindPlane:
		if p.Position == before.Position && p.Normal == before.Normal {
			return false
		}
		if p.Normal.Len() == 0 || isInvalidVec(p.Normal) {
			return false
		}
		o.Plane.Point = p.Position
		o.Plane.Normal = p.Normal.Normalize()
		return true

	case KindBox, KindMesh:
		if o.Kind == KindMesh && o.Mesh == nil {
			return false
		}
		if p.Position == before.Position && p.Rotation == before.Rotation && p.Scale == before.Scale {
			return false
		}
		m := TRS{Translation: p.Position, Rotation: p.Rotation, Scale: clampScale(p.Scale)}.Matrix()
		if IsInvalid(m) {
			return false
		}
		if o.Kind == KindBox {
			o.Box.Transform = m
		} else {
			o.Mesh.Transform = m
		}
		return true
	}
	return false
}
