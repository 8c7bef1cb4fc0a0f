package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/geometry"
)

// Hit is the closest intersection found by Pick or Raycast
type Hit struct {
	Index    int
	Distance float32
	Point    mgl32.Vec3
}

// Pick intersects every object (linear scan) and returns the closest hit in front of the ray origin
func (s *Scene) Pick(ray core.Ray) (Hit, bool) {
	best := Hit{Index: NoSelection}
	for i := range s.objects {
		t := geometry.Intersect(&s.objects[i], ray)
		if t < 0 {
			continue
		}
		if best.Index == NoSelection || t < best.Distance {
			best = Hit{Index: i, Distance: t}
		}
	}
	if best.Index == NoSelection {
		return best, false
	}
	best.Point = ray.At(best.Distance)
	return best, true
}

// Raycast shoots the primary ray through screenPos. When sel is true the selection
// moves to the hit object, or is cleared on a miss.
func (s *Scene) Raycast(screenPos, screenSize mgl32.Vec2, camera *core.Camera, sel bool) (Hit, bool) {
	if screenSize.X() <= 0 || screenSize.Y() <= 0 {
		return Hit{Index: NoSelection}, false
	}
	hit, ok := s.Pick(core.ScreenRay(screenPos, screenSize, camera))
	if sel {
		s.selected = hit.Index
	}
	return hit, ok
}
