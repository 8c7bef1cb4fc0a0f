package scene

import (
	"github.com/df07/go-gpu-pathtracer/pkg/geometry"
	"github.com/df07/go-gpu-pathtracer/pkg/material"
)

// ObjectInfo is one row of the object list shown to the user
type ObjectInfo struct {
	Index    int           `json:"index"`
	Kind     geometry.Kind `json:"-"`
	KindName string        `json:"kind"`
	Name     string        `json:"name"`
	Material material.Kind `json:"-"`
	Selected bool          `json:"selected"`
}

// Objects enumerates the object list in directory order
func (s *Scene) Objects() []ObjectInfo {
	infos := make([]ObjectInfo, len(s.objects))
	for i := range s.objects {
		infos[i] = ObjectInfo{
			Index:    i,
			Kind:     s.objects[i].Kind,
			KindName: s.objects[i].Kind.String(),
			Name:     s.objects[i].Name,
			Material: s.materials[i].Kind,
			Selected: i == s.selected,
		}
	}
	return infos
}

// Object returns a copy of object i and its material
func (s *Scene) Object(i int) (geometry.Object, material.Material, bool) {
	if !s.valid(i) {
		return geometry.Object{}, material.Material{}, false
	}
	return s.objects[i], s.materials[i], true
}

func (s *Scene) valid(i int) bool {
	return i >= 0 && i < len(s.objects)
}

// Selected returns the selected index, or NoSelection. A stale index reads as NoSelection.
func (s *Scene) Selected() int {
	if !s.valid(s.selected) {
		return NoSelection
	}
	return s.selected
}

// Select changes the selection. Out-of-range indices clear it.
func (s *Scene) Select(i int) {
	if !s.valid(i) {
		i = NoSelection
	}
	s.selected = i
}

// ClearSelection deselects
func (s *Scene) ClearSelection() {
	s.selected = NoSelection
}

// SelectedObject returns a copy of the selected object and its material
func (s *Scene) SelectedObject() (geometry.Object, material.Material, error) {
	obj, mat, ok := s.Object(s.Selected())
	if !ok {
		return obj, mat, ErrNoSelection
	}
	return obj, mat, nil
}

// Clone duplicates the selected object and material into a trailing slot and
// selects the copy. Without a selection it does nothing.
func (s *Scene) Clone() error {
	i := s.Selected()
	if i == NoSelection {
		return nil
	}
	if err := s.PushObject(s.objects[i].Clone(), s.materials[i]); err != nil {
		return err
	}
	s.selected = len(s.objects) - 1
	return nil
}

// Delete removes the selected object together with its material and clears the
// selection. Buffer capacities are kept.
func (s *Scene) Delete() {
	i := s.Selected()
	if i == NoSelection {
		return
	}
	s.DeleteAt(i)
}

// DeleteAt removes object i and materials[i]. Handles of other objects are unaffected
// because materials stay parallel to objects.
func (s *Scene) DeleteAt(i int) bool {
	if !s.valid(i) {
		return false
	}
	kind := s.objects[i].Kind

	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	s.materials = append(s.materials[:i], s.materials[i+1:]...)

	s.kindBuffer(kind).RemoveElement()
	s.mats.RemoveElement()
	s.directory.RemoveElement()

	s.selected = NoSelection
	s.updated = true
	return true
}

// Edit runs fn on object i and its material. fn reports whether it changed anything;
// the material is clamped to the editor limits afterwards.
func (s *Scene) Edit(i int, fn func(obj *geometry.Object, mat *material.Material) bool) bool {
	if !s.valid(i) {
		return false
	}
	changed := fn(&s.objects[i], &s.materials[i])
	if s.materials[i].Clamp() {
		changed = true
	}
	if changed {
		s.updated = true
	}
	return changed
}

// EditSelected is Edit on the current selection
func (s *Scene) EditSelected(fn func(obj *geometry.Object, mat *material.Material) bool) bool {
	return s.Edit(s.Selected(), fn)
}

// Manipulate applies one frame of gizmo input to the selected object
func (s *Scene) Manipulate(m geometry.Manipulation, dt float32) bool {
	return s.EditSelected(func(obj *geometry.Object, _ *material.Material) bool {
		return geometry.Manipulate(obj, m, dt)
	})
}
