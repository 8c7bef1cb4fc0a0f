package server

import (
	"fmt"
	"net/http"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/geometry"
	"github.com/df07/go-gpu-pathtracer/pkg/material"
	"github.com/df07/go-gpu-pathtracer/pkg/scene"
)

// InspectResponse describes one object, or what a screen-space pick hit
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	Index        int                    `json:"index"`
	Name         string                 `json:"name,omitempty"`
	MaterialType string                 `json:"materialType,omitempty"`
	GeometryType string                 `json:"geometryType,omitempty"`
	Point        [3]float32             `json:"point"`
	Distance     float32                `json:"distance"`
	Selected     bool                   `json:"selected"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// ObjectsResponse is the object list
type ObjectsResponse struct {
	Objects  []scene.ObjectInfo `json:"objects"`
	Selected int                `json:"selected"`
}

// extractMaterialInfo lists the fields that matter for the material kind
func extractMaterialInfo(mat material.Material) (string, map[string]interface{}) {
	properties := map[string]interface{}{
		"albedo": [3]float32(mat.Albedo),
		"color":  hexColor(mat.Albedo),
	}

	switch mat.Kind {
	case material.Metal:
		properties["fuzz"] = mat.Fuzz()
	case material.Dielectric:
		properties["ior"] = mat.IoR()
	case material.Glossy:
		properties["ior"] = mat.IoR()
		properties["fuzz"] = mat.Fuzz()
	case material.Emissive:
		properties["intensity"] = mat.Intensity()
	case material.Checkerboard:
		properties["scale"] = mat.Scale()
	}
	return mat.Kind.String(), properties
}

func hexColor(c mgl32.Vec3) string {
	to8 := func(v float32) int { return int(max(0, min(1, v)) * 255) }
	return fmt.Sprintf("#%02x%02x%02x", to8(c[0]), to8(c[1]), to8(c[2]))
}

// extractGeometryInfo lists the editable geometry and the derived light area
func extractGeometryInfo(obj *geometry.Object) (string, map[string]interface{}) {
	p := obj.Properties()
	properties := map[string]interface{}{
		"position": [3]float32(p.Position),
		"area":     geometry.Area(obj),
	}

	switch obj.Kind {
	case geometry.KindSphere:
		properties["radius"] = p.Radius
	case geometry.KindPlane:
		properties["normal"] = [3]float32(p.Normal)
	case geometry.KindBox:
		properties["rotation"] = [3]float32(p.Rotation)
		properties["scale"] = [3]float32(p.Scale)
	case geometry.KindMesh:
		properties["rotation"] = [3]float32(p.Rotation)
		properties["scale"] = [3]float32(p.Scale)
		if obj.Mesh != nil {
			properties["triangles"] = obj.Mesh.TriangleCount()
			properties["bvhNodes"] = len(obj.Mesh.Nodes)
		}
	}
	return obj.Kind.String(), properties
}

// inspectObject builds the response for object i. Frame goroutine only.
func (s *Server) inspectObject(i int) (InspectResponse, bool) {
	obj, mat, ok := s.loop.Scene().Object(i)
	if !ok {
		return InspectResponse{Index: scene.NoSelection}, false
	}
	materialType, materialProps := extractMaterialInfo(mat)
	geometryType, geometryProps := extractGeometryInfo(&obj)

	return InspectResponse{
		Hit:          true,
		Index:        i,
		Name:         obj.Name,
		MaterialType: materialType,
		GeometryType: geometryType,
		Selected:     s.loop.Scene().Selected() == i,
		Properties: map[string]interface{}{
			"material": materialProps,
			"geometry": geometryProps,
		},
	}, true
}

// handleObjects lists kind, name and selection state of every object
func (s *Server) handleObjects(w http.ResponseWriter, r *http.Request) {
	var response ObjectsResponse
	err := s.submit(r, func() error {
		response.Objects = s.loop.Scene().Objects()
		response.Selected = s.loop.Scene().Selected()
		return nil
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// handleInspect describes one object
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var response InspectResponse
	err = s.submit(r, func() error {
		var ok bool
		if response, ok = s.inspectObject(index); !ok {
			return fmt.Errorf("%w: object %d", errNotFound, index)
		}
		return nil
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// NewObjectRequest names the kind of object to add
type NewObjectRequest struct {
	Kind string `json:"kind"`
}

// handleNewObject adds a default sphere, plane or box and selects it
func (s *Server) handleNewObject(w http.ResponseWriter, r *http.Request) {
	var req NewObjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, err := geometry.ParseKind(req.Kind)
	if err != nil || kind == geometry.KindMesh {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("kind must be sphere, plane or box, got %q", req.Kind))
		return
	}

	var response InspectResponse
	err = s.submit(r, func() error {
		if err := s.loop.Scene().NewObject(kind); err != nil {
			return err
		}
		response, _ = s.inspectObject(s.loop.Scene().Selected())
		return nil
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response)
}

// handleCloneObject selects the object and clones it
func (s *Server) handleCloneObject(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var response InspectResponse
	err = s.submit(r, func() error {
		sc := s.loop.Scene()
		if index >= sc.Len() {
			return fmt.Errorf("%w: object %d", errNotFound, index)
		}
		sc.Select(index)
		if err := sc.Clone(); err != nil {
			return err
		}
		response, _ = s.inspectObject(sc.Selected())
		return nil
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response)
}

// handleDeleteObject removes one object with its material
func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var remaining int
	err = s.submit(r, func() error {
		if !s.loop.Scene().DeleteAt(index) {
			return fmt.Errorf("%w: object %d", errNotFound, index)
		}
		remaining = s.loop.Scene().Len()
		return nil
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"objects": remaining})
}

// EditRequest carries optional geometry and material edits
type EditRequest struct {
	Name     *string            `json:"name"`
	Position *[3]float32        `json:"position"`
	Radius   *float32           `json:"radius"`
	Normal   *[3]float32        `json:"normal"`
	Rotation *[3]float32        `json:"rotation"`
	Scale    *[3]float32        `json:"scale"`
	Material *MaterialEdit      `json:"material"`
}

// MaterialEdit carries optional material changes. Out of range values are clamped.
type MaterialEdit struct {
	Kind      *string     `json:"kind"`
	Albedo    *[3]float32 `json:"albedo"`
	Fuzz      *float32    `json:"fuzz"`
	IoR       *float32    `json:"ior"`
	Intensity *float32    `json:"intensity"`
	Scale     *float32    `json:"scale"`
}

func (edit MaterialEdit) apply(mat *material.Material) {
	if edit.Kind != nil {
		// Validated before submission
		mat.Kind, _ = material.ParseKind(*edit.Kind)
	}
	if edit.Albedo != nil {
		mat.Albedo = *edit.Albedo
	}
	if edit.Fuzz != nil {
		mat.SetFuzz(*edit.Fuzz)
	}
	if edit.IoR != nil {
		mat.SetIoR(*edit.IoR)
	}
	if edit.Intensity != nil {
		mat.SetIntensity(*edit.Intensity)
	}
	if edit.Scale != nil && mat.Kind == material.Checkerboard {
		mat.Payload[0] = *edit.Scale
	}
}

func (req EditRequest) apply(obj *geometry.Object, mat *material.Material) bool {
	p := obj.Properties()
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Position != nil {
		p.Position = *req.Position
	}
	if req.Radius != nil {
		p.Radius = *req.Radius
	}
	if req.Normal != nil {
		p.Normal = *req.Normal
	}
	if req.Rotation != nil {
		p.Rotation = *req.Rotation
	}
	if req.Scale != nil {
		p.Scale = *req.Scale
	}
	changed := obj.SetProperties(p)

	if req.Material != nil {
		before := *mat
		req.Material.apply(mat)
		changed = changed || *mat != before
	}
	return changed
}

// handleEditObject applies property editor changes
func (s *Server) handleEditObject(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req EditRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Material != nil && req.Material.Kind != nil {
		if _, err := material.ParseKind(*req.Material.Kind); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var response InspectResponse
	var changed bool
	err = s.submit(r, func() error {
		sc := s.loop.Scene()
		if index >= sc.Len() {
			return fmt.Errorf("%w: object %d", errNotFound, index)
		}
		changed = sc.Edit(index, req.apply)
		response, _ = s.inspectObject(index)
		return nil
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	response.Properties["changed"] = changed
	writeJSON(w, http.StatusOK, response)
}

// SelectRequest is a click in screen space
type SelectRequest struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
	Focus  bool    `json:"focus"` // Set the focal distance instead of selecting
}

// handleSelect raycasts a screen position: selects what it hits (or clears the
// selection on a miss), or focuses the camera on it
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		writeError(w, http.StatusBadRequest, "width and height must be positive")
		return
	}

	response := InspectResponse{Index: scene.NoSelection}
	err := s.submit(r, func() error {
		pos := mgl32.Vec2{req.X, req.Y}
		size := mgl32.Vec2{req.Width, req.Height}
		hit, ok := s.loop.Scene().Raycast(pos, size, s.loop.Camera(), !req.Focus)
		if !ok {
			return nil
		}
		if req.Focus {
			s.loop.Camera().SetFocusDepth(hit.Distance)
		}
		response, _ = s.inspectObject(hit.Index)
		response.Point = [3]float32(hit.Point)
		response.Distance = hit.Distance
		return nil
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}
