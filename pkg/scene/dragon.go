package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/material"
	"github.com/df07/go-gpu-pathtracer/pkg/notify"
)

// DragonModel is the PLY mesh loaded by the dragon preset
const DragonModel = "models/dragon_remeshed.ply"

// dragonPreset loads the dragon PLY mesh (Z-up) over a ground plane. When the model is
// missing a placeholder sphere stands in for it.
func dragonPreset() Preset {
	return Preset{
		Info: SceneInfo{
			ID:          "dragon",
			Name:        "Dragon PLY Mesh",
			DisplayName: "Dragon PLY Mesh",
			Description: "Dragon PLY mesh from PBRT book",
			Group:       builtinGroup,
			Type:        "builtin",
		},
		Camera: core.CameraConfig{
			Position:   mgl32.Vec3{277, -240, 250},
			LookAt:     mgl32.Vec3{0, 60, -30},
			Up:         mgl32.Vec3{0, 0, 1},
			FOV:        33,
			FocusDepth: 400,
		},
		Build: buildDragon,
	}
}

func buildDragon(s *Scene) error {
	s.SetLightMode(LightDay)

	if err := s.PushPlane("Ground", mgl32.Vec3{0, 0, -40}, mgl32.Vec3{0, 0, 1},
		material.NewLambertian(mgl32.Vec3{0.6, 0.6, 0.6})); err != nil {
		return err
	}
	if err := s.PushSphere("Key Light", mgl32.Vec3{350, 200, 300}, 15,
		material.NewEmissive(mgl32.Vec3{1, 0.93, 0.8}, 15)); err != nil {
		return err
	}
	if err := s.PushSphere("Fill Light", mgl32.Vec3{-250, 150, 200}, 25,
		material.NewEmissive(mgl32.Vec3{0.67, 0.83, 1}, 3)); err != nil {
		return err
	}

	gold := material.NewMetal(mgl32.Vec3{0.7, 0.5, 0.2}, 0.002)

	path, ok := findModel(DragonModel)
	if !ok {
		s.sink.Notify(notify.Warning, fmt.Sprintf("Model %s not found, using a placeholder sphere", DragonModel))
		return s.PushSphere("Dragon", mgl32.Vec3{0, 0, 20}, 60, gold)
	}
	return s.PushMeshFile("Dragon", path, mgl32.HomogRotate3DY(mgl32.DegToRad(-53)), gold)
}
