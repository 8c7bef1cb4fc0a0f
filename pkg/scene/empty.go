package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/material"
	"github.com/df07/go-gpu-pathtracer/pkg/notify"
)

// MonkeyModel is the mesh shown by the empty preset
const MonkeyModel = "res/model/monkey.obj"

// emptyPreset is a floor under daylight, with the monkey mesh when the model is available
func emptyPreset() Preset {
	return Preset{
		Info: SceneInfo{
			ID:          "empty",
			Name:        "Empty",
			DisplayName: "Empty",
			Description: "Floor plane and a monkey mesh under daylight",
			Group:       builtinGroup,
			Type:        "builtin",
		},
		Camera: core.DefaultCameraConfig(),
		Build:  buildEmpty,
	}
}

func buildEmpty(s *Scene) error {
	s.SetLightMode(LightDay)

	if path, ok := findModel(MonkeyModel); ok {
		rotation := mgl32.HomogRotate3DY(mgl32.DegToRad(180))
		if err := s.PushMeshFile("Monkey", path, rotation, material.NewLambertian(mgl32.Vec3{0.9, 0.9, 0.9})); err != nil {
			return err
		}
	} else {
		s.sink.Notify(notify.Warning, fmt.Sprintf("Model %s not found, skipping", MonkeyModel))
	}

	return s.PushPlane("Floor", mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 1, 0},
		material.NewLambertian(mgl32.Vec3{1, 1, 1}))
}
