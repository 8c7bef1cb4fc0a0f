package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/material"
)

// cornellPreset builds a Cornell box from six thin boxes with an emissive ceiling panel
func cornellPreset() Preset {
	camera := core.DefaultCameraConfig()
	camera.Position = mgl32.Vec3{0, 0, -11}
	camera.FOV = 50

	return Preset{
		Info: SceneInfo{
			ID:          "cornell-box",
			Name:        "Cornell Box",
			DisplayName: "Cornell Box",
			Description: "Cornell box with a glossy and a metal sphere",
			Group:       builtinGroup,
			Type:        "builtin",
		},
		Camera: camera,
		Build:  buildCornell,
	}
}

func buildCornell(s *Scene) error {
	s.SetLightMode(LightEmpty)

	white := material.NewLambertian(mgl32.Vec3{1, 1, 1})

	// Spheres
	if err := s.PushSphere("Glass", mgl32.Vec3{-2, 0, 0}, 1.5,
		material.NewGlossy(mgl32.Vec3{1, 0.1, 0.9}, 1.5, 0)); err != nil {
		return err
	}
	if err := s.PushSphere("Metal", mgl32.Vec3{2, 0, 0}, 1.5,
		material.NewMetal(mgl32.Vec3{0.2, 0.4, 0.8}, 0.01)); err != nil {
		return err
	}

	walls := []struct {
		name     string
		min, max mgl32.Vec3
		mat      material.Material
	}{
		{"Left", mgl32.Vec3{4, -4, -4}, mgl32.Vec3{4.1, 4, 4}, material.NewLambertian(mgl32.Vec3{1, 0.1, 0.1})},
		{"Right", mgl32.Vec3{-4.1, -4, -4}, mgl32.Vec3{-4, 4, 4}, material.NewLambertian(mgl32.Vec3{0.1, 1, 0.1})},
		{"Top", mgl32.Vec3{-4, 4, -4}, mgl32.Vec3{4, 4.1, 4}, white},
		{"Bottom", mgl32.Vec3{-4, -4.1, -4}, mgl32.Vec3{4, -4, 4}, white},
		{"Back", mgl32.Vec3{-4, -4, 4}, mgl32.Vec3{4, 4, 4.1}, material.NewLambertian(mgl32.Vec3{0.2, 0.2, 0.6})},
		{"Light", mgl32.Vec3{-2, 3.9, -2}, mgl32.Vec3{2, 4, 2}, material.NewEmissive(mgl32.Vec3{1, 0.7, 0.5}, 5)},
	}
	for _, w := range walls {
		if err := s.PushBoxCorners(w.name, w.min, w.max, w.mat); err != nil {
			return err
		}
	}
	return nil
}
