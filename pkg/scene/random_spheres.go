package scene

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/material"
)

// randomSpheresPreset scatters a jittered grid of random-material spheres under one
// spherical light. The same seed always produces the same scene.
func randomSpheresPreset(seed int64) Preset {
	camera := core.DefaultCameraConfig()
	camera.Position = mgl32.Vec3{0, 6, -18}
	camera.LookAt = mgl32.Vec3{0, 0, 0}
	camera.FOV = 60

	return Preset{
		Info: SceneInfo{
			ID:          "random-spheres",
			Name:        "Random Spheres",
			DisplayName: "Random Spheres",
			Description: "Grid of spheres with random materials",
			Group:       builtinGroup,
			Type:        "builtin",
		},
		Camera: camera,
		Build: func(s *Scene) error {
			return buildRandomSpheres(s, rand.New(rand.NewSource(seed)))
		},
	}
}

func buildRandomSpheres(s *Scene, random *rand.Rand) error {
	s.SetLightMode(LightEmpty)

	if err := s.PushPlane("Floor", mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 1, 0},
		material.NewLambertian(mgl32.Vec3{1, 1, 1})); err != nil {
		return err
	}
	if err := s.PushSphere("Light", mgl32.Vec3{0, 15, 0}, 3,
		material.NewEmissive(mgl32.Vec3{1, 1, 1}, 15)); err != nil {
		return err
	}

	jitter := func() float32 { return (random.Float32() - 0.5) * 2 }

	i := 0
	for x := -10; x <= 10; x += 4 {
		for z := -10; z <= 10; z += 4 {
			center := mgl32.Vec3{float32(x) + jitter(), 0, float32(z) + jitter()}
			albedo := mgl32.Vec3{random.Float32(), random.Float32(), random.Float32()}

			var mat material.Material
			switch r := random.Float32(); {
			case r <= 0.25:
				mat = material.NewLambertian(albedo)
			case r <= 0.5:
				mat = material.NewDielectric(albedo, 1.5)
			case r <= 0.75:
				mat = material.NewMetal(albedo, random.Float32())
			default:
				mat = material.NewGlossy(albedo, 1.5, 0)
			}

			if err := s.PushSphere(fmt.Sprintf("Sphere%d", i), center, 1, mat); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}
