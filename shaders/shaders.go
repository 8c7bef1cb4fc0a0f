// Package shaders embeds the WGSL sources compiled at startup.
package shaders

import _ "embed"

// Accumulate blends each frame into the progressive accumulation image
//
//go:embed accumulate.wgsl
var Accumulate string

// Sources maps file names to the embedded shaders
var Sources = map[string]string{
	"accumulate.wgsl": Accumulate,
}
