package loaders

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chewxy/math32"
	"github.com/ftrvxmtrx/tga"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// decoders picks the decoder by file extension. The tga package registers an
// empty magic string with image.Decode, which would claim every file.
var decoders = map[string]func(io.Reader) (image.Image, error){
	".png":  png.Decode,
	".webp": webp.Decode,
	".bmp":  bmp.Decode,
	".tif":  tiff.Decode,
	".tiff": tiff.Decode,
	".tga":  tga.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
}

// ImageData contains loaded image data as a linear array of display-space colors in [0,1]
type ImageData struct {
	Width  int
	Height int
	Pixels []mgl32.Vec3
}

// LoadImage loads any of the screenshot formats (png, webp, bmp, tiff, tga) or a JPEG
func LoadImage(filename string) (*ImageData, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	decode, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported image format %q", ext)
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	img, err := decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return FromImage(img), nil
}

// FromImage converts a decoded image
func FromImage(img image.Image) *ImageData {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pixels := make([]mgl32.Vec3, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			// RGBA returns uint32 in [0, 65535], convert to [0, 1]
			pixels[y*width+x] = mgl32.Vec3{
				float32(r) / 65535.0,
				float32(g) / 65535.0,
				float32(b) / 65535.0,
			}
		}
	}

	return &ImageData{
		Width:  width,
		Height: height,
		Pixels: pixels,
	}
}

// RMSE returns the root mean square per-channel difference of two same-sized images
func (d *ImageData) RMSE(other *ImageData) (float32, error) {
	if d.Width != other.Width || d.Height != other.Height {
		return 0, fmt.Errorf("image sizes differ: %dx%d vs %dx%d", d.Width, d.Height, other.Width, other.Height)
	}
	if len(d.Pixels) == 0 {
		return 0, nil
	}

	sum := float32(0)
	for i, p := range d.Pixels {
		diff := p.Sub(other.Pixels[i])
		sum += diff.Dot(diff)
	}
	return math32.Sqrt(sum / float32(3*len(d.Pixels))), nil
}
