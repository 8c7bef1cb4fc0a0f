package renderer

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/chewxy/math32"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrUnknownFormat is returned for an unsupported screenshot format
var ErrUnknownFormat = errors.New("renderer: unknown screenshot format")

// Format is a screenshot file format
type Format string

const (
	PNG  Format = "png"
	WebP Format = "webp"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	TGA  Format = "tga"
)

// Formats lists the supported screenshot formats
func Formats() []Format {
	return []Format{PNG, WebP, BMP, TIFF, TGA}
}

// ParseFormat accepts a format name or extension, case-insensitively
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	switch name {
	case "", "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	case "tga":
		return TGA, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

const screenshotGamma = 1.0 / 2.2

// AccumulationImage converts a linear RGBA float32 accumulation image to 8-bit:
// clamp to [0,1], gamma 1/2.2, scale by 255 with rounding, opaque alpha.
func AccumulationImage(pixels []float32, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	if len(pixels) < width*height*4 {
		return nil, fmt.Errorf("accumulation has %d floats, need %d", len(pixels), width*height*4)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		src := pixels[i*4 : i*4+3]
		dst := img.Pix[i*4 : i*4+4]
		for c := 0; c < 3; c++ {
			dst[c] = toByte(src[c])
		}
		dst[3] = 255
	}
	return img, nil
}

func toByte(v float32) uint8 {
	if math32.IsNaN(v) {
		v = 0
	}
	v = math32.Max(0, math32.Min(1, v))
	return uint8(math32.Pow(v, screenshotGamma)*255 + 0.5)
}

// Encode writes img in the given format
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case PNG:
		return png.Encode(w, img)
	case WebP:
		return nativewebp.Encode(w, img, nil)
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, nil)
	case TGA:
		return tga.Encode(w, img)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
}

// ScreenshotName returns screenshot_<unix seconds>.<ext>
func ScreenshotName(t time.Time, format Format) string {
	return fmt.Sprintf("screenshot_%d.%s", t.Unix(), format)
}

// SaveScreenshot encodes img into dir and returns the written path
func SaveScreenshot(dir string, img image.Image, format Format, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}

	path := filepath.Join(dir, ScreenshotName(now, format))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create screenshot: %w", err)
	}
	defer file.Close()

	bw := bufio.NewWriter(file)
	if err := Encode(bw, img, format); err != nil {
		return "", fmt.Errorf("encode %s: %w", format, err)
	}
	if err := bw.Flush(); err != nil {
		return "", err
	}
	return path, file.Close()
}
