package imagewatch

import (
	"fmt"
	"image"
	"os"

	// Decoders reachable through image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Info is the header of an image file.
type Info struct {
	Width  int
	Height int
	Format string
}

// Probe reads the dimensions and format of the image at path without
// decoding its pixels.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("imagewatch: open %s: %w", path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, fmt.Errorf("imagewatch: decode %s: %w", path, err)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
