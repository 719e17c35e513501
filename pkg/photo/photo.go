// Package photo decodes user-supplied images and encodes flattened exports.
package photo

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/jpeg"

	_ "golang.org/x/image/webp"

	"github.com/anthonynsimon/bild/clone"
	"k8s.io/klog/v2"
)

// Photo is an immutable decoded bitmap.
type Photo struct {
	Image  *image.RGBA
	Width  int
	Height int
	Format string
}

// Decode decodes encoded image bytes into a Photo.
func Decode(bs []byte) (*Photo, error) {
	if len(bs) == 0 {
		return nil, fmt.Errorf("decode: empty image")
	}

	img, format, err := image.Decode(bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decode: empty bounds %v", b)
	}

	klog.V(1).Infof("decoded %s photo: %dx%d", format, b.Dx(), b.Dy())
	return &Photo{
		Image:  clone.AsRGBA(img),
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
	}, nil
}

// FromImage wraps an in-memory image.
func FromImage(img image.Image) *Photo {
	b := img.Bounds()
	return &Photo{Image: clone.AsRGBA(img), Width: b.Dx(), Height: b.Dy(), Format: "memory"}
}

// EncodePNG encodes an image losslessly at the strongest compression level.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
