package kalender

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

// ThumbOpts are thumbnail options. A zero X or Y is derived from the aspect ratio.
type ThumbOpts struct {
	X       int
	Y       int
	Quality int
}

// DefaultThumb is the gallery preview written next to batch exports.
var DefaultThumb = ThumbOpts{Y: 320, Quality: 85}

// ThumbMeta describes a written thumbnail.
type ThumbMeta struct {
	X    int
	Y    int
	Path string
}

// ThumbPath returns the JPEG path for the thumbnail of an export.
func ThumbPath(export string, t ThumbOpts) string {
	dimensions := fmt.Sprintf("x%d", t.X)
	if t.Y != 0 {
		dimensions = fmt.Sprintf("y%d", t.Y)
	}
	noExt := strings.TrimSuffix(filepath.Base(export), filepath.Ext(export))
	return filepath.Join(filepath.Dir(export), "_", fmt.Sprintf("%s@%s.jpg", noExt, dimensions))
}

// Thumbnail writes a scaled JPEG copy of img to path.
func Thumbnail(img image.Image, path string, t ThumbOpts) (*ThumbMeta, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty image: %v", b)
	}
	if t.X == 0 && t.Y == 0 {
		return nil, fmt.Errorf("thumbnail needs X or Y")
	}

	x, y := t.X, t.Y
	if t.X == 0 {
		x = int(float64(b.Dx()) * float64(t.Y) / float64(b.Dy()))
	}
	if t.Y == 0 {
		y = int(float64(b.Dy()) * float64(t.X) / float64(b.Dx()))
	}
	klog.V(1).Infof("creating %dx%d thumb: %s", x, y, path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	rimg := transform.Resize(img, x, y, transform.Lanczos)
	if err := imgio.Save(path, rimg, imgio.JPEGEncoder(t.Quality)); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	return &ThumbMeta{X: rimg.Bounds().Dx(), Y: rimg.Bounds().Dy(), Path: path}, nil
}

// UpToDate reports whether out exists and is newer than src.
func UpToDate(src, out string) bool {
	sst, err := os.Stat(src)
	if err != nil {
		return false
	}
	ost, err := os.Stat(out)
	if err != nil {
		klog.V(1).Infof("updating %s: does not exist", out)
		return false
	}
	if ost.Size() == 0 {
		klog.Infof("updating %s: empty", out)
		return false
	}
	if sst.ModTime().After(ost.ModTime()) {
		klog.Infof("updating %s: source newer", out)
		return false
	}
	return true
}
