package calendar

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/transform"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"k8s.io/klog/v2"
)

// DefaultSupersample is the backing-store multiplier for the logical canvas.
const DefaultSupersample = 4

// Glyph treatment in logical units.
const (
	shadowBlur    = 4
	shadowOffset  = 3
	strokeWidth   = 1.2
	strokeSamples = 12
)

var shadowColor = color.RGBA{A: 0x99}

// Raster is a rendered calendar with a transparent background.
type Raster struct {
	Image       *image.RGBA
	Spec        Spec
	Font        string
	Layout      Layout
	Supersample int
}

// Rasterizer renders calendar specs off-screen.
type Rasterizer struct {
	fonts       *Fonts
	supersample int
}

// NewRasterizer returns a rasterizer drawing with fonts at the given supersample factor.
func NewRasterizer(fonts *Fonts, supersample int) *Rasterizer {
	if supersample < 1 {
		supersample = DefaultSupersample
	}
	return &Rasterizer{fonts: fonts, supersample: supersample}
}

// Render draws s. It blocks while the selected font loads, bounded by the font timeout.
func (r *Rasterizer) Render(ctx context.Context, s Spec) (*Raster, error) {
	start := time.Now()
	ss := float64(r.supersample)
	l := NewLayout(s)

	faces, used, err := r.faces(ctx, s.Font, ss)
	if err != nil {
		return nil, fmt.Errorf("faces: %w", err)
	}
	defer closeFaces(faces)

	w, h := Width*r.supersample, Height*r.supersample
	dc := gg.NewContext(w, h)

	shadow, err := r.shadowLayer(ctx, l, used, w, h)
	if err != nil {
		return nil, fmt.Errorf("shadow: %w", err)
	}
	off := int(math.Round(shadowOffset * ss))
	dc.DrawImage(shadow, off, off)

	for _, t := range l.Texts() {
		dc.SetFontFace(faces[t.Size])
		drawStroked(dc, t, ss)
	}

	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("unexpected image type %T", dc.Image())
	}

	klog.V(1).Infof("rendered calendar %s at %dx%d in %s", s, w, h, time.Since(start))
	return &Raster{Image: img, Spec: s, Font: used, Layout: l, Supersample: r.supersample}, nil
}

// faces loads one face per distinct label size, all from the same font.
func (r *Rasterizer) faces(ctx context.Context, name string, scale float64) (map[float64]font.Face, string, error) {
	faces := map[float64]font.Face{}
	used := name
	for _, size := range []float64{titleSize, headerSize, daySize} {
		f, n, err := r.fonts.Face(ctx, used, size*scale)
		if err != nil {
			closeFaces(faces)
			return nil, "", err
		}
		used = n
		faces[size] = f
	}
	return faces, used, nil
}

func closeFaces(faces map[float64]font.Face) {
	for _, f := range faces {
		f.Close()
	}
}

// shadowLayer draws every label in the shadow colour at logical resolution,
// blurs it and scales it up to the backing size. The shadow is soft, so
// blurring the small layer gives the same result far faster.
func (r *Rasterizer) shadowLayer(ctx context.Context, l Layout, fontName string, w, h int) (image.Image, error) {
	faces, _, err := r.faces(ctx, fontName, 1)
	if err != nil {
		return nil, err
	}
	defer closeFaces(faces)

	sc := gg.NewContext(Width, Height)
	sc.SetColor(shadowColor)
	for _, t := range l.Texts() {
		sc.SetFontFace(faces[t.Size])
		sc.DrawStringAnchored(t.S, t.X, t.Y, 0.5, 0.5)
	}

	blurred := blur.Gaussian(sc.Image(), shadowBlur)
	if r.supersample == 1 {
		return blurred, nil
	}
	return transform.Resize(blurred, w, h, transform.Linear), nil
}

// drawStroked draws t with a thin same-colour outline to keep edges crisp.
func drawStroked(dc *gg.Context, t Text, ss float64) {
	x, y := t.X*ss, t.Y*ss
	sw := strokeWidth * ss

	dc.SetColor(t.Color)
	for i := 0; i < strokeSamples; i++ {
		a := 2 * math.Pi * float64(i) / strokeSamples
		dc.DrawStringAnchored(t.S, x+sw*math.Cos(a), y+sw*math.Sin(a), 0.5, 0.5)
	}
	dc.DrawStringAnchored(t.S, x, y, 0.5, 0.5)
}

// Opaque reports whether any pixel of the raster is non-transparent inside r,
// given in logical units.
func (c *Raster) Opaque(r image.Rectangle) bool {
	ss := c.Supersample
	scaled := image.Rect(r.Min.X*ss, r.Min.Y*ss, r.Max.X*ss, r.Max.Y*ss).Intersect(c.Image.Bounds())
	for y := scaled.Min.Y; y < scaled.Max.Y; y++ {
		for x := scaled.Min.X; x < scaled.Max.X; x++ {
			if c.Image.RGBAAt(x, y).A != 0 {
				return true
			}
		}
	}
	return false
}

// CellRect returns the logical rectangle of a grid cell.
func CellRect(row, col int) image.Rectangle {
	w := Width / Columns
	top := gridTop - rowHeight/2 + row*rowHeight
	return image.Rect(col*w+2, top+2, (col+1)*w-2, top+rowHeight-2)
}
