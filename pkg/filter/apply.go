package filter

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/effect"
	"k8s.io/klog/v2"

	"github.com/tstromberg/kalender/pkg/photo"
	"github.com/tstromberg/kalender/pkg/probe"
)

// Paint applies every step of s to img and returns a new image. It never mutates img.
func Paint(img image.Image, s Spec) *image.RGBA {
	out := clone.AsRGBA(img)
	for _, st := range s.Steps {
		out = applyStep(out, st)
	}
	return out
}

func applyStep(img *image.RGBA, st Step) *image.RGBA {
	switch st.Op {
	case Contrast:
		if st.Value == 1 {
			return img
		}
		return adjust.Contrast(img, st.Value-1)
	case Saturate:
		if st.Value == 1 {
			return img
		}
		return adjust.Saturation(img, st.Value-1)
	case Brightness:
		if st.Value == 1 {
			return img
		}
		return adjust.Brightness(img, st.Value-1)
	case HueRotate:
		deg := int(math.Round(st.Value))
		if deg%360 == 0 {
			return img
		}
		return adjust.Hue(img, deg)
	case Sepia:
		k := math.Max(0, math.Min(1, st.Value))
		if k == 0 {
			return img
		}
		if k == 1 {
			return effect.Sepia(img)
		}
		return blend.Opacity(img, effect.Sepia(img), k)
	}
	klog.Warningf("unknown filter op %v, skipping", st.Op)
	return img
}

// Engine bakes filters into new rasters when the platform supports it.
type Engine struct {
	caps probe.Capabilities
}

// NewEngine returns an engine bound to a capability probe result.
func NewEngine(caps probe.Capabilities) *Engine {
	return &Engine{caps: caps}
}

// CanBake reports whether baked rasters are produced at all.
func (e *Engine) CanBake() bool {
	return e.caps.SupportsRasterFilterBaking
}

// Apply returns the baked raster for p, or nil when the source should be used unmodified
// (None) or the filter must be applied at paint time instead. It never returns an error:
// failures are logged and degrade to nil.
func (e *Engine) Apply(ctx context.Context, p *photo.Photo, s Spec) (out *image.RGBA) {
	if p == nil || s.IsNone() {
		return nil
	}
	if !e.CanBake() {
		klog.V(1).Infof("filter %s: raster baking unsupported, using paint-time filter", s.Name)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("filter %s: bake failed: %v", s.Name, r)
			out = nil
		}
	}()

	if err := ctx.Err(); err != nil {
		klog.Warningf("filter %s: %v", s.Name, err)
		return nil
	}

	baked, err := bake(p, s)
	if err != nil {
		klog.Errorf("filter %s: %v", s.Name, err)
		return nil
	}
	klog.V(1).Infof("filter %s: baked %dx%d raster (%s)", s.Name, p.Width, p.Height, s.CSS())
	return baked
}

func bake(p *photo.Photo, s Spec) (*image.RGBA, error) {
	if p.Image == nil {
		return nil, fmt.Errorf("bake %s: photo has no pixels", s.Name)
	}
	out := Paint(p.Image, s)
	if b := out.Bounds(); b.Dx() != p.Width || b.Dy() != p.Height {
		return nil, fmt.Errorf("bake %s: got %v, want %dx%d", s.Name, b, p.Width, p.Height)
	}
	return out, nil
}
