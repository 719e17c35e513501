package scene

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"

	"github.com/tstromberg/kalender/pkg/filter"
	"github.com/tstromberg/kalender/pkg/paint"
)

var (
	// ErrCanvasTooLarge is returned when a capture would exceed the platform canvas area.
	ErrCanvasTooLarge = errors.New("canvas too large")
	// ErrEmptyStage is returned when there is nothing to capture.
	ErrEmptyStage = errors.New("stage is empty")
)

// Render rasterizes the stage as displayed, at pixelRatio device pixels per
// stage unit. This is what a direct capture sees: if the overlay is selected,
// its handles are drawn too.
func (s *Scene) Render(pixelRatio float64) (*image.RGBA, error) {
	s.mu.Lock()
	snap := s.snapshotLocked()
	selected := s.selected
	s.mu.Unlock()

	if snap.Photo == nil || snap.Stage.W <= 0 || snap.Stage.H <= 0 {
		return nil, ErrEmptyStage
	}

	w := int(math.Round(snap.Stage.W * pixelRatio))
	h := int(math.Round(snap.Stage.H * pixelRatio))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("pixel ratio %v: %w", pixelRatio, ErrEmptyStage)
	}
	if area := w * h; area > s.caps.MaxCanvasArea {
		return nil, fmt.Errorf("%dx%d at %vx: %w", w, h, pixelRatio, ErrCanvasTooLarge)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	DrawPhoto(dst, snap)

	if snap.Calendar != nil {
		r := paint.Rect(snap.Overlay.X*pixelRatio, snap.Overlay.Y*pixelRatio, snap.Overlay.W*pixelRatio, snap.Overlay.H*pixelRatio)
		paint.DropShadow(dst, snap.Calendar, r, paint.OverlayShadow.Scaled(pixelRatio))
		paint.Scaled(dst, snap.Calendar, r)
	}

	if selected {
		drawHandles(dst, snap.Overlay, pixelRatio)
	}

	klog.V(1).Infof("stage rendered at %vx: %dx%d (selected=%v)", pixelRatio, w, h, selected)
	return dst, nil
}

// DrawPhoto fills dst with the photo layer: the baked raster when there is
// one, otherwise the source photo with the filter applied at paint time.
func DrawPhoto(dst draw.Image, snap Snapshot) {
	b := dst.Bounds()
	src := snap.Filtered
	live := src == nil && !snap.Filter.IsNone()
	if src == nil {
		src = snap.Photo
	}

	layer := transform.Resize(src, b.Dx(), b.Dy(), transform.Linear)
	if live {
		layer = filter.Paint(layer, snap.Filter)
	}
	draw.Draw(dst, b, layer, image.Point{}, draw.Over)
}

func drawHandles(dst *image.RGBA, r Rect, k float64) {
	scaled := r.Scale(k)
	pts := make([]image.Point, 0, len(AllAnchors))
	for _, a := range AllAnchors {
		p := AnchorPoint(scaled, a)
		pts = append(pts, image.Pt(int(math.Round(p.X)), int(math.Round(p.Y))))
	}
	paint.Handles(dst, paint.Rect(scaled.X, scaled.Y, scaled.W, scaled.H), pts, k)
}
