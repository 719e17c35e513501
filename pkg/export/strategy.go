package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"k8s.io/klog/v2"

	"github.com/tstromberg/kalender/pkg/paint"
	"github.com/tstromberg/kalender/pkg/photo"
	"github.com/tstromberg/kalender/pkg/probe"
	"github.com/tstromberg/kalender/pkg/scene"
)

// Stage is the scene surface an export reads from.
type Stage interface {
	// Render rasterizes the stage as displayed at a pixel ratio.
	Render(pixelRatio float64) (*image.RGBA, error)
	// Snapshot returns the current rasters and transform.
	Snapshot() scene.Snapshot
	// BeginExport deselects and blocks selection until restore is called.
	BeginExport() (restore func())
}

// Strategy is one way of producing the flattened image.
type Strategy interface {
	Name() string
	// Applies is the precondition on the platform.
	Applies(probe.Capabilities) bool
	// Render produces encoded PNG bytes.
	Render(ctx context.Context, st Stage) ([]byte, error)
	// Accept is the success predicate on the encoded output.
	Accept(bs []byte) bool
}

// DirectCapture asks the stage to rasterize itself at an elevated pixel density.
type DirectCapture struct {
	Density float64
}

// Name implements Strategy.
func (d DirectCapture) Name() string { return fmt.Sprintf("direct@%vx", d.Density) }

// Applies implements Strategy.
func (DirectCapture) Applies(probe.Capabilities) bool { return true }

// Accept implements Strategy. Direct captures are trusted unconditionally.
func (DirectCapture) Accept([]byte) bool { return true }

// Render implements Strategy.
func (d DirectCapture) Render(ctx context.Context, st Stage) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := st.Render(d.Density)
	if errors.Is(err, scene.ErrEmptyStage) {
		return nil, ErrNoStage
	}
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	return photo.EncodePNG(img)
}

// ManualComposite draws the scene into an off-screen bitmap by hand. It is
// used where the platform's own stage capture is unreliable.
type ManualComposite struct {
	Density    float64
	MaxDim     int
	Background color.Color
	MinBytes   int
}

// Name implements Strategy.
func (m ManualComposite) Name() string { return fmt.Sprintf("manual@%vx", m.Density) }

// Applies implements Strategy: only mobile/touch renderers take the manual path.
func (ManualComposite) Applies(c probe.Capabilities) bool { return c.Mobile }

// Accept implements Strategy: implausibly small output is a failed render.
func (m ManualComposite) Accept(bs []byte) bool {
	if len(bs) < m.MinBytes {
		klog.Warningf("manual composite is only %d bytes (floor %d), treating as failed", len(bs), m.MinBytes)
		return false
	}
	return true
}

// Render implements Strategy.
func (m ManualComposite) Render(ctx context.Context, st Stage) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := m.Composite(st.Snapshot())
	if err != nil {
		return nil, err
	}
	return photo.EncodePNG(img)
}

// TargetSize returns the bitmap size for a stage at density, uniformly
// downscaled so that neither side exceeds maxDim.
func TargetSize(stage scene.Size, density float64, maxDim int) (w, h int, scale float64) {
	scale = density
	tw, th := stage.W*density, stage.H*density
	if maxDim > 0 && (tw > float64(maxDim) || th > float64(maxDim)) {
		k := math.Min(float64(maxDim)/tw, float64(maxDim)/th)
		klog.Warningf("export target %.0fx%.0f exceeds %d, downscaling by %.3f", tw, th, maxDim, k)
		scale *= k
		tw, th = tw*k, th*k
	}
	return int(math.Round(tw)), int(math.Round(th)), scale
}

// Composite flattens a snapshot: background, photo scaled to fill, then the
// calendar at its transform with an explicit drop shadow. Geometry and shadow
// parameters are scaled by the same factor.
func (m ManualComposite) Composite(snap scene.Snapshot) (*image.RGBA, error) {
	if snap.Photo == nil || snap.Stage.W <= 0 || snap.Stage.H <= 0 {
		return nil, ErrNoStage
	}
	if snap.Calendar == nil {
		return nil, fmt.Errorf("composite: calendar raster missing")
	}

	w, h, k := TargetSize(snap.Stage, m.Density, m.MaxDim)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("composite: empty target %dx%d", w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	bg := m.Background
	if bg == nil {
		bg = color.White
	}
	paint.Fill(dst, bg)
	scene.DrawPhoto(dst, snap)

	o := snap.Overlay.Scale(k)
	r := paint.Rect(o.X, o.Y, o.W, o.H)
	paint.DropShadow(dst, snap.Calendar, r, paint.OverlayShadow.Scaled(k))
	paint.Scaled(dst, snap.Calendar, r)

	klog.V(1).Infof("manual composite %dx%d (scale %.3f), overlay at %v", w, h, k, r)
	return dst, nil
}
