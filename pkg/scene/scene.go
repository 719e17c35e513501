// Package scene holds the current photo, derived rasters and overlay transform.
package scene

import (
	"image"
	"sync"

	"k8s.io/klog/v2"

	"github.com/tstromberg/kalender/pkg/filter"
	"github.com/tstromberg/kalender/pkg/photo"
	"github.com/tstromberg/kalender/pkg/probe"
)

// Manipulable is the capability handed to whoever drives gestures. It is the
// only way the overlay transform can change, and every method returns the
// box after bounds enforcement.
type Manipulable interface {
	// Bounds returns the effective box, including any in-flight scale.
	Bounds() Rect
	// Move places the box at (x, y) during a drag.
	Move(x, y float64) Rect
	// EndMove commits a drag. snapped is true when clamping changed the position.
	EndMove(x, y float64) (r Rect, snapped bool)
	// Transform proposes a new box during a resize.
	Transform(box Rect) Rect
	// EndTransform bakes any accumulated scale into the size.
	EndTransform() Rect
}

// Scene is the model behind the stage. It is safe for concurrent use.
type Scene struct {
	mu   sync.Mutex
	caps probe.Capabilities
	vp   Viewport

	photo    *photo.Photo
	filter   filter.Spec
	filtered *image.RGBA
	calendar image.Image

	stage   Size
	overlay *Overlay

	selected  bool
	exporting bool
}

// New returns an empty scene for a device and viewport.
func New(caps probe.Capabilities, vp Viewport) *Scene {
	s := &Scene{caps: caps, vp: vp, filter: filter.None}
	s.overlay = &Overlay{scene: s, scaleX: 1, scaleY: 1}
	return s
}

// Capabilities returns the probe result the scene was built with.
func (s *Scene) Capabilities() probe.Capabilities {
	return s.caps
}

// SetPhoto replaces the photo wholesale. The baked filter is dropped and the
// overlay returns to its default placement for the new stage.
func (s *Scene) SetPhoto(p *photo.Photo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photo = p
	s.filtered = nil
	s.relayoutLocked(true)
}

// SetViewport reacts to a viewport resize.
func (s *Scene) SetViewport(vp Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vp = vp
	s.relayoutLocked(false)
}

// relayoutLocked refits the stage. The overlay is reset when the stage changes
// or when force is set.
func (s *Scene) relayoutLocked(force bool) {
	if s.photo == nil {
		s.stage = Size{}
		return
	}
	stage := FitStage(s.photo.Width, s.photo.Height, s.vp, s.caps.Mobile)
	if !force && stage == s.stage && s.overlay.box.W > 0 {
		return
	}
	s.stage = stage
	s.overlay.reset(DefaultPlacement(stage))
	klog.V(1).Infof("stage %s, overlay %s", s.stage, s.overlay.box)
}

// SetFilter selects a filter. Until a baked raster arrives the filter is applied at paint time.
func (s *Scene) SetFilter(f filter.Spec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	s.filtered = nil
}

// SetFiltered stores a baked raster if it still matches the current photo and filter.
func (s *Scene) SetFiltered(p *photo.Photo, f filter.Spec, img *image.RGBA) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p != s.photo || f.Name != s.filter.Name {
		klog.V(1).Infof("discarding stale %s raster", f.Name)
		return false
	}
	s.filtered = img
	return true
}

// SetCalendar stores the latest calendar raster.
func (s *Scene) SetCalendar(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendar = img
}

// Stage returns the current display size.
func (s *Scene) Stage() Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Overlay returns the committed overlay box.
func (s *Scene) Overlay() Rect {
	return s.overlay.Bounds()
}

// Photo returns the current photo, or nil.
func (s *Scene) Photo() *photo.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photo
}

// Filter returns the selected filter.
func (s *Scene) Filter() filter.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// HitTest returns the overlay if p falls on it.
func (s *Scene) HitTest(p Point) (Manipulable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.photo == nil || !s.overlay.boundsLocked().Contains(p) {
		return nil, false
	}
	return s.overlay, true
}

// Select makes m the active interaction target. It is a no-op while exporting.
func (s *Scene) Select(m Manipulable) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting || s.photo == nil || m != Manipulable(s.overlay) {
		return false
	}
	s.selected = true
	return true
}

// Deselect clears the selection.
func (s *Scene) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = false
}

// Selected returns the selected entity, if any.
func (s *Scene) Selected() (Manipulable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selected {
		return nil, false
	}
	return s.overlay, true
}

// Exporting reports whether an export currently owns the scene.
func (s *Scene) Exporting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exporting
}

// BeginExport forces the Deselected state and suppresses selection until the
// returned restore func is called, which reinstates the previous selection.
func (s *Scene) BeginExport() (restore func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.selected
	s.selected = false
	s.exporting = true

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.exporting = false
		s.selected = was
	}
}

// Snapshot is an immutable copy of what an export draws.
type Snapshot struct {
	Photo    image.Image
	Filtered image.Image
	Filter   filter.Spec
	Calendar image.Image
	Overlay  Rect
	Stage    Size
}

// Snapshot captures the current rasters and transform.
func (s *Scene) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Scene) snapshotLocked() Snapshot {
	snap := Snapshot{
		Filter:   s.filter,
		Calendar: s.calendar,
		Overlay:  s.overlay.boundsLocked(),
		Stage:    s.stage,
	}
	if s.photo != nil {
		snap.Photo = s.photo.Image
	}
	if s.filtered != nil {
		snap.Filtered = s.filtered
	}
	return snap
}
