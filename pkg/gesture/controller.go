// Package gesture translates pointer and touch input into overlay transform updates.
package gesture

import (
	"math"
	"sync"

	"k8s.io/klog/v2"

	"github.com/tstromberg/kalender/pkg/scene"
)

// TapSlop is how far a pointer may travel and still count as a tap.
const TapSlop = 4

// HandleRadius is the hit radius around a resize anchor.
const HandleRadius = 12

// State is the selection state of the overlay.
type State int

// Selection states.
const (
	Deselected State = iota
	Selected
)

func (s State) String() string {
	if s == Selected {
		return "selected"
	}
	return "deselected"
}

// Stage is what the controller needs from the scene model: hit testing and the
// selection contract. Everything else goes through scene.Manipulable.
type Stage interface {
	HitTest(p scene.Point) (scene.Manipulable, bool)
	Select(m scene.Manipulable) bool
	Deselect()
	Selected() (scene.Manipulable, bool)
	Exporting() bool
}

type mode int

const (
	idle mode = iota
	pressing
	dragging
	resizing
)

// Controller is a pointer state machine. It holds at most one active gesture.
type Controller struct {
	mu    sync.Mutex
	stage Stage

	mode   mode
	target scene.Manipulable
	anchor scene.Anchor
	down   scene.Point
	origin scene.Rect
}

// New returns a controller driving stage.
func New(stage Stage) *Controller {
	return &Controller{stage: stage}
}

// State reports the current selection state.
func (c *Controller) State() State {
	if _, ok := c.stage.Selected(); ok {
		return Selected
	}
	return Deselected
}

// PointerDown starts a gesture at p.
func (c *Controller) PointerDown(p scene.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	if c.stage.Exporting() {
		return
	}

	if m, ok := c.stage.Selected(); ok {
		if a, hit := hitAnchor(m.Bounds(), p); hit {
			klog.V(2).Infof("resize start on %s at %+v", a, p)
			c.mode, c.target, c.anchor = resizing, m, a
			c.down, c.origin = p, m.Bounds()
			return
		}
	}

	m, ok := c.stage.HitTest(p)
	if !ok {
		c.mode, c.down = pressing, p
		return
	}
	c.mode, c.target = pressing, m
	c.down, c.origin = p, m.Bounds()
}

// PointerMove updates the active gesture, enforcing bounds live.
func (c *Controller) PointerMove(p scene.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dx, dy := p.X-c.down.X, p.Y-c.down.Y

	switch c.mode {
	case pressing:
		if c.target == nil || math.Hypot(dx, dy) <= TapSlop {
			return
		}
		c.mode = dragging
		fallthrough
	case dragging:
		c.target.Move(c.origin.X+dx, c.origin.Y+dy)
	case resizing:
		c.target.Transform(scene.Resized(c.origin, c.anchor, dx, dy))
	}
}

// PointerUp ends the active gesture. A press that never moved is a tap.
func (c *Controller) PointerUp(p scene.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.reset()
	dx, dy := p.X-c.down.X, p.Y-c.down.Y

	switch c.mode {
	case pressing:
		if math.Hypot(dx, dy) <= TapSlop {
			c.tap(c.target)
			return
		}
		if c.target != nil {
			c.endDrag(dx, dy)
		}
	case dragging:
		c.endDrag(dx, dy)
	case resizing:
		c.target.Transform(scene.Resized(c.origin, c.anchor, dx, dy))
		r := c.target.EndTransform()
		klog.V(1).Infof("resize committed: %s", r)
	}
}

// Cancel abandons the active gesture, committing whatever state it reached.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == resizing {
		c.target.EndTransform()
	}
	c.reset()
}

// Tap selects the overlay under p, or deselects when p is on empty stage.
func (c *Controller) Tap(p scene.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, _ := c.stage.HitTest(p)
	c.tap(m)
}

// DoubleTap explicitly selects the overlay under p.
func (c *Controller) DoubleTap(p scene.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.stage.HitTest(p); ok {
		c.tap(m)
	}
}

func (c *Controller) tap(m scene.Manipulable) {
	if c.stage.Exporting() {
		return
	}
	if m == nil {
		c.stage.Deselect()
		return
	}
	c.stage.Select(m)
}

func (c *Controller) endDrag(dx, dy float64) {
	r, snapped := c.target.EndMove(c.origin.X+dx, c.origin.Y+dy)
	klog.V(1).Infof("drag committed: %s (snapped=%v)", r, snapped)
}

func (c *Controller) reset() {
	c.mode = idle
	c.target = nil
}

func hitAnchor(r scene.Rect, p scene.Point) (scene.Anchor, bool) {
	for _, a := range scene.AllAnchors {
		ap := scene.AnchorPoint(r, a)
		if math.Abs(ap.X-p.X) <= HandleRadius && math.Abs(ap.Y-p.Y) <= HandleRadius {
			return a, true
		}
	}
	return 0, false
}
