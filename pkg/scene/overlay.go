package scene

import (
	"k8s.io/klog/v2"
)

// child is a node sized with its parent overlay.
type child struct {
	W, H float64
}

// Overlay is the calendar group on the stage: the calendar image and a
// transparent hit-test rectangle, moved and resized together.
type Overlay struct {
	scene *Scene

	box            Rect
	scaleX, scaleY float64

	image child
	hit   child
}

func (o *Overlay) reset(r Rect) {
	o.box = r
	o.scaleX, o.scaleY = 1, 1
	o.resizeChildren()
}

func (o *Overlay) resizeChildren() {
	o.image = child{W: o.box.W, H: o.box.H}
	o.hit = child{W: o.box.W, H: o.box.H}
}

func (o *Overlay) boundsLocked() Rect {
	return Rect{X: o.box.X, Y: o.box.Y, W: o.box.W * o.scaleX, H: o.box.H * o.scaleY}
}

// Bounds returns the effective box.
func (o *Overlay) Bounds() Rect {
	o.scene.mu.Lock()
	defer o.scene.mu.Unlock()
	return o.boundsLocked()
}

// Move clamps a live drag position.
func (o *Overlay) Move(x, y float64) Rect {
	o.scene.mu.Lock()
	defer o.scene.mu.Unlock()
	r := o.boundsLocked()
	r.X, r.Y = x, y
	r = ClampMove(r, o.scene.stage)
	o.box.X, o.box.Y = r.X, r.Y
	return r
}

// EndMove commits a drag, snapping the node back if it left the stage.
func (o *Overlay) EndMove(x, y float64) (Rect, bool) {
	o.scene.mu.Lock()
	defer o.scene.mu.Unlock()
	r := o.boundsLocked()
	r.X, r.Y = x, y
	c := ClampMove(r, o.scene.stage)
	o.box.X, o.box.Y = c.X, c.Y

	snapped := c != r
	if snapped {
		klog.V(1).Infof("drag end %s snapped to %s", r, c)
	}
	return c, snapped
}

// Transform applies the resize bound function and records the accepted box as scale.
func (o *Overlay) Transform(next Rect) Rect {
	o.scene.mu.Lock()
	defer o.scene.mu.Unlock()
	prev := o.boundsLocked()
	if o.box.W == 0 || o.box.H == 0 {
		return prev
	}
	r := BoundResize(prev, next, o.scene.stage)
	o.box.X, o.box.Y = r.X, r.Y
	o.scaleX = r.W / o.box.W
	o.scaleY = r.H / o.box.H
	return r
}

// EndTransform resets scale to 1 by baking it into width and height, resizes
// the children to match and re-clamps the result.
func (o *Overlay) EndTransform() Rect {
	o.scene.mu.Lock()
	defer o.scene.mu.Unlock()
	r := o.boundsLocked()
	r = BoundResize(r, r, o.scene.stage)
	o.reset(r)
	klog.V(1).Infof("transform committed: %s", r)
	return r
}

// Children returns the image and hit-test node sizes.
func (o *Overlay) Children() (img, hit Size) {
	o.scene.mu.Lock()
	defer o.scene.mu.Unlock()
	return Size{W: o.image.W, H: o.image.H}, Size{W: o.hit.W, H: o.hit.H}
}

// Scale returns the in-flight scale factors.
func (o *Overlay) Scale() (x, y float64) {
	o.scene.mu.Lock()
	defer o.scene.mu.Unlock()
	return o.scaleX, o.scaleY
}

// OverlayNode exposes the overlay for inspection.
func (s *Scene) OverlayNode() *Overlay {
	return s.overlay
}
