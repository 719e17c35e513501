package scene

import (
	"fmt"
	"math"

	"github.com/tstromberg/kalender/pkg/calendar"
)

// MinSize is the smallest width or height the overlay may have, in stage units.
const MinSize = 50

// OverlayWidthRatio is the share of the stage width used by the default placement.
const OverlayWidthRatio = 0.6

// Aspect is the calendar's native width:height ratio.
const Aspect = float64(calendar.Width) / float64(calendar.Height)

// Point is a position in stage coordinates.
type Point struct {
	X, Y float64
}

// Size is a width and height in stage coordinates.
type Size struct {
	W, H float64
}

func (s Size) String() string {
	return fmt.Sprintf("%.0fx%.0f", s.W, s.H)
}

// Rect is an axis-aligned box in stage coordinates.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) String() string {
	return fmt.Sprintf("{x=%.1f y=%.1f w=%.1f h=%.1f}", r.X, r.Y, r.W, r.H)
}

// Contains reports whether p is inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Scale multiplies every component by k.
func (r Rect) Scale(k float64) Rect {
	return Rect{X: r.X * k, Y: r.Y * k, W: r.W * k, H: r.H * k}
}

// Within reports whether r satisfies every overlay invariant on stage.
func (r Rect) Within(stage Size) bool {
	const eps = 1e-9
	return r.X >= -eps && r.Y >= -eps &&
		r.X+r.W <= stage.W+eps && r.Y+r.H <= stage.H+eps &&
		r.W >= MinSize-eps && r.H >= MinSize-eps
}

// Viewport is the visible area available to the stage.
type Viewport struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// FitStage scales the natural photo size down to fit the viewport, preserving aspect ratio.
// Desktop stages take at most 80% of the viewport width and 60% of its height; mobile
// stages may use nearly the full width.
func FitStage(width, height int, vp Viewport, mobile bool) Size {
	w, h := float64(width), float64(height)
	if w <= 0 || h <= 0 {
		return Size{}
	}
	if vp.Width <= 0 || vp.Height <= 0 {
		return Size{W: w, H: h}
	}

	maxW, maxH := vp.Width*0.8, vp.Height*0.6
	if mobile {
		maxW, maxH = vp.Width*0.95, vp.Height*0.7
	}

	k := math.Min(1, math.Min(maxW/w, maxH/h))
	return Size{W: w * k, H: h * k}
}

// DefaultPlacement centres an overlay 60% of the stage width wide at the calendar's aspect ratio.
func DefaultPlacement(stage Size) Rect {
	w := stage.W * OverlayWidthRatio
	h := w / Aspect
	if h > stage.H {
		h = stage.H
		w = h * Aspect
	}
	if h < MinSize {
		h = MinSize
		w = h * Aspect
	}
	w = math.Min(w, stage.W)
	h = math.Min(h, stage.H)
	return Rect{X: (stage.W - w) / 2, Y: (stage.H - h) / 2, W: w, H: h}
}

// ClampMove keeps a box of fixed size inside the stage.
func ClampMove(r Rect, stage Size) Rect {
	r.X = clamp(r.X, 0, stage.W-r.W)
	r.Y = clamp(r.Y, 0, stage.H-r.H)
	return r
}

// BoundResize decides the accepted box for a resize step from prev to next.
// Boxes below the minimum size are rejected and prev is returned unchanged.
// Otherwise the box is pulled inside the stage, shrinking as its position is
// clamped, and the minimum size is enforced again afterwards.
func BoundResize(prev, next Rect, stage Size) Rect {
	if next.W < MinSize || next.H < MinSize {
		return prev
	}

	if next.X < 0 {
		next.W += next.X
		next.X = 0
	}
	if next.Y < 0 {
		next.H += next.Y
		next.Y = 0
	}
	if next.X+next.W > stage.W {
		next.W = stage.W - next.X
	}
	if next.Y+next.H > stage.H {
		next.H = stage.H - next.Y
	}

	next.W = math.Min(math.Max(next.W, MinSize), stage.W)
	next.H = math.Min(math.Max(next.H, MinSize), stage.H)
	return ClampMove(next, stage)
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// Anchor names a resize handle.
type Anchor int

// Anchors, clockwise from the top-left corner.
const (
	TopLeft Anchor = iota
	TopCenter
	TopRight
	MiddleRight
	BottomRight
	BottomCenter
	BottomLeft
	MiddleLeft
)

var anchorNames = [...]string{"top-left", "top-center", "top-right", "middle-right", "bottom-right", "bottom-center", "bottom-left", "middle-left"}

func (a Anchor) String() string {
	if int(a) < len(anchorNames) {
		return anchorNames[a]
	}
	return fmt.Sprintf("anchor(%d)", int(a))
}

// AllAnchors lists every handle.
var AllAnchors = []Anchor{TopLeft, TopCenter, TopRight, MiddleRight, BottomRight, BottomCenter, BottomLeft, MiddleLeft}

// AnchorPoint returns where the handle for a sits on r.
func AnchorPoint(r Rect, a Anchor) Point {
	cx, cy := r.X+r.W/2, r.Y+r.H/2
	switch a {
	case TopLeft:
		return Point{r.X, r.Y}
	case TopCenter:
		return Point{cx, r.Y}
	case TopRight:
		return Point{r.X + r.W, r.Y}
	case MiddleRight:
		return Point{r.X + r.W, cy}
	case BottomRight:
		return Point{r.X + r.W, r.Y + r.H}
	case BottomCenter:
		return Point{cx, r.Y + r.H}
	case BottomLeft:
		return Point{r.X, r.Y + r.H}
	default:
		return Point{r.X, cy}
	}
}

// Resized returns the candidate box produced by dragging anchor a of r by (dx, dy).
func Resized(r Rect, a Anchor, dx, dy float64) Rect {
	left, top, right, bottom := r.X, r.Y, r.X+r.W, r.Y+r.H
	switch a {
	case TopLeft:
		left, top = left+dx, top+dy
	case TopCenter:
		top += dy
	case TopRight:
		right, top = right+dx, top+dy
	case MiddleRight:
		right += dx
	case BottomRight:
		right, bottom = right+dx, bottom+dy
	case BottomCenter:
		bottom += dy
	case BottomLeft:
		left, bottom = left+dx, bottom+dy
	case MiddleLeft:
		left += dx
	}
	return Rect{X: left, Y: top, W: right - left, H: bottom - top}
}
