// Package paint holds the raster drawing steps shared by on-screen capture and off-screen export.
package paint

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/transform"
	"github.com/fogleman/gg"
)

// Shadow describes a drop shadow in logical stage units.
type Shadow struct {
	Color   color.RGBA
	Blur    float64
	OffsetX float64
	OffsetY float64
}

// OverlayShadow is the shadow cast by the calendar overlay.
var OverlayShadow = Shadow{
	Color:   color.RGBA{A: 0x80},
	Blur:    10,
	OffsetX: 5,
	OffsetY: 5,
}

// Scaled returns the shadow with every parameter multiplied by k.
func (s Shadow) Scaled(k float64) Shadow {
	return Shadow{Color: s.Color, Blur: s.Blur * k, OffsetX: s.OffsetX * k, OffsetY: s.OffsetY * k}
}

// Rect converts float geometry to the enclosing pixel rectangle.
func Rect(x, y, w, h float64) image.Rectangle {
	return image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	)
}

// Fill paints dst with a uniform colour.
func Fill(dst draw.Image, c color.Color) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Scaled draws src resized into r over dst.
func Scaled(dst draw.Image, src image.Image, r image.Rectangle) {
	if r.Empty() {
		return
	}
	var resized image.Image = src
	if b := src.Bounds(); b.Dx() != r.Dx() || b.Dy() != r.Dy() {
		resized = transform.Resize(src, r.Dx(), r.Dy(), transform.Linear)
	}
	draw.Draw(dst, r, resized, resized.Bounds().Min, draw.Over)
}

// DropShadow paints the shadow of src as it would appear when drawn into r.
func DropShadow(dst draw.Image, src image.Image, r image.Rectangle, s Shadow) {
	if r.Empty() || s.Color.A == 0 {
		return
	}
	pad := int(math.Ceil(s.Blur * 2))
	mask := image.NewRGBA(image.Rect(0, 0, r.Dx()+2*pad, r.Dy()+2*pad))

	resized := src
	if b := src.Bounds(); b.Dx() != r.Dx() || b.Dy() != r.Dy() {
		resized = transform.Resize(src, r.Dx(), r.Dy(), transform.Linear)
	}
	// tint: keep source alpha, replace colour
	draw.DrawMask(mask, image.Rect(pad, pad, pad+r.Dx(), pad+r.Dy()),
		image.NewUniform(s.Color), image.Point{}, resized, resized.Bounds().Min, draw.Over)

	var shadow image.Image = mask
	if s.Blur > 0 {
		shadow = blur.Gaussian(mask, s.Blur/2)
	}

	at := r.Min.Add(image.Pt(int(math.Round(s.OffsetX))-pad, int(math.Round(s.OffsetY))-pad))
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(mask.Bounds().Size())}, shadow, image.Point{}, draw.Over)
}

// HandleSize is the side of a resize anchor in logical units.
const HandleSize = 10

var handleStroke = color.RGBA{R: 0x00, G: 0xa1, B: 0xff, A: 0xff}

// Handles draws the selection border and anchors around r. Anchors are centred on pts.
func Handles(dst *image.RGBA, r image.Rectangle, pts []image.Point, scale float64) {
	dc := gg.NewContextForRGBA(dst)
	dc.SetColor(handleStroke)
	dc.SetLineWidth(math.Max(1, scale))
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.Stroke()

	hs := HandleSize * scale
	for _, p := range pts {
		dc.DrawRectangle(float64(p.X)-hs/2, float64(p.Y)-hs/2, hs, hs)
		dc.SetColor(color.White)
		dc.FillPreserve()
		dc.SetColor(handleStroke)
		dc.Stroke()
	}
}
