package calendar

import (
	"image/color"
	"strconv"
)

// Logical canvas geometry. The backing bitmap is this size times the supersample factor.
const (
	Width   = 1000
	Height  = 850
	Rows    = 6
	Columns = 7

	titleY     = 85
	titleSize  = 72
	headerY    = 190
	headerSize = 38
	gridTop    = 285
	rowHeight  = 100
	daySize    = 46
)

// AccentRed is used for weekend columns regardless of the selected colour.
var AccentRed = color.RGBA{R: 0xe5, G: 0x39, B: 0x35, A: 0xff}

var weekdays = [Columns]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Text is a centre-anchored label in logical units.
type Text struct {
	S     string
	X, Y  float64
	Size  float64
	Color color.RGBA
}

// Layout is everything the rasterizer draws for one Spec.
type Layout struct {
	Title   Text
	Headers [Columns]Text
	Days    []Text
	Grid    [Rows][Columns]int
}

func columnX(col int) float64 {
	w := float64(Width) / Columns
	return w*float64(col) + w/2
}

func pick(col int, c color.RGBA) color.RGBA {
	if IsWeekend(col) {
		return AccentRed
	}
	return c
}

// NewLayout places the title, weekday header row and day numbers.
func NewLayout(s Spec) Layout {
	l := Layout{
		Title: Text{
			S:     MonthName(s.Month) + " " + strconv.Itoa(s.Year),
			X:     Width / 2,
			Y:     titleY,
			Size:  titleSize,
			Color: s.Color,
		},
		Grid: Grid(s.Month, s.Year),
	}

	for col, name := range weekdays {
		l.Headers[col] = Text{S: name, X: columnX(col), Y: headerY, Size: headerSize, Color: pick(col, s.Color)}
	}

	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			day := l.Grid[row][col]
			if day == 0 {
				continue
			}
			l.Days = append(l.Days, Text{
				S:     strconv.Itoa(day),
				X:     columnX(col),
				Y:     gridTop + float64(row)*rowHeight,
				Size:  daySize,
				Color: pick(col, s.Color),
			})
		}
	}
	return l
}

// Texts returns every label in draw order.
func (l Layout) Texts() []Text {
	ts := make([]Text, 0, 1+Columns+len(l.Days))
	ts = append(ts, l.Title)
	ts = append(ts, l.Headers[:]...)
	return append(ts, l.Days...)
}
