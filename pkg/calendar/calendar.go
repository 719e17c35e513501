// Package calendar renders a month grid into a transparent, supersampled bitmap.
package calendar

import (
	"fmt"
	"image/color"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Spec selects what the rasterizer draws. Month is zero-based (0 = January).
type Spec struct {
	Month int
	Year  int
	Font  string
	Color color.RGBA
}

// String is used as a cache and log key.
func (s Spec) String() string {
	return fmt.Sprintf("%s %d [%s %s]", MonthName(s.Month), s.Year, s.Font, Hex(s.Color))
}

// ForTime returns a spec for the month containing t.
func ForTime(t time.Time, font string, c color.RGBA) Spec {
	return Spec{Month: int(t.Month()) - 1, Year: t.Year(), Font: font, Color: c}
}

// MonthName returns the English month name for a zero-based month.
func MonthName(month int) string {
	return time.Month(month + 1).String()
}

// FirstWeekday returns the weekday (0 = Sunday) of the first day of the month.
func FirstWeekday(month, year int) int {
	return int(time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// DaysInMonth returns the number of days, computed as day 0 of the following month.
func DaysInMonth(month, year int) int {
	return time.Date(year, time.Month(month+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// Shift moves a zero-based month by delta months, rolling the year over at the boundaries.
func Shift(month, year, delta int) (int, int) {
	total := year*12 + month + delta
	y := total / 12
	m := total % 12
	if m < 0 {
		m += 12
		y--
	}
	return m, y
}

// Grid returns the 6x7 day grid; 0 marks a blank cell.
func Grid(month, year int) [Rows][Columns]int {
	var g [Rows][Columns]int
	first := FirstWeekday(month, year)
	days := DaysInMonth(month, year)
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			day := row*Columns + col - first + 1
			if day >= 1 && day <= days {
				g[row][col] = day
			}
		}
	}
	return g
}

// IsWeekend reports whether a grid column is Sunday or Saturday.
func IsWeekend(col int) bool {
	return col == 0 || col == Columns-1
}

// ParseColor parses a "#rrggbb" hex colour.
func ParseColor(s string) (color.RGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Hex formats an opaque colour as "#rrggbb".
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
