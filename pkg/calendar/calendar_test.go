package calendar

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		month, year, want int
	}{
		{0, 2025, 31},
		{1, 2024, 29},
		{1, 2025, 28},
		{1, 1900, 28},
		{1, 2000, 29},
		{3, 2025, 30},
		{11, 2025, 31},
	}
	for _, tc := range tests {
		if got := DaysInMonth(tc.month, tc.year); got != tc.want {
			t.Errorf("DaysInMonth(%d, %d) = %d, want %d", tc.month, tc.year, got, tc.want)
		}
	}
}

func TestFirstWeekday(t *testing.T) {
	// June 1st 2025 was a Sunday, March 1st 2025 a Saturday.
	if got := FirstWeekday(5, 2025); got != 0 {
		t.Errorf("FirstWeekday(June 2025) = %d, want 0", got)
	}
	if got := FirstWeekday(2, 2025); got != 6 {
		t.Errorf("FirstWeekday(March 2025) = %d, want 6", got)
	}
}

func TestShift(t *testing.T) {
	tests := []struct {
		month, year, delta int
		wantM, wantY       int
	}{
		{11, 2025, 1, 0, 2026},
		{0, 2025, -1, 11, 2024},
		{5, 2025, 1, 6, 2025},
		{5, 2025, -1, 4, 2025},
		{3, 2025, 21, 0, 2027},
		{3, 2025, -28, 11, 2022},
		{0, 0, -1, 11, -1},
	}
	for _, tc := range tests {
		m, y := Shift(tc.month, tc.year, tc.delta)
		if m != tc.wantM || y != tc.wantY {
			t.Errorf("Shift(%d, %d, %+d) = (%d, %d), want (%d, %d)", tc.month, tc.year, tc.delta, m, y, tc.wantM, tc.wantY)
		}
	}
}

func TestGridPlacement(t *testing.T) {
	for year := 1999; year <= 2031; year++ {
		for month := 0; month < 12; month++ {
			g := Grid(month, year)
			first := FirstWeekday(month, year)
			days := DaysInMonth(month, year)

			count := 0
			for row := 0; row < Rows; row++ {
				for col := 0; col < Columns; col++ {
					if g[row][col] != 0 {
						count++
					}
				}
			}
			if count != days {
				t.Errorf("%s %d: %d non-blank cells, want %d", MonthName(month), year, count, days)
			}
			if got := g[first/Columns][first%Columns]; got != 1 {
				t.Errorf("%s %d: cell at offset %d = %d, want 1", MonthName(month), year, first, got)
			}
		}
	}
}

func TestLayoutColors(t *testing.T) {
	blue := color.RGBA{B: 0xff, A: 0xff}
	l := NewLayout(Spec{Month: 5, Year: 2025, Font: DefaultFont, Color: blue})

	if l.Title.S != "June 2025" {
		t.Errorf("title = %q", l.Title.S)
	}
	if l.Title.Color != blue {
		t.Errorf("title colour = %v, want %v", l.Title.Color, blue)
	}
	for col, h := range l.Headers {
		want := blue
		if col == 0 || col == 6 {
			want = AccentRed
		}
		if h.Color != want {
			t.Errorf("header %s colour = %v, want %v", h.S, h.Color, want)
		}
	}
	if len(l.Days) != 30 {
		t.Fatalf("got %d day labels, want 30", len(l.Days))
	}
	// June 1st 2025 is a Sunday; the 2nd is a Monday.
	if l.Days[0].Color != AccentRed || l.Days[1].Color != blue {
		t.Errorf("day colours = %v, %v", l.Days[0].Color, l.Days[1].Color)
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#1e90ff")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if want := (color.RGBA{R: 0x1e, G: 0x90, B: 0xff, A: 0xff}); c != want {
		t.Errorf("ParseColor = %v, want %v", c, want)
	}
	if Hex(c) != "#1e90ff" {
		t.Errorf("Hex = %q", Hex(c))
	}
	if _, err := ParseColor("blue-ish"); err == nil {
		t.Errorf("ParseColor(garbage) succeeded")
	}
}

func TestRender(t *testing.T) {
	fonts, err := NewFonts("", "", time.Second)
	if err != nil {
		t.Fatalf("NewFonts: %v", err)
	}
	r := NewRasterizer(fonts, 1)
	s := Spec{Month: 1, Year: 2026, Font: "Go", Color: color.RGBA{R: 0x20, G: 0x80, B: 0x20, A: 0xff}}

	c, err := r.Render(context.Background(), s)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b := c.Image.Bounds(); b.Dx() != Width || b.Dy() != Height {
		t.Errorf("bounds = %v, want %dx%d", b, Width, Height)
	}
	if c.Font != "Go" {
		t.Errorf("font = %q, want Go", c.Font)
	}
	if c.Image.RGBAAt(0, 0).A != 0 || c.Image.RGBAAt(Width-1, Height-1).A != 0 {
		t.Errorf("background is not transparent")
	}

	inked := 0
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			opaque := c.Opaque(CellRect(row, col))
			if opaque {
				inked++
			}
			if blank := c.Layout.Grid[row][col] == 0; blank && opaque {
				t.Errorf("blank cell (%d,%d) has ink", row, col)
			}
		}
	}
	if want := DaysInMonth(1, 2026); inked != want {
		t.Errorf("%d inked cells, want %d", inked, want)
	}
	if !c.Opaque(image.Rect(300, 40, 700, 130)) {
		t.Errorf("title area is empty")
	}
}

func TestRenderSupersampled(t *testing.T) {
	fonts, _ := NewFonts("", "", time.Second)
	c, err := NewRasterizer(fonts, 2).Render(context.Background(), Spec{Month: 0, Year: 2026, Font: DefaultFont, Color: color.RGBA{A: 0xff}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b := c.Image.Bounds(); b.Dx() != 2*Width || b.Dy() != 2*Height {
		t.Errorf("bounds = %v, want %dx%d", b, 2*Width, 2*Height)
	}
}

func TestUnknownFontFallsBack(t *testing.T) {
	fonts, _ := NewFonts("", "", time.Second)
	c, err := NewRasterizer(fonts, 1).Render(context.Background(), Spec{Month: 6, Year: 2026, Font: "Comic Sans", Color: color.RGBA{A: 0xff}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if c.Font != DefaultFont {
		t.Errorf("font = %q, want %q", c.Font, DefaultFont)
	}
}

func TestFontDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Broken.ttf"), []byte("not a font"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fonts, err := NewFonts(dir, "", time.Second)
	if err != nil {
		t.Fatalf("NewFonts: %v", err)
	}
	if !fonts.Has("Broken") {
		t.Fatalf("Broken not in catalog: %v", fonts.Names())
	}

	_, used, err := fonts.Face(context.Background(), "Broken", 12)
	if err != nil {
		t.Fatalf("Face: %v", err)
	}
	if used != DefaultFont {
		t.Errorf("used = %q, want %q", used, DefaultFont)
	}
}

// slowFonts returns a catalog holding "Slow", whose file read blocks until release is closed.
func slowFonts(t *testing.T, fallback string, timeout time.Duration) (*Fonts, chan struct{}) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Slow.ttf"), goregular.TTF, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fonts, err := NewFonts(dir, fallback, timeout)
	if err != nil {
		t.Fatalf("NewFonts: %v", err)
	}
	release := make(chan struct{})
	fonts.readFile = func(path string) ([]byte, error) {
		<-release
		return os.ReadFile(path)
	}
	return fonts, release
}

func TestSlowFontFallsBack(t *testing.T) {
	fonts, release := slowFonts(t, "", 50*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	face, used, err := fonts.Face(ctx, "Slow", 12)
	if err != nil {
		t.Fatalf("Face: %v", err)
	}
	face.Close()
	if used != DefaultFont {
		t.Errorf("used = %q, want %q while Slow is loading", used, DefaultFont)
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Errorf("Face took %s, want about the 50ms timeout", d)
	}

	close(release)
	deadline := time.Now().Add(5 * time.Second)
	for used != "Slow" {
		if time.Now().After(deadline) {
			t.Fatalf("Slow never served after loading, last used %q", used)
		}
		time.Sleep(10 * time.Millisecond)
		face, used, err = fonts.Face(ctx, "Slow", 12)
		if err != nil {
			t.Fatalf("Face: %v", err)
		}
		face.Close()
	}
}

func TestFallbackFont(t *testing.T) {
	fonts, err := NewFonts("", "Go Mono", time.Second)
	if err != nil {
		t.Fatalf("NewFonts: %v", err)
	}
	if fonts.Fallback() != "Go Mono" {
		t.Errorf("Fallback() = %q, want Go Mono", fonts.Fallback())
	}
	face, used, err := fonts.Face(context.Background(), "Comic Sans", 12)
	if err != nil {
		t.Fatalf("Face: %v", err)
	}
	face.Close()
	if used != "Go Mono" {
		t.Errorf("used = %q, want Go Mono", used)
	}

	if _, err := NewFonts("", "Bogus", time.Second); err == nil {
		t.Errorf("NewFonts accepted a fallback outside the catalog")
	}
}

func TestRenderCancelledWhileFontLoads(t *testing.T) {
	fonts, release := slowFonts(t, "Slow", time.Minute)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRasterizer(fonts, 1).Render(ctx, Spec{Month: 2, Year: 2026, Font: "Slow", Color: color.RGBA{A: 0xff}}); err == nil {
		t.Errorf("Render succeeded with a cancelled context")
	}
}

type countingFace struct {
	font.Face
	closed *int
}

func (c countingFace) Close() error {
	*c.closed++
	return nil
}

func TestCloseFaces(t *testing.T) {
	closed := 0
	closeFaces(map[float64]font.Face{
		titleSize:  countingFace{closed: &closed},
		headerSize: countingFace{closed: &closed},
	})
	if closed != 2 {
		t.Errorf("closed %d faces, want 2", closed)
	}
}
