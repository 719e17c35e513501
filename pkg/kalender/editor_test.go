package kalender

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tstromberg/kalender/pkg/export"
	"github.com/tstromberg/kalender/pkg/filter"
	"github.com/tstromberg/kalender/pkg/photo"
	"github.com/tstromberg/kalender/pkg/probe"
)

func testConfig() *Config {
	c := DefaultConfig()
	c.Supersample = 1
	c.SettleDelay = time.Millisecond
	return c
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 2), uint8(y * 3), 90, 255})
		}
	}
	bs, err := photo.EncodePNG(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return bs
}

func newEditor(t *testing.T, c *Config) *Editor {
	t.Helper()
	e, err := New(c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.LoadPhoto(pngBytes(t, 120, 80)); err != nil {
		t.Fatalf("LoadPhoto: %v", err)
	}
	return e
}

func TestFilterThenExportWaitsForBake(t *testing.T) {
	e := newEditor(t, testConfig())
	var baked atomic.Bool
	e.bakeFunc = func(_ context.Context, p *photo.Photo, f filter.Spec) *image.RGBA {
		time.Sleep(50 * time.Millisecond)
		baked.Store(true)
		return filter.Paint(p.Image, f)
	}

	if err := e.SetFilter("Juno"); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	bs, err := e.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !baked.Load() {
		t.Fatalf("export finished before the Juno bake")
	}
	if e.Scene().Snapshot().Filtered == nil {
		t.Fatalf("no baked raster after export")
	}

	want, err := export.DirectCapture{Density: 3}.Render(context.Background(), e.Scene())
	if err != nil {
		t.Fatalf("direct: %v", err)
	}
	if !bytes.Equal(bs, want) {
		t.Errorf("export does not match a capture of the baked scene")
	}
}

func TestWaitTimesOut(t *testing.T) {
	e := newEditor(t, testConfig())
	release := make(chan struct{})
	defer close(release)
	e.bakeFunc = func(_ context.Context, p *photo.Photo, f filter.Spec) *image.RGBA {
		<-release
		return nil
	}
	if err := e.SetFilter("Moon"); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.Wait(ctx)
	if !errors.Is(err, ErrNotReady) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want ErrNotReady deadline", err)
	}
}

func TestWaitFollowsSupersededBake(t *testing.T) {
	e := newEditor(t, testConfig())
	e.bakeFunc = func(_ context.Context, p *photo.Photo, f filter.Spec) *image.RGBA {
		time.Sleep(30 * time.Millisecond)
		return filter.Paint(p.Image, f)
	}

	for _, name := range []string{"Juno", "Moon"} {
		if err := e.SetFilter(name); err != nil {
			t.Fatalf("SetFilter(%s): %v", name, err)
		}
	}
	if err := e.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	snap := e.Scene().Snapshot()
	if snap.Filter.Name != "Moon" || snap.Filtered == nil {
		t.Fatalf("after wait: filter %s, baked=%v", snap.Filter.Name, snap.Filtered != nil)
	}
	r, g, b, _ := snap.Filtered.At(60, 40).RGBA()
	if r != g || g != b {
		t.Errorf("Moon raster is not grey: %d,%d,%d", r, g, b)
	}
}

func TestPaintTimeFilterOnUnsupportedPlatform(t *testing.T) {
	c := testConfig()
	c.Device = probe.Device{
		UserAgent:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
		Touch:       true,
		ScreenWidth: 390,
	}
	e := newEditor(t, c)
	if e.Capabilities().SupportsRasterFilterBaking {
		t.Fatalf("iOS probe reports filter baking support")
	}

	if err := e.SetFilter("Moon"); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	bs, err := e.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if e.Scene().Snapshot().Filtered != nil {
		t.Errorf("baked raster produced on an unsupported platform")
	}

	img, err := png.Decode(bytes.NewReader(bs))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 840 || b.Dy() != 560 {
		t.Errorf("export bounds = %v, want 840x560", b)
	}
	// top-left corner is photo, outside the overlay
	r, g, bl, _ := img.At(2, 2).RGBA()
	if r != g || g != bl {
		t.Errorf("paint-time Moon not applied: %d,%d,%d", r>>8, g>>8, bl>>8)
	}
}

func TestMonthNavigation(t *testing.T) {
	e := newEditor(t, testConfig())
	if err := e.SetMonth(11, 2024); err != nil {
		t.Fatalf("SetMonth: %v", err)
	}

	tests := []struct {
		delta int
		month int
		year  int
	}{
		{1, 0, 2025},
		{-1, 11, 2024},
		{-12, 11, 2023},
		{13, 0, 2025},
	}
	for _, tc := range tests {
		s := e.ShiftMonth(tc.delta)
		if s.Month != tc.month || s.Year != tc.year {
			t.Errorf("ShiftMonth(%d) = %d/%d, want %d/%d", tc.delta, s.Month, s.Year, tc.month, tc.year)
		}
	}

	if err := e.SetMonth(12, 2024); err == nil {
		t.Errorf("SetMonth(12) succeeded")
	}
	if err := e.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if st := e.State(); st.MonthName != "January" || st.Year != 2025 || st.UsedFont == "" {
		t.Errorf("state = %+v", st)
	}
}

func TestLoadPhotoFailureKeepsPrevious(t *testing.T) {
	e := newEditor(t, testConfig())
	before := e.Scene().Photo()

	if err := e.LoadPhoto([]byte("definitely not an image")); err == nil {
		t.Fatalf("LoadPhoto accepted garbage")
	}
	if e.Scene().Photo() != before {
		t.Errorf("failed load replaced the photo")
	}
}

func TestUnknownSelections(t *testing.T) {
	e := newEditor(t, testConfig())
	if err := e.SetFilter("Polaroid"); err == nil {
		t.Errorf("SetFilter accepted an unknown filter")
	}
	if err := e.SetFont("Comic Sans"); err == nil {
		t.Errorf("SetFont accepted an unknown font")
	}
	if err := e.SetColor("chartreuse"); err == nil {
		t.Errorf("SetColor accepted a non-hex colour")
	}
	if err := e.SetFont("Go Mono"); err != nil {
		t.Errorf("SetFont(Go Mono): %v", err)
	}
	if err := e.SetColor("#336699"); err != nil {
		t.Errorf("SetColor: %v", err)
	}
	if s := e.State(); s.Font != "Go Mono" || s.Color != "#336699" {
		t.Errorf("state = %+v", s)
	}
}

func TestExportWithoutPhoto(t *testing.T) {
	e, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = e.Export(context.Background())
	if !errors.Is(err, export.ErrExportFailed) || !errors.Is(err, export.ErrNoStage) {
		t.Errorf("Export = %v, want ErrNoStage", err)
	}
}

func TestConfiguredFallbackFont(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Broken.ttf"), []byte("not a font"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c := testConfig()
	c.FontDir = dir
	c.DefaultFont = "Go Mono"
	e := newEditor(t, c)

	if err := e.SetFont("Broken"); err != nil {
		t.Fatalf("SetFont: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if st := e.State(); st.Font != "Broken" || st.UsedFont != "Go Mono" {
		t.Errorf("font = %q, used = %q, want Broken drawn as Go Mono", st.Font, st.UsedFont)
	}
}
