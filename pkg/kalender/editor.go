// Package kalender ties the calendar, filter, scene and export components into one editor.
package kalender

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/tstromberg/kalender/pkg/calendar"
	"github.com/tstromberg/kalender/pkg/export"
	"github.com/tstromberg/kalender/pkg/filter"
	"github.com/tstromberg/kalender/pkg/gesture"
	"github.com/tstromberg/kalender/pkg/photo"
	"github.com/tstromberg/kalender/pkg/probe"
	"github.com/tstromberg/kalender/pkg/scene"
)

// ErrNotReady means a derived raster did not finish before the wait ended.
var ErrNotReady = errors.New("derived rasters not ready")

// slot tracks the newest job producing one derived raster.
type slot struct {
	gen  uint64
	done chan struct{}
	err  error
}

func (s *slot) start() (uint64, chan struct{}) {
	s.gen++
	s.done = make(chan struct{})
	s.err = nil
	return s.gen, s.done
}

// Editor is the editing session for one photo: calendar options, filter,
// overlay transform and export.
type Editor struct {
	c       *Config
	caps    probe.Capabilities
	scene   *scene.Scene
	fonts   *calendar.Fonts
	raster  *calendar.Rasterizer
	engine  *filter.Engine
	control *gesture.Controller
	comp    *export.Compositor

	// bakeFunc produces filtered rasters; replaced in tests.
	bakeFunc func(context.Context, *photo.Photo, filter.Spec) *image.RGBA

	mu       sync.Mutex
	spec     calendar.Spec
	usedFont string
	bake     slot
	calendar slot
}

// New returns an editor for c. The first calendar render starts immediately.
func New(c *Config) (*Editor, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	fg, err := calendar.ParseColor(c.Color)
	if err != nil {
		return nil, err
	}
	bg, err := calendar.ParseColor(c.Background)
	if err != nil {
		return nil, err
	}
	fonts, err := calendar.NewFonts(c.FontDir, c.DefaultFont, c.FontTimeout)
	if err != nil {
		return nil, fmt.Errorf("fonts: %w", err)
	}

	caps := probe.Probe(c.Device)
	klog.Infof("device capabilities: %+v", caps)

	e := &Editor{
		c:      c,
		caps:   caps,
		fonts:  fonts,
		raster: calendar.NewRasterizer(fonts, c.Supersample),
		engine: filter.NewEngine(caps),
		scene:  scene.New(caps, c.Viewport),
		spec:   calendar.ForTime(time.Now(), c.DefaultFont, fg),
	}
	e.bakeFunc = e.engine.Apply
	e.control = gesture.New(e.scene)
	e.comp = export.New(e.scene, e, caps, export.Options{
		Settle:      c.SettleDelay,
		LoadTimeout: c.LoadTimeout,
		MinBytes:    c.MinExportBytes,
		Background:  bg,
	})

	f, _ := filter.Lookup(c.Filter)
	e.scene.SetFilter(f)

	e.mu.Lock()
	e.renderLocked()
	e.mu.Unlock()
	return e, nil
}

// Capabilities returns the probe result for the configured device.
func (e *Editor) Capabilities() probe.Capabilities {
	return e.caps
}

// Scene returns the scene model.
func (e *Editor) Scene() *scene.Scene {
	return e.scene
}

// Controller returns the gesture controller driving the overlay.
func (e *Editor) Controller() *gesture.Controller {
	return e.control
}

// Fonts returns the selectable font names.
func (e *Editor) Fonts() []string {
	return e.fonts.Names()
}

// Calendar returns the current calendar spec.
func (e *Editor) Calendar() calendar.Spec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spec
}

// LoadPhoto decodes bs and replaces the photo. On failure the previous photo is kept.
func (e *Editor) LoadPhoto(bs []byte) error {
	p, err := photo.Decode(bs)
	if err != nil {
		klog.Errorf("photo not loaded: %v", err)
		return fmt.Errorf("load photo: %w", err)
	}
	klog.Infof("loaded %s photo %dx%d", p.Format, p.Width, p.Height)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene.SetPhoto(p)
	e.bakeLocked()
	return nil
}

// SetFilter selects a filter from the catalog by name.
func (e *Editor) SetFilter(name string) error {
	f, ok := filter.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown filter %q", name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene.SetFilter(f)
	e.bakeLocked()
	return nil
}

// SetFont selects a font from the catalog by name.
func (e *Editor) SetFont(name string) error {
	if !e.fonts.Has(name) {
		return fmt.Errorf("unknown font %q", name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spec.Font = name
	e.renderLocked()
	return nil
}

// SetColor sets the calendar font colour from a "#rrggbb" string.
func (e *Editor) SetColor(hex string) error {
	c, err := calendar.ParseColor(hex)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spec.Color = c
	e.renderLocked()
	return nil
}

// SetMonth jumps to a zero-based month and year.
func (e *Editor) SetMonth(month, year int) error {
	if month < 0 || month > 11 {
		return fmt.Errorf("month %d out of range [0,11]", month)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spec.Month, e.spec.Year = month, year
	e.renderLocked()
	return nil
}

// ShiftMonth moves the calendar by delta months and returns the new spec.
func (e *Editor) ShiftMonth(delta int) calendar.Spec {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spec.Month, e.spec.Year = calendar.Shift(e.spec.Month, e.spec.Year, delta)
	e.renderLocked()
	return e.spec
}

// SetViewport reacts to a viewport resize; the overlay is recentered.
func (e *Editor) SetViewport(vp scene.Viewport) {
	e.scene.SetViewport(vp)
}

// Export waits for pending rasters and returns the flattened PNG.
// Callers must not run two exports at once.
func (e *Editor) Export(ctx context.Context) ([]byte, error) {
	return e.comp.Export(ctx)
}

// Preview renders the stage as displayed, including selection handles.
func (e *Editor) Preview() ([]byte, error) {
	img, err := e.scene.Render(1)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	return photo.EncodePNG(img)
}

// Wait blocks until the newest filter bake and calendar render have finished.
// Jobs superseded while waiting are followed to their replacements.
func (e *Editor) Wait(ctx context.Context) error {
	for {
		e.mu.Lock()
		bgen, bdone := e.bake.gen, e.bake.done
		cgen, cdone := e.calendar.gen, e.calendar.done
		e.mu.Unlock()

		g, gctx := errgroup.WithContext(ctx)
		for _, done := range []chan struct{}{bdone, cdone} {
			g.Go(func() error {
				return await(gctx, done)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		}

		e.mu.Lock()
		current := bgen == e.bake.gen && cgen == e.calendar.gen
		err := e.calendar.err
		e.mu.Unlock()
		if current {
			return err
		}
		klog.V(1).Infof("derived rasters changed while waiting, waiting again")
	}
}

func await(ctx context.Context, done chan struct{}) error {
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// renderLocked starts a calendar render for the current spec.
func (e *Editor) renderLocked() {
	gen, done := e.calendar.start()
	s := e.spec
	klog.V(1).Infof("rendering calendar %s (#%d)", s, gen)

	go func() {
		defer close(done)
		r, err := e.raster.Render(context.Background(), s)

		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.calendar.gen {
			klog.V(1).Infof("discarding stale calendar %s", s)
			return
		}
		if err != nil {
			klog.Errorf("calendar %s: %v", s, err)
			e.calendar.err = fmt.Errorf("render calendar: %w", err)
			return
		}
		e.usedFont = r.Font
		e.scene.SetCalendar(r.Image)
	}()
}

// bakeLocked starts a filter bake for the current photo and filter.
func (e *Editor) bakeLocked() {
	gen, done := e.bake.start()
	p, f := e.scene.Photo(), e.scene.Filter()
	if p == nil || f.IsNone() || !e.engine.CanBake() {
		close(done)
		return
	}
	klog.V(1).Infof("baking %s (#%d)", f.Name, gen)

	go func() {
		defer close(done)
		img := e.bakeFunc(context.Background(), p, f)
		if img == nil {
			return
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.bake.gen {
			klog.V(1).Infof("discarding stale %s bake", f.Name)
			return
		}
		e.scene.SetFiltered(p, f, img)
	}()
}

// State is a serializable summary of the editor.
type State struct {
	Month     int      `json:"month"`
	Year      int      `json:"year"`
	MonthName string   `json:"month_name"`
	Font      string   `json:"font"`
	UsedFont  string   `json:"used_font,omitempty"`
	Color     string   `json:"color"`
	Filter    string   `json:"filter"`
	FilterCSS string   `json:"filter_css,omitempty"`
	HasPhoto  bool     `json:"has_photo"`
	Stage     Size     `json:"stage"`
	Overlay   Box      `json:"overlay"`
	Selected  bool     `json:"selected"`
	Exporting bool     `json:"exporting"`
	Mobile    bool     `json:"mobile"`
	Density   int      `json:"density"`
	Fonts     []string `json:"fonts"`
	Filters   []string `json:"filters"`
}

// Size is a stage size.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Box is the overlay transform.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// State returns a summary of the current session.
func (e *Editor) State() State {
	e.mu.Lock()
	s, used := e.spec, e.usedFont
	e.mu.Unlock()

	f := e.scene.Filter()
	st := e.scene.Stage()
	o := e.scene.Overlay()
	_, selected := e.scene.Selected()

	return State{
		Month:     s.Month,
		Year:      s.Year,
		MonthName: calendar.MonthName(s.Month),
		Font:      s.Font,
		UsedFont:  used,
		Color:     calendar.Hex(s.Color),
		Filter:    f.Name,
		FilterCSS: f.CSS(),
		HasPhoto:  e.scene.Photo() != nil,
		Stage:     Size{W: st.W, H: st.H},
		Overlay:   Box{X: o.X, Y: o.Y, W: o.W, H: o.H},
		Selected:  selected,
		Exporting: e.scene.Exporting(),
		Mobile:    e.caps.Mobile,
		Density:   e.caps.RecommendedExportPixelDensity,
		Fonts:     e.fonts.Names(),
		Filters:   filter.Names(),
	}
}
