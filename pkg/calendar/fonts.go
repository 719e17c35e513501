package calendar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"
)

// DefaultFont is the built-in fallback, used when no other fallback is
// configured or the configured one cannot be loaded either.
const DefaultFont = "Go Bold"

var builtin = map[string][]byte{
	"Go":           goregular.TTF,
	"Go Medium":    gomedium.TTF,
	"Go Bold":      gobold.TTF,
	"Go Italic":    goitalic.TTF,
	"Go Mono":      gomono.TTF,
	"Go Smallcaps": gosmallcaps.TTF,
}

// Fonts is the fixed font catalog: the built-in Go family plus any
// TrueType/OpenType files found in a directory at construction time.
type Fonts struct {
	dir      string
	files    map[string]string
	fallback string
	timeout  time.Duration

	// readFile reads font files; replaced in tests.
	readFile func(string) ([]byte, error)

	mu     sync.Mutex
	parsed map[string]*opentype.Font
	group  singleflight.Group
}

// NewFonts scans dir (which may be empty) and returns the catalog. Fonts that
// fail or are not ready within timeout are replaced by fallback, which must be
// in the catalog. An empty fallback means DefaultFont.
func NewFonts(dir, fallback string, timeout time.Duration) (*Fonts, error) {
	if fallback == "" {
		fallback = DefaultFont
	}
	f := &Fonts{
		dir:      dir,
		files:    map[string]string{},
		fallback: fallback,
		timeout:  timeout,
		readFile: os.ReadFile,
		parsed:   map[string]*opentype.Font{},
	}
	if err := f.scan(); err != nil {
		return nil, err
	}
	if !f.Has(fallback) {
		return nil, fmt.Errorf("fallback font %q is not in the catalog", fallback)
	}
	return f, nil
}

func (f *Fonts) scan() error {
	if f.dir == "" {
		return nil
	}
	for _, ext := range []string{"ttf", "otf"} {
		ms, err := filepath.Glob(filepath.Join(f.dir, "*."+ext))
		if err != nil {
			return fmt.Errorf("glob: %w", err)
		}
		for _, m := range ms {
			name := strings.TrimSuffix(filepath.Base(m), filepath.Ext(m))
			f.files[name] = m
		}
	}
	klog.Infof("found %d fonts in %s", len(f.files), f.dir)
	return nil
}

// Fallback returns the font used in place of one that is unavailable.
func (f *Fonts) Fallback() string {
	return f.fallback
}

// Names returns every selectable font name, sorted.
func (f *Fonts) Names() []string {
	ns := []string{}
	for n := range builtin {
		ns = append(ns, n)
	}
	for n := range f.files {
		if _, ok := builtin[n]; !ok {
			ns = append(ns, n)
		}
	}
	sort.Strings(ns)
	return ns
}

// Has reports whether name is in the catalog.
func (f *Fonts) Has(name string) bool {
	if _, ok := builtin[name]; ok {
		return true
	}
	_, ok := f.files[name]
	return ok
}

// Face returns a face for name at size points. If the font fails to become
// ready within the configured timeout, the fallback font is used instead.
func (f *Fonts) Face(ctx context.Context, name string, size float64) (font.Face, string, error) {
	fnt, err := f.await(ctx, name)
	if err != nil && name != f.fallback {
		klog.Warningf("font %q unavailable, falling back to %s: %v", name, f.fallback, err)
		name = f.fallback
		fnt, err = f.await(ctx, name)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		klog.Warningf("font %q unavailable, falling back to %s: %v", name, DefaultFont, err)
		name = DefaultFont
		fnt, err = f.load(DefaultFont)
		if err != nil {
			return nil, "", fmt.Errorf("default font: %w", err)
		}
	}

	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, "", fmt.Errorf("new face: %w", err)
	}
	return face, name, nil
}

// await waits for name to be parsed, bounded by the catalog timeout.
func (f *Fonts) await(ctx context.Context, name string) (*opentype.Font, error) {
	if !f.Has(name) {
		return nil, fmt.Errorf("not in catalog")
	}

	ch := f.group.DoChan(name, func() (interface{}, error) {
		return f.load(name)
	})

	var timer <-chan time.Time
	if f.timeout > 0 {
		t := time.NewTimer(f.timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*opentype.Font), nil
	case <-timer:
		return nil, fmt.Errorf("not ready after %s", f.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Fonts) load(name string) (*opentype.Font, error) {
	f.mu.Lock()
	fnt, ok := f.parsed[name]
	f.mu.Unlock()
	if ok {
		return fnt, nil
	}

	bs, ok := builtin[name]
	if !ok {
		path, found := f.files[name]
		if !found {
			return nil, fmt.Errorf("unknown font %q", name)
		}
		var err error
		klog.V(1).Infof("loading font %q from %s", name, path)
		bs, err = f.readFile(path)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
	}

	fnt, err := opentype.Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", name, err)
	}

	f.mu.Lock()
	f.parsed[name] = fnt
	f.mu.Unlock()
	return fnt, nil
}
