// Package export flattens the scene into a single high-resolution PNG.
package export

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/kalender/pkg/probe"
)

var (
	// ErrExportFailed wraps every error surfaced by Export.
	ErrExportFailed = errors.New("export failed")
	// ErrNoStage means there is no photo on the stage to export.
	ErrNoStage = errors.New("no stage to export")
)

// DefaultMinBytes is the size floor below which a manual composite is treated as a failed render.
const DefaultMinBytes = 10 * 1024

// Waiter blocks until the derived rasters an export needs are current.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Options tune an export.
type Options struct {
	// Settle is the pause after deselecting so the UI drops its handles.
	Settle      time.Duration
	// LoadTimeout bounds the wait for derived rasters.
	LoadTimeout time.Duration
	// MinBytes is the plausibility floor for manual composites.
	MinBytes    int
	Background  color.Color
}

// Compositor produces flattened exports by trying an ordered list of strategies.
// It does not guard against concurrent calls; callers gate re-entry.
type Compositor struct {
	stage      Stage
	ready      Waiter
	caps       probe.Capabilities
	opts       Options
	strategies []Strategy
}

// New returns a compositor for stage. ready may be nil.
func New(stage Stage, ready Waiter, caps probe.Capabilities, opts Options) *Compositor {
	if opts.MinBytes <= 0 {
		opts.MinBytes = DefaultMinBytes
	}
	return &Compositor{
		stage:      stage,
		ready:      ready,
		caps:       caps,
		opts:       opts,
		strategies: Strategies(caps, opts),
	}
}

// WithStrategies replaces the strategy list.
func (c *Compositor) WithStrategies(ss ...Strategy) *Compositor {
	c.strategies = ss
	return c
}

// Strategies returns the default order: the manual composite where it applies,
// then a direct capture, then a direct capture at reduced density.
func Strategies(caps probe.Capabilities, opts Options) []Strategy {
	d := float64(caps.RecommendedExportPixelDensity)
	if d < 1 {
		d = 1
	}
	return []Strategy{
		ManualComposite{Density: d, MaxDim: caps.MaxCanvasDimension, Background: opts.Background, MinBytes: opts.MinBytes},
		DirectCapture{Density: d},
		DirectCapture{Density: reduced(d)},
	}
}

func reduced(d float64) float64 {
	return math.Max(1, math.Floor(d/2))
}

// Export returns the flattened image as PNG bytes. The selection is cleared
// for the duration of the export and restored afterwards on every path.
func (c *Compositor) Export(ctx context.Context) ([]byte, error) {
	start := time.Now()
	if c.stage == nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, ErrNoStage)
	}

	if c.ready != nil {
		wctx := ctx
		if c.opts.LoadTimeout > 0 {
			var cancel context.CancelFunc
			wctx, cancel = context.WithTimeout(ctx, c.opts.LoadTimeout)
			defer cancel()
		}
		if err := c.ready.Wait(wctx); err != nil {
			return nil, fmt.Errorf("%w: rasters not ready: %w", ErrExportFailed, err)
		}
	}

	snap := c.stage.Snapshot()
	if snap.Photo == nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, ErrNoStage)
	}
	if snap.Calendar == nil {
		return nil, fmt.Errorf("%w: calendar has not been rendered", ErrExportFailed)
	}

	restore := c.stage.BeginExport()
	defer restore()

	if err := settle(ctx, c.opts.Settle); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	var errs []error
	for _, s := range c.strategies {
		if !s.Applies(c.caps) {
			klog.V(1).Infof("export: %s does not apply", s.Name())
			continue
		}
		bs, err := s.Render(ctx, c.stage)
		if err != nil {
			klog.Warningf("export: %s failed: %v", s.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			if errors.Is(err, ErrNoStage) || ctx.Err() != nil {
				break
			}
			continue
		}
		if !s.Accept(bs) {
			errs = append(errs, fmt.Errorf("%s: rejected %d byte output", s.Name(), len(bs)))
			continue
		}
		klog.Infof("export: %s produced %d bytes in %s", s.Name(), len(bs), time.Since(start))
		return bs, nil
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no strategy applies"))
	}
	return nil, fmt.Errorf("%w: %w", ErrExportFailed, errors.Join(errs...))
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
