// batch exports one calendar per photo in a directory tree, using the
// month each photo was taken.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/kalender/pkg/calendar"
	"github.com/tstromberg/kalender/pkg/kalender"
	"github.com/tstromberg/kalender/pkg/photo"
)

var (
	inDir      = flag.String("in", "", "Location of input directory")
	outDir     = flag.String("out", "", "Location of output directory")
	configPath = flag.String("config", "", "YAML config file")
	fontName   = flag.String("font", "", "calendar font")
	fontColor  = flag.String("color", "", "calendar font colour, #rrggbb")
	filterName = flag.String("filter", "", "photo filter")
	dryRun     = flag.Bool("dry-run", false, "print what would be exported")
	force      = flag.Bool("force", false, "re-export even when the export is newer than the photo")
	thumbs     = flag.Bool("thumbs", false, "write a JPEG thumbnail next to each export")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *inDir == "" {
		klog.Exitf("--in is a required flag")
	}

	if *outDir == "" {
		klog.Exitf("--out is a required flag")
	}

	c := kalender.DefaultConfig()
	if *configPath != "" {
		var err error
		c, err = kalender.LoadConfig(*configPath)
		if err != nil {
			klog.Exitf("config: %v", err)
		}
	}
	if *fontName != "" {
		c.DefaultFont = *fontName
	}
	if *fontColor != "" {
		c.Color = *fontColor
	}
	if *filterName != "" {
		c.Filter = *filterName
	}

	srcs, err := kalender.Find(*inDir)
	if err != nil {
		klog.Exitf("find: %v", err)
	}
	klog.Infof("found %d photos in %s", len(srcs), *inDir)

	e, err := kalender.New(c)
	if err != nil {
		klog.Exitf("editor: %v", err)
	}

	now := time.Now()
	failed := 0
	for _, s := range srcs {
		out := outPath(s, *outDir)
		t := s.When(now)
		if !*force && kalender.UpToDate(s.InPath, out) {
			klog.V(1).Infof("%s is up to date", out)
			continue
		}
		if *dryRun {
			fmt.Printf("%s -> %s (%s %d)\n", s.RelPath, out, t.Month(), t.Year())
			continue
		}
		if err := export(e, s, t, out); err != nil {
			klog.Errorf("%s: %v", s.RelPath, err)
			failed++
		}
	}

	if failed > 0 {
		klog.Exitf("%d of %d exports failed", failed, len(srcs))
	}
}

func outPath(s *kalender.Source, dir string) string {
	base := strings.TrimSuffix(s.RelPath, filepath.Ext(s.RelPath))
	return filepath.Join(dir, base+"-kalender.png")
}

func export(e *kalender.Editor, s *kalender.Source, t time.Time, out string) error {
	m, y := int(t.Month())-1, t.Year()
	if err := e.SetMonth(m, y); err != nil {
		return err
	}

	bs, err := os.ReadFile(s.InPath)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := e.LoadPhoto(bs); err != nil {
		return err
	}

	png, err := e.Export(context.Background())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	klog.Infof("%s -> %s (%s %d)", s.RelPath, out, calendar.MonthName(m), y)

	if !*thumbs {
		return nil
	}
	p, err := photo.Decode(png)
	if err != nil {
		return fmt.Errorf("decode export: %w", err)
	}
	if _, err := kalender.Thumbnail(p.Image, kalender.ThumbPath(out, kalender.DefaultThumb), kalender.DefaultThumb); err != nil {
		return fmt.Errorf("thumbnail: %w", err)
	}
	return nil
}
