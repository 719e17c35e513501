package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"k8s.io/klog/v2"

	"github.com/fsnotify/fsnotify"
	"github.com/otiai10/copy"
	"github.com/tstromberg/kalender/pkg/kalender"
	"github.com/tstromberg/kalender/pkg/manage"
)

var (
	configPath  = flag.String("config", "", "YAML config file")
	photoPath   = flag.String("photo", "", "photo to put the calendar on")
	outPath     = flag.String("out", "", "where to write the exported PNG (default: kalender-<Month>-<Year>.png)")
	month       = flag.Int("month", 0, "month to show, 1-12 (default: current month)")
	year        = flag.Int("year", 0, "year to show (default: current year)")
	fontName    = flag.String("font", "", "calendar font")
	fontDir     = flag.String("font-dir", "", "directory of extra .ttf/.otf fonts")
	fontColor   = flag.String("color", "", "calendar font colour, #rrggbb")
	filterName  = flag.String("filter", "", "photo filter")
	userAgent   = flag.String("ua", "", "device user agent to probe")
	touch       = flag.Bool("touch", false, "device supports touch")
	screenWidth = flag.Int("screen-width", 0, "device screen width in CSS pixels")
	vpWidth     = flag.Float64("viewport-width", 0, "viewport width the stage must fit in")
	vpHeight    = flag.Float64("viewport-height", 0, "viewport height the stage must fit in")
	publish     = flag.String("publish", "", "comma-separated directories to copy the export into")
	listFlag    = flag.Bool("list", false, "list fonts and filters, then exit")
	listen      = flag.Bool("listen", false, "serve the editor via HTTP")
	addr        = flag.String("addr", "localhost:12800", "host:port to bind to in listen mode")
	watchFlag   = flag.Bool("watch", false, "watch --photo for changes and re-export")
)

func config() (*kalender.Config, error) {
	c := kalender.DefaultConfig()
	if *configPath != "" {
		var err error
		c, err = kalender.LoadConfig(*configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if *fontDir != "" {
		c.FontDir = *fontDir
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
	if *userAgent != "" {
		c.Device.UserAgent = *userAgent
	}
	if *touch {
		c.Device.Touch = true
	}
	if *screenWidth > 0 {
		c.Device.ScreenWidth = *screenWidth
	}
	if *vpWidth > 0 && *vpHeight > 0 {
		c.Viewport.Width, c.Viewport.Height = *vpWidth, *vpHeight
	}
	return c, c.Validate()
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	c, err := config()
	if err != nil {
		klog.Exitf("config: %v", err)
	}

	e, err := kalender.New(c)
	if err != nil {
		klog.Exitf("editor: %v", err)
	}

	if *listFlag {
		st := e.State()
		fmt.Printf("fonts:   %s\n", strings.Join(st.Fonts, ", "))
		fmt.Printf("filters: %s\n", strings.Join(st.Filters, ", "))
		return
	}

	if *month != 0 || *year != 0 {
		cur := e.Calendar()
		m, y := cur.Month, cur.Year
		if *month != 0 {
			m = *month - 1
		}
		if *year != 0 {
			y = *year
		}
		if err := e.SetMonth(m, y); err != nil {
			klog.Exitf("month: %v", err)
		}
	}

	if *photoPath == "" && !*listen {
		klog.Exitf("--photo or --listen is required")
	}

	if *photoPath != "" {
		if err := render(e); err != nil {
			klog.Exitf("export failed: %v", err)
		}
	}

	var wg sync.WaitGroup
	if *watchFlag && *photoPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watch(e, *photoPath); err != nil {
				klog.Errorf("watch: %v", err)
			}
		}()
	}

	if *listen {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(e, *addr)
		}()
	}

	wg.Wait()
}

// render loads the photo, exports it and publishes the result.
func render(e *kalender.Editor) error {
	bs, err := os.ReadFile(*photoPath)
	if err != nil {
		return fmt.Errorf("read photo: %w", err)
	}
	if err := e.LoadPhoto(bs); err != nil {
		return err
	}

	png, err := e.Export(context.Background())
	if err != nil {
		return err
	}

	out := *outPath
	if out == "" {
		st := e.State()
		out = manage.Filename(st.MonthName, st.Year)
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	klog.Infof("wrote %s (%d bytes)", out, len(png))

	if *publish == "" {
		return nil
	}
	for _, dir := range strings.Split(*publish, ",") {
		dst := filepath.Join(strings.TrimSpace(dir), filepath.Base(out))
		if err := copy.Copy(out, dst); err != nil {
			return fmt.Errorf("publish to %s: %w", dir, err)
		}
		klog.Infof("published %s", dst)
	}
	return nil
}

// serve serves the editor via HTTP
func serve(e *kalender.Editor, addr string) {
	klog.Infof("Listening on %s...", addr)
	err := http.ListenAndServe(addr, manage.New(e).Handler())
	if err != nil {
		klog.Exitf("listen failed: %v", err)
	}
}

// watch re-exports whenever the photo changes
func watch(e *kalender.Editor, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	// editors often replace the file rather than write it, so watch the directory
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	klog.Infof("watching %s ...", path)

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			klog.V(1).Infof("event: %s", event)
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := render(e); err != nil {
					klog.Errorf("re-export failed: %v", err)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}
