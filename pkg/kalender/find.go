package kalender

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

var exifDate = "2006:01:02 15:04:05"

var photoExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// Source is a photo found on disk.
type Source struct {
	InPath  string
	RelPath string
	ModTime time.Time
	// Taken is zero when the photo carries no usable capture date.
	Taken time.Time
}

// When returns the capture date, or fallback if there is none.
func (s *Source) When(fallback time.Time) time.Time {
	if s.Taken.IsZero() {
		return fallback
	}
	return s.Taken
}

// taken reads DateTimeOriginal from the photo's metadata.
func taken(path string, et *exiftool.Exiftool) (time.Time, error) {
	fi := et.ExtractMetadata(path)[0]
	if fi.Err != nil {
		return time.Time{}, fmt.Errorf("extract fail for %q: %w", path, fi.Err)
	}

	ds, err := fi.GetString("DateTimeOriginal")
	if err != nil {
		klog.V(1).Infof("unable to get date time for %s: %v", path, err)
		return time.Time{}, nil
	}

	t, err := time.Parse(exifDate, ds)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", ds, err)
	}
	return t, nil
}

// Find walks root for photos, skipping dot files. Capture dates are read with
// exiftool when it is installed.
func Find(root string) ([]*Source, error) {
	found := []*Source{}

	et, err := exiftool.NewExiftool()
	if err != nil {
		klog.Warningf("exiftool unavailable, capture dates will be skipped: %v", err)
		et = nil
	} else {
		defer et.Close()
	}

	err = godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != root && filepath.Base(path)[0] == '.' {
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}
			if de.IsDir() || !photoExts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			klog.V(1).Infof("found %s", path)
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			s := &Source{InPath: path, RelPath: rel}

			fi, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat: %w", err)
			}
			s.ModTime = fi.ModTime()

			if et != nil {
				s.Taken, err = taken(path, et)
				if err != nil {
					klog.Warningf("no capture date for %s: %v", path, err)
				}
			}

			found = append(found, s)
			return nil
		},
	})
	if err != nil {
		return found, fmt.Errorf("walk %s: %w", root, err)
	}
	return found, nil
}
