// Package probe turns coarse device signals into a rendering capability set.
package probe

import (
	"strings"

	"k8s.io/klog/v2"
)

const (
	// MaxCanvasDimension is the hard ceiling for either side of an off-screen bitmap.
	MaxCanvasDimension = 4096

	desktopDensity = 3
	desktopArea    = 16384 * 16384

	// mobile WebKit refuses canvases above ~16.7 megapixels
	mobileArea = 4096 * 4096
)

// Device holds the raw signals reported by a client.
type Device struct {
	UserAgent   string `yaml:"user_agent"`
	Touch       bool   `yaml:"touch"`
	ScreenWidth int    `yaml:"screen_width"`
}

// Capabilities is computed once per device; downstream code branches only on these fields.
type Capabilities struct {
	SupportsRasterFilterBaking    bool
	RecommendedExportPixelDensity int
	MaxCanvasDimension            int
	MaxCanvasArea                 int
	Mobile                        bool
}

// Desktop returns the capabilities of a capable desktop renderer.
func Desktop() Capabilities {
	return Capabilities{
		SupportsRasterFilterBaking:    true,
		RecommendedExportPixelDensity: desktopDensity,
		MaxCanvasDimension:            MaxCanvasDimension,
		MaxCanvasArea:                 desktopArea,
	}
}

var mobileMarkers = []string{"iphone", "ipad", "ipod", "android", "mobile"}

// Probe derives capabilities from device signals.
func Probe(d Device) Capabilities {
	ua := strings.ToLower(d.UserAgent)
	c := Desktop()

	mobile := d.Touch && containsAny(ua, mobileMarkers)
	if !mobile {
		klog.V(1).Infof("probe: desktop renderer for %q", d.UserAgent)
		return c
	}

	c.Mobile = true
	c.MaxCanvasArea = mobileArea
	c.RecommendedExportPixelDensity = mobileDensity(d.ScreenWidth)
	c.SupportsRasterFilterBaking = !unreliableFilterBaking(ua)

	klog.V(1).Infof("probe: mobile renderer for %q: %+v", d.UserAgent, c)
	return c
}

// mobileDensity escalates the export multiplier as the screen gets narrower.
func mobileDensity(screenWidth int) int {
	switch {
	case screenWidth <= 0:
		return 6
	case screenWidth <= 375:
		return 8
	case screenWidth <= 480:
		return 7
	default:
		return 6
	}
}

// unreliableFilterBaking reports vendor combinations whose canvas filter support is broken.
func unreliableFilterBaking(ua string) bool {
	// iOS WebKit ignores ctx.filter entirely, regardless of the browser shell
	if containsAny(ua, []string{"iphone", "ipad", "ipod"}) && strings.Contains(ua, "applewebkit") {
		return true
	}
	// Samsung Internet bakes filters with the wrong colour space
	if strings.Contains(ua, "android") && strings.Contains(ua, "samsungbrowser") {
		return true
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
