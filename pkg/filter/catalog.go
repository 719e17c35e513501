// Package filter implements the Instagram-style filter catalog and its two application paths.
package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Op is a single colour operation.
type Op int

// Operations in the order the paint pipeline applies them.
const (
	Contrast Op = iota
	Saturate
	Brightness
	HueRotate
	Sepia
)

var opNames = map[Op]string{
	Contrast:   "contrast",
	Saturate:   "saturate",
	Brightness: "brightness",
	HueRotate:  "hue-rotate",
	Sepia:      "sepia",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Step is one {operation, parameter} pair. HueRotate values are degrees,
// the rest are CSS-style factors where 1 (or 0 for Sepia) is the identity.
type Step struct {
	Op    Op
	Value float64
}

func (s Step) String() string {
	v := strconv.FormatFloat(s.Value, 'f', -1, 64)
	if s.Op == HueRotate {
		v += "deg"
	}
	return fmt.Sprintf("%s(%s)", s.Op, v)
}

// Spec is an immutable catalog entry.
type Spec struct {
	Name  string
	Steps []Step
}

// None is the identity filter.
var None = Spec{Name: "None"}

// IsNone reports whether the filter leaves pixels untouched.
func (s Spec) IsNone() bool {
	return len(s.Steps) == 0
}

// CSS renders the composed transform string, e.g. "contrast(1.2) saturate(1.35)".
func (s Spec) CSS() string {
	if s.IsNone() {
		return "none"
	}
	parts := make([]string, 0, len(s.Steps))
	for _, st := range s.Steps {
		parts = append(parts, st.String())
	}
	return strings.Join(parts, " ")
}

func spec(name string, steps ...Step) Spec {
	// steps are kept in pipeline order regardless of how an entry is written
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Op < steps[j].Op })
	return Spec{Name: name, Steps: steps}
}

var catalog = []Spec{
	None,
	spec("Clarendon", Step{Contrast, 1.2}, Step{Saturate, 1.35}),
	spec("Gingham", Step{Brightness, 1.05}, Step{HueRotate, -10}),
	spec("Juno", Step{Contrast, 1.15}, Step{Saturate, 1.8}, Step{Sepia, 0.35}),
	spec("Lark", Step{Contrast, 0.9}, Step{Saturate, 1.1}, Step{Brightness, 1.1}),
	spec("Ludwig", Step{Contrast, 1.05}, Step{Saturate, 0.9}, Step{Brightness, 1.05}),
	spec("Moon", Step{Contrast, 1.1}, Step{Saturate, 0}, Step{Brightness, 1.1}),
	spec("Reyes", Step{Contrast, 0.85}, Step{Saturate, 0.75}, Step{Brightness, 1.1}, Step{Sepia, 0.22}),
	spec("Valencia", Step{Contrast, 1.08}, Step{Brightness, 1.08}, Step{Sepia, 0.08}),
	spec("Xpro2", Step{Contrast, 1.3}, Step{Saturate, 1.4}, Step{Brightness, 0.9}, Step{Sepia, 0.3}),
	spec("Aden", Step{Contrast, 0.9}, Step{Saturate, 0.85}, Step{Brightness, 1.2}, Step{HueRotate, -20}),
	spec("Nashville", Step{Contrast, 1.2}, Step{Saturate, 1.2}, Step{Brightness, 1.05}, Step{Sepia, 0.2}),
	spec("Toaster", Step{Contrast, 1.5}, Step{Brightness, 0.9}, Step{HueRotate, -30}),
}

// Catalog returns every filter in display order.
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns the catalog names in display order.
func Names() []string {
	ns := make([]string, 0, len(catalog))
	for _, s := range catalog {
		ns = append(ns, s.Name)
	}
	return ns
}

// Lookup finds a filter by case-insensitive name. The empty name is None.
func Lookup(name string) (Spec, bool) {
	if name == "" {
		return None, true
	}
	for _, s := range catalog {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return None, false
}
