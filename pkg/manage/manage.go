// Package manage provides HTTP handlers around a calendar editing session.
package manage

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"k8s.io/klog/v2"

	"github.com/tstromberg/kalender/pkg/kalender"
	"github.com/tstromberg/kalender/pkg/scene"
)

// MaxUpload bounds the photo upload body.
const MaxUpload = 32 << 20

// Server is a server for the calendar editor.
type Server struct {
	e *kalender.Editor
	// exporting gates re-entry; one export runs at a time.
	exporting atomic.Bool
}

// New creates a new server.
func New(e *kalender.Editor) *Server {
	return &Server{e: e}
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /state", s.StateHandler())
	mux.Handle("POST /photo", s.PhotoHandler())
	mux.Handle("POST /options", s.OptionsHandler())
	mux.Handle("POST /gesture", s.GestureHandler())
	mux.Handle("GET /preview", s.PreviewHandler())
	mux.Handle("POST /export", s.ExportHandler())
	return mux
}

func (s *Server) writeState(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.e.State()); err != nil {
		klog.Errorf("encode state: %v", err)
	}
}

func writePNG(w http.ResponseWriter, bs []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", fmt.Sprint(len(bs)))
	if _, err := w.Write(bs); err != nil {
		klog.Errorf("write png: %v", err)
	}
}

// StateHandler reports the editor state.
func (s *Server) StateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.writeState(w)
	}
}

// PhotoHandler replaces the photo with the request body.
func (s *Server) PhotoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bs, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUpload))
		if err != nil {
			http.Error(w, fmt.Sprintf("read upload: %v", err), http.StatusRequestEntityTooLarge)
			return
		}
		if err := s.e.LoadPhoto(bs); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		klog.Infof("photo uploaded: %d bytes", len(bs))
		s.writeState(w)
	}
}

// Options is the body of an options update. Nil fields are left unchanged.
type Options struct {
	Month    *int            `json:"month,omitempty"`
	Year     *int            `json:"year,omitempty"`
	Delta    int             `json:"delta,omitempty"`
	Font     *string         `json:"font,omitempty"`
	Color    *string         `json:"color,omitempty"`
	Filter   *string         `json:"filter,omitempty"`
	Viewport *scene.Viewport `json:"viewport,omitempty"`
}

func (s *Server) apply(o Options) error {
	if o.Month != nil || o.Year != nil {
		cur := s.e.Calendar()
		m, y := cur.Month, cur.Year
		if o.Month != nil {
			m = *o.Month
		}
		if o.Year != nil {
			y = *o.Year
		}
		if err := s.e.SetMonth(m, y); err != nil {
			return err
		}
	}
	if o.Delta != 0 {
		s.e.ShiftMonth(o.Delta)
	}
	if o.Font != nil {
		if err := s.e.SetFont(*o.Font); err != nil {
			return err
		}
	}
	if o.Color != nil {
		if err := s.e.SetColor(*o.Color); err != nil {
			return err
		}
	}
	if o.Filter != nil {
		if err := s.e.SetFilter(*o.Filter); err != nil {
			return err
		}
	}
	if o.Viewport != nil {
		s.e.SetViewport(*o.Viewport)
	}
	return nil
}

// OptionsHandler updates month, font, colour, filter or viewport.
func (s *Server) OptionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var o Options
		if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
			http.Error(w, fmt.Sprintf("decode options: %v", err), http.StatusBadRequest)
			return
		}
		if err := s.apply(o); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.writeState(w)
	}
}

// Gesture is one pointer event in stage coordinates.
type Gesture struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// GestureHandler feeds pointer events to the transform controller.
func (s *Server) GestureHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var g Gesture
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			http.Error(w, fmt.Sprintf("decode gesture: %v", err), http.StatusBadRequest)
			return
		}

		c := s.e.Controller()
		p := scene.Point{X: g.X, Y: g.Y}
		switch g.Type {
		case "down":
			c.PointerDown(p)
		case "move":
			c.PointerMove(p)
		case "up":
			c.PointerUp(p)
		case "tap":
			c.Tap(p)
		case "doubletap":
			c.DoubleTap(p)
		case "cancel":
			c.Cancel()
		default:
			http.Error(w, fmt.Sprintf("unknown gesture %q", g.Type), http.StatusBadRequest)
			return
		}
		s.writeState(w)
	}
}

// PreviewHandler returns the stage as displayed, with selection handles.
func (s *Server) PreviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		bs, err := s.e.Preview()
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writePNG(w, bs)
	}
}

// ExportHandler returns the flattened export. A second request while one
// is running is refused.
func (s *Server) ExportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.exporting.CompareAndSwap(false, true) {
			http.Error(w, "export already in progress", http.StatusConflict)
			return
		}
		defer s.exporting.Store(false)

		bs, err := s.e.Export(r.Context())
		if err != nil {
			klog.Errorf("export: %v", err)
			http.Error(w, fmt.Sprintf("Could not create the image: %v. Please try again.", err), http.StatusInternalServerError)
			return
		}

		st := s.e.State()
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", Filename(st.MonthName, st.Year)))
		writePNG(w, bs)
	}
}

// Filename is the download name for an export.
func Filename(month string, year int) string {
	return fmt.Sprintf("kalender-%s-%d.png", month, year)
}
