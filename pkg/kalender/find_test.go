package kalender

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func TestFind(t *testing.T) {
	root := t.TempDir()
	files := map[string][]byte{
		"2024/beach.png":     pngBytes(t, 8, 8),
		"2024/notes.txt":     []byte("not a photo"),
		"2024/.hidden.png":   pngBytes(t, 8, 8),
		".cache/thumb.png":   pngBytes(t, 8, 8),
		"portrait.PNG":       pngBytes(t, 8, 8),
		"2024/trip/road.png": pngBytes(t, 8, 8),
	}
	for rel, bs := range files {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, bs, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	found, err := Find(root)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	got := []string{}
	for _, s := range found {
		got = append(got, s.RelPath)
		if s.ModTime.IsZero() {
			t.Errorf("%s: no mod time", s.RelPath)
		}
	}
	sort.Strings(got)

	want := []string{
		filepath.Join("2024", "beach.png"),
		filepath.Join("2024", "trip", "road.png"),
		"portrait.PNG",
	}
	if len(got) != len(want) {
		t.Fatalf("Find = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Find = %v, want %v", got, want)
			break
		}
	}
}

func TestSourceWhen(t *testing.T) {
	fallback := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	taken := time.Date(2019, time.July, 14, 9, 30, 0, 0, time.UTC)

	if got := (&Source{}).When(fallback); !got.Equal(fallback) {
		t.Errorf("When without capture date = %s, want %s", got, fallback)
	}
	if got := (&Source{Taken: taken}).When(fallback); !got.Equal(taken) {
		t.Errorf("When = %s, want %s", got, taken)
	}
}
