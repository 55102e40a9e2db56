package screenshot

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var base = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// writeAt creates name in dir and sets its modification time to at.
func writeAt(t fataler, dir, name string, at time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	if err := os.Chtimes(path, at, at); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

// newTestLocator uses modification times so tests control ordering.
func newTestLocator(dir string, m Matcher) *Locator {
	l := NewLocator(dir, m, testLogger())
	l.createdAt = func(_ string, info fs.FileInfo) time.Time { return info.ModTime() }
	return l
}

func names(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.FileName
	}
	return out
}

func TestList_NewestFirstAndLimit(t *testing.T) {
	dir := t.TempDir()
	writeAt(t, dir, "Screenshot A.png", base)
	writeAt(t, dir, "Screenshot B.png", base.Add(time.Minute))
	writeAt(t, dir, "Screenshot C.png", base.Add(2*time.Minute))
	writeAt(t, dir, "notes.txt", base.Add(3*time.Minute))

	l := newTestLocator(dir, StrictRule{})

	got := names(l.List(context.Background(), 2))
	want := []string{"Screenshot C.png", "Screenshot B.png"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("List(2) = %v, want %v", got, want)
	}

	all := l.List(context.Background(), 0)
	if len(all) != 3 {
		t.Fatalf("List(0) len = %d, want 3", len(all))
	}
	if all[0].FilePath != filepath.Join(dir, "Screenshot C.png") {
		t.Errorf("FilePath = %q", all[0].FilePath)
	}
	if !all[0].CreationTime.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("CreationTime = %v", all[0].CreationTime)
	}
	if all[0].CreationTime.Location() != time.UTC {
		t.Errorf("CreationTime location = %v, want UTC", all[0].CreationTime.Location())
	}
}

func TestList_TiesOrderedByName(t *testing.T) {
	dir := t.TempDir()
	writeAt(t, dir, "Screenshot b.png", base)
	writeAt(t, dir, "Screenshot a.png", base)
	writeAt(t, dir, "Screenshot c.png", base)

	got := names(newTestLocator(dir, StrictRule{}).List(context.Background(), 0))
	want := []string{"Screenshot a.png", "Screenshot b.png", "Screenshot c.png"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("List = %v, want %v", got, want)
	}
}

func TestList_MissingDirectory(t *testing.T) {
	l := newTestLocator(filepath.Join(t.TempDir(), "gone"), StrictRule{})
	got := l.List(context.Background(), 5)
	if got == nil {
		t.Fatal("List returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("List len = %d, want 0", len(got))
	}
}

func TestList_SkipsDirectoriesAndDotFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "Screenshot folder.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeAt(t, dir, ".Screenshot hidden.png", base)
	writeAt(t, dir, "Screenshot real.png", base)

	got := names(newTestLocator(dir, LooseRule{}).List(context.Background(), 0))
	if len(got) != 1 || got[0] != "Screenshot real.png" {
		t.Errorf("List = %v, want [Screenshot real.png]", got)
	}
}

func TestList_SkipsVanishedFile(t *testing.T) {
	dir := t.TempDir()
	writeAt(t, dir, "Screenshot real.png", base)
	// A dangling link stands in for a file removed between ReadDir and Stat.
	if err := os.Symlink(filepath.Join(dir, "missing.png"), filepath.Join(dir, "Screenshot gone.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got := names(newTestLocator(dir, StrictRule{}).List(context.Background(), 0))
	if len(got) != 1 || got[0] != "Screenshot real.png" {
		t.Errorf("List = %v, want [Screenshot real.png]", got)
	}
}

func TestList_RuleSelectsFiles(t *testing.T) {
	dir := t.TempDir()
	writeAt(t, dir, "Screenshot 1.png", base)
	writeAt(t, dir, "my screenshot.jpg", base.Add(time.Second))

	strict := newTestLocator(dir, StrictRule{}).List(context.Background(), 0)
	if len(strict) != 1 {
		t.Errorf("strict len = %d, want 1", len(strict))
	}
	loose := newTestLocator(dir, LooseRule{}).List(context.Background(), 0)
	if len(loose) != 2 {
		t.Errorf("loose len = %d, want 2", len(loose))
	}
}

func TestList_DefaultCreationTime(t *testing.T) {
	dir := t.TempDir()
	writeAt(t, dir, "Screenshot x.png", base)

	got := NewLocator(dir, nil, testLogger()).List(context.Background(), 0)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].CreationTime.IsZero() {
		t.Error("CreationTime is zero")
	}
}

func TestList_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir, err := os.MkdirTemp("", "locator-prop-*")
		if err != nil {
			rt.Fatalf("MkdirTemp: %v", err)
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		n := rapid.IntRange(0, 20).Draw(rt, "files")
		matching := 0
		for i := range n {
			isShot := rapid.Bool().Draw(rt, fmt.Sprintf("match%d", i))
			offset := rapid.IntRange(0, 5).Draw(rt, fmt.Sprintf("offset%d", i))
			name := fmt.Sprintf("file-%02d.png", i)
			if isShot {
				name = fmt.Sprintf("Screenshot %02d.png", i)
				matching++
			}
			writeAt(rt, dir, name, base.Add(time.Duration(offset)*time.Minute))
		}
		limit := rapid.IntRange(-1, 25).Draw(rt, "limit")

		got := newTestLocator(dir, StrictRule{}).List(context.Background(), limit)

		want := matching
		if limit > 0 && limit < want {
			want = limit
		}
		if len(got) != want {
			rt.Fatalf("len = %d, want %d", len(got), want)
		}
		seen := make(map[string]bool)
		for i, r := range got {
			if !(StrictRule{}).Match(r.FileName) {
				rt.Fatalf("non-matching file %q listed", r.FileName)
			}
			if seen[r.FilePath] {
				rt.Fatalf("duplicate path %q", r.FilePath)
			}
			seen[r.FilePath] = true
			if i > 0 && got[i-1].CreationTime.Before(r.CreationTime) {
				rt.Fatalf("not sorted newest first at %d", i)
			}
		}
	})
}
