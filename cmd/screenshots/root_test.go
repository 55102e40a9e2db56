package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

// executeCommand runs root with args and returns everything written to its
// output and error streams.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// isolate keeps the developer's config, .env and environment out of the
// command under test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("MBM_CONFIG_PATH", filepath.Join(dir, "absent.yaml"))
	for _, k := range []string{"PORT", "MBM_PORT", "MBM_HOST", "MBM_BASE_PATH", "MBM_TOKEN",
		"MBM_DESKTOP_PATH", "MBM_MATCH", "MBM_LOG_LEVEL", "MBM_LOG_FORMAT", "MBM_LOG_FILE"} {
		t.Setenv(k, "")
	}
	return dir
}

// makeDesktop creates the named files one after another so their creation
// times follow the given order.
func makeDesktop(t *testing.T, names ...string) string {
	t.Helper()
	desk := filepath.Join(t.TempDir(), "Desktop")
	if err := os.MkdirAll(desk, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(desk, n), []byte("data:"+n), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(15 * time.Millisecond)
	}
	return desk
}

var lineRe = regexp.MustCompile(`^\d+\. (.+) - \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)

func TestList(t *testing.T) {
	isolate(t)
	desk := makeDesktop(t, "Screenshot 1.png", "notes.txt", "Screenshot 2.png", "Screenshot 3.png")

	out, err := executeCommand(newRootCmd(), "--dir", desk, "-n", "2")
	if err != nil {
		t.Fatalf("execute: %v\n%s", err, out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || lines[0] != "Found 2 latest screenshots:" {
		t.Fatalf("output:\n%s", out)
	}
	for i, want := range []string{"Screenshot 3.png", "Screenshot 2.png"} {
		m := lineRe.FindStringSubmatch(lines[i+1])
		if m == nil || m[1] != want || !strings.HasPrefix(lines[i+1], string(rune('1'+i))+". ") {
			t.Errorf("line %d = %q, want entry for %s", i+1, lines[i+1], want)
		}
	}
}

func TestList_DefaultNumberAndLooseRule(t *testing.T) {
	isolate(t)
	desk := makeDesktop(t, "a screenshot.JPG", "Screenshot 1.png", "b.png")

	out, err := executeCommand(newRootCmd(), "--dir", desk)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Found 1 latest screenshots:") {
		t.Errorf("strict output:\n%s", out)
	}

	out, err = executeCommand(newRootCmd(), "--dir", desk, "--match", "loose")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Found 2 latest screenshots:") {
		t.Errorf("loose output:\n%s", out)
	}
}

func TestList_Empty(t *testing.T) {
	isolate(t)
	desk := makeDesktop(t)

	out, err := executeCommand(newRootCmd(), "--dir", desk, "--copy", filepath.Join(desk, "out"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "No screenshots found on the desktop." {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(desk, "out")); !os.IsNotExist(err) {
		t.Error("copy directory created with nothing to copy")
	}
}

func TestList_MissingDirectoryIsEmpty(t *testing.T) {
	dir := isolate(t)
	out, err := executeCommand(newRootCmd(), "--dir", filepath.Join(dir, "nope"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No screenshots found on the desktop.") {
		t.Errorf("output = %q", out)
	}
}

func TestList_InvalidFlags(t *testing.T) {
	isolate(t)
	desk := makeDesktop(t)
	if _, err := executeCommand(newRootCmd(), "--dir", desk, "-n", "0"); err == nil {
		t.Error("expected error for -n 0")
	}
	if _, err := executeCommand(newRootCmd(), "--dir", desk, "--match", "fuzzy"); err == nil {
		t.Error("expected error for unknown rule")
	}
}

func TestCopy(t *testing.T) {
	isolate(t)
	desk := makeDesktop(t, "Screenshot 1.png", "Screenshot 2.png")
	dest := filepath.Join(t.TempDir(), "new", "dir")

	out, err := executeCommand(newRootCmd(), "--dir", desk, "-c", dest)
	if err != nil {
		t.Fatalf("execute: %v\n%s", err, out)
	}
	for _, name := range []string{"Screenshot 1.png", "Screenshot 2.png"} {
		if !strings.Contains(out, "Copied "+name+" to "+dest) {
			t.Errorf("output missing copy line for %s:\n%s", name, out)
		}
		got, err := os.ReadFile(filepath.Join(dest, name))
		if err != nil || string(got) != "data:"+name {
			t.Errorf("%s copy = %q, %v", name, got, err)
		}
	}
	entries, _ := os.ReadDir(dest)
	if len(entries) != 2 {
		t.Errorf("destination holds %d entries, want exactly 2", len(entries))
	}
}

func TestCopy_FailureExitsNonZero(t *testing.T) {
	isolate(t)
	desk := makeDesktop(t, "Screenshot 1.png", "Screenshot 2.png")
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(newRootCmd(), "--dir", desk, "-c", filepath.Join(blocker, "sub"))
	if !errors.Is(err, errCopyFailed) {
		t.Fatalf("err = %v, want errCopyFailed", err)
	}
	if strings.Count(out, "Error copying ") != 2 {
		t.Errorf("every copy should be attempted and reported:\n%s", out)
	}
	if !strings.Contains(out, "Found 2 latest screenshots:") {
		t.Errorf("listing missing:\n%s", out)
	}
}

func TestWatchNeedsTerminal(t *testing.T) {
	isolate(t)
	desk := makeDesktop(t)
	_, err := executeCommand(newRootCmd(), "watch", "--dir", desk)
	if err == nil || !strings.Contains(err.Error(), "terminal") {
		t.Errorf("err = %v, want terminal error", err)
	}
}

func TestFormatTime(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	got := formatTime(time.Date(2024, 5, 6, 9, 8, 7, 999_000_000, loc))
	if got != "2024-05-06 07:08:07" {
		t.Errorf("formatTime = %q", got)
	}
}
