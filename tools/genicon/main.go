// Command genicon writes the menu-bar template icons and favicons for the
// desktop front end.
// Run from the repository root: go run ./tools/genicon
package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/sebfried/menubarmaid/internal/icon"
)

func main() {
	outDir := filepath.Join("assets", "icons")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create dir: %v\n", err)
		os.Exit(1)
	}

	targets := []struct {
		name   string
		size   int
		render func(int) *image.NRGBA
	}{
		{"trayTemplate.png", 22, icon.Template},
		{"trayTemplate@2x.png", 44, icon.Template},
		{"favicon-32x32.png", 32, icon.Favicon},
		{"icon-512x512.png", 512, icon.Favicon},
	}

	for _, t := range targets {
		data, err := icon.EncodePNG(t.render(t.size))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", t.name, err)
			os.Exit(1)
		}
		p := filepath.Join(outDir, t.name)
		if err := os.WriteFile(p, data, 0o644); err != nil { //nolint:gosec // G306: public asset
			fmt.Fprintf(os.Stderr, "write %s: %v\n", p, err)
			os.Exit(1)
		}
		fmt.Printf("generated %s (%dx%d)\n", p, t.size, t.size)
	}
}
