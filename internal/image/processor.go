package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"io"
	"math"

	"github.com/sunshineplan/imgconv"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Supported image format names.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatGIF  = "gif"
	FormatBMP  = "bmp"
	FormatWebP = "webp"
)

// Default thumbnail bounding box.
const (
	DefaultThumbWidth  = 320
	DefaultThumbHeight = 200
	maxThumbSide       = 2048
)

// DetectFormat reads the first bytes from r to identify the image format.
// The returned reader replays the consumed bytes.
func DetectFormat(r io.Reader) (format string, replay io.Reader, err error) {
	buf := make([]byte, 12)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("reading header: %w", err)
	}
	buf = buf[:n]

	replay = io.MultiReader(bytes.NewReader(buf), r)

	switch {
	case n >= 3 && buf[0] == 0xFF && buf[1] == 0xD8 && buf[2] == 0xFF:
		return FormatJPEG, replay, nil
	case n >= 8 && string(buf[:8]) == "\x89PNG\r\n\x1a\n":
		return FormatPNG, replay, nil
	case n >= 6 && (string(buf[:6]) == "GIF87a" || string(buf[:6]) == "GIF89a"):
		return FormatGIF, replay, nil
	case n >= 2 && string(buf[:2]) == "BM":
		return FormatBMP, replay, nil
	case n >= 12 && string(buf[:4]) == "RIFF" && string(buf[8:12]) == "WEBP":
		return FormatWebP, replay, nil
	}

	return "", replay, fmt.Errorf("unrecognized image format")
}

// GetDimensions decodes only the image header to read width and height.
func GetDimensions(r io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, fmt.Errorf("decoding image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Thumbnail decodes the image from src and scales it to fit within
// maxWidth x maxHeight, preserving the aspect ratio. The result is always
// PNG. Images that already fit are re-encoded without scaling. Non-positive
// bounds select the defaults; bounds are clamped to 2048.
func Thumbnail(src io.Reader, maxWidth, maxHeight int) ([]byte, error) {
	maxWidth, maxHeight = ClampBox(maxWidth, maxHeight)

	_, replay, err := DetectFormat(src)
	if err != nil {
		return nil, fmt.Errorf("detecting format: %w", err)
	}

	img, _, err := image.Decode(replay)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	newW, newH := fitDimensions(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)
	if newW != bounds.Dx() || newH != bounds.Dy() {
		img = imgconv.Resize(img, &imgconv.ResizeOption{Width: newW, Height: newH})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// ClampBox applies the thumbnail defaults and upper bound to a requested box.
func ClampBox(w, h int) (int, int) {
	if w <= 0 {
		w = DefaultThumbWidth
	}
	if h <= 0 {
		h = DefaultThumbHeight
	}
	return min(w, maxThumbSide), min(h, maxThumbSide)
}

// fitDimensions calculates the scaled dimensions that fit within maxW x maxH
// while preserving the aspect ratio. If the image already fits, returns original dimensions.
func fitDimensions(origW, origH, maxW, maxH int) (int, int) {
	if origW <= maxW && origH <= maxH {
		return origW, origH
	}

	ratioW := float64(maxW) / float64(origW)
	ratioH := float64(maxH) / float64(origH)
	ratio := min(ratioW, ratioH)

	newW := max(int(math.Round(float64(origW)*ratio)), 1)
	newH := max(int(math.Round(float64(origH)*ratio)), 1)
	return newW, newH
}
