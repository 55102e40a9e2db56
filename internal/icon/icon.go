// Package icon renders the menubarmaid viewfinder glyph: a menu-bar
// template image and a web favicon.
package icon

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/vector"
)

const (
	viewboxSz = 32.0
	cornerR   = 6.0

	// Glyph geometry in viewbox units.
	bracketInset = 6.0
	bracketLen   = 7.0
	bracketWidth = 2.5
	lensRadius   = 4.5
	lensWidth    = 2.5
)

// kappa places cubic control points to approximate a quarter circle.
const kappa = 0.5522847498

var bgColor = color.NRGBA{37, 99, 235, 255} // #2563EB (blue-600)

// Favicon returns the glyph in white on a blue rounded square.
func Favicon(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	s := float64(size) / viewboxSz

	half := float64(size) / 2.0
	cr := cornerR * s
	for y := range size {
		for x := range size {
			d := roundedBoxSDF(float64(x)+0.5-half, float64(y)+0.5-half, half, half, cr)
			if d <= -0.5 {
				img.SetNRGBA(x, y, bgColor)
			} else if d < 0.5 {
				blend(img, x, y, bgColor, 0.5-d)
			}
		}
	}

	drawGlyph(img, size, image.White)
	return img
}

// Template returns the glyph in black on a transparent background. macOS
// tints template images to match the menu bar.
func Template(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	drawGlyph(img, size, image.Black)
	return img
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding icon: %w", err)
	}
	return buf.Bytes(), nil
}

// drawGlyph rasterizes four corner brackets and a lens ring onto img.
func drawGlyph(img *image.NRGBA, size int, src image.Image) {
	s := float32(float64(size) / viewboxSz)

	var r vector.Rasterizer
	r.Reset(size, size)

	lo, hi := float32(bracketInset), float32(viewboxSz-bracketInset)
	l, w := float32(bracketLen), float32(bracketWidth)
	// Each bracket is an L drawn as one closed polygon, with (x, y) the
	// outer corner and (dx, dy) pointing into the frame.
	for _, c := range [][4]float32{{lo, lo, 1, 1}, {hi, lo, -1, 1}, {lo, hi, 1, -1}, {hi, hi, -1, -1}} {
		x, y, dx, dy := c[0], c[1], c[2], c[3]
		r.MoveTo(x*s, y*s)
		r.LineTo((x+dx*l)*s, y*s)
		r.LineTo((x+dx*l)*s, (y+dy*w)*s)
		r.LineTo((x+dx*w)*s, (y+dy*w)*s)
		r.LineTo((x+dx*w)*s, (y+dy*l)*s)
		r.LineTo(x*s, (y+dy*l)*s)
		r.ClosePath()
	}

	// The ring is an outer circle plus an inner circle wound the other way.
	c := float32(viewboxSz / 2)
	circle(&r, c*s, c*s, lensRadius*float64(s), false)
	circle(&r, c*s, c*s, (lensRadius-lensWidth)*float64(s), true)

	r.Draw(img, img.Bounds(), src, image.Point{})
}

// circle appends a closed circle of radius rad around (cx, cy) built from
// four cubic segments. reverse flips the winding.
func circle(r *vector.Rasterizer, cx, cy float32, rad float64, reverse bool) {
	k := float32(rad * kappa)
	rf := float32(rad)
	// Quadrant end points, clockwise from the right.
	pts := [4][2]float32{{cx + rf, cy}, {cx, cy + rf}, {cx - rf, cy}, {cx, cy - rf}}
	// Tangent directions at each end point for clockwise travel.
	tan := [4][2]float32{{0, 1}, {-1, 0}, {0, -1}, {1, 0}}
	order := []int{0, 1, 2, 3, 0}
	sign := float32(1)
	if reverse {
		order = []int{0, 3, 2, 1, 0}
		sign = -1
	}

	r.MoveTo(pts[order[0]][0], pts[order[0]][1])
	for i := 1; i < len(order); i++ {
		a, b := order[i-1], order[i]
		r.CubeTo(
			pts[a][0]+sign*tan[a][0]*k, pts[a][1]+sign*tan[a][1]*k,
			pts[b][0]-sign*tan[b][0]*k, pts[b][1]-sign*tan[b][1]*k,
			pts[b][0], pts[b][1],
		)
	}
	r.ClosePath()
}

// roundedBoxSDF returns the signed distance from (px, py) to a rounded rect
// centered at the origin. Negative = inside, positive = outside.
func roundedBoxSDF(px, py, bx, by, r float64) float64 {
	qx := math.Abs(px) - bx + r
	qy := math.Abs(py) - by + r
	return math.Sqrt(math.Max(qx, 0)*math.Max(qx, 0)+math.Max(qy, 0)*math.Max(qy, 0)) +
		math.Min(math.Max(qx, qy), 0) - r
}

// blend alpha-composites color c at the given alpha over the existing pixel.
func blend(img *image.NRGBA, x, y int, c color.NRGBA, alpha float64) {
	if alpha <= 0 {
		return
	}
	alpha = math.Min(alpha, 1)

	dst := img.NRGBAAt(x, y)
	sa := float64(c.A) / 255.0 * alpha
	da := float64(dst.A) / 255.0
	oa := sa + da*(1-sa)
	if oa == 0 {
		return
	}

	img.SetNRGBA(x, y, color.NRGBA{
		R: uint8(math.Round((float64(c.R)*sa + float64(dst.R)*da*(1-sa)) / oa)),
		G: uint8(math.Round((float64(c.G)*sa + float64(dst.G)*da*(1-sa)) / oa)),
		B: uint8(math.Round((float64(c.B)*sa + float64(dst.B)*da*(1-sa)) / oa)),
		A: uint8(math.Round(oa * 255)),
	})
}
