package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/sketchbox/sketchbox/protocol"
)

// Surface is the mutable drawing surface. It is owned exclusively by
// the session loop; only replay mutates it.
type Surface struct {
	img *image.RGBA

	pathOpen bool
	pos      protocol.Point
}

var background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// New returns a blank (white) surface of the given logical size.
func New(width, height int) *Surface {
	s := &Surface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
	s.Clear()
	return s
}

// Size returns the current logical dimensions.
func (s *Surface) Size() (width, height int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Clone returns an independent copy of the pixel buffer, safe to hand
// to another goroutine.
func (s *Surface) Clone() *image.RGBA {
	dst := image.NewRGBA(s.img.Bounds())
	copy(dst.Pix, s.img.Pix)
	return dst
}

// Clear resets every pixel to the blank background and closes any open
// path. A new round invalidates all prior strokes.
func (s *Surface) Clear() {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	s.pathOpen = false
}

// BeginPath starts a new stroke at p, stamping the first sample with
// the point's own color and width.
func (s *Surface) BeginPath(p protocol.Point) {
	s.pathOpen = true
	s.pos = p
	s.stamp(p)
}

// LineTo extends the current stroke to p. The new point's style wins:
// the remote peer may change tool settings between samples and that is
// accepted, not corrected. Without an open path the sample is ignored.
func (s *Surface) LineTo(p protocol.Point) {
	if !s.pathOpen {
		return
	}
	s.segment(s.pos, p)
	s.pos = p
}

// ClosePath terminates the current stroke. No-op when no path is open.
func (s *Surface) ClosePath() {
	s.pathOpen = false
}

// Repaint replaces the whole surface with img, adopting its dimensions.
func (s *Surface) Repaint(img image.Image) {
	b := img.Bounds()
	s.img = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(s.img, s.img.Bounds(), img, b.Min, draw.Src)
	s.pathOpen = false
}

// At returns the pixel at (x, y).
func (s *Surface) At(x, y int) color.RGBA {
	return s.img.RGBAAt(x, y)
}

// segment rasterizes a round-brush line from a to b in b's style.
func (s *Surface) segment(a, b protocol.Point) {
	col, err := protocol.ParseColor(b.Color)
	if err != nil {
		// Points are validated at decode time; an invalid local point
		// is a programming error and drawn as black rather than lost.
		col = color.RGBA{A: 0xff}
	}

	dx, dy := b.X-a.X, b.Y-a.Y
	dist := math.Hypot(dx, dy)
	steps := int(dist) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		s.disc(a.X+dx*t, a.Y+dy*t, b.LineWidth/2, col)
	}
}

// stamp draws a single sample as a filled disc.
func (s *Surface) stamp(p protocol.Point) {
	col, err := protocol.ParseColor(p.Color)
	if err != nil {
		col = color.RGBA{A: 0xff}
	}
	s.disc(p.X, p.Y, p.LineWidth/2, col)
}

func (s *Surface) disc(cx, cy, r float64, col color.RGBA) {
	if r < 0.5 {
		r = 0.5
	}
	b := s.img.Bounds()
	minX := clamp(int(math.Floor(cx-r)), b.Min.X, b.Max.X-1)
	maxX := clamp(int(math.Ceil(cx+r)), b.Min.X, b.Max.X-1)
	minY := clamp(int(math.Floor(cy-r)), b.Min.Y, b.Max.Y-1)
	maxY := clamp(int(math.Ceil(cy+r)), b.Min.Y, b.Max.Y-1)

	rr := r * r
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			fx := float64(x) + 0.5 - cx
			fy := float64(y) + 0.5 - cy
			if fx*fx+fy*fy <= rr {
				s.img.SetRGBA(x, y, col)
			}
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
