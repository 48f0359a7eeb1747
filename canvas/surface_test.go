package canvas

import (
	"image"
	"image/color"
	"testing"

	"github.com/sketchbox/sketchbox/protocol"
)

func pt(x, y float64) protocol.Point {
	return protocol.Point{X: x, Y: y, Color: "#000000", LineWidth: 5}
}

var (
	black = color.RGBA{A: 0xff}
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

func TestNewSurfaceIsBlank(t *testing.T) {
	s := New(40, 30)

	w, h := s.Size()
	if w != 40 || h != 30 {
		t.Fatalf("size is %dx%d, want 40x30", w, h)
	}
	if s.At(0, 0) != white || s.At(39, 29) != white {
		t.Error("fresh surface is not blank")
	}
}

func TestStrokeCoversSegment(t *testing.T) {
	s := New(100, 50)
	s.BeginPath(pt(10, 10))
	s.LineTo(pt(20, 10))
	s.ClosePath()

	for x := 10; x <= 20; x++ {
		if s.At(x, 10) != black {
			t.Errorf("pixel (%d,10) not painted", x)
		}
	}
	if s.At(50, 25) != white {
		t.Error("pixel far from the stroke was painted")
	}
}

func TestStrokeStyleMayChangeMidStroke(t *testing.T) {
	s := New(100, 50)
	s.BeginPath(pt(10, 25))
	s.LineTo(protocol.Point{X: 40, Y: 25, Color: "#ff0000", LineWidth: 5})

	// The new point's style wins for the extension.
	if got := s.At(30, 25); got != (color.RGBA{R: 0xff, A: 0xff}) {
		t.Errorf("mid-stroke restyle not honored, pixel is %+v", got)
	}
}

func TestLineToWithoutOpenPath(t *testing.T) {
	s := New(40, 40)
	s.LineTo(pt(5, 5))
	s.ClosePath() // also a no-op without a path

	if s.At(5, 5) != white {
		t.Error("sample without an open path must not paint")
	}
}

func TestClearResetsEverything(t *testing.T) {
	s := New(60, 60)
	s.BeginPath(pt(10, 10))
	s.LineTo(pt(50, 50))
	s.Clear()

	for _, p := range []image.Point{{10, 10}, {30, 30}, {50, 50}} {
		if s.At(p.X, p.Y) != white {
			t.Errorf("pixel (%d,%d) survived a clear", p.X, p.Y)
		}
	}

	// The open path must not leak across the clear.
	s.LineTo(pt(20, 20))
	if s.At(20, 20) != white {
		t.Error("path survived a clear")
	}
}

func TestRepaintAdoptsImageDimensions(t *testing.T) {
	s := New(900, 500)

	img := image.NewRGBA(image.Rect(0, 0, 300, 200))
	for i := range img.Pix {
		img.Pix[i] = 0x7f
	}
	s.Repaint(img)

	w, h := s.Size()
	if w != 300 || h != 200 {
		t.Fatalf("size after repaint is %dx%d, want 300x200", w, h)
	}
	if s.At(150, 100) != (color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0x7f}) {
		t.Error("repaint did not copy the image pixels")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(20, 20)
	clone := s.Clone()

	s.BeginPath(pt(10, 10))

	if clone.RGBAAt(10, 10) != white {
		t.Error("mutating the surface changed a prior clone")
	}
}

func TestStrokeClipsToBounds(t *testing.T) {
	s := New(30, 30)
	s.BeginPath(pt(-10, -10))
	s.LineTo(pt(50, 50)) // must not panic past the edges
	s.ClosePath()

	if s.At(15, 15) != black {
		t.Error("in-bounds part of the clipped stroke missing")
	}
}
