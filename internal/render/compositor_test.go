package render

import (
	"fmt"
	"image"
	"image/color"
	"testing"
	"time"
)

var red = color.RGBA{R: 255, A: 255}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func newTestCompositor(t *testing.T) *Compositor {
	t.Helper()
	fonts, err := NewFontRegistry("", "")
	if err != nil {
		t.Fatalf("NewFontRegistry error: %v", err)
	}
	c, err := NewCompositor(600, 600, fonts)
	if err != nil {
		t.Fatalf("NewCompositor error: %v", err)
	}
	return c
}

func defaultStyle() Style {
	return Style{FillColor: "#ffffff", StrokeColor: "#000000", FontFamily: "go", FontSizePx: 40}
}

func isRed(c color.RGBA) bool {
	return c.R > 250 && c.G < 5 && c.B < 5 && c.A == 255
}

func TestNewCompositor_Validation(t *testing.T) {
	fonts, _ := NewFontRegistry("", "")
	if _, err := NewCompositor(0, 600, fonts); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := NewCompositor(600, 600, nil); err == nil {
		t.Error("expected error for missing fonts")
	}
	c, err := NewCompositor(300, 200, fonts)
	if err != nil {
		t.Fatalf("NewCompositor error: %v", err)
	}
	if w, h := c.Size(); w != 300 || h != 200 {
		t.Errorf("expected 300x200, got %dx%d", w, h)
	}
}

func TestRender_NilBitmapIsNoop(t *testing.T) {
	c := newTestCompositor(t)
	canvas, err := c.Render(nil, Caption{Text: "top", Style: defaultStyle()}, Caption{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if canvas != nil {
		t.Fatal("expected nil canvas for nil bitmap")
	}
}

func TestRender_Letterbox(t *testing.T) {
	c := newTestCompositor(t)
	canvas, err := c.Render(solid(200, 100, red), Caption{}, Caption{})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if canvas.Bounds().Dx() != 600 || canvas.Bounds().Dy() != 600 {
		t.Fatalf("expected 600x600 canvas, got %v", canvas.Bounds())
	}
	if a := canvas.RGBAAt(300, 50).A; a != 0 {
		t.Errorf("expected transparent margin above image, alpha %d", a)
	}
	if a := canvas.RGBAAt(300, 550).A; a != 0 {
		t.Errorf("expected transparent margin below image, alpha %d", a)
	}
	if px := canvas.RGBAAt(300, 300); !isRed(px) {
		t.Errorf("expected red image in centre, got %v", px)
	}
	if px := canvas.RGBAAt(5, 160); !isRed(px) {
		t.Errorf("expected image to span full width, got %v", px)
	}
}

func TestRender_Pillarbox(t *testing.T) {
	c := newTestCompositor(t)
	canvas, err := c.Render(solid(100, 200, red), Caption{}, Caption{})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if a := canvas.RGBAAt(50, 300).A; a != 0 {
		t.Errorf("expected transparent margin left of image, alpha %d", a)
	}
	if a := canvas.RGBAAt(550, 300).A; a != 0 {
		t.Errorf("expected transparent margin right of image, alpha %d", a)
	}
	if px := canvas.RGBAAt(300, 5); !isRed(px) {
		t.Errorf("expected image to span full height, got %v", px)
	}
}

func countNonRed(img *image.RGBA, y0, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			if !isRed(img.RGBAAt(x, y)) {
				n++
			}
		}
	}
	return n
}

func TestRender_CaptionsLandInTheirHalves(t *testing.T) {
	c := newTestCompositor(t)
	style := defaultStyle()

	topOnly, err := c.Render(solid(300, 300, red), Caption{Text: "TOP TEXT", Style: style}, Caption{})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if countNonRed(topOnly, 0, 150) == 0 {
		t.Error("expected top caption pixels in the upper band")
	}
	if n := countNonRed(topOnly, 300, 600); n != 0 {
		t.Errorf("expected lower half untouched without bottom caption, %d pixels changed", n)
	}

	bottomOnly, err := c.Render(solid(300, 300, red), Caption{}, Caption{Text: "BOTTOM TEXT", Style: style})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if countNonRed(bottomOnly, 450, 600) == 0 {
		t.Error("expected bottom caption pixels in the lower band")
	}
	if n := countNonRed(bottomOnly, 0, 300); n != 0 {
		t.Errorf("expected upper half untouched without top caption, %d pixels changed", n)
	}
}

func TestRender_StrokeAndFillColors(t *testing.T) {
	c := newTestCompositor(t)
	style := Style{FillColor: "#00ff00", StrokeColor: "#0000ff", FontFamily: "go", FontSizePx: 60}

	canvas, err := c.Render(solid(600, 600, red), Caption{Text: "WWW", Style: style}, Caption{})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}

	var sawFill, sawStroke bool
	for y := 0; y < 200; y++ {
		for x := 0; x < 600; x++ {
			px := canvas.RGBAAt(x, y)
			if px.G > 250 && px.R < 5 && px.B < 5 {
				sawFill = true
			}
			if px.B > 250 && px.R < 5 && px.G < 5 {
				sawStroke = true
			}
		}
	}
	if !sawFill {
		t.Error("expected fill-colored pixels")
	}
	if !sawStroke {
		t.Error("expected stroke-colored pixels")
	}
}

func countStrokePixels(img *image.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := img.RGBAAt(x, y)
			if int(px.B)-int(px.R) > 100 && int(px.B)-int(px.G) > 100 {
				n++
			}
		}
	}
	return n
}

func TestRender_SmallCaptionsAreOutlined(t *testing.T) {
	c := newTestCompositor(t)
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}

	for _, size := range []int{8, 12, 16, 19, 20} {
		t.Run(fmt.Sprintf("%dpx", size), func(t *testing.T) {
			style := Style{FillColor: "#ffffff", StrokeColor: "#0000ff", FontFamily: "go", FontSizePx: size}
			canvas, err := c.Render(solid(600, 600, gray), Caption{Text: "HELLO WORLD", Style: style}, Caption{})
			if err != nil {
				t.Fatalf("Render error: %v", err)
			}
			if n := countStrokePixels(canvas); n == 0 {
				t.Errorf("expected stroke-colored pixels at %dpx", size)
			}
		})
	}
}

func TestRender_OutlineGrowsWithFontSize(t *testing.T) {
	c := newTestCompositor(t)
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}

	count := func(size int) int {
		style := Style{FillColor: "#ffffff", StrokeColor: "#0000ff", FontFamily: "go", FontSizePx: size}
		canvas, err := c.Render(solid(600, 600, gray), Caption{Text: "HI", Style: style}, Caption{})
		if err != nil {
			t.Fatalf("Render error: %v", err)
		}
		return countStrokePixels(canvas)
	}
	if small, large := count(16), count(80); large <= small {
		t.Errorf("expected more stroke pixels at 80px than at 16px, got %d and %d", large, small)
	}
}

func TestRender_MaxFontSizeStaysInteractive(t *testing.T) {
	c := newTestCompositor(t)
	style := defaultStyle()
	style.FontSizePx = MaxFontSizePx

	start := time.Now()
	_, err := c.Render(solid(600, 600, red),
		Caption{Text: "HELLO WORLD", Style: style},
		Caption{Text: "HELLO WORLD", Style: style})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("render at %dpx took %v", MaxFontSizePx, elapsed)
	}
}

func TestRender_InvalidStyle(t *testing.T) {
	c := newTestCompositor(t)
	bitmap := solid(10, 10, red)

	bad := defaultStyle()
	bad.FillColor = "purple-ish"
	if _, err := c.Render(bitmap, Caption{Text: "x", Style: bad}, Caption{}); err == nil {
		t.Error("expected error for invalid fill color")
	}

	bad = defaultStyle()
	bad.FontSizePx = 0
	if _, err := c.Render(bitmap, Caption{}, Caption{Text: "x", Style: bad}); err == nil {
		t.Error("expected error for zero font size")
	}

	bad = defaultStyle()
	bad.FontSizePx = MaxFontSizePx + 1
	if _, err := c.Render(bitmap, Caption{Text: "x", Style: bad}, Caption{}); err == nil {
		t.Error("expected error for font size above the maximum")
	}

	// invalid style is irrelevant when the caption is empty
	if _, err := c.Render(bitmap, Caption{Text: "", Style: bad}, Caption{}); err != nil {
		t.Errorf("expected empty caption to be skipped, got %v", err)
	}
}

func TestRender_LongWordOverflowsWithoutError(t *testing.T) {
	c := newTestCompositor(t)
	style := defaultStyle()
	style.FontSizePx = 120
	text := "PNEUMONOULTRAMICROSCOPICSILICOVOLCANOCONIOSIS IS LONG"
	if _, err := c.Render(solid(50, 400, red), Caption{Text: text, Style: style}, Caption{Text: text, Style: style}); err != nil {
		t.Fatalf("expected graceful overflow, got %v", err)
	}
}

func TestDrawFull_Stretches(t *testing.T) {
	c := newTestCompositor(t)
	if c.DrawFull(nil) != nil {
		t.Fatal("expected nil for nil bitmap")
	}
	canvas := c.DrawFull(solid(100, 50, red))
	for _, p := range []image.Point{{0, 0}, {599, 599}, {300, 10}, {10, 590}} {
		if px := canvas.RGBAAt(p.X, p.Y); !isRed(px) {
			t.Errorf("expected red at %v, got %v", p, px)
		}
	}
}
