// Package render draws bitmaps and captions onto a fixed-size canvas.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/jo-hoe/gomeme/internal/layout"
	"golang.org/x/image/font"
)

const (
	// captionInset is the gap between the image edge and the caption anchor.
	captionInset = 10
	// strokeRatio converts a font size into the outline width.
	strokeRatio = 0.1
	// minOutlineRadius keeps the outline at least one pixel wide on small captions.
	minOutlineRadius = 1.0

	minRingSamples = 16
	maxRingSamples = 32

	// MaxFontSizePx is the largest caption size the compositor accepts.
	MaxFontSizePx = 200
)

// Style holds the caption rendering attributes.
type Style struct {
	FillColor   string `json:"fillColor" yaml:"fillColor"`
	StrokeColor string `json:"strokeColor" yaml:"strokeColor"`
	FontFamily  string `json:"fontFamily" yaml:"fontFamily"`
	FontSizePx  int    `json:"fontSizePx" yaml:"fontSizePx"`
}

// Caption is one text overlay.
type Caption struct {
	Text  string
	Style Style
}

// Compositor renders memes onto a canvas of fixed size.
type Compositor struct {
	width  int
	height int
	fonts  *FontRegistry
}

func NewCompositor(width, height int, fonts *FontRegistry) (*Compositor, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %dx%d", width, height)
	}
	if fonts == nil {
		return nil, errors.New("font registry is required")
	}
	return &Compositor{width: width, height: height, fonts: fonts}, nil
}

// Size returns the canvas dimensions.
func (c *Compositor) Size() (int, int) {
	return c.width, c.height
}

// Render clears the canvas, draws bitmap letterboxed and centred, then overlays the
// non-empty captions: top anchored below the image's top edge, bottom above its
// bottom edge. A nil bitmap is a no-op and returns a nil canvas.
func (c *Compositor) Render(bitmap image.Image, top, bottom Caption) (*image.RGBA, error) {
	if bitmap == nil {
		return nil, nil
	}
	b := bitmap.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("bitmap has no pixels")
	}

	dc := gg.NewContext(c.width, c.height)
	place := FitCentered(b.Dx(), b.Dy(), c.width, c.height)
	c.drawScaled(dc, bitmap, place)

	if top.Text != "" {
		anchor := place.Y + captionInset + float64(top.Style.FontSizePx)
		if err := c.drawCaption(dc, top, anchor, place.Width); err != nil {
			return nil, fmt.Errorf("failed to draw top caption: %w", err)
		}
	}
	if bottom.Text != "" {
		anchor := place.Y + place.Height - captionInset
		if err := c.drawCaption(dc, bottom, anchor, place.Width); err != nil {
			return nil, fmt.Errorf("failed to draw bottom caption: %w", err)
		}
	}

	return toRGBA(dc.Image()), nil
}

// DrawFull stretches bitmap over the whole canvas without captions. Gallery entries are
// already composed at canvas size, so re-loading one shows it unchanged.
func (c *Compositor) DrawFull(bitmap image.Image) *image.RGBA {
	if bitmap == nil {
		return nil
	}
	dc := gg.NewContext(c.width, c.height)
	c.drawScaled(dc, bitmap, Placement{Width: float64(c.width), Height: float64(c.height)})
	return toRGBA(dc.Image())
}

func (c *Compositor) drawScaled(dc *gg.Context, bitmap image.Image, place Placement) {
	w := max(1, int(math.Round(place.Width)))
	h := max(1, int(math.Round(place.Height)))
	resized := imaging.Resize(bitmap, w, h, imaging.Lanczos)
	dc.DrawImage(resized, int(math.Round(place.X)), int(math.Round(place.Y)))
}

func (c *Compositor) drawCaption(dc *gg.Context, caption Caption, anchorY, maxWidth float64) error {
	fill, err := ParseHexColor(caption.Style.FillColor)
	if err != nil {
		return err
	}
	stroke, err := ParseHexColor(caption.Style.StrokeColor)
	if err != nil {
		return err
	}
	size := float64(caption.Style.FontSizePx)
	if size <= 0 || size > MaxFontSizePx {
		return fmt.Errorf("font size must be between 1 and %d, got %d", MaxFontSizePx, caption.Style.FontSizePx)
	}

	face, err := c.fonts.Face(caption.Style.FontFamily, size)
	if err != nil {
		return fmt.Errorf("failed to load font %q: %w", caption.Style.FontFamily, err)
	}
	defer face.Close()
	dc.SetFontFace(face)

	measure := layout.MeasureFunc(func(s string) float64 {
		w, _ := dc.MeasureString(s)
		return w
	})
	block := layout.Layout(caption.Text, anchorY, maxWidth, float64(c.height), size, measure)

	centerX := float64(c.width) / 2
	radius := max(size*strokeRatio/2, minOutlineRadius)
	outline := newOutliner(c.width, c.height, face, radius)
	dst := dc.Image().(*image.RGBA)
	for i, line := range block.Lines {
		y := block.Baselines[i]
		outline.stroke(dst, line, centerX, y, stroke)
		dc.SetColor(fill)
		dc.DrawStringAnchored(line, centerX, y, 0.5, 0)
	}
	return nil
}

// outliner strokes caption lines. Each line is rasterised once into a coverage mask.
// The mask is dilated by sampling it on a ring of sub-pixel offsets and the stroke
// color is drawn through the result.
type outliner struct {
	glyphs  *gg.Context
	dilated *image.Alpha
	pad     int
	ring    []ringOffset
}

// ringOffset is one sample position on the ring, split into whole and fractional pixels.
type ringOffset struct {
	dx, dy int
	fx, fy float64
}

func newOutliner(width, height int, face font.Face, radius float64) *outliner {
	glyphs := gg.NewContext(width, height)
	glyphs.SetFontFace(face)

	n := min(max(int(math.Ceil(math.Pi*radius)), minRingSamples), maxRingSamples)
	ring := make([]ringOffset, 0, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		ox, oy := radius*math.Cos(theta), radius*math.Sin(theta)
		fx, fy := math.Floor(ox), math.Floor(oy)
		ring = append(ring, ringOffset{dx: int(fx), dy: int(fy), fx: ox - fx, fy: oy - fy})
	}

	return &outliner{
		glyphs:  glyphs,
		dilated: image.NewAlpha(image.Rect(0, 0, width, height)),
		pad:     int(math.Ceil(radius)) + 1,
		ring:    ring,
	}
}

// stroke draws the outline of text anchored at (x, y) into dst.
func (o *outliner) stroke(dst *image.RGBA, text string, x, y float64, stroke color.Color) {
	o.glyphs.SetColor(color.Transparent)
	o.glyphs.Clear()
	o.glyphs.SetColor(color.White)
	o.glyphs.DrawStringAnchored(text, x, y, 0.5, 0)
	mask := o.glyphs.Image().(*image.RGBA)

	covered := coverageBounds(mask)
	if covered.Empty() {
		return
	}
	area := covered.Inset(-o.pad).Intersect(mask.Rect)
	for py := area.Min.Y; py < area.Max.Y; py++ {
		for px := area.Min.X; px < area.Max.X; px++ {
			a := alphaAt(mask, px, py)
			for _, off := range o.ring {
				if a == 255 {
					break
				}
				a = max(a, off.sample(mask, px, py))
			}
			o.dilated.Pix[o.dilated.PixOffset(px, py)] = a
		}
	}
	draw.DrawMask(dst, area, image.NewUniform(stroke), image.Point{}, o.dilated, area.Min, draw.Over)
}

// sample reads the mask coverage at (x, y) shifted by the offset, bilinearly interpolated.
func (off ringOffset) sample(mask *image.RGBA, x, y int) uint8 {
	x0, y0 := x+off.dx, y+off.dy
	top := lerp(alphaAt(mask, x0, y0), alphaAt(mask, x0+1, y0), off.fx)
	bottom := lerp(alphaAt(mask, x0, y0+1), alphaAt(mask, x0+1, y0+1), off.fx)
	return uint8(math.Round(top + (bottom-top)*off.fy))
}

func lerp(a, b uint8, t float64) float64 {
	return float64(a) + (float64(b)-float64(a))*t
}

func alphaAt(img *image.RGBA, x, y int) uint8 {
	if !(image.Point{X: x, Y: y}).In(img.Rect) {
		return 0
	}
	return img.Pix[img.PixOffset(x, y)+3]
}

// coverageBounds returns the smallest rectangle holding every non-transparent pixel.
func coverageBounds(img *image.RGBA) image.Rectangle {
	var r image.Rectangle
	b := img.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Min.X, y)+4*b.Dx()]
		for i := 3; i < len(row); i += 4 {
			if row[i] == 0 {
				continue
			}
			x := b.Min.X + i/4
			r = r.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return r
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}
