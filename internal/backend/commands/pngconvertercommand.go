package commands

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"strings"

	"github.com/jo-hoe/gomeme/internal/backend/commandstructure"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const pngConverterName = "PngConverterCommand"

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// hasCorrectPngSignature checks whether the provided data begins with a valid PNG signature
func hasCorrectPngSignature(data []byte) bool {
	return len(data) >= len(pngSignature) && bytes.Equal(data[:len(pngSignature)], pngSignature)
}

// PngConverterCommand normalises any supported upload (raster formats or SVG) to PNG,
// so the rest of the pipeline only has to understand one encoding.
type PngConverterCommand struct {
	name              string
	svgFallbackWidth  int
	svgFallbackHeight int
	svgTransparent    bool
}

// NewPngConverterCommand creates a new PNG converter command.
// svgFallbackWidth/svgFallbackHeight size SVGs that carry only a viewBox. SVGs are
// rendered onto white unless svgTransparent is set.
func NewPngConverterCommand(params map[string]any) (commandstructure.Command, error) {
	w := commandstructure.GetIntParam(params, "svgFallbackWidth", 0)
	h := commandstructure.GetIntParam(params, "svgFallbackHeight", 0)
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("svg fallback size must not be negative, got %dx%d", w, h)
	}

	return &PngConverterCommand{
		name:              pngConverterName,
		svgFallbackWidth:  w,
		svgFallbackHeight: h,
		svgTransparent:    commandstructure.GetBoolParam(params, "svgTransparent", false),
	}, nil
}

// Name returns the command name
func (c *PngConverterCommand) Name() string {
	return c.name
}

func (c *PngConverterCommand) Execute(imageData []byte) ([]byte, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	if hasCorrectPngSignature(imageData) {
		slog.Debug("PngConverterCommand: PNG detected; returning original bytes",
			"input_size_bytes", len(imageData))
		return imageData, nil
	}

	if isSVGData(imageData) {
		w, h, ok := parseSvgExplicitSize(imageData)
		if !ok {
			w, h = c.svgFallbackWidth, c.svgFallbackHeight
		}
		slog.Debug("PngConverterCommand: rendering SVG", "width", w, "height", h, "explicit_size", ok)
		out, err := renderSVGToPNG(imageData, w, h, c.svgTransparent)
		if err != nil {
			return nil, fmt.Errorf("failed to render SVG to PNG: %w", err)
		}
		return out, nil
	}

	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	slog.Debug("PngConverterCommand: decoded raster image",
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	out, err := encodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	return out, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(pngConverterName, NewPngConverterCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", pngConverterName, err))
	}
}

// isSVGData looks for an <svg tag or the SVG namespace in the first 4KB.
func isSVGData(data []byte) bool {
	n := min(len(data), 4096)
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte(`xmlns="http://www.w3.org/2000/svg"`)) ||
		bytes.Contains(header, []byte(`xmlns='http://www.w3.org/2000/svg'`))
}

// parseSvgExplicitSize extracts numeric width and height attributes of the root <svg> tag.
// A viewBox alone is not treated as a pixel size.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	n := min(len(data), 8192)
	s := strings.ToLower(string(data[:n]))
	i := strings.Index(s, "<svg")
	if i < 0 {
		return 0, 0, false
	}
	tag := s[i:]
	if j := strings.Index(tag, ">"); j >= 0 {
		tag = tag[:j]
	}

	w, wOk := parseNumericAttr(tag, "width")
	h, hOk := parseNumericAttr(tag, "height")
	if wOk && hOk {
		return w, h, true
	}
	return 0, 0, false
}

// parseNumericAttr reads the leading integer of a quoted attribute value, e.g. width="123px".
func parseNumericAttr(tag, attr string) (int, bool) {
	// leading space keeps "stroke-width" from matching "width"
	pos := strings.Index(tag, " "+attr+"=")
	if pos < 0 {
		return 0, false
	}
	rest := strings.TrimLeft(tag[pos+len(attr)+2:], " ")
	if rest == "" {
		return 0, false
	}
	quote := rest[0]
	if quote != '"' && quote != '\'' {
		return 0, false
	}
	val := rest[1:]
	if end := strings.IndexByte(val, quote); end >= 0 {
		val = val[:end]
	}

	num := 0
	found := false
	for i := 0; i < len(val); i++ {
		ch := val[i]
		if ch < '0' || ch > '9' {
			break
		}
		found = true
		num = num*10 + int(ch-'0')
	}
	if !found || num <= 0 {
		return 0, false
	}
	return num, true
}

// renderSVGToPNG rasterises the SVG at the given size, onto white unless transparent.
func renderSVGToPNG(svgData []byte, targetW, targetH int, transparent bool) ([]byte, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("invalid target dimensions for SVG rendering: %dx%d", targetW, targetH)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(targetW), float64(targetH))

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	if !transparent {
		draw.Draw(dst, dst.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	}

	scanner := rasterx.NewScannerGV(targetW, targetH, dst, dst.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)

	return encodePNG(dst)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	b := img.Bounds()
	buf.Grow(b.Dx() * b.Dy())
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
