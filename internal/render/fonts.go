package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
)

// DefaultFontFamily is used when a requested family is not available.
const DefaultFontFamily = "go"

type faceFactory func(size float64) (font.Face, error)

// FontRegistry resolves font family names to faces of a given pixel size.
// Family names are matched case-insensitively.
type FontRegistry struct {
	families      map[string]faceFactory
	defaultFamily string
}

// NewFontRegistry registers the bundled Go fonts plus every .ttf file in fontsDir,
// named after its file name without extension. fontsDir may be empty.
func NewFontRegistry(fontsDir, defaultFamily string) (*FontRegistry, error) {
	r := &FontRegistry{families: make(map[string]faceFactory)}

	builtins := map[string][]byte{
		"go":           gobold.TTF,
		"go-italic":    gobolditalic.TTF,
		"go-mono":      gomonobold.TTF,
		"go-smallcaps": gosmallcaps.TTF,
	}
	for name, data := range builtins {
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse bundled font %s: %w", name, err)
		}
		r.families[name] = openTypeFaces(f)
	}

	if fontsDir != "" {
		if err := r.loadDir(fontsDir); err != nil {
			return nil, err
		}
	}

	if defaultFamily == "" {
		defaultFamily = DefaultFontFamily
	}
	defaultFamily = normalizeFamily(defaultFamily)
	if _, ok := r.families[defaultFamily]; !ok {
		return nil, fmt.Errorf("default font family %q is not available", defaultFamily)
	}
	r.defaultFamily = defaultFamily

	return r, nil
}

func (r *FontRegistry) loadDir(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.ttf"))
	if err != nil {
		return fmt.Errorf("failed to list fonts in %s: %w", dir, err)
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read font %s: %w", path, err)
		}
		f, err := truetype.Parse(data)
		if err != nil {
			slog.Warn("skipping unparseable font", "path", path, "error", err)
			continue
		}
		name := normalizeFamily(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		r.families[name] = trueTypeFaces(f)
		slog.Debug("registered font family", "family", name, "path", path)
	}
	return nil
}

// Face returns a face for family at size pixels, falling back to the default family.
// Callers own the returned face and must Close it.
func (r *FontRegistry) Face(family string, size float64) (font.Face, error) {
	factory, ok := r.families[normalizeFamily(family)]
	if !ok {
		factory = r.families[r.defaultFamily]
	}
	return factory(size)
}

// Has reports whether family is registered.
func (r *FontRegistry) Has(family string) bool {
	_, ok := r.families[normalizeFamily(family)]
	return ok
}

// Families returns all registered family names, sorted.
func (r *FontRegistry) Families() []string {
	names := make([]string, 0, len(r.families))
	for name := range r.families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultFamily returns the fallback family name.
func (r *FontRegistry) DefaultFamily() string {
	return r.defaultFamily
}

func normalizeFamily(family string) string {
	return strings.ToLower(strings.TrimSpace(family))
}

func openTypeFaces(f *opentype.Font) faceFactory {
	return func(size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}
}

func trueTypeFaces(f *truetype.Font) faceFactory {
	return func(size float64) (font.Face, error) {
		return truetype.NewFace(f, &truetype.Options{
			Size: size,
			DPI:  72,
		}), nil
	}
}
