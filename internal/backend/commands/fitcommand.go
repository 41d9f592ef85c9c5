package commands

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jo-hoe/gomeme/internal/backend/commandstructure"
)

const fitCommandName = "FitCommand"

// fitFilters maps the filter parameter to a resampling filter
var fitFilters = map[string]imaging.ResampleFilter{
	"lanczos":    imaging.Lanczos,
	"catmullrom": imaging.CatmullRom,
	"linear":     imaging.Linear,
	"box":        imaging.Box,
	"nearest":    imaging.NearestNeighbor,
}

// FitParams bounds the size an upload is allowed to keep
type FitParams struct {
	MaxWidth  int
	MaxHeight int
	Filter    string
}

// NewFitParamsFromMap creates FitParams from a generic map
func NewFitParamsFromMap(params map[string]any) (*FitParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"maxWidth", "maxHeight"}); err != nil {
		return nil, err
	}

	maxWidth := commandstructure.GetIntParam(params, "maxWidth", 0)
	maxHeight := commandstructure.GetIntParam(params, "maxHeight", 0)
	if maxWidth <= 0 {
		return nil, fmt.Errorf("maxWidth must be positive, got %d", maxWidth)
	}
	if maxHeight <= 0 {
		return nil, fmt.Errorf("maxHeight must be positive, got %d", maxHeight)
	}

	filter := strings.ToLower(commandstructure.GetStringParam(params, "filter", "lanczos"))
	if _, ok := fitFilters[filter]; !ok {
		return nil, fmt.Errorf("unknown filter %q", filter)
	}

	return &FitParams{MaxWidth: maxWidth, MaxHeight: maxHeight, Filter: filter}, nil
}

// FitCommand downscales PNG images that exceed the configured bounds, preserving aspect ratio.
// Images already inside the bounds pass through untouched.
type FitCommand struct {
	name   string
	params *FitParams
}

// NewFitCommand creates a new fit command from configuration parameters
func NewFitCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewFitParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &FitCommand{name: fitCommandName, params: typedParams}, nil
}

// Name returns the command name
func (c *FitCommand) Name() string {
	return c.name
}

func (c *FitCommand) Execute(imageData []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() <= c.params.MaxWidth && b.Dy() <= c.params.MaxHeight {
		return imageData, nil
	}

	fitted := imaging.Fit(img, c.params.MaxWidth, c.params.MaxHeight, fitFilters[c.params.Filter])
	slog.Debug("FitCommand: downscaled image",
		"filter", c.params.Filter,
		"original_width", b.Dx(),
		"original_height", b.Dy(),
		"width", fitted.Bounds().Dx(),
		"height", fitted.Bounds().Dy())

	out, err := encodePNG(fitted)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fitted PNG image: %w", err)
	}
	return out, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(fitCommandName, NewFitCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", fitCommandName, err))
	}
}
