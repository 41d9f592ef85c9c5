package commands

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/jo-hoe/gomeme/internal/backend/commandstructure"
)

const thumbnailCommandName = "ThumbnailCommand"

// ThumbnailParams holds the target size; a nil side is derived from the aspect ratio.
type ThumbnailParams struct {
	Height *int
	Width  *int
}

// NewThumbnailParamsFromMap creates ThumbnailParams from a generic map
func NewThumbnailParamsFromMap(params map[string]any) (*ThumbnailParams, error) {
	_, hasHeight := params["height"]
	_, hasWidth := params["width"]
	if !hasHeight && !hasWidth {
		return nil, fmt.Errorf("at least one of 'height' or 'width' must be specified")
	}

	result := &ThumbnailParams{}
	if hasHeight {
		height := commandstructure.GetIntParam(params, "height", 0)
		if height <= 0 {
			return nil, fmt.Errorf("height must be positive, got %d", height)
		}
		result.Height = &height
	}
	if hasWidth {
		width := commandstructure.GetIntParam(params, "width", 0)
		if width <= 0 {
			return nil, fmt.Errorf("width must be positive, got %d", width)
		}
		result.Width = &width
	}
	return result, nil
}

// ThumbnailCommand produces small nearest-neighbour previews for the gallery grid.
type ThumbnailCommand struct {
	name   string
	params *ThumbnailParams
}

// NewThumbnailCommand creates a new thumbnail command from configuration parameters
func NewThumbnailCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewThumbnailParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &ThumbnailCommand{name: thumbnailCommandName, params: typedParams}, nil
}

// Name returns the command name
func (c *ThumbnailCommand) Name() string {
	return c.name
}

func (c *ThumbnailCommand) Execute(imageData []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG image: %w", err)
	}

	bounds := img.Bounds()
	targetWidth, targetHeight := c.targetSize(bounds.Dx(), bounds.Dy())

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	xMap := buildIndexMap(bounds.Dx(), targetWidth)
	yMap := buildIndexMap(bounds.Dy(), targetHeight)
	parallelFor(targetHeight, func(y int) {
		for x := 0; x < targetWidth; x++ {
			dst.Set(x, y, img.At(bounds.Min.X+xMap[x], bounds.Min.Y+yMap[y]))
		}
	})

	slog.Debug("ThumbnailCommand: scaled image",
		"original_width", bounds.Dx(),
		"original_height", bounds.Dy(),
		"width", targetWidth,
		"height", targetHeight)

	out, err := encodePNG(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return out, nil
}

func (c *ThumbnailCommand) targetSize(originalWidth, originalHeight int) (int, int) {
	aspect := float64(originalWidth) / float64(originalHeight)
	switch {
	case c.params.Width != nil && c.params.Height != nil:
		return *c.params.Width, *c.params.Height
	case c.params.Width != nil:
		return *c.params.Width, max(1, int(float64(*c.params.Width)/aspect))
	default:
		return max(1, int(float64(*c.params.Height)*aspect)), *c.params.Height
	}
}

// buildIndexMap maps each target coordinate to its nearest source coordinate.
func buildIndexMap(original, scaled int) []int {
	m := make([]int, scaled)
	for i := range m {
		m[i] = min(int(float64(i)*float64(original)/float64(scaled)), original-1)
	}
	return m
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(thumbnailCommandName, NewThumbnailCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", thumbnailCommandName, err))
	}
}
