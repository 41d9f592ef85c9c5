// Package layout breaks captions into lines and places them vertically on the canvas.
package layout

import "strings"

const (
	// WrapRatio is the share of the available width a line may occupy.
	WrapRatio = 0.8
	// LineHeightRatio converts a font size into the distance between baselines.
	LineHeightRatio = 1.2
)

// Measurer reports the rendered width of a string in pixels.
type Measurer interface {
	MeasureString(s string) float64
}

// MeasureFunc adapts a plain function to the Measurer interface.
type MeasureFunc func(s string) float64

func (f MeasureFunc) MeasureString(s string) float64 {
	return f(s)
}

// Block is a wrapped caption together with the baseline of each line.
type Block struct {
	Lines      []string
	Baselines  []float64
	LineHeight float64
}

// Wrap greedily packs space-separated words into lines no wider than WrapRatio*maxWidth.
// A candidate line is measured with its trailing space, the returned lines are not.
// A single word wider than the limit gets a line of its own and overflows; words are
// never broken. Empty text yields no lines.
func Wrap(text string, maxWidth float64, m Measurer) []string {
	if text == "" {
		return nil
	}

	limit := maxWidth * WrapRatio
	var lines []string
	line := ""
	for _, word := range strings.Split(text, " ") {
		candidate := line + word + " "
		if line != "" && m.MeasureString(candidate) > limit {
			lines = append(lines, strings.TrimSuffix(line, " "))
			line = word + " "
			continue
		}
		line = candidate
	}
	return append(lines, strings.TrimSuffix(line, " "))
}

// Place returns the baseline of each of n lines anchored at anchorY.
// Anchors in the upper half of the canvas grow downwards from the anchor; anchors in the
// lower half are shifted up by the block height so the block ends at the anchor.
func Place(anchorY, canvasHeight, fontSize float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	lineHeight := fontSize * LineHeightRatio
	first := anchorY + fontSize/2
	if anchorY >= canvasHeight/2 {
		first = anchorY - lineHeight*float64(n) + fontSize/2
	}

	baselines := make([]float64, n)
	for i := range baselines {
		baselines[i] = first + float64(i)*lineHeight
	}
	return baselines
}

// Layout wraps text for maxWidth and places the resulting lines around anchorY.
func Layout(text string, anchorY, maxWidth, canvasHeight, fontSize float64, m Measurer) Block {
	lines := Wrap(text, maxWidth, m)
	return Block{
		Lines:      lines,
		Baselines:  Place(anchorY, canvasHeight, fontSize, len(lines)),
		LineHeight: fontSize * LineHeightRatio,
	}
}
