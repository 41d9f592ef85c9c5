package render

// Placement is where a bitmap lands on the canvas, in canvas pixels.
type Placement struct {
	X, Y          float64
	Width, Height float64
}

// FitCentered scales a srcW x srcH image to fill canvas width, or canvas height when
// the width-fit would overflow vertically, and centres it. The uncovered axis gets
// equal margins on both sides (letterbox or pillarbox).
func FitCentered(srcW, srcH, canvasW, canvasH int) Placement {
	ratio := float64(srcW) / float64(srcH)
	w := float64(canvasW)
	h := w / ratio
	if h > float64(canvasH) {
		h = float64(canvasH)
		w = h * ratio
	}
	return Placement{
		X:      (float64(canvasW) - w) / 2,
		Y:      (float64(canvasH) - h) / 2,
		Width:  w,
		Height: h,
	}
}
