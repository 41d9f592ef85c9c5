package commands

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/jo-hoe/gomeme/internal/backend/commandstructure"
)

func TestNewThumbnailCommand_Params(t *testing.T) {
	tests := []struct {
		name       string
		params     map[string]any
		wantErr    bool
		wantWidth  *int
		wantHeight *int
	}{
		{name: "both", params: map[string]any{"width": 60, "height": 80}},
		{name: "only width", params: map[string]any{"width": 60}},
		{name: "only height", params: map[string]any{"height": 80}},
		{name: "none", params: map[string]any{}, wantErr: true},
		{name: "invalid width", params: map[string]any{"width": 0}, wantErr: true},
		{name: "invalid height", params: map[string]any{"height": -3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, err := NewThumbnailCommand(tt.params)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			params := command.(*ThumbnailCommand).params
			_, hasWidth := tt.params["width"]
			if (params.Width != nil) != hasWidth {
				t.Errorf("Width presence mismatch: %v", params.Width)
			}
			_, hasHeight := tt.params["height"]
			if (params.Height != nil) != hasHeight {
				t.Errorf("Height presence mismatch: %v", params.Height)
			}
		})
	}
}

func TestThumbnailCommand_Execute_PreservesAspect(t *testing.T) {
	command, err := commandstructure.DefaultRegistry.Create("ThumbnailCommand", map[string]any{"width": 50})
	if err != nil {
		t.Fatalf("Failed to create command via registry: %v", err)
	}

	input := pngBytes(t, solidImage(200, 100, color.RGBA{G: 255, A: 255}))
	out, err := command.Execute(input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("result is not valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 25 {
		t.Fatalf("Expected 50x25, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
	r, g, b, a := img.At(10, 10).RGBA()
	if r != 0 || g != 0xffff || b != 0 || a != 0xffff {
		t.Errorf("Expected green pixel, got %d,%d,%d,%d", r, g, b, a)
	}
}

func TestThumbnailCommand_Execute_InvalidImage(t *testing.T) {
	command, _ := NewThumbnailCommand(map[string]any{"height": 10})
	if _, err := command.Execute([]byte("invalid")); err == nil {
		t.Error("Expected error for invalid image data")
	}
}

func TestParallelFor_VisitsEveryRowOnce(t *testing.T) {
	const n = 97
	visited := make([]int, n)
	parallelFor(n, func(y int) {
		visited[y]++
	})
	for y, count := range visited {
		if count != 1 {
			t.Fatalf("row %d visited %d times", y, count)
		}
	}
	parallelFor(0, func(int) { t.Fatal("fn must not be called for n=0") })
}
