package core

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/jo-hoe/gomeme/internal/backend/database"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func testConfig() *ServiceConfig {
	config := &ServiceConfig{
		Canvas:  Canvas{Width: 120, Height: 120},
		Gallery: Gallery{Type: database.TypeSQLite, ConnectionString: ":memory:"},
	}
	config.ApplyDefaults()
	config.Defaults.FontSizePx = 16
	config.ThumbnailWidth = 60
	return config
}

func newTestService(t *testing.T, config *ServiceConfig, opts ...Option) *CoreService {
	t.Helper()
	service, err := NewCoreService(context.Background(), config, opts...)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = service.Close() })
	return service
}
