// Package export turns a rendered canvas into a downloadable PNG and hands it to the
// platform share command.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// isoMillis matches the ISO 8601 form browsers produce for timestamps.
const isoMillis = "2006-01-02T15:04:05.000Z"

// File is an encoded meme ready for download.
type File struct {
	Name string
	PNG  []byte
}

// FileName returns meme-<timestamp>.png with ':' and '.' replaced by '-', for example
// meme-2024-01-02T03-04-05-678Z.png.
func FileName(now time.Time) string {
	stamp := now.UTC().Format(isoMillis)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return "meme-" + stamp + ".png"
}

// Exporter encodes canvases and optionally mirrors them into a directory.
type Exporter struct {
	dir string
	now func() time.Time
}

// NewExporter returns an Exporter writing into dir. An empty dir disables writing.
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir, now: time.Now}
}

// ExportAsFile encodes canvas as PNG, names it after the current time and writes it
// into the export directory.
func (e *Exporter) ExportAsFile(canvas image.Image) (File, error) {
	file, err := e.Encode(canvas)
	if err != nil {
		return File{}, err
	}
	if _, err := e.Write(file); err != nil {
		return File{}, err
	}
	return file, nil
}

// Encode encodes canvas as PNG and names it after the current time.
func (e *Exporter) Encode(canvas image.Image) (File, error) {
	if canvas == nil {
		return File{}, fmt.Errorf("nothing to export")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return File{}, fmt.Errorf("failed to encode canvas: %w", err)
	}
	return File{Name: FileName(e.now()), PNG: buf.Bytes()}, nil
}

// Write stores file in the export directory and returns its path. Without a
// directory it does nothing and returns "".
func (e *Exporter) Write(file File) (string, error) {
	if e.dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory %s: %w", e.dir, err)
	}
	path := filepath.Join(e.dir, file.Name)
	if err := os.WriteFile(path, file.PNG, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	slog.Info("meme exported", "path", path, "bytes", len(file.PNG))
	return path, nil
}
