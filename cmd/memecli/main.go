package main

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jo-hoe/gomeme/internal/cli"
	"github.com/jo-hoe/gomeme/internal/core"
	"github.com/jo-hoe/gomeme/internal/export"
	"github.com/jo-hoe/gomeme/internal/render"
)

// version is set via ldflags at build time
var version = "dev"

type renderCmd struct {
	Input        string `arg:"" name:"input" help:"Input image (PNG, JPEG, GIF, BMP, TIFF, WebP or SVG)" type:"existingfile"`
	Output       string `arg:"" name:"output" help:"Output PNG file, or a directory to write meme-<timestamp>.png into"`
	Top          string `help:"Top caption"`
	Bottom       string `help:"Bottom caption"`
	Fill         string `help:"Caption fill color" default:"#ffffff"`
	Stroke       string `help:"Caption stroke color" default:"#000000"`
	Font         string `help:"Font family" default:"go"`
	Size         int    `help:"Font size in pixels" default:"40"`
	CanvasWidth  int    `help:"Canvas width in pixels" default:"600"`
	CanvasHeight int    `help:"Canvas height in pixels" default:"600"`
	FontsDir     string `help:"Directory with additional .ttf fonts" type:"existingdir" optional:""`
}

type fontsCmd struct {
	FontsDir string `help:"Directory with additional .ttf fonts" type:"existingdir" optional:""`
}

var CLI struct {
	Render  renderCmd        `cmd:"" help:"Render a meme from an image file."`
	Fonts   fontsCmd         `cmd:"" help:"List available font families."`
	Version kong.VersionFlag `help:"Show version information"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("memecli"),
		kong.Description("Put top and bottom captions on an image."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)
	if err := ctx.Run(); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

func (c *renderCmd) Run() error {
	start := time.Now()

	style := render.Style{FillColor: c.Fill, StrokeColor: c.Stroke, FontFamily: c.Font, FontSizePx: c.Size}
	config := &core.ServiceConfig{
		Canvas:   core.Canvas{Width: c.CanvasWidth, Height: c.CanvasHeight},
		Defaults: style,
		FontsDir: c.FontsDir,
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return err
	}

	fonts, err := render.NewFontRegistry(c.FontsDir, render.DefaultFontFamily)
	if err != nil {
		return err
	}
	if !fonts.Has(c.Font) {
		cli.PrintWarning(fmt.Sprintf("font %q not found, using %q", c.Font, fonts.DefaultFamily()))
	}

	data, err := os.ReadFile(c.Input)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	loader, err := core.NewLoader(config.CommandConfigs(), 0)
	if err != nil {
		return err
	}
	bitmap, err := loader.Load(data)
	if err != nil {
		return err
	}
	cli.PrintInfo("pipeline", strings.Join(loader.Commands(), " → "))

	compositor, err := render.NewCompositor(c.CanvasWidth, c.CanvasHeight, fonts)
	if err != nil {
		return err
	}
	canvas, err := compositor.Render(bitmap,
		render.Caption{Text: c.Top, Style: style},
		render.Caption{Text: c.Bottom, Style: style})
	if err != nil {
		return err
	}

	path, size, err := c.write(canvas)
	if err != nil {
		return err
	}
	width, height := compositor.Size()

	cli.PrintSummary("✓ Meme rendered", [][2]string{
		{"Input", filepath.Base(c.Input)},
		{"Output", path},
		{"Canvas", fmt.Sprintf("%dx%d", width, height)},
		{"Size", cli.FormatBytes(size)},
		{"Time", cli.FormatDuration(time.Since(start))},
	})
	return nil
}

// write stores canvas at Output. A directory, or a path ending in a separator,
// receives a timestamped file name.
func (c *renderCmd) write(canvas *image.RGBA) (string, int64, error) {
	info, err := os.Stat(c.Output)
	isDir := err == nil && info.IsDir()
	if isDir || strings.HasSuffix(c.Output, string(os.PathSeparator)) {
		file, err := export.NewExporter(c.Output).ExportAsFile(canvas)
		if err != nil {
			return "", 0, err
		}
		return filepath.Join(c.Output, file.Name), int64(len(file.PNG)), nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return "", 0, fmt.Errorf("encoding PNG: %w", err)
	}
	if err := os.WriteFile(c.Output, buf.Bytes(), 0o644); err != nil {
		return "", 0, fmt.Errorf("writing output: %w", err)
	}
	return c.Output, int64(buf.Len()), nil
}

func (c *fontsCmd) Run() error {
	fonts, err := render.NewFontRegistry(c.FontsDir, render.DefaultFontFamily)
	if err != nil {
		return err
	}
	families := fonts.Families()
	fmt.Println(cli.TitleStyle.Render("Fonts"))
	for _, family := range families {
		marker := ""
		if family == fonts.DefaultFamily() {
			marker = " (default)"
		}
		cli.PrintInfo("font", family+marker)
	}
	cli.PrintSuccess(fmt.Sprintf("%d font families available", len(families)))
	return nil
}
