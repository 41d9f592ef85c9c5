package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/jo-hoe/gomeme/internal/backend/commands"
	"github.com/jo-hoe/gomeme/internal/backend/database"
	"github.com/jo-hoe/gomeme/internal/export"
	"github.com/jo-hoe/gomeme/internal/gallery"
	"github.com/jo-hoe/gomeme/internal/render"
)

// Captions is the caption state shared by the top and bottom text.
type Captions struct {
	TopText    string       `json:"topText"`
	BottomText string       `json:"bottomText"`
	Style      render.Style `json:"style"`
}

// CoreService owns the loaded bitmap, the rendered canvas, the caption state and the
// gallery. Every method is safe for concurrent use; work is serialised on one executor.
type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	exec            *executor

	loader     *Loader
	fonts      *render.FontRegistry
	compositor *render.Compositor
	gallery    *gallery.Store
	exporter   *export.Exporter
	sharer     export.Sharer

	bitmap   image.Image
	canvas   *image.RGBA
	captions Captions
}

// Option customises a CoreService.
type Option func(*CoreService)

// WithSharer replaces the configured share command.
func WithSharer(sharer export.Sharer) Option {
	return func(s *CoreService) { s.sharer = sharer }
}

// WithExporter replaces the exporter built from the configuration.
func WithExporter(exporter *export.Exporter) Option {
	return func(s *CoreService) { s.exporter = exporter }
}

func NewCoreService(ctx context.Context, config *ServiceConfig, opts ...Option) (*CoreService, error) {
	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}

	service, err := newCoreService(ctx, config, databaseService, opts...)
	if err != nil {
		if cerr := databaseService.Close(); cerr != nil {
			slog.Error("failed to close database after init error", "error", cerr)
		}
		return nil, err
	}
	return service, nil
}

func newCoreService(ctx context.Context, config *ServiceConfig, databaseService database.DatabaseService, opts ...Option) (*CoreService, error) {
	loader, err := NewLoader(config.CommandConfigs(), config.MaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to build image pipeline: %w", err)
	}
	slog.Info("image pipeline ready", "commands", loader.Commands())
	fonts, err := render.NewFontRegistry(config.FontsDir, config.Defaults.FontFamily)
	if err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}
	compositor, err := render.NewCompositor(config.Canvas.Width, config.Canvas.Height, fonts)
	if err != nil {
		return nil, err
	}
	store, err := gallery.NewStore(databaseService,
		gallery.WithKey(config.Gallery.Key),
		gallery.WithCapacity(config.Gallery.Capacity))
	if err != nil {
		return nil, err
	}
	if err := store.LoadAll(ctx); err != nil {
		return nil, err
	}

	service := &CoreService{
		config:          config,
		databaseService: databaseService,
		loader:          loader,
		fonts:           fonts,
		compositor:      compositor,
		gallery:         store,
		exporter:        export.NewExporter(config.ExportDir),
		sharer:          export.NewCommandSharer(config.Share.Command, config.Share.Args),
		captions:        Captions{Style: config.Defaults},
	}
	for _, opt := range opts {
		opt(service)
	}
	service.exec = newExecutor()
	return service, nil
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Gallery.Type, config.Gallery.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Gallery.Type)
	return databaseService, nil
}

// Fonts lists the available font families.
func (service *CoreService) Fonts() []string {
	return service.fonts.Families()
}

// LoadImage decodes data, makes it the current bitmap and renders it with the current
// captions. On failure the previous bitmap and canvas are kept.
func (service *CoreService) LoadImage(ctx context.Context, data []byte) (image.Rectangle, error) {
	bitmap, err := service.loader.Load(data)
	if err != nil {
		slog.Warn("image upload rejected", "error", err, "bytes", len(data))
		return image.Rectangle{}, err
	}
	return submit(ctx, service.exec, func() (image.Rectangle, error) {
		canvas, err := service.compositor.Render(bitmap, topCaption(service.captions), bottomCaption(service.captions))
		if err != nil {
			return image.Rectangle{}, err
		}
		service.bitmap = bitmap
		service.canvas = canvas
		slog.Info("image loaded", "width", bitmap.Bounds().Dx(), "height", bitmap.Bounds().Dy())
		return bitmap.Bounds(), nil
	})
}

// HasImage reports whether a bitmap is loaded.
func (service *CoreService) HasImage(ctx context.Context) (bool, error) {
	return submit(ctx, service.exec, func() (bool, error) {
		return service.canvas != nil, nil
	})
}

// Captions returns the current caption state.
func (service *CoreService) Captions(ctx context.Context) (Captions, error) {
	return submit(ctx, service.exec, func() (Captions, error) {
		return service.captions, nil
	})
}

// SetCaptions replaces the caption state and, if an image is loaded, re-renders. An
// empty font family selects the configured default.
func (service *CoreService) SetCaptions(ctx context.Context, captions Captions) error {
	if captions.Style.FontFamily == "" {
		captions.Style.FontFamily = service.config.Defaults.FontFamily
	}
	if err := validateStyle(captions.Style); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStyle, err)
	}
	return do(ctx, service.exec, func() error {
		if service.bitmap != nil {
			canvas, err := service.compositor.Render(service.bitmap, topCaption(captions), bottomCaption(captions))
			if err != nil {
				return err
			}
			service.canvas = canvas
		}
		service.captions = captions
		return nil
	})
}

// Render redraws the canvas from the current bitmap and captions.
func (service *CoreService) Render(ctx context.Context) (*image.RGBA, error) {
	return submit(ctx, service.exec, func() (*image.RGBA, error) {
		if service.bitmap == nil {
			return nil, ErrNoImage
		}
		canvas, err := service.compositor.Render(service.bitmap, topCaption(service.captions), bottomCaption(service.captions))
		if err != nil {
			return nil, err
		}
		service.canvas = canvas
		return canvas, nil
	})
}

// Canvas returns the current canvas encoded as PNG.
func (service *CoreService) Canvas(ctx context.Context) ([]byte, error) {
	canvas, err := service.currentCanvas(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode canvas: %w", err)
	}
	return buf.Bytes(), nil
}

// Export encodes the canvas as a named PNG file, saves it to the gallery and then
// writes it to the export directory. Nothing is written when the gallery save fails.
func (service *CoreService) Export(ctx context.Context) (export.File, gallery.RenderedMeme, error) {
	type exported struct {
		file export.File
		meme gallery.RenderedMeme
	}
	result, err := submit(ctx, service.exec, func() (exported, error) {
		if service.canvas == nil {
			return exported{}, ErrNoImage
		}
		file, err := service.exporter.Encode(service.canvas)
		if err != nil {
			return exported{}, err
		}
		meme, err := service.gallery.Save(ctx, gallery.PNGDataURI(file.PNG))
		if err != nil {
			return exported{}, err
		}
		if _, err := service.exporter.Write(file); err != nil {
			return exported{}, err
		}
		return exported{file: file, meme: meme}, nil
	})
	return result.file, result.meme, err
}

// Share hands the current canvas to the sharer. The gallery is never modified. The
// share itself runs outside the executor so a slow share target does not block edits.
func (service *CoreService) Share(ctx context.Context) error {
	canvas, err := service.currentCanvas(ctx)
	if err != nil {
		return err
	}
	file, err := export.NewExporter("").Encode(canvas)
	if err != nil {
		return err
	}
	if err := service.sharer.Share(ctx, file); err != nil {
		switch {
		case errors.Is(err, export.ErrShareUnsupported):
			slog.Info("share unsupported", "error", err)
		case errors.Is(err, export.ErrShareCancelled):
			slog.Info("share cancelled", "error", err)
		default:
			slog.Warn("share failed", "error", err)
		}
		return err
	}
	return nil
}

// Gallery lists saved memes, newest first.
func (service *CoreService) Gallery(ctx context.Context) ([]gallery.RenderedMeme, error) {
	return submit(ctx, service.exec, func() ([]gallery.RenderedMeme, error) {
		return service.gallery.List(), nil
	})
}

// DeleteMeme removes a saved meme. Unknown ids are ignored.
func (service *CoreService) DeleteMeme(ctx context.Context, id int64) error {
	return do(ctx, service.exec, func() error {
		return service.gallery.Delete(ctx, id)
	})
}

// LoadFromGallery makes a saved meme the current bitmap and draws it over the whole
// canvas without captions. Later caption edits render on top of it.
func (service *CoreService) LoadFromGallery(ctx context.Context, id int64) error {
	return do(ctx, service.exec, func() error {
		meme, err := service.gallery.Get(id)
		if err != nil {
			return err
		}
		bitmap, err := decodeMeme(meme)
		if err != nil {
			return err
		}
		service.bitmap = bitmap
		service.canvas = service.compositor.DrawFull(bitmap)
		slog.Info("meme loaded from gallery", "id", id)
		return nil
	})
}

// Thumbnail returns a downscaled PNG of a saved meme.
func (service *CoreService) Thumbnail(ctx context.Context, id int64) ([]byte, error) {
	meme, err := submit(ctx, service.exec, func() (gallery.RenderedMeme, error) {
		return service.gallery.Get(id)
	})
	if err != nil {
		return nil, err
	}
	data, err := meme.PNG()
	if err != nil {
		return nil, err
	}
	command, err := commands.NewThumbnailCommand(map[string]any{"width": service.config.ThumbnailWidth})
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail command: %w", err)
	}
	thumbnail, err := command.Execute(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate thumbnail: %w", err)
	}
	return thumbnail, nil
}

// Close stops the executor and closes the backing store.
func (service *CoreService) Close() error {
	service.exec.stop()
	return service.databaseService.Close()
}

func (service *CoreService) currentCanvas(ctx context.Context) (*image.RGBA, error) {
	return submit(ctx, service.exec, func() (*image.RGBA, error) {
		if service.canvas == nil {
			return nil, ErrNoImage
		}
		return service.canvas, nil
	})
}

func topCaption(c Captions) render.Caption {
	return render.Caption{Text: c.TopText, Style: c.Style}
}

func bottomCaption(c Captions) render.Caption {
	return render.Caption{Text: c.BottomText, Style: c.Style}
}

func decodeMeme(meme gallery.RenderedMeme) (image.Image, error) {
	data, err := meme.PNG()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return img, nil
}
