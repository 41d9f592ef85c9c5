package frontend

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/jo-hoe/gomeme/internal/backend"
	"github.com/jo-hoe/gomeme/internal/core"
	"github.com/jo-hoe/gomeme/internal/export"
	"github.com/jo-hoe/gomeme/internal/gallery"
	"github.com/labstack/echo/v4"
)

const (
	MainPageName = "index.html"
	previewName  = "preview.html"
	galleryName  = "gallery.html"
	mimePNG      = "image/png"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type indexData struct {
	CanvasWidth    int
	CanvasHeight   int
	ThumbnailWidth int
	Fonts          []string
	Captions       core.Captions
	Preview        previewData
}

type previewData struct {
	HasImage  bool
	Width     int
	Height    int
	Timestamp string
	Message   string
}

type galleryData struct {
	Memes          []gallery.RenderedMeme
	ThumbnailWidth int
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	// Create template renderer
	e.Renderer = &Template{
		templates: template.Must(template.New("").ParseFS(templateFS, viewsPattern)),
	}

	e.GET("/", service.rootRedirectHandler) // Redirect root to index.html
	e.GET("/"+MainPageName, service.indexHandler)
	e.POST("/htmx/image", service.htmxUploadImageHandler)
	e.PUT("/htmx/captions", service.htmxCaptionsHandler)
	e.POST("/htmx/share", service.htmxShareHandler)

	// Gallery routes
	e.GET("/htmx/gallery", service.htmxGalleryHandler)
	e.GET("/htmx/gallery/:id/thumb", service.htmxThumbnailHandler)
	e.POST("/htmx/gallery/:id/load", service.htmxLoadMemeHandler)
	e.DELETE("/htmx/gallery/:id", service.htmxDeleteMemeHandler)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	captions, err := service.coreService.Captions(ctx.Request().Context())
	if err != nil {
		return backend.ToHTTPError(err)
	}
	preview, err := service.preview(ctx, "")
	if err != nil {
		return backend.ToHTTPError(err)
	}
	return ctx.Render(http.StatusOK, MainPageName, indexData{
		CanvasWidth:    service.config.Canvas.Width,
		CanvasHeight:   service.config.Canvas.Height,
		ThumbnailWidth: service.config.ThumbnailWidth,
		Fonts:          service.coreService.Fonts(),
		Captions:       captions,
		Preview:        preview,
	})
}

func (service *FrontendService) htmxUploadImageHandler(ctx echo.Context) error {
	image, err := backend.ReadUpload(ctx, "image")
	if err != nil {
		return service.renderPreview(ctx, "Failed to read the uploaded file")
	}

	if _, err := service.coreService.LoadImage(ctx.Request().Context(), image); err != nil {
		slog.Warn("htmxUploadImageHandler: failed to load uploaded image", "error", err)
		message := "Failed to process uploaded image"
		switch {
		case errors.Is(err, core.ErrDecodeFailed):
			message = "The file could not be decoded as an image"
		case errors.Is(err, core.ErrImageTooLarge):
			message = "The image is too large"
		}
		return service.renderPreview(ctx, message)
	}
	return service.renderPreview(ctx, "")
}

func (service *FrontendService) htmxCaptionsHandler(ctx echo.Context) error {
	var req backend.CaptionsRequest
	if err := ctx.Bind(&req); err != nil {
		return service.renderPreview(ctx, "Invalid caption settings")
	}
	if err := ctx.Validate(&req); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return service.renderPreview(ctx, fmt.Sprint(httpErr.Message))
		}
		return service.renderPreview(ctx, "Invalid caption settings")
	}
	if err := service.coreService.SetCaptions(ctx.Request().Context(), req.Captions()); err != nil {
		slog.Warn("htmxCaptionsHandler: failed to update captions", "error", err)
		return service.renderPreview(ctx, "Failed to update captions")
	}
	return service.renderPreview(ctx, "")
}

func (service *FrontendService) htmxShareHandler(ctx echo.Context) error {
	err := service.coreService.Share(ctx.Request().Context())
	switch {
	case err == nil:
		return ctx.HTML(http.StatusOK, "Shared")
	case errors.Is(err, core.ErrNoImage):
		return ctx.HTML(http.StatusOK, "")
	case errors.Is(err, export.ErrShareUnsupported):
		return ctx.HTML(http.StatusOK, "Sharing is not supported here. Download the meme and share it manually.")
	case errors.Is(err, export.ErrShareCancelled):
		return ctx.HTML(http.StatusOK, "Share cancelled")
	default:
		return ctx.HTML(http.StatusOK, "The meme could not be shared. Download it and share it manually.")
	}
}

func (service *FrontendService) htmxGalleryHandler(ctx echo.Context) error {
	memes, err := service.coreService.Gallery(ctx.Request().Context())
	if err != nil {
		slog.Error("htmxGalleryHandler: failed to list memes",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list memes")
	}

	// Prevent caching so the latest memes are always shown
	backend.SetNoCache(ctx)

	return ctx.Render(http.StatusOK, galleryName, galleryData{Memes: memes, ThumbnailWidth: service.config.ThumbnailWidth})
}

func (service *FrontendService) htmxThumbnailHandler(ctx echo.Context) error {
	id, err := backend.ParseMemeID(ctx)
	if err != nil {
		return err
	}

	thumbnail, err := service.coreService.Thumbnail(ctx.Request().Context(), id)
	if err != nil || len(thumbnail) == 0 {
		slog.Warn("htmxThumbnailHandler: thumbnail not available",
			"status", http.StatusNotFound, "meme_id", id, "error", err)
		return ctx.String(http.StatusNotFound, "Thumbnail not available")
	}

	// Saved memes never change, so thumbnails may be cached
	ctx.Response().Header().Set("Cache-Control", "public, max-age=86400, immutable")
	return ctx.Blob(http.StatusOK, mimePNG, thumbnail)
}

func (service *FrontendService) htmxLoadMemeHandler(ctx echo.Context) error {
	id, err := backend.ParseMemeID(ctx)
	if err != nil {
		return err
	}
	if err := service.coreService.LoadFromGallery(ctx.Request().Context(), id); err != nil {
		slog.Warn("htmxLoadMemeHandler: failed to load meme", "meme_id", id, "error", err)
		return service.renderPreview(ctx, "That meme is no longer available")
	}
	return service.renderPreview(ctx, "")
}

func (service *FrontendService) htmxDeleteMemeHandler(ctx echo.Context) error {
	id, err := backend.ParseMemeID(ctx)
	if err != nil {
		return err
	}
	if err := service.coreService.DeleteMeme(ctx.Request().Context(), id); err != nil {
		slog.Error("htmxDeleteMemeHandler: failed to delete meme",
			"status", http.StatusInternalServerError, "meme_id", id, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to delete meme")
	}
	return service.htmxGalleryHandler(ctx)
}

func (service *FrontendService) renderPreview(ctx echo.Context, message string) error {
	preview, err := service.preview(ctx, message)
	if err != nil {
		return backend.ToHTTPError(err)
	}
	backend.SetNoCache(ctx)
	return ctx.Render(http.StatusOK, previewName, preview)
}

func (service *FrontendService) preview(ctx echo.Context, message string) (previewData, error) {
	hasImage, err := service.coreService.HasImage(ctx.Request().Context())
	if err != nil {
		return previewData{}, err
	}
	return previewData{
		HasImage:  hasImage,
		Width:     service.config.Canvas.Width,
		Height:    service.config.Canvas.Height,
		Timestamp: fmt.Sprintf("%d", time.Now().UnixNano()),
		Message:   message,
	}, nil
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}
