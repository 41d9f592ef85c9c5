package backend

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jo-hoe/gomeme/internal/core"
	"github.com/jo-hoe/gomeme/internal/export"
	"github.com/jo-hoe/gomeme/internal/gallery"
	"github.com/jo-hoe/gomeme/internal/render"

	"github.com/labstack/echo/v4"
)

const mimePNG = "image/png"

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

// CaptionsRequest is the body of PUT /api/captions.
type CaptionsRequest struct {
	TopText     string `json:"topText" form:"topText" validate:"max=500"`
	BottomText  string `json:"bottomText" form:"bottomText" validate:"max=500"`
	FillColor   string `json:"fillColor" form:"fillColor" validate:"required,hexcolor"`
	StrokeColor string `json:"strokeColor" form:"strokeColor" validate:"required,hexcolor"`
	FontFamily  string `json:"fontFamily" form:"fontFamily" validate:"max=64"`
	FontSizePx  int    `json:"fontSizePx" form:"fontSizePx" validate:"min=8,max=200"`
}

type ImageResponse struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type MemeResponse struct {
	ID   int64  `json:"id"`
	Data string `json:"data"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      config,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	api := e.Group("/api")
	api.POST("/image", s.uploadImageHandler)
	api.GET("/captions", s.getCaptionsHandler)
	api.PUT("/captions", s.setCaptionsHandler)
	api.GET("/fonts", s.fontsHandler)
	api.GET("/canvas", s.canvasHandler)
	api.POST("/export", s.exportHandler)
	api.POST("/share", s.shareHandler)
	api.GET("/gallery", s.listGalleryHandler)
	api.DELETE("/gallery/:id", s.deleteMemeHandler)
	api.POST("/gallery/:id/load", s.loadMemeHandler)
}

func (s *APIService) uploadImageHandler(c echo.Context) error {
	data, err := ReadUpload(c, "image")
	if err != nil {
		return err
	}
	bounds, err := s.coreService.LoadImage(c.Request().Context(), data)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ImageResponse{Width: bounds.Dx(), Height: bounds.Dy()})
}

func (s *APIService) getCaptionsHandler(c echo.Context) error {
	captions, err := s.coreService.Captions(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, CaptionsRequest{
		TopText:     captions.TopText,
		BottomText:  captions.BottomText,
		FillColor:   captions.Style.FillColor,
		StrokeColor: captions.Style.StrokeColor,
		FontFamily:  captions.Style.FontFamily,
		FontSizePx:  captions.Style.FontSizePx,
	})
}

func (s *APIService) setCaptionsHandler(c echo.Context) error {
	var req CaptionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := s.coreService.SetCaptions(c.Request().Context(), req.Captions()); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Captions converts the request into caption state.
func (r CaptionsRequest) Captions() core.Captions {
	return core.Captions{
		TopText:    r.TopText,
		BottomText: r.BottomText,
		Style: render.Style{
			FillColor:   r.FillColor,
			StrokeColor: r.StrokeColor,
			FontFamily:  r.FontFamily,
			FontSizePx:  r.FontSizePx,
		},
	}
}

func (s *APIService) fontsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.coreService.Fonts())
}

func (s *APIService) canvasHandler(c echo.Context) error {
	data, err := s.coreService.Canvas(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	SetNoCache(c)
	return c.Blob(http.StatusOK, mimePNG, data)
}

func (s *APIService) exportHandler(c echo.Context) error {
	file, meme, err := s.coreService.Export(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set("X-Meme-Id", strconv.FormatInt(meme.ID, 10))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+file.Name+`"`)
	return c.Blob(http.StatusOK, mimePNG, file.PNG)
}

func (s *APIService) shareHandler(c echo.Context) error {
	if err := s.coreService.Share(c.Request().Context()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "shared"})
}

func (s *APIService) listGalleryHandler(c echo.Context) error {
	memes, err := s.coreService.Gallery(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	response := make([]MemeResponse, 0, len(memes))
	for _, m := range memes {
		response = append(response, MemeResponse{ID: m.ID, Data: m.Data})
	}
	SetNoCache(c)
	return c.JSON(http.StatusOK, response)
}

func (s *APIService) deleteMemeHandler(c echo.Context) error {
	id, err := ParseMemeID(c)
	if err != nil {
		return err
	}
	if err := s.coreService.DeleteMeme(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIService) loadMemeHandler(c echo.Context) error {
	id, err := ParseMemeID(c)
	if err != nil {
		return err
	}
	if err := s.coreService.LoadFromGallery(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ReadUpload returns the content of the multipart file field.
func ReadUpload(c echo.Context, field string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		slog.Warn("failed to get uploaded file", "status", http.StatusBadRequest, "error", err)
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to get uploaded file")
	}
	src, err := file.Open()
	if err != nil {
		slog.Error("failed to open uploaded file", "error", err, "filename", file.Filename)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()
	data, err := io.ReadAll(src)
	if err != nil {
		slog.Error("failed to read uploaded file", "error", err, "filename", file.Filename)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to read uploaded file")
	}
	return data, nil
}

// ParseMemeID reads the :id path parameter.
func ParseMemeID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid meme id")
	}
	return id, nil
}

// SetNoCache disables client caching for responses that change with every edit.
func SetNoCache(c echo.Context) {
	c.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	c.Response().Header().Set("Pragma", "no-cache")
	c.Response().Header().Set("Expires", "0")
}

// respondError answers ErrNoImage with an empty 204, since acting on an empty canvas
// does nothing, and maps every other error onto an HTTP error.
func respondError(c echo.Context, err error) error {
	if errors.Is(err, core.ErrNoImage) {
		return c.NoContent(http.StatusNoContent)
	}
	return ToHTTPError(err)
}

// ToHTTPError maps service errors onto status codes.
func ToHTTPError(err error) error {
	switch {
	case errors.Is(err, core.ErrDecodeFailed):
		return echo.NewHTTPError(http.StatusBadRequest, "the file could not be decoded as an image")
	case errors.Is(err, core.ErrImageTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image is too large")
	case errors.Is(err, core.ErrInvalidStyle):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, gallery.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "meme not found")
	case errors.Is(err, export.ErrShareUnsupported):
		return echo.NewHTTPError(http.StatusNotImplemented, "sharing is not supported; download the meme and share it manually")
	case errors.Is(err, export.ErrShareCancelled):
		return echo.NewHTTPError(http.StatusConflict, "share was cancelled")
	case errors.Is(err, export.ErrShareFailed):
		return echo.NewHTTPError(http.StatusConflict, "the meme could not be shared; download it and share it manually")
	case errors.Is(err, core.ErrClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service is shutting down")
	default:
		slog.Error("request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
