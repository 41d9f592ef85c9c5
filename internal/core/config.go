package core

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jo-hoe/gomeme/internal/backend/commandstructure"
	"github.com/jo-hoe/gomeme/internal/backend/database"
	"github.com/jo-hoe/gomeme/internal/gallery"
	"github.com/jo-hoe/gomeme/internal/render"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = 8080
	defaultCanvasSize     = 600
	defaultThumbnailWidth = 150
	defaultMaxUploadBytes = 10 << 20
	defaultConnection     = "gallery.db"
	pngConverterCommand   = "PngConverterCommand"
)

// CommandConfig represents a generic command configuration
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Canvas struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Gallery struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
	Key              string `yaml:"key"`
	Capacity         int    `yaml:"capacity"`
}

// Share configures the OS command used to share a meme. The PNG path is appended to
// Args. An empty Command disables sharing.
type Share struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type ServiceConfig struct {
	Port           int             `yaml:"port"`
	Canvas         Canvas          `yaml:"canvas"`
	Gallery        Gallery         `yaml:"gallery"`
	Defaults       render.Style    `yaml:"defaults"`
	FontsDir       string          `yaml:"fontsDir"`
	ExportDir      string          `yaml:"exportDir"`
	Share          Share           `yaml:"share"`
	ThumbnailWidth int             `yaml:"thumbnailWidth"`
	MaxUploadBytes int64           `yaml:"maxUploadBytes"`
	Commands       []CommandConfig `yaml:"commands"`
}

// DefaultStyle is the caption style used when none is configured.
func DefaultStyle() render.Style {
	return render.Style{
		FillColor:   "#ffffff",
		StrokeColor: "#000000",
		FontFamily:  render.DefaultFontFamily,
		FontSizePx:  40,
	}
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ApplyDefaults fills every unset field.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Canvas.Width == 0 {
		c.Canvas.Width = defaultCanvasSize
	}
	if c.Canvas.Height == 0 {
		c.Canvas.Height = defaultCanvasSize
	}
	if c.Gallery.Type == "" {
		c.Gallery.Type = database.TypeSQLite
	}
	if c.Gallery.ConnectionString == "" && c.Gallery.Type == database.TypeSQLite {
		c.Gallery.ConnectionString = defaultConnection
	}
	if c.Gallery.Key == "" {
		c.Gallery.Key = gallery.DefaultKey
	}
	if c.Gallery.Capacity == 0 {
		c.Gallery.Capacity = gallery.DefaultCapacity
	}

	defaults := DefaultStyle()
	if c.Defaults.FillColor == "" {
		c.Defaults.FillColor = defaults.FillColor
	}
	if c.Defaults.StrokeColor == "" {
		c.Defaults.StrokeColor = defaults.StrokeColor
	}
	if c.Defaults.FontFamily == "" {
		c.Defaults.FontFamily = defaults.FontFamily
	}
	if c.Defaults.FontSizePx == 0 {
		c.Defaults.FontSizePx = defaults.FontSizePx
	}

	if c.ThumbnailWidth == 0 {
		c.ThumbnailWidth = defaultThumbnailWidth
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = defaultMaxUploadBytes
	}

	if len(c.Commands) == 0 {
		c.Commands = []CommandConfig{{Name: pngConverterCommand}}
	}
	// SVGs without an explicit size are rasterised at canvas size
	for i := range c.Commands {
		if c.Commands[i].Name != pngConverterCommand {
			continue
		}
		if c.Commands[i].Params == nil {
			c.Commands[i].Params = map[string]any{}
		}
		if _, ok := c.Commands[i].Params["svgFallbackWidth"]; !ok {
			c.Commands[i].Params["svgFallbackWidth"] = c.Canvas.Width
		}
		if _, ok := c.Commands[i].Params["svgFallbackHeight"]; !ok {
			c.Commands[i].Params["svgFallbackHeight"] = c.Canvas.Height
		}
	}
}

// Validate reports the first invalid setting.
func (c *ServiceConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Gallery.Capacity < 1 {
		return fmt.Errorf("gallery capacity must be at least 1, got %d", c.Gallery.Capacity)
	}
	if c.Gallery.Type != database.TypeSQLite && c.Gallery.Type != database.TypeRedis {
		return fmt.Errorf("unsupported gallery type %q", c.Gallery.Type)
	}
	if c.Gallery.ConnectionString == "" {
		return errors.New("gallery connectionString is required")
	}
	if err := validateStyle(c.Defaults); err != nil {
		return fmt.Errorf("invalid defaults: %w", err)
	}
	if c.ThumbnailWidth < 0 {
		return fmt.Errorf("thumbnailWidth must not be negative, got %d", c.ThumbnailWidth)
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("maxUploadBytes must not be negative, got %d", c.MaxUploadBytes)
	}
	if err := validateCommands(c.Commands); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}
	return nil
}

func validateStyle(style render.Style) error {
	if _, err := render.ParseHexColor(style.FillColor); err != nil {
		return fmt.Errorf("fillColor: %w", err)
	}
	if _, err := render.ParseHexColor(style.StrokeColor); err != nil {
		return fmt.Errorf("strokeColor: %w", err)
	}
	if style.FontSizePx <= 0 || style.FontSizePx > render.MaxFontSizePx {
		return fmt.Errorf("fontSizePx must be between 1 and %d, got %d", render.MaxFontSizePx, style.FontSizePx)
	}
	return nil
}

// validateCommands ensures all command configurations have required fields and name
// a registered command
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		// Validate name is not empty
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}

		// Validate name is unique
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true

		if !commandstructure.DefaultRegistry.IsRegistered(cmd.Name) {
			return fmt.Errorf("unknown command %q, available: %s", cmd.Name,
				strings.Join(commandstructure.DefaultRegistry.GetRegisteredNames(), ", "))
		}
	}

	return nil
}

// CommandConfigs converts the configured pipeline for the command registry.
func (c *ServiceConfig) CommandConfigs() []commandstructure.CommandConfig {
	configs := make([]commandstructure.CommandConfig, 0, len(c.Commands))
	for _, cmd := range c.Commands {
		configs = append(configs, commandstructure.CommandConfig{Name: cmd.Name, Params: cmd.Params})
	}
	return configs
}
