package core

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/jo-hoe/gomeme/internal/backend/commandstructure"

	// registers the preprocessing commands
	_ "github.com/jo-hoe/gomeme/internal/backend/commands"
)

// Loader turns uploaded bytes into a bitmap by running the preprocessing pipeline,
// which normalises every supported format to PNG, and decoding the result.
type Loader struct {
	invoker  *commandstructure.CommandInvoker
	maxBytes int64
}

// NewLoader builds the pipeline from commands. maxBytes <= 0 disables the size limit.
func NewLoader(commands []commandstructure.CommandConfig, maxBytes int64) (*Loader, error) {
	invoker, err := commandstructure.NewCommandInvokerFromConfigs(commandstructure.DefaultRegistry, commands)
	if err != nil {
		return nil, err
	}
	return &Loader{invoker: invoker, maxBytes: maxBytes}, nil
}

// Commands returns the pipeline's command names in execution order.
func (l *Loader) Commands() []string {
	return l.invoker.Names()
}

func (l *Loader) Load(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrDecodeFailed)
	}
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(data), l.maxBytes)
	}

	normalised, err := l.invoker.Execute(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	img, err := png.Decode(bytes.NewReader(normalised))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: image has no pixels", ErrDecodeFailed)
	}
	return img, nil
}
