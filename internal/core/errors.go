package core

import "errors"

var (
	// ErrNoImage is returned when an operation needs a loaded image and there is none.
	ErrNoImage = errors.New("no image loaded")
	// ErrDecodeFailed wraps every failure to turn uploaded bytes into a bitmap.
	ErrDecodeFailed = errors.New("image could not be decoded")
	// ErrImageTooLarge is returned for uploads above the configured limit.
	ErrImageTooLarge = errors.New("image exceeds upload limit")
	// ErrInvalidStyle is returned for caption styles that cannot be drawn.
	ErrInvalidStyle = errors.New("invalid caption style")
	// ErrClosed is returned once the service has been closed.
	ErrClosed = errors.New("core service is closed")
)
