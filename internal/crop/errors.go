package crop

import "errors"

// Configuration errors returned by New, Prime and the JSON decoders. They are
// setup errors: callers surface them, nothing retries them.
var (
	ErrNoImage           = errors.New("image reference is required")
	ErrImageSize         = errors.New("original image width and height are required")
	ErrInvalidRatio      = errors.New("ratio must be a positive number")
	ErrInvalidMinimum    = errors.New("minimum crop size must not be negative")
	ErrMissingCoordinate = errors.New("missing property in coordinates")
	ErrRenderedSize      = errors.New("rendered image size must be positive")
)
