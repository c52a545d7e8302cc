package domain

import "errors"

// Domain errors
var (
	ErrDataUnavailable    = errors.New("data unavailable")
	ErrInvalidDocument    = errors.New("invalid document")
	ErrUnknownMetric      = errors.New("unknown metric")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)

// IsUnavailable checks if an error means the backing documents could not be served
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrDataUnavailable)
}
