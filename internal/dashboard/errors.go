package dashboard

import (
	"errors"
	"fmt"
)

var (
	ErrMissingParams    = errors.New("missing required parameters")
	ErrInvalidTab       = errors.New("invalid tab")
	ErrInvalidView      = errors.New("invalid view")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidDateRange = errors.New("invalid date range")
)

// RequestError is a client input problem. Message is safe to return to the
// caller as is.
type RequestError struct {
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func requestErrorf(sentinel error, format string, args ...interface{}) error {
	return &RequestError{Message: fmt.Sprintf(format, args...), Err: sentinel}
}
