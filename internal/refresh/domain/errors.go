package domain

import (
	"errors"
	"fmt"
)

const (
	SourceCountries = "countries"
	SourceRates     = "rates"
)

var (
	// ErrEmptyResponse marks an upstream that answered with no usable data.
	ErrEmptyResponse = errors.New("no data received")
	// ErrMalformedResponse marks an upstream body that does not match the
	// expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// SourceError is a failure of one upstream data source: non-success status,
// malformed shape, or timeout. A countries SourceError aborts the cycle; a
// rates SourceError degrades it.
type SourceError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source %s: status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// AsSourceError unwraps err into a SourceError, or nil.
func AsSourceError(err error) *SourceError {
	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return srcErr
	}
	return nil
}
