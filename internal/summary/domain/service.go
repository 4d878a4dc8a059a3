package domain

import (
	"context"
	"errors"
)

// Generator renders the summary artifact from stored data: the top countries
// by estimated GDP plus the system status row.
type Generator interface {
	// Generate renders the artifact and writes it to the configured path.
	Generate(ctx context.Context) error
	// Read returns the latest rendered artifact.
	Read(ctx context.Context) ([]byte, error)
}

var ErrNotGenerated = errors.New("summary_not_generated")
