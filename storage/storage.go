package storage

import (
	"errors"
	"time"

	"github.com/rodrigo-brito/stockwave/service"
)

var ErrNotFound = errors.New("artifact not found")

// ArtifactFilter selects artifacts when listing.
type ArtifactFilter func(service.Artifact) bool

// Storage keeps rendered artifacts.
type Storage interface {
	service.ArtifactStore
	Artifacts(filters ...ArtifactFilter) ([]service.Artifact, error)
	Close() error
}

func WithSymbol(symbol string) ArtifactFilter {
	return func(a service.Artifact) bool {
		return a.Symbol == symbol
	}
}

func WithKind(kind string) ArtifactFilter {
	return func(a service.Artifact) bool {
		return a.Kind == kind
	}
}

func WithParams(params string) ArtifactFilter {
	return func(a service.Artifact) bool {
		return a.Params == params
	}
}

// WithCreatedBeforeOrEqual keeps artifacts created no later than t.
func WithCreatedBeforeOrEqual(t time.Time) ArtifactFilter {
	return func(a service.Artifact) bool {
		return !a.CreatedAt.After(t)
	}
}

func match(a service.Artifact, filters []ArtifactFilter) bool {
	for _, filter := range filters {
		if !filter(a) {
			return false
		}
	}
	return true
}
