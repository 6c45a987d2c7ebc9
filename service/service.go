//go:generate mockery --name "Feeder|Notifier" --output=../mocks --outpkg=mocks --with-expecter

// Package service declares the seams between the analysis pipeline and the
// outside world: price sources, artifact rendering and storage, notifications.
package service

import (
	"context"
	"time"

	"github.com/rodrigo-brito/stockwave/model"
)

// Feeder fetches price history. Implementations are shared across workers and
// must be safe for concurrent use.
type Feeder interface {
	CandlesByPeriod(ctx context.Context, symbol, period string, start, end time.Time) ([]model.Candle, error)
}

// Notifier receives pipeline events.
type Notifier interface {
	Notify(string)
	OnError(err error)
}

// Artifact is a rendered image stored for later retrieval.
type Artifact struct {
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	Kind      string    `json:"kind"`
	Params    string    `json:"params,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Data      []byte    `json:"-"`
}

// ArtifactStore keeps rendered artifacts by name.
type ArtifactStore interface {
	Save(ctx context.Context, artifact Artifact) error
	Get(ctx context.Context, name string) (Artifact, error)
	Latest(ctx context.Context, symbol, kind, params string) (Artifact, error)
}
