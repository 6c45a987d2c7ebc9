package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/buntdb"

	"github.com/rodrigo-brito/stockwave/service"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

const createdIndex = "created_index"

type Bunt struct {
	db     *buntdb.DB
	logger log.Logger
}

// bunt record; image bytes are kept base64 encoded by encoding/json.
// created_unix is indexed since RFC3339 strings do not sort by instant.
type buntRecord struct {
	service.Artifact
	CreatedUnix int64  `json:"created_unix"`
	Payload     []byte `json:"payload"`
}

func FromMemory(logger log.Logger) (Storage, error) {
	return newBunt(":memory:", logger)
}

func FromFile(file string, logger log.Logger) (Storage, error) {
	return newBunt(file, logger)
}

func newBunt(sourceFile string, logger log.Logger) (Storage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, err
	}

	err = db.CreateIndex(createdIndex, "*", buntdb.IndexJSON("created_unix"))
	if err != nil {
		return nil, err
	}

	return &Bunt{
		db:     db,
		logger: log.OrDiscard(logger),
	}, nil
}

func (b *Bunt) Save(_ context.Context, artifact service.Artifact) error {
	if artifact.Name == "" {
		return fmt.Errorf("save artifact: empty name")
	}
	content, err := json.Marshal(buntRecord{
		Artifact:    artifact,
		CreatedUnix: artifact.CreatedAt.UnixMicro(),
		Payload:     artifact.Data,
	})
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(artifact.Name, string(content), nil)
		return err
	})
}

func (b *Bunt) Get(_ context.Context, name string) (service.Artifact, error) {
	var artifact service.Artifact
	err := b.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(name)
		if err != nil {
			return err
		}
		artifact, err = decodeRecord(value)
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return service.Artifact{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return artifact, err
}

// Latest returns the most recently created artifact with the given identity.
func (b *Bunt) Latest(_ context.Context, symbol, kind, params string) (service.Artifact, error) {
	var (
		found    bool
		artifact service.Artifact
	)
	filters := []ArtifactFilter{WithSymbol(symbol), WithKind(kind), WithParams(params)}
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Descend(createdIndex, func(_, value string) bool {
			candidate, err := decodeRecord(value)
			if err != nil {
				b.logger.WithError(err).Warn("skipping unreadable artifact")
				return true
			}
			if !match(candidate, filters) {
				return true
			}
			artifact, found = candidate, true
			return false
		})
	})
	if err != nil {
		return service.Artifact{}, err
	}
	if !found {
		return service.Artifact{}, fmt.Errorf("%s/%s: %w", symbol, kind, ErrNotFound)
	}
	return artifact, nil
}

// Artifacts lists stored artifacts ordered by creation time.
func (b *Bunt) Artifacts(filters ...ArtifactFilter) ([]service.Artifact, error) {
	artifacts := make([]service.Artifact, 0)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend(createdIndex, func(_, value string) bool {
			artifact, err := decodeRecord(value)
			if err != nil {
				b.logger.WithError(err).Warn("skipping unreadable artifact")
				return true
			}
			if match(artifact, filters) {
				artifacts = append(artifacts, artifact)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (b *Bunt) Close() error {
	return b.db.Close()
}

func decodeRecord(value string) (service.Artifact, error) {
	var record buntRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return service.Artifact{}, err
	}
	artifact := record.Artifact
	artifact.Data = record.Payload
	return artifact, nil
}
