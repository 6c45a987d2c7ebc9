package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/rodrigo-brito/stockwave/service"
)

// artifactRecord is the table layout of a stored artifact.
type artifactRecord struct {
	Name      string `gorm:"primaryKey"`
	Symbol    string `gorm:"index:idx_identity"`
	Kind      string `gorm:"index:idx_identity"`
	Params    string `gorm:"index:idx_identity"`
	CreatedAt time.Time
	Data      []byte
}

func (artifactRecord) TableName() string {
	return "artifacts"
}

func (r artifactRecord) toArtifact() service.Artifact {
	return service.Artifact{
		Name:      r.Name,
		Symbol:    r.Symbol,
		Kind:      r.Kind,
		Params:    r.Params,
		CreatedAt: r.CreatedAt,
		Data:      r.Data,
	}
}

type SQL struct {
	db *gorm.DB
}

// FromSQL opens an artifact store on any gorm dialect.
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (Storage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	err = db.AutoMigrate(&artifactRecord{})
	if err != nil {
		return nil, err
	}

	return &SQL{
		db: db,
	}, nil
}

func (s *SQL) Save(ctx context.Context, artifact service.Artifact) error {
	if artifact.Name == "" {
		return fmt.Errorf("save artifact: empty name")
	}
	record := artifactRecord{
		Name:      artifact.Name,
		Symbol:    artifact.Symbol,
		Kind:      artifact.Kind,
		Params:    artifact.Params,
		CreatedAt: artifact.CreatedAt,
		Data:      artifact.Data,
	}
	return s.db.WithContext(ctx).Save(&record).Error
}

func (s *SQL) Get(ctx context.Context, name string) (service.Artifact, error) {
	var record artifactRecord
	result := s.db.WithContext(ctx).Where("name = ?", name).First(&record)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return service.Artifact{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if result.Error != nil {
		return service.Artifact{}, result.Error
	}
	return record.toArtifact(), nil
}

func (s *SQL) Latest(ctx context.Context, symbol, kind, params string) (service.Artifact, error) {
	var record artifactRecord
	result := s.db.WithContext(ctx).
		Where("symbol = ? AND kind = ? AND params = ?", symbol, kind, params).
		Order("created_at desc").
		First(&record)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return service.Artifact{}, fmt.Errorf("%s/%s: %w", symbol, kind, ErrNotFound)
	}
	if result.Error != nil {
		return service.Artifact{}, result.Error
	}
	return record.toArtifact(), nil
}

func (s *SQL) Artifacts(filters ...ArtifactFilter) ([]service.Artifact, error) {
	records := make([]artifactRecord, 0)
	result := s.db.Order("created_at asc").Find(&records)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	artifacts := lo.Map(records, func(r artifactRecord, _ int) service.Artifact {
		return r.toArtifact()
	})
	return lo.Filter(artifacts, func(a service.Artifact, _ int) bool {
		return match(a, filters)
	}), nil
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
