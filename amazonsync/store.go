package amazonsync

import (
	"context"
	"errors"

	"github.com/greenloop/catalog_backend/models"
	"gorm.io/gorm"
)

// SnapshotResolver reads the most recently recorded handle from the job
// registry.
type SnapshotResolver interface {
	MostRecent(ctx context.Context) (string, error)
}

// gormCatalog backs the pipeline interfaces with the relational store.
type gormCatalog struct{}

func (gormCatalog) SourcesByName(ctx context.Context, sourceName string) ([]models.Source, error) {
	return models.GetSourcesByName(ctx, sourceName)
}

func (gormCatalog) Record(ctx context.Context, snapshotId string, submittedCount int) error {
	_, err := models.RecordSnapshot(ctx, snapshotId, submittedCount)
	return err
}

func (gormCatalog) MostRecent(ctx context.Context) (string, error) {
	snapshot, err := models.LatestSnapshot(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNoSnapshot
		}
		return "", err
	}
	return snapshot.SnapshotId, nil
}

func (gormCatalog) UpdateSource(ctx context.Context, id string, fields map[string]interface{}) error {
	return models.UpdateSourceFields(ctx, id, fields)
}

func (gormCatalog) UpdateProduct(ctx context.Context, id string, fields map[string]interface{}) error {
	return models.UpdateProductFields(ctx, id, fields)
}
