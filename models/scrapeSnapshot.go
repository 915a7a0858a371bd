package models

import (
	"context"
	"time"

	"github.com/greenloop/catalog_backend/config"
)

// ScrapeSnapshot is the job registry: one row per submitted provider batch.
// Append-only; rows are never updated or deleted so a later invocation can
// resume processing and the submission history stays auditable.
type ScrapeSnapshot struct {
	ID              uint      `gorm:"primary_key" json:"id"`
	SnapshotId      string    `gorm:"index;size:128;not null" json:"snapshot_id"`
	SubmittedCount  int       `json:"submitted_count"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func RecordSnapshot(ctx context.Context, snapshotId string, submittedCount int) (*ScrapeSnapshot, error) {
	snapshot := ScrapeSnapshot{
		SnapshotId:     snapshotId,
		SubmittedCount: submittedCount,
	}
	err := config.GetDB().WithContext(ctx).Create(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// LatestSnapshot returns the most recently recorded handle.
// gorm.ErrRecordNotFound when the registry is empty.
func LatestSnapshot(ctx context.Context) (*ScrapeSnapshot, error) {
	var snapshot ScrapeSnapshot
	err := config.GetDB().WithContext(ctx).
		Order("id desc").
		Take(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}
