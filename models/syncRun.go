package models

import (
	"context"
	"time"

	"github.com/greenloop/catalog_backend/config"
)

const (
	SyncRunStatusSuccess = "success"
	SyncRunStatusPartial = "partial"
	SyncRunStatusFailed  = "failed"
)

const (
	SyncTriggeredCron   = "cron"
	SyncTriggeredManual = "manual"
)

// SyncRun is the persistent record of one reconciliation pass.
type SyncRun struct {
	ID            uint       `gorm:"primary_key" json:"id"`
	SnapshotId    string     `gorm:"index;size:128;not null" json:"snapshot_id"`
	Status        string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy   string     `gorm:"size:20" json:"triggered_by"`
	RecordsSynced int        `json:"records_synced"`
	ErrorCount    int        `json:"error_count"`
	SkippedCount  int        `json:"skipped_count"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	DurationMs    int64      `json:"duration_ms"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// SyncError is one skipped or failed record within a run. The raw provider
// payload is deliberately not stored.
type SyncError struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	SyncRunId  uint      `gorm:"index;not null" json:"sync_run_id"`
	EntityType string    `gorm:"size:50" json:"entity_type"`
	ExternalId string    `gorm:"size:128" json:"external_id"`
	ErrorCode  string    `gorm:"size:64" json:"error_code"`
	Message    string    `gorm:"type:text" json:"message"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateSyncRun(ctx context.Context, run *SyncRun) error {
	return config.GetDB().WithContext(ctx).Create(run).Error
}

func CreateSyncError(ctx context.Context, runId uint, entityType string, externalId string, code string, message string) error {
	errRec := SyncError{
		SyncRunId:  runId,
		EntityType: entityType,
		ExternalId: externalId,
		ErrorCode:  code,
		Message:    message,
	}
	return config.GetDB().WithContext(ctx).Create(&errRec).Error
}

func ListSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	var runs []SyncRun
	err := config.GetDB().WithContext(ctx).
		Order("id desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func GetSyncRunById(ctx context.Context, id int) (*SyncRun, error) {
	var run SyncRun
	err := config.GetDB().WithContext(ctx).
		Where("id = ?", id).
		Take(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func ListSyncErrors(ctx context.Context, runId uint) ([]SyncError, error) {
	var errs []SyncError
	err := config.GetDB().WithContext(ctx).
		Where("sync_run_id = ?", runId).
		Order("id").
		Find(&errs).Error
	if err != nil {
		return nil, err
	}
	return errs, nil
}
