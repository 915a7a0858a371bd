package amazonsync

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/greenloop/catalog_backend/config"
	"github.com/greenloop/catalog_backend/models"
	"github.com/greenloop/catalog_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	latestSnapshotCacheKey = "amazon-sync:latest-snapshot"
	processLockKey         = "amazon-sync:process"
)

// Service wires the pipeline components behind the trigger endpoints.
type Service struct {
	logger   *logrus.Logger
	sources  SourceLister
	registry SnapshotRecorder
	resolver SnapshotResolver
	writer   CatalogWriter
}

func NewService(logger *logrus.Logger) *Service {
	store := gormCatalog{}
	return &Service{
		logger:   logger,
		sources:  store,
		registry: store,
		resolver: store,
		writer:   store,
	}
}

// RequireCronSecret rejects requests whose bearer credential does not match
// the shared scheduler secret, before any provider call is made. An empty
// configured secret fails closed.
func RequireCronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := strings.TrimSpace(c.GetHeader("Authorization"))
		if secret == "" || auth != "Bearer "+secret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// SubmitHandler is the "submit" trigger: validate trackable sources, submit
// one provider batch, record the returned handle in the job registry.
func (s *Service) SubmitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		noStore(c)
		start := time.Now()
		ctx := c.Request.Context()

		cfg, err := LoadConfig()
		if err != nil {
			respondSubmitError(c, start, err)
			return
		}

		submitter := NewSubmitter(cfg, s.sources, s.registry, s.logger)
		result, err := submitter.Run(ctx)
		if err != nil {
			respondSubmitError(c, start, err)
			return
		}

		_ = config.SetRedisValue(latestSnapshotCacheKey, result.SnapshotId, 24*time.Hour)

		c.JSON(http.StatusOK, gin.H{
			"message":    "Scrape initiated successfully",
			"snapshotId": result.SnapshotId,
			"count":      result.SubmittedCount,
			"excluded":   result.ExcludedCount,
			"duration":   result.Duration.String(),
		})
	}
}

// ProcessHandler is the "process" trigger: resolve a snapshot handle (query
// param or the most recent registry entry), probe it once, and reconcile its
// results when ready. Not-ready is a normal outcome: the external scheduler
// simply invokes the trigger again later.
func (s *Service) ProcessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		noStore(c)
		start := time.Now()
		ctx := c.Request.Context()
		if c.Query("triggered_by") == models.SyncTriggeredManual {
			ctx = utils.SetTriggeredByInContext(ctx, models.SyncTriggeredManual)
		}

		cfg, err := LoadConfig()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":    "Failed to process snapshot",
				"message":  err.Error(),
				"duration": time.Since(start).String(),
			})
			return
		}

		// The registry is authoritative for "most recent"; the Redis cache is
		// only a fallback for when the store read fails or holds no rows.
		snapshotId := strings.TrimSpace(c.Query("snapshot_id"))
		if snapshotId == "" {
			resolved, resolveErr := s.resolver.MostRecent(ctx)
			if resolveErr == nil {
				snapshotId = resolved
			} else if cached, found, _ := config.GetRedisValue(latestSnapshotCacheKey); found {
				snapshotId = cached
			} else if errors.Is(resolveErr, ErrNoSnapshot) {
				c.JSON(http.StatusNotFound, gin.H{
					"error":    "no snapshot recorded",
					"message":  "submit a scrape batch before processing",
					"duration": time.Since(start).String(),
				})
				return
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":    "Failed to resolve snapshot",
					"message":  resolveErr.Error(),
					"duration": time.Since(start).String(),
				})
				return
			}
		}

		// Best-effort guard against overlapping passes. Reconciliation is an
		// idempotent overwrite, so a missing lock client is tolerated.
		if locker := config.GetRedisLock(); locker != nil {
			lock, lockErr := locker.Obtain(ctx, processLockKey, 10*time.Minute, nil)
			if lockErr == redislock.ErrNotObtained {
				c.JSON(http.StatusConflict, gin.H{
					"error":      "reconciliation already running",
					"snapshotId": snapshotId,
				})
				return
			}
			if lockErr != nil {
				config.LogWarn(s.logger, "amazonsync", "ProcessHandler", "could not obtain process lock; proceeding", snapshotId, lockErr.Error())
			} else {
				defer func() { _ = lock.Release(ctx) }()
			}
		}

		prober := NewProber(cfg, s.logger)
		probe := prober.Probe(ctx, snapshotId)

		switch probe.State {
		case SnapshotReadyWithResults:
			sources, err := s.sources.SourcesByName(ctx, SourceNameAmazon)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":    "Failed to load tracked sources",
					"message":  err.Error(),
					"duration": time.Since(start).String(),
				})
				return
			}
			result := NewReconciler(s.writer, s.logger).Reconcile(ctx, probe.Records, sources)
			runId := s.persistRun(ctx, snapshotId, result)
			c.JSON(http.StatusOK, gin.H{
				"status":     runStatus(result),
				"snapshotId": snapshotId,
				"runId":      runId,
				"succeeded":  result.SucceededCount,
				"failed":     result.FailedCount,
				"skipped":    result.SkippedCount,
				"records":    result.Summaries,
				"duration":   time.Since(start).String(),
			})
		case SnapshotReadyEmpty:
			c.JSON(http.StatusOK, gin.H{
				"status":     "ready",
				"snapshotId": snapshotId,
				"count":      0,
				"message":    "snapshot completed with no results",
				"duration":   time.Since(start).String(),
			})
		default:
			c.JSON(http.StatusOK, gin.H{
				"status":     "not_ready",
				"snapshotId": snapshotId,
				"message":    "snapshot not ready; try again later",
				"duration":   time.Since(start).String(),
			})
		}
	}
}

func (s *Service) HistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		noStore(c)
		limit := 20
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		runs, err := models.ListSyncRuns(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := make([]SyncRunResponse, 0, len(runs))
		for _, run := range runs {
			items = append(items, mapRunToResponse(run))
		}
		c.JSON(http.StatusOK, SyncHistoryResponse{Items: items})
	}
}

func (s *Service) RunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		noStore(c)
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		run, err := models.GetSyncRunById(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		errs, err := models.ListSyncErrors(c.Request.Context(), run.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, SyncRunDetailResponse{
			SyncRunResponse: mapRunToResponse(*run),
			Errors:          mapErrors(errs),
		})
	}
}

// persistRun records the pass and its per-record skips/failures for the
// history endpoints. Nil-safe: run accounting is skipped when the store is
// not connected.
func (s *Service) persistRun(ctx context.Context, snapshotId string, result ReconcileResult) uint {
	if config.GetDB() == nil {
		config.LogWarn(s.logger, "amazonsync", "persistRun", "store not connected; run not recorded", snapshotId, "")
		return 0
	}

	triggeredBy, ok := utils.GetTriggeredByFromContext(ctx)
	if !ok || triggeredBy == "" {
		triggeredBy = models.SyncTriggeredCron
	}

	finished := time.Now()
	started := finished.Add(-result.Duration)
	run := models.SyncRun{
		SnapshotId:    snapshotId,
		Status:        runStatus(result),
		TriggeredBy:   triggeredBy,
		RecordsSynced: result.SucceededCount,
		ErrorCount:    result.FailedCount,
		SkippedCount:  result.SkippedCount,
		StartedAt:     &started,
		FinishedAt:    &finished,
		DurationMs:    result.Duration.Milliseconds(),
	}
	if err := models.CreateSyncRun(ctx, &run); err != nil {
		config.LogError(s.logger, "amazonsync", "persistRun", "failed to record sync run", snapshotId, err)
		return 0
	}

	for _, sk := range result.Skips {
		_ = models.CreateSyncError(ctx, run.ID, "record", sk.ASIN, sk.Code, sk.Reason)
	}
	for _, summary := range result.Summaries {
		if !summary.Success {
			_ = models.CreateSyncError(ctx, run.ID, "record", summary.ASIN, "update_failed", summary.Error)
		}
	}
	return run.ID
}

func runStatus(result ReconcileResult) string {
	switch {
	case result.FailedCount == 0:
		return models.SyncRunStatusSuccess
	case result.SucceededCount > 0:
		return models.SyncRunStatusPartial
	default:
		return models.SyncRunStatusFailed
	}
}

func respondSubmitError(c *gin.Context, start time.Time, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":    "Failed to initiate scrape",
		"message":  err.Error(),
		"duration": time.Since(start).String(),
	})
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func mapRunToResponse(run models.SyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:            run.ID,
		SnapshotId:    run.SnapshotId,
		Status:        run.Status,
		TriggeredBy:   run.TriggeredBy,
		RecordsSynced: run.RecordsSynced,
		ErrorCount:    run.ErrorCount,
		SkippedCount:  run.SkippedCount,
		StartedAt:     formatTime(run.StartedAt),
		FinishedAt:    formatTime(run.FinishedAt),
		DurationMs:    run.DurationMs,
	}
}

func mapErrors(errorsList []models.SyncError) []SyncErrorResponse {
	out := make([]SyncErrorResponse, 0, len(errorsList))
	for _, errItem := range errorsList {
		out = append(out, SyncErrorResponse{
			ID:         errItem.ID,
			EntityType: errItem.EntityType,
			ExternalId: errItem.ExternalId,
			ErrorCode:  errItem.ErrorCode,
			Message:    errItem.Message,
		})
	}
	return out
}
