package amazonsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/greenloop/catalog_backend/models"
	"github.com/sirupsen/logrus"
)

type SourceLister interface {
	SourcesByName(ctx context.Context, sourceName string) ([]models.Source, error)
}

// SnapshotRecorder appends one handle to the job registry.
type SnapshotRecorder interface {
	Record(ctx context.Context, snapshotId string, submittedCount int) error
}

// Submitter drives the submission phase: validate the trackable source set,
// submit one batch request, persist the returned handle.
type Submitter struct {
	cfg      Config
	client   *scrapeClient
	sources  SourceLister
	registry SnapshotRecorder
	logger   *logrus.Logger
}

func NewSubmitter(cfg Config, sources SourceLister, registry SnapshotRecorder, logger *logrus.Logger) *Submitter {
	return &Submitter{
		cfg:      cfg,
		client:   newScrapeClient(cfg),
		sources:  sources,
		registry: registry,
		logger:   logger,
	}
}

func (s *Submitter) Run(ctx context.Context) (SubmitResult, error) {
	start := time.Now()

	allSources, err := s.sources.SourcesByName(ctx, SourceNameAmazon)
	if err != nil {
		return SubmitResult{Duration: time.Since(start)}, fmt.Errorf("loading sources: %w", err)
	}

	valid, excluded := FilterTrackableSources(s.logger, allSources)
	if len(valid) == 0 {
		return SubmitResult{ExcludedCount: excluded, Duration: time.Since(start)}, ErrNoValidSources
	}

	targets := make([]TargetInput, 0, len(valid))
	for _, source := range valid {
		targets = append(targets, TargetInput{
			URL:      "https://www.amazon.com/dp/" + strings.TrimSpace(source.AffiliateTag),
			Zipcode:  s.cfg.Zipcode,
			Language: s.cfg.Language,
		})
	}

	snapshotId, err := s.client.triggerScrape(ctx, targets)
	if err != nil {
		return SubmitResult{ExcludedCount: excluded, Duration: time.Since(start)}, err
	}

	if err := s.registry.Record(ctx, snapshotId, len(valid)); err != nil {
		// The batch was accepted by the provider; surface the handle so the
		// caller can still process it explicitly.
		result := SubmitResult{
			SnapshotId:     snapshotId,
			SubmittedCount: len(valid),
			ExcludedCount:  excluded,
			Duration:       time.Since(start),
		}
		return result, fmt.Errorf("scrape %s submitted but registry write failed: %w", snapshotId, err)
	}

	s.logger.WithFields(logrus.Fields{
		"module":      "amazonsync",
		"snapshot_id": snapshotId,
		"submitted":   len(valid),
		"excluded":    excluded,
	}).Info("scrape batch submitted")

	return SubmitResult{
		SnapshotId:     snapshotId,
		SubmittedCount: len(valid),
		ExcludedCount:  excluded,
		Duration:       time.Since(start),
	}, nil
}
