package amazonsync

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/greenloop/catalog_backend/config"
	"github.com/greenloop/catalog_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Scraped descriptions carry marketplace boilerplate around the useful text.
const (
	descriptionPrefix = "About this item"
	descriptionSuffix = "› See more product details"
)

// CatalogWriter applies the two independent per-record updates. The tracking
// facet and the owning product are written separately; no transaction spans
// them.
type CatalogWriter interface {
	UpdateSource(ctx context.Context, id string, fields map[string]interface{}) error
	UpdateProduct(ctx context.Context, id string, fields map[string]interface{}) error
}

// Reconciler matches provider result records to tracked sources and applies
// partial updates with per-record failure isolation.
type Reconciler struct {
	writer CatalogWriter
	logger *logrus.Logger
}

func NewReconciler(writer CatalogWriter, logger *logrus.Logger) *Reconciler {
	return &Reconciler{writer: writer, logger: logger}
}

type recordUpdate struct {
	source       models.Source
	asin         string
	price        decimal.NullDecimal
	availability string
	description  string
	imageURL     string
	barcode      string
}

// Reconcile runs one reconciliation pass. Records that cannot be applied are
// skipped with a logged reason and appear in neither the success nor the
// failure count. All per-record updates run concurrently and the pass waits
// for every one to settle; a single record's failure never aborts the batch.
// Re-running against the same snapshot is a pure overwrite of derived fields.
func (r *Reconciler) Reconcile(ctx context.Context, records []ResultRecord, sources []models.Source) ReconcileResult {
	start := time.Now()

	index := make(map[string][]*models.Source, len(sources))
	for i := range sources {
		key := normalizeKey(sources[i].AffiliateTag)
		if key == "" {
			continue
		}
		index[key] = append(index[key], &sources[i])
	}

	var result ReconcileResult
	skip := func(asin string, code string, reason string) {
		result.SkippedCount++
		result.Skips = append(result.Skips, RecordSkip{ASIN: asin, Code: code, Reason: reason})
		config.LogWarn(r.logger, "amazonsync", "Reconcile", "result record skipped: "+code, asin, reason)
	}

	var updates []recordUpdate
	for _, rec := range records {
		asin := strings.TrimSpace(rec.ASIN)
		if strings.TrimSpace(rec.Error) != "" {
			skip(asin, "provider_error", rec.Error)
			continue
		}
		matches := index[normalizeKey(rec.ASIN)]
		if asin == "" || len(matches) == 0 {
			skip(asin, "no_match", "lookup key matches no tracked source")
			continue
		}
		if len(matches) > 1 {
			skip(asin, "ambiguous_match", "lookup key matches more than one tracked source")
			continue
		}
		source := *matches[0]
		if strings.TrimSpace(source.ProductId) == "" {
			skip(asin, "unlinked_product", "tracked source has no owning product")
			continue
		}
		updates = append(updates, recordUpdate{
			source:       source,
			asin:         asin,
			price:        normalizePrice(rec.FinalPrice),
			availability: normalizeAvailability(rec.Availability),
			description:  cleanDescription(rec.Description),
			imageURL:     strings.TrimSpace(rec.ImageURL),
			barcode:      strings.TrimSpace(rec.UPC),
		})
	}

	summaries := make([]RecordSummary, len(updates))
	var wg sync.WaitGroup
	for i := range updates {
		wg.Add(1)
		go func(i int, up recordUpdate) {
			defer wg.Done()
			summaries[i] = r.applyRecord(ctx, up)
		}(i, updates[i])
	}
	wg.Wait()

	for _, summary := range summaries {
		if summary.Success {
			result.SucceededCount++
		} else {
			result.FailedCount++
		}
	}
	result.Summaries = summaries
	result.Duration = time.Since(start)
	return result
}

// applyRecord issues the facet update and the product update independently,
// accounting each failure on the record's own summary.
func (r *Reconciler) applyRecord(ctx context.Context, up recordUpdate) RecordSummary {
	summary := RecordSummary{
		ASIN:         up.asin,
		Success:      true,
		Price:        up.price,
		Availability: up.availability,
	}
	var failures []string

	sourceFields := map[string]interface{}{
		"price":        up.price,
		"availability": up.availability,
		"last_synced":  time.Now(),
	}
	if err := r.writer.UpdateSource(ctx, up.source.ID, sourceFields); err != nil {
		failures = append(failures, "source update: "+err.Error())
		config.LogError(r.logger, "amazonsync", "applyRecord", "source update failed", up.source.ID, err)
	}

	productFields := map[string]interface{}{}
	if up.description != "" {
		productFields["description"] = up.description
	}
	if up.imageURL != "" {
		productFields["image_url"] = up.imageURL
	}
	if up.barcode != "" {
		productFields["barcode"] = up.barcode
	}
	if len(productFields) > 0 {
		if err := r.writer.UpdateProduct(ctx, up.source.ProductId, productFields); err != nil {
			failures = append(failures, "product update: "+err.Error())
			config.LogError(r.logger, "amazonsync", "applyRecord", "product update failed", up.source.ProductId, err)
		}
	}

	if len(failures) > 0 {
		summary.Success = false
		summary.Error = strings.Join(failures, "; ")
	}
	return summary
}

func normalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizePrice(num json.Number) decimal.NullDecimal {
	raw := strings.TrimSpace(num.String())
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func normalizeAvailability(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}

// cleanDescription strips the known marketplace boilerplate prefix and
// suffix, then trims. An empty result is treated as an absent description.
func cleanDescription(s string) string {
	out := strings.TrimSpace(s)
	if strings.HasPrefix(out, descriptionPrefix) {
		out = strings.TrimSpace(out[len(descriptionPrefix):])
	}
	if strings.HasSuffix(out, descriptionSuffix) {
		out = strings.TrimSpace(out[:len(out)-len(descriptionSuffix)])
	}
	return out
}
