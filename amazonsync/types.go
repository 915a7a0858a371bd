package amazonsync

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const SourceNameAmazon = "Amazon"

// Config is the fixed operational configuration of one pipeline invocation.
// It is built once at trigger entry and passed to each component; component
// logic never reads the process environment directly.
type Config struct {
	APIKey       string
	DatasetID    string
	BaseURL      string
	Zipcode      string
	Language     string
	OutputFields []string

	SubmitTimeout time.Duration
	ProbeTimeout  time.Duration
}

func LoadConfig() (Config, error) {
	cfg := Config{
		APIKey:    strings.TrimSpace(os.Getenv("BRIGHTDATA_API_KEY")),
		DatasetID: strings.TrimSpace(os.Getenv("BRIGHTDATA_DATASET_ID")),
		BaseURL:   strings.TrimSpace(os.Getenv("BRIGHTDATA_API_BASE_URL")),
		Zipcode:   "92110",
		Language:  "EN",
		OutputFields: []string{
			"final_price", "description", "availability", "asin", "image_url", "upc", "rating",
		},
		SubmitTimeout: 240 * time.Second,
		ProbeTimeout:  30 * time.Second,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.brightdata.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.APIKey == "" {
		return cfg, ErrMissingAPIKey
	}
	if cfg.DatasetID == "" {
		return cfg, ErrMissingDatasetID
	}
	return cfg, nil
}

// TargetInput is one row of the provider submission body.
type TargetInput struct {
	URL      string `json:"url"`
	Zipcode  string `json:"zipcode"`
	Language string `json:"language"`
}

// ResultRecord is one row returned by the provider for one submitted target.
// Transient; it exists only within one reconciliation pass.
type ResultRecord struct {
	ASIN         string      `json:"asin"`
	FinalPrice   json.Number `json:"final_price"`
	Availability string      `json:"availability"`
	Description  string      `json:"description"`
	ImageURL     string      `json:"image_url"`
	UPC          string      `json:"upc"`
	Error        string      `json:"error"`
	ErrorCode    string      `json:"error_code"`
}

// SnapshotState is the closed classification of one provider status response.
// All downstream code operates on this variant, never on raw response shapes.
type SnapshotState int

const (
	SnapshotNotReady SnapshotState = iota
	SnapshotReadyWithResults
	SnapshotReadyEmpty
	SnapshotTransientError
)

func (s SnapshotState) String() string {
	switch s {
	case SnapshotReadyWithResults:
		return "ready_with_results"
	case SnapshotReadyEmpty:
		return "ready_empty"
	case SnapshotTransientError:
		return "transient_error"
	default:
		return "not_ready"
	}
}

type ProbeResult struct {
	State   SnapshotState
	Records []ResultRecord
	Message string
}

type SubmitResult struct {
	SnapshotId     string
	SubmittedCount int
	ExcludedCount  int
	Duration       time.Duration
}

// RecordSummary is the redacted per-record outcome of a reconciliation pass.
// Raw provider payloads never leave the pipeline.
type RecordSummary struct {
	ASIN         string              `json:"asin"`
	Success      bool                `json:"success"`
	Price        decimal.NullDecimal `json:"price"`
	Availability string              `json:"availability"`
	Error        string              `json:"error,omitempty"`
}

type RecordSkip struct {
	ASIN   string `json:"asin"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type ReconcileResult struct {
	SucceededCount int
	FailedCount    int
	SkippedCount   int
	Summaries      []RecordSummary
	Skips          []RecordSkip
	Duration       time.Duration
}

type SyncRunResponse struct {
	ID            uint    `json:"id"`
	SnapshotId    string  `json:"snapshotId"`
	Status        string  `json:"status"`
	TriggeredBy   string  `json:"triggeredBy"`
	RecordsSynced int     `json:"recordsSynced"`
	ErrorCount    int     `json:"errorCount"`
	SkippedCount  int     `json:"skippedCount"`
	StartedAt     *string `json:"startedAt"`
	FinishedAt    *string `json:"finishedAt"`
	DurationMs    int64   `json:"durationMs"`
}

type SyncHistoryResponse struct {
	Items []SyncRunResponse `json:"items"`
}

type SyncErrorResponse struct {
	ID         uint   `json:"id"`
	EntityType string `json:"entityType"`
	ExternalId string `json:"externalId"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
}

type SyncRunDetailResponse struct {
	SyncRunResponse
	Errors []SyncErrorResponse `json:"errors"`
}
