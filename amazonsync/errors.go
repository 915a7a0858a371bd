package amazonsync

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey    = errors.New("BRIGHTDATA_API_KEY is not set")
	ErrMissingDatasetID = errors.New("BRIGHTDATA_DATASET_ID is not set")

	// ErrNoValidSources means every candidate source was excluded by
	// validation; no provider call is made.
	ErrNoValidSources = errors.New("no valid sources with lookup keys found")

	// ErrSubmissionTimeout is fatal to one submission attempt only: the
	// provider may still be processing server-side, so the caller should
	// probe later rather than resubmit blindly.
	ErrSubmissionTimeout = errors.New("submission timed out; the provider may still be processing, probe the snapshot later instead of resubmitting")

	ErrMalformedAck = errors.New("no valid snapshot_id returned from provider")

	// ErrSnapshotTimeout is returned by the bounded-wait probe variant only.
	ErrSnapshotTimeout = errors.New("snapshot did not become ready within the wait budget")

	// ErrNoSnapshot means the job registry holds no handle to resume from.
	ErrNoSnapshot = errors.New("no snapshot recorded")
)

// ProviderError is a non-2xx provider acknowledgement or result fetch.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider request failed: %d %s", e.StatusCode, e.Body)
}

// IsConfigError reports whether err aborts the pipeline before any provider
// call (missing credentials, dataset id, or an empty validated source set).
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingAPIKey) ||
		errors.Is(err, ErrMissingDatasetID) ||
		errors.Is(err, ErrNoValidSources)
}
