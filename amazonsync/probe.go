package amazonsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Prober performs single-shot readiness checks of a snapshot handle.
type Prober struct {
	client *scrapeClient
	logger *logrus.Logger
}

func NewProber(cfg Config, logger *logrus.Logger) *Prober {
	return &Prober{client: newScrapeClient(cfg), logger: logger}
}

// Probe performs exactly one status query. Network and timeout failures are
// transient: logged as a warning and treated like not-ready by callers, never
// escalated from a single probe.
func (p *Prober) Probe(ctx context.Context, snapshotId string) ProbeResult {
	status, body, err := p.client.fetchSnapshot(ctx, snapshotId)
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"module":      "amazonsync",
			"snapshot_id": snapshotId,
		}).Warn("snapshot probe failed: " + err.Error())
		return ProbeResult{State: SnapshotTransientError, Message: err.Error()}
	}
	result := classifySnapshot(status, body)
	if result.State == SnapshotTransientError {
		p.logger.WithFields(logrus.Fields{
			"module":      "amazonsync",
			"snapshot_id": snapshotId,
			"status":      status,
		}).Warn("unexpected snapshot response: " + result.Message)
	}
	return result
}

// classifySnapshot maps the provider's weakly-structured response onto the
// closed SnapshotState variant. The provider answers with either a JSON array
// of result rows, an object carrying a status field (optionally with a
// results array), or a 404 while the job is still queued or running.
func classifySnapshot(statusCode int, body []byte) ProbeResult {
	if statusCode == http.StatusNotFound {
		return ProbeResult{State: SnapshotNotReady}
	}
	if statusCode < 200 || statusCode >= 300 {
		return ProbeResult{
			State:   SnapshotTransientError,
			Message: fmt.Sprintf("status %d: %s", statusCode, strings.TrimSpace(string(body))),
		}
	}

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var records []ResultRecord
		if err := json.Unmarshal(body, &records); err != nil {
			return ProbeResult{State: SnapshotTransientError, Message: "unparseable result array: " + err.Error()}
		}
		if len(records) == 0 {
			// An empty array means the job has produced nothing yet.
			return ProbeResult{State: SnapshotNotReady}
		}
		return ProbeResult{State: SnapshotReadyWithResults, Records: records}
	}

	var envelope struct {
		Status  string         `json:"status"`
		Results []ResultRecord `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ProbeResult{State: SnapshotTransientError, Message: "unparseable status object: " + err.Error()}
	}
	switch strings.ToLower(strings.TrimSpace(envelope.Status)) {
	case "ready", "completed", "done":
		if len(envelope.Results) > 0 {
			return ProbeResult{State: SnapshotReadyWithResults, Records: envelope.Results}
		}
		return ProbeResult{State: SnapshotReadyEmpty}
	default:
		return ProbeResult{State: SnapshotNotReady}
	}
}

// WaitUntilReady is the bounded-wait variant: it repeatedly probes on a fixed
// interval until the snapshot is ready or the wall-clock budget is spent.
// Only callers that can tolerate blocking for the job's full duration should
// use it; the stateless single probe is the default path.
func (p *Prober) WaitUntilReady(ctx context.Context, snapshotId string, interval time.Duration, maxWait time.Duration) (ProbeResult, error) {
	deadline := time.Now().Add(maxWait)
	for {
		result := p.Probe(ctx, snapshotId)
		if result.State == SnapshotReadyWithResults || result.State == SnapshotReadyEmpty {
			return result, nil
		}
		if time.Now().Add(interval).After(deadline) {
			return result, fmt.Errorf("snapshot %s: %w", snapshotId, ErrSnapshotTimeout)
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}
}
