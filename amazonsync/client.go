package amazonsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type scrapeClient struct {
	cfg  Config
	http *http.Client
}

func newScrapeClient(cfg Config) *scrapeClient {
	// Timeouts are applied per call through context deadlines: submission
	// and status fetch carry different budgets.
	return &scrapeClient{
		cfg:  cfg,
		http: &http.Client{},
	}
}

// triggerScrape submits one batch request and returns the snapshot handle
// from the synchronous acknowledgement.
func (c *scrapeClient) triggerScrape(ctx context.Context, targets []TargetInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("dataset_id", c.cfg.DatasetID)
	params.Set("custom_output_fields", strings.Join(c.cfg.OutputFields, ","))
	params.Set("notify", "false")
	params.Set("include_errors", "true")
	endpoint := c.cfg.BaseURL + "/datasets/v3/scrape?" + params.Encode()

	payload, err := json.Marshal(map[string]interface{}{"input": targets})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrSubmissionTimeout
		}
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ProviderError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	// Defensive parsing: anything other than a JSON object with a non-empty
	// string snapshot_id is malformed.
	var ack struct {
		SnapshotID json.RawMessage `json:"snapshot_id"`
	}
	if err := json.Unmarshal(body, &ack); err != nil {
		return "", ErrMalformedAck
	}
	var snapshotId string
	if err := json.Unmarshal(ack.SnapshotID, &snapshotId); err != nil {
		return "", ErrMalformedAck
	}
	if strings.TrimSpace(snapshotId) == "" {
		return "", ErrMalformedAck
	}
	return snapshotId, nil
}

// fetchSnapshot performs exactly one status/result query for a snapshot
// handle. Classification of the response happens in the prober.
func (c *scrapeClient) fetchSnapshot(ctx context.Context, snapshotId string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	endpoint := c.cfg.BaseURL + "/datasets/v3/snapshot/" + url.PathEscape(snapshotId) + "?format=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
