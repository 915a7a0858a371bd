package amazonsync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClassifySnapshot(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		state   SnapshotState
		records int
	}{
		{"404 still running", 404, `{"error":"not found"}`, SnapshotNotReady, 0},
		{"server error", 500, `upstream exploded`, SnapshotTransientError, 0},
		{"rate limited", 429, ``, SnapshotTransientError, 0},
		{"result array", 200, `[{"asin":"B07QXZ1C4K","final_price":12.99}]`, SnapshotReadyWithResults, 1},
		{"empty array", 200, `[]`, SnapshotNotReady, 0},
		{"status running", 200, `{"status":"running"}`, SnapshotNotReady, 0},
		{"status building", 202, `{"status":"building"}`, SnapshotNotReady, 0},
		{"status ready with results", 200, `{"status":"ready","results":[{"asin":"B07QXZ1C4K"}]}`, SnapshotReadyWithResults, 1},
		{"status completed empty", 200, `{"status":"completed"}`, SnapshotReadyEmpty, 0},
		{"status done empty results", 200, `{"status":"done","results":[]}`, SnapshotReadyEmpty, 0},
		{"unparseable body", 200, `<html>`, SnapshotTransientError, 0},
		{"unparseable array", 200, `[{"asin":}`, SnapshotTransientError, 0},
	}
	for _, tc := range cases {
		result := classifySnapshot(tc.status, []byte(tc.body))
		if result.State != tc.state {
			t.Fatalf("%s: expected state %s, got %s", tc.name, tc.state, result.State)
		}
		if len(result.Records) != tc.records {
			t.Fatalf("%s: expected %d records, got %d", tc.name, tc.records, len(result.Records))
		}
	}
}

func TestProbeIsIdempotentWhileNotReady(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	prober := NewProber(testClientConfig(srv.URL), newTestLogger())
	for i := 0; i < 3; i++ {
		result := prober.Probe(context.Background(), "snap_pending")
		if result.State != SnapshotNotReady {
			t.Fatalf("probe %d: expected not_ready, got %s", i, result.State)
		}
	}
	if atomic.LoadInt64(&calls) != 3 {
		t.Fatalf("expected exactly 3 provider queries, got %d", calls)
	}
}

func TestProbeNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	prober := NewProber(testClientConfig(srv.URL), newTestLogger())
	result := prober.Probe(context.Background(), "snap_x")
	if result.State != SnapshotTransientError {
		t.Fatalf("expected transient_error, got %s", result.State)
	}
}

func TestWaitUntilReadyTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	prober := NewProber(testClientConfig(srv.URL), newTestLogger())
	_, err := prober.WaitUntilReady(context.Background(), "snap_slow", time.Millisecond, 10*time.Millisecond)
	if !errors.Is(err, ErrSnapshotTimeout) {
		t.Fatalf("expected ErrSnapshotTimeout, got %v", err)
	}
}

func TestWaitUntilReadyReturnsResults(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[{"asin":"B07QXZ1C4K"}]`))
	}))
	defer srv.Close()

	prober := NewProber(testClientConfig(srv.URL), newTestLogger())
	result, err := prober.WaitUntilReady(context.Background(), "snap_wait", time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("WaitUntilReady error: %v", err)
	}
	if result.State != SnapshotReadyWithResults || len(result.Records) != 1 {
		t.Fatalf("expected one result record, got state %s with %d records", result.State, len(result.Records))
	}
}
