package amazonsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/greenloop/catalog_backend/models"
)

type fakeWriter struct {
	mu             sync.Mutex
	sourceUpdates  map[string]map[string]interface{}
	productUpdates map[string]map[string]interface{}
	failSourceIds  map[string]bool
	failProductIds map[string]bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		sourceUpdates:  map[string]map[string]interface{}{},
		productUpdates: map[string]map[string]interface{}{},
		failSourceIds:  map[string]bool{},
		failProductIds: map[string]bool{},
	}
}

func (f *fakeWriter) UpdateSource(ctx context.Context, id string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSourceIds[id] {
		return errors.New("deadlock found when trying to get lock")
	}
	f.sourceUpdates[id] = fields
	return nil
}

func (f *fakeWriter) UpdateProduct(ctx context.Context, id string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failProductIds[id] {
		return errors.New("row lock timeout")
	}
	f.productUpdates[id] = fields
	return nil
}

func trackedSource(id string, productId string, tag string) models.Source {
	return models.Source{ID: id, ProductId: productId, SourceName: SourceNameAmazon, AffiliateTag: tag}
}

func TestReconcileStripsDescriptionBoilerplate(t *testing.T) {
	writer := newFakeWriter()
	reconciler := NewReconciler(writer, newTestLogger())

	records := []ResultRecord{{
		ASIN:        "B07QXZ1C4K",
		FinalPrice:  json.Number("12.99"),
		Description: "About this item Durable bamboo handle, BPA free. › See more product details",
	}}
	sources := []models.Source{trackedSource("s1", "p1", "B07QXZ1C4K")}

	result := reconciler.Reconcile(context.Background(), records, sources)
	if result.SucceededCount != 1 || result.FailedCount != 0 || result.SkippedCount != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	fields, ok := writer.productUpdates["p1"]
	if !ok {
		t.Fatal("product update was not issued")
	}
	if fields["description"] != "Durable bamboo handle, BPA free." {
		t.Fatalf("boilerplate not stripped: %q", fields["description"])
	}
}

func TestReconcileShortDescriptionStillApplies(t *testing.T) {
	writer := newFakeWriter()
	reconciler := NewReconciler(writer, newTestLogger())

	records := []ResultRecord{{ASIN: "B07QXZ1C4K", Description: "Short desc."}}
	sources := []models.Source{trackedSource("s1", "p1", "B07QXZ1C4K")}

	result := reconciler.Reconcile(context.Background(), records, sources)
	if result.SucceededCount != 1 {
		t.Fatalf("expected 1 success, got %+v", result)
	}
	if writer.productUpdates["p1"]["description"] != "Short desc." {
		t.Fatalf("short description dropped: %v", writer.productUpdates["p1"])
	}
}

func TestReconcileSkipsAreCountedSeparately(t *testing.T) {
	writer := newFakeWriter()
	reconciler := NewReconciler(writer, newTestLogger())

	records := []ResultRecord{
		{ASIN: "B000000001", Error: "page unavailable"},
		{ASIN: "B0UNKNOWN1"},
		{ASIN: "B0AMBIG001"},
		{ASIN: "B0ORPHAN01"},
		{ASIN: "B07QXZ1C4K", FinalPrice: json.Number("9.99")},
	}
	sources := []models.Source{
		trackedSource("s1", "p1", "B000000001"),
		trackedSource("s2", "p2", "B0AMBIG001"),
		trackedSource("s3", "p3", "B0AMBIG001"),
		trackedSource("s4", "", "B0ORPHAN01"),
		trackedSource("s5", "p5", "B07QXZ1C4K"),
	}

	result := reconciler.Reconcile(context.Background(), records, sources)
	if result.SucceededCount != 1 || result.FailedCount != 0 {
		t.Fatalf("expected 1 success 0 failures, got %d/%d", result.SucceededCount, result.FailedCount)
	}
	if result.SkippedCount != 4 {
		t.Fatalf("expected 4 skipped, got %d", result.SkippedCount)
	}
	codes := map[string]string{}
	for _, sk := range result.Skips {
		codes[sk.ASIN] = sk.Code
	}
	expected := map[string]string{
		"B000000001": "provider_error",
		"B0UNKNOWN1": "no_match",
		"B0AMBIG001": "ambiguous_match",
		"B0ORPHAN01": "unlinked_product",
	}
	for asin, code := range expected {
		if codes[asin] != code {
			t.Fatalf("%s: expected skip code %s, got %s", asin, code, codes[asin])
		}
	}
	// A provider-errored record touches nothing even when its key matches.
	if _, ok := writer.sourceUpdates["s1"]; ok {
		t.Fatal("source update issued for provider-errored record")
	}
}

func TestReconcileMatchesKeysCaseInsensitively(t *testing.T) {
	writer := newFakeWriter()
	reconciler := NewReconciler(writer, newTestLogger())

	records := []ResultRecord{{ASIN: " b07qxz1c4k "}}
	sources := []models.Source{trackedSource("s1", "p1", "B07QXZ1C4K")}

	result := reconciler.Reconcile(context.Background(), records, sources)
	if result.SucceededCount != 1 {
		t.Fatalf("normalized key did not match: %+v", result)
	}
}

func TestReconcileIsolatesPerRecordFailures(t *testing.T) {
	writer := newFakeWriter()
	writer.failSourceIds["s4"] = true
	reconciler := NewReconciler(writer, newTestLogger())

	var records []ResultRecord
	var sources []models.Source
	for i := 0; i < 10; i++ {
		asin := fmt.Sprintf("B00000000%d", i)
		records = append(records, ResultRecord{ASIN: asin, FinalPrice: json.Number("5.00")})
		sources = append(sources, trackedSource(fmt.Sprintf("s%d", i), fmt.Sprintf("p%d", i), asin))
	}

	result := reconciler.Reconcile(context.Background(), records, sources)
	if result.SucceededCount != 9 || result.FailedCount != 1 {
		t.Fatalf("expected 9 successes 1 failure, got %d/%d", result.SucceededCount, result.FailedCount)
	}
	for _, summary := range result.Summaries {
		if summary.ASIN == "B000000004" {
			if summary.Success || summary.Error == "" {
				t.Fatalf("failing record not accounted: %+v", summary)
			}
			continue
		}
		if !summary.Success || summary.Error != "" {
			t.Fatalf("failure leaked onto record %s: %+v", summary.ASIN, summary)
		}
	}
}

func TestReconcileProductFailureDoesNotUndoSourceUpdate(t *testing.T) {
	writer := newFakeWriter()
	writer.failProductIds["p1"] = true
	reconciler := NewReconciler(writer, newTestLogger())

	records := []ResultRecord{{ASIN: "B07QXZ1C4K", FinalPrice: json.Number("3.50"), Description: "fresh text"}}
	sources := []models.Source{trackedSource("s1", "p1", "B07QXZ1C4K")}

	result := reconciler.Reconcile(context.Background(), records, sources)
	if result.FailedCount != 1 {
		t.Fatalf("expected the record to fail, got %+v", result)
	}
	// The two updates are independent; the facet write stays applied.
	if _, ok := writer.sourceUpdates["s1"]; !ok {
		t.Fatal("source update missing after product failure")
	}
	if !strings.Contains(result.Summaries[0].Error, "product update") {
		t.Fatalf("failure reason not attributed: %q", result.Summaries[0].Error)
	}
}

func TestReconcileOmitsAbsentProductFields(t *testing.T) {
	writer := newFakeWriter()
	reconciler := NewReconciler(writer, newTestLogger())

	records := []ResultRecord{{ASIN: "B07QXZ1C4K", FinalPrice: json.Number("4.20")}}
	sources := []models.Source{trackedSource("s1", "p1", "B07QXZ1C4K")}

	result := reconciler.Reconcile(context.Background(), records, sources)
	if result.SucceededCount != 1 {
		t.Fatalf("expected success, got %+v", result)
	}
	if _, ok := writer.productUpdates["p1"]; ok {
		t.Fatal("product update issued with no scraped product fields")
	}
	fields := writer.sourceUpdates["s1"]
	if fields == nil {
		t.Fatal("source update missing")
	}
	if _, ok := fields["last_synced"]; !ok {
		t.Fatal("last_synced not bumped")
	}
}

func TestCleanDescription(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"About this item Great product › See more product details", "Great product"},
		{"About this item Great product", "Great product"},
		{"Great product › See more product details", "Great product"},
		{"  Great product  ", "Great product"},
		{"", ""},
		{"About this item", ""},
	}
	for _, tc := range cases {
		if got := cleanDescription(tc.in); got != tc.expected {
			t.Fatalf("cleanDescription(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestNormalizePrice(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
		value string
	}{
		{"12.99", true, "12.99"},
		{"0", true, "0"},
		{"", false, ""},
		{"n/a", false, ""},
	}
	for _, tc := range cases {
		got := normalizePrice(json.Number(tc.in))
		if got.Valid != tc.valid {
			t.Fatalf("normalizePrice(%q) expected valid=%v, got %v", tc.in, tc.valid, got.Valid)
		}
		if tc.valid && got.Decimal.String() != tc.value {
			t.Fatalf("normalizePrice(%q) expected %s, got %s", tc.in, tc.value, got.Decimal.String())
		}
	}
}

func TestNormalizeAvailability(t *testing.T) {
	if got := normalizeAvailability("  In Stock "); got != "In Stock" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := normalizeAvailability(""); got != "unknown" {
		t.Fatalf("expected unknown for absent availability, got %q", got)
	}
}
