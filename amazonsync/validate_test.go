package amazonsync

import (
	"io"
	"testing"

	"github.com/greenloop/catalog_backend/models"
	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestIsValidASIN(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
	}{
		{"B07QXZ1C4K", true},
		{"b07qxz1c4k", true},
		{"1234567890", true},
		{"  B07QXZ1C4K  ", true},
		{"", false},
		{"B07QXZ1C4", false},
		{"B07QXZ1C4KX", false},
		{"B07QXZ1C-K", false},
		{"B07 QXZ1C4", false},
		{"B07QXZ1C4К", false},
	}
	for _, tc := range cases {
		if got := IsValidASIN(tc.in); got != tc.valid {
			t.Fatalf("IsValidASIN(%q) expected %v, got %v", tc.in, tc.valid, got)
		}
	}
}

func TestFilterTrackableSources(t *testing.T) {
	sources := []models.Source{
		{ID: "s1", AffiliateTag: "B07QXZ1C4K"},
		{ID: "s2", AffiliateTag: ""},
		{ID: "s3", AffiliateTag: "greenloop-20"},
		{ID: "s4", AffiliateTag: "  B08KHV2J3M "},
		{ID: "s5", AffiliateTag: "too-long-to-be-a-key"},
	}

	valid, excluded := FilterTrackableSources(newTestLogger(), sources)
	if excluded != 3 {
		t.Fatalf("expected 3 excluded, got %d", excluded)
	}
	if len(valid) != 2 {
		t.Fatalf("expected 2 valid, got %d", len(valid))
	}
	if valid[0].ID != "s1" || valid[1].ID != "s4" {
		t.Fatalf("unexpected valid set: %s, %s", valid[0].ID, valid[1].ID)
	}
	// The original slice is never mutated.
	if sources[1].AffiliateTag != "" || sources[2].AffiliateTag != "greenloop-20" {
		t.Fatal("input sources were mutated")
	}
}

func TestFilterTrackableSourcesEmpty(t *testing.T) {
	valid, excluded := FilterTrackableSources(newTestLogger(), nil)
	if len(valid) != 0 || excluded != 0 {
		t.Fatalf("expected empty result, got %d valid %d excluded", len(valid), excluded)
	}
}
