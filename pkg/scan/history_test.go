package scan

import (
	"fmt"
	"testing"
	"time"

	"github.com/fieldops/gearscan/pkg/catalog"
)

func TestHistoryNewestFirst(t *testing.T) {
	var h History
	h.Append(HistoryEntry{Label: "first"})
	h.Append(HistoryEntry{Label: "second"})

	got := h.Entries()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Label != "second" || got[1].Label != "first" {
		t.Fatalf("wrong order: %v", got)
	}
}

func TestHistoryEvictsOldestPastLimit(t *testing.T) {
	var h History
	for i := 1; i <= HistoryLimit+1; i++ {
		h.Append(HistoryEntry{Label: fmt.Sprintf("scan-%d", i)})
	}

	got := h.Entries()
	if len(got) != HistoryLimit {
		t.Fatalf("expected %d entries, got %d", HistoryLimit, len(got))
	}
	if got[0].Label != "scan-11" {
		t.Fatalf("expected newest entry first, got %q", got[0].Label)
	}
	for _, e := range got {
		if e.Label == "scan-1" {
			t.Fatal("oldest entry should have been evicted")
		}
	}
}

func TestHistoryEntriesReturnsCopy(t *testing.T) {
	var h History
	h.Append(HistoryEntry{Label: "original"})

	got := h.Entries()
	got[0].Label = "mutated"
	if h.Entries()[0].Label != "original" {
		t.Fatal("Entries must not expose internal storage")
	}
}

func TestEntryForResultTopDetection(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	res := Result{
		{Label: "drill", Confidence: 0.91, Details: &catalog.Record{Name: "Cordless Drill", Status: "in-service"}},
		{Label: "wrench", Confidence: 0.62},
	}

	e := EntryForResult(now, res)
	if e.Label != "drill" || e.Confidence != "0.91" || e.Status != "in-service" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if !e.At.Equal(now) {
		t.Fatalf("unexpected timestamp: %v", e.At)
	}
}

func TestEntryForResultWithoutDetails(t *testing.T) {
	e := EntryForResult(time.Now(), Result{{Label: "wrench", Confidence: 0.5}})
	if e.Label != "wrench" || e.Confidence != "0.50" || e.Status != "N/A" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestEntryForResultSentinel(t *testing.T) {
	e := EntryForResult(time.Now(), Result{})
	if e.Label != "No detection" || e.Confidence != "-" || e.Status != "N/A" {
		t.Fatalf("unexpected sentinel entry: %+v", e)
	}
}
