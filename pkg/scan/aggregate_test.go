package scan

import (
	"testing"

	"github.com/fieldops/gearscan/pkg/catalog"
	"github.com/fieldops/gearscan/pkg/inference"
)

func det(label string, conf float64) inference.RawDetection {
	return inference.RawDetection{Label: label, Confidence: conf}
}

func drillCatalog() *catalog.Catalog {
	c := catalog.New()
	c.Add("drill", catalog.Record{Name: "Cordless Drill", Status: "in-service"})
	return c
}

func TestAggregatePreservesLength(t *testing.T) {
	agg := NewAggregator(drillCatalog())

	in := []inference.RawDetection{det("wrench", 0.62), det("drill", 0.91), det("unknown", 0.1)}
	out := agg.Aggregate(in)
	if len(out) != len(in) {
		t.Fatalf("expected %d detections, got %d", len(in), len(out))
	}

	if out := agg.Aggregate(nil); len(out) != 0 {
		t.Fatalf("expected empty result for no detections, got %d", len(out))
	}
}

func TestAggregateSortsByConfidenceDescending(t *testing.T) {
	agg := NewAggregator(nil)

	out := agg.Aggregate([]inference.RawDetection{
		det("low", 0.2), det("high", 0.95), det("mid", 0.5),
	})
	if out[0].Label != "high" || out[1].Label != "mid" || out[2].Label != "low" {
		t.Fatalf("wrong order: %v", out)
	}
}

func TestAggregateTiesKeepEmissionOrder(t *testing.T) {
	agg := NewAggregator(nil)

	out := agg.Aggregate([]inference.RawDetection{
		det("first", 0.5), det("top", 0.9), det("second", 0.5), det("third", 0.5),
	})
	want := []string{"top", "first", "second", "third"}
	for i, label := range want {
		if out[i].Label != label {
			t.Fatalf("position %d: expected %q, got %q (full: %v)", i, label, out[i].Label, out)
		}
	}
}

func TestAggregateDetailsPresentIffCatalogMatch(t *testing.T) {
	agg := NewAggregator(drillCatalog())

	out := agg.Aggregate([]inference.RawDetection{det("wrench", 0.62), det("Drill", 0.91)})

	if out[0].Label != "Drill" || out[0].Details == nil {
		t.Fatalf("expected enriched drill first, got %+v", out[0])
	}
	if out[0].Details.Name != "Cordless Drill" {
		t.Fatalf("wrong details: %+v", out[0].Details)
	}
	if out[1].Label != "wrench" || out[1].Details != nil {
		t.Fatalf("expected un-enriched wrench second, got %+v", out[1])
	}
}

func TestAggregateConfidencePassesThrough(t *testing.T) {
	agg := NewAggregator(nil)

	out := agg.Aggregate([]inference.RawDetection{det("x", 1.7), det("y", 0.123456)})
	if out[0].Confidence != 1.7 || out[1].Confidence != 0.123456 {
		t.Fatalf("confidence was modified: %v", out)
	}
}
