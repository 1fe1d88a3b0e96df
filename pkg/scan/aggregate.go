package scan

import (
	"sort"

	"github.com/fieldops/gearscan/pkg/catalog"
	"github.com/fieldops/gearscan/pkg/inference"
)

// Lookup resolves a label to catalog metadata. *catalog.Catalog satisfies it.
type Lookup interface {
	Lookup(label string) (catalog.Record, bool)
}

// Aggregator joins raw detections with catalog metadata and ranks them.
type Aggregator struct {
	catalog Lookup
}

// NewAggregator builds an aggregator. A nil lookup is allowed and simply
// yields no enrichment.
func NewAggregator(c Lookup) *Aggregator {
	return &Aggregator{catalog: c}
}

// Aggregate produces one Detection per raw detection, sorted by confidence
// descending. The sort is stable, so ties keep the engine's emission order.
// Nothing is dropped or invented, and confidences pass through unmodified.
func (a *Aggregator) Aggregate(raw []inference.RawDetection) Result {
	out := make(Result, 0, len(raw))
	for _, d := range raw {
		det := Detection{
			Label:      d.Label,
			Confidence: d.Confidence,
			Box:        d.Box,
		}
		if a.catalog != nil {
			if rec, ok := a.catalog.Lookup(d.Label); ok {
				rc := rec
				det.Details = &rc
			}
		}
		out = append(out, det)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
