package scan

import (
	"github.com/fieldops/gearscan/pkg/catalog"
	"github.com/fieldops/gearscan/pkg/inference"
)

// Detection is a raw engine detection joined with optional catalog metadata.
// Details is non-nil exactly when the catalog has an entry for the label.
type Detection struct {
	Label      string                `json:"label"`
	Confidence float64               `json:"confidence"`
	Box        inference.BoundingBox `json:"bbox"`
	Details    *catalog.Record       `json:"details,omitempty"`
}

// Result is a completed scan's detections, ranked by descending confidence.
// An empty result is a valid outcome.
type Result []Detection

// Top returns the highest-ranked detection.
func (r Result) Top() (Detection, bool) {
	if len(r) == 0 {
		return Detection{}, false
	}
	return r[0], true
}
