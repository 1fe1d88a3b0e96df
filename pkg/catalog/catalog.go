package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fieldops/gearscan/internal/utils"
)

// Record holds the catalog metadata attached to a recognized equipment label.
// All fields are optional; an empty record is still a valid match.
type Record struct {
	Code        string `json:"code,omitempty"`
	Name        string `json:"name,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Normalize canonicalizes a label for catalog identity. Lookups and stored
// keys both go through this, so "Drill", "drill" and "DRILL" are the same key.
func Normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Catalog is an in-memory equipment catalog keyed by normalized label.
type Catalog struct {
	records map[string]Record
}

func New() *Catalog {
	return &Catalog{records: make(map[string]Record)}
}

// Add inserts or replaces the record for a label. Duplicate normalized keys
// are last-write-wins; callers that care about collisions check the return.
func (c *Catalog) Add(label string, r Record) (replaced bool) {
	key := Normalize(label)
	_, replaced = c.records[key]
	c.records[key] = r
	return replaced
}

// Lookup returns the record for a label, matching case-insensitively.
// A miss is a normal outcome, not an error.
func (c *Catalog) Lookup(label string) (Record, bool) {
	if c == nil {
		return Record{}, false
	}
	r, ok := c.records[Normalize(label)]
	return r, ok
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// LoadFile reads an equipment.json-style file: a JSON object mapping raw
// labels to records. Keys that collide after normalization are applied in
// lexicographic key order, so last-write-wins is deterministic; each
// collision is logged at warn level.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := New()
	for _, k := range keys {
		if c.Add(k, raw[k]) {
			utils.Log.Warnf("catalog: duplicate label %q after normalization, keeping later entry", k)
		}
	}
	return c, nil
}
