package samples

import (
	"os"
	"path/filepath"
)

// Entry describes a scenario and whether its audio exists locally
type Entry struct {
	Scenario
	Path      string  `json:"-"`
	Available bool    `json:"available"`
	SizeKB    float64 `json:"size_kb"`
}

// Catalog lists every scenario with the state of its file in dir
func Catalog(dir string) []Entry {
	scenarios := Scenarios()
	entries := make([]Entry, 0, len(scenarios))
	for _, s := range scenarios {
		entries = append(entries, lookup(dir, s))
	}
	return entries
}

// Lookup returns the catalog entry for one scenario id
func Lookup(dir, id string) (Entry, bool) {
	s, ok := Find(id)
	if !ok {
		return Entry{}, false
	}
	return lookup(dir, s), true
}

func lookup(dir string, s Scenario) Entry {
	e := Entry{Scenario: s, Path: filepath.Join(dir, s.Filename)}
	if info, err := os.Stat(e.Path); err == nil && !info.IsDir() && info.Size() > 0 {
		e.Available = true
		e.SizeKB = float64(info.Size()) / 1024
	}
	return e
}

// EstimatedCost is the speech synthesis cost in USD for the scenarios
// ($0.015 per 1K characters)
func EstimatedCost(scenarios []Scenario) float64 {
	chars := 0
	for _, s := range scenarios {
		chars += len(s.Script())
	}
	return float64(chars) / 1000 * 0.015
}
