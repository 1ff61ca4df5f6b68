package table

import (
	"math"
	"slices"
	"sort"
)

// NationalEntry compares a model's national prediction with the national observed total
type NationalEntry struct {
	Model     string  `json:"model"`
	Predicted float64 `json:"predicted_cases"`
	Actual    float64 `json:"actual_cases"`
}

// Error is predicted - actual, NaN when either side is missing
func (n NationalEntry) Error() float64 {
	return n.Predicted - n.Actual
}

// PercError is the error as a fraction of the actual value
func (n NationalEntry) PercError() float64 {
	if math.IsNaN(n.Actual) {
		return math.NaN()
	}
	return n.Error() / n.Actual
}

// NationalTable holds one national comparison per model in insertion order
type NationalTable struct {
	entries []NationalEntry
}

// NewNational builds the national table from each model's national prediction. Models without a
// national prediction carry NaN. Models are added in sorted order.
func NewNational(actual float64, predicted map[string]float64) *NationalTable {
	models := make([]string, 0, len(predicted))
	for model := range predicted {
		models = append(models, model)
	}
	sort.Strings(models)

	n := &NationalTable{}
	for _, model := range models {
		n.entries = append(n.entries, NationalEntry{
			Model:     model,
			Predicted: predicted[model],
			Actual:    actual,
		})
	}
	return n
}

// Entries returns a copy of the entries in table order
func (n *NationalTable) Entries() []NationalEntry {
	return slices.Clone(n.entries)
}

// Len is the number of entries
func (n *NationalTable) Len() int {
	return len(n.entries)
}

// Get returns the entry of a model
func (n *NationalTable) Get(model string) (NationalEntry, bool) {
	for _, entry := range n.entries {
		if entry.Model == model {
			return entry, true
		}
	}
	return NationalEntry{}, false
}

// Append adds an entry, replacing an existing entry of the same model
func (n *NationalTable) Append(entry NationalEntry) {
	n.Delete(entry.Model)
	n.entries = append(n.entries, entry)
}

// Delete removes the entry of a model
func (n *NationalTable) Delete(model string) {
	n.entries = slices.DeleteFunc(n.entries, func(e NationalEntry) bool {
		return e.Model == model
	})
}

// SortedByAbsError returns the entries ordered by ascending absolute error with missing errors
// last
func (n *NationalTable) SortedByAbsError() []NationalEntry {
	res := n.Entries()
	sort.SliceStable(res, func(i, j int) bool {
		ei, ej := math.Abs(res[i].Error()), math.Abs(res[j].Error())
		if math.IsNaN(ej) {
			return !math.IsNaN(ei)
		}
		if math.IsNaN(ei) {
			return false
		}
		return ei < ej
	})
	return res
}
