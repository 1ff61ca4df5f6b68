// Package merge averages the submissions of model families that are evaluated as one model
package merge

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aouyang1/go-forecast-eval/stats"
	"github.com/aouyang1/go-forecast-eval/table"
)

// CombinedSuffix is appended to a family prefix to name its averaged entry
const CombinedSuffix = "-combined"

// CombinedName returns the name of the averaged entry of a family
func CombinedName(prefix string) string {
	return prefix + CombinedSuffix
}

func matching(models []string, prefix string) []string {
	var res []string
	for _, model := range models {
		if strings.HasPrefix(model, prefix) {
			res = append(res, model)
		}
	}
	return res
}

// Errors replaces every row of e whose model starts with prefix by a single row holding the per
// location mean of the matched rows, skipping missing values. Returns the number of rows merged.
func Errors(e *table.ErrorTable, prefix string) (int, error) {
	matched := matching(e.Models(), prefix)
	if len(matched) == 0 {
		return 0, nil
	}

	locs := e.Locations()
	avg := make([]float64, len(locs))
	col := make([]float64, len(matched))
	for i, loc := range locs {
		for j, model := range matched {
			col[j] = e.Get(model, loc)
		}
		avg[i] = stats.Mean(col)
	}

	for _, model := range matched {
		e.Delete(model)
	}
	if err := e.Set(CombinedName(prefix), avg); err != nil {
		return 0, fmt.Errorf("unable to set %s, %w", CombinedName(prefix), err)
	}
	return len(matched), nil
}

// National replaces every entry of n whose model starts with prefix by a single entry holding the
// mean prediction and mean actual of the matched entries. Returns the number of entries merged.
func National(n *table.NationalTable, prefix string) int {
	var matched []table.NationalEntry
	for _, entry := range n.Entries() {
		if strings.HasPrefix(entry.Model, prefix) {
			matched = append(matched, entry)
		}
	}
	if len(matched) == 0 {
		return 0
	}

	predicted := make([]float64, len(matched))
	actual := make([]float64, len(matched))
	for i, entry := range matched {
		predicted[i] = entry.Predicted
		actual[i] = entry.Actual
	}
	for _, entry := range matched {
		n.Delete(entry.Model)
	}
	n.Append(table.NationalEntry{
		Model:     CombinedName(prefix),
		Predicted: stats.Mean(predicted),
		Actual:    stats.Mean(actual),
	})
	return len(matched)
}

// Apply merges every prefix in both tables. Each table is averaged independently over its own
// matching rows, so a family whose variants differ in national coverage can produce combined
// entries that do not agree with each other.
func Apply(e *table.ErrorTable, n *table.NationalTable, prefixes []string) error {
	for _, prefix := range prefixes {
		numRows, err := Errors(e, prefix)
		if err != nil {
			return err
		}
		numNational := National(n, prefix)
		slog.Info("combining models", "prefix", prefix, "rows", numRows, "us_rows", numNational, "models", e.Len(), "us_models", n.Len())
	}
	return nil
}
