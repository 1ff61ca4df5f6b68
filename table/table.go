// Package table holds the model by location error table and the national comparison table. Absent
// entries are stored as NaN and are never treated as zero error.
package table

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/aouyang1/go-forecast-eval/stats"
)

var (
	ErrRowLenMismatch        = errors.New("row length does not match number of locations")
	ErrLocationCountMismatch = errors.New("certain locations not parsed")
)

// ErrorTable maps (model, location) to a value, typically signed error = predicted - actual.
// Rows keep insertion order.
type ErrorTable struct {
	locations []string
	locIdx    map[string]int

	models []string
	rows   map[string][]float64
}

// NewErrorTable creates an empty table over the given location columns
func NewErrorTable(locations []string) *ErrorTable {
	locs := make([]string, len(locations))
	copy(locs, locations)
	locIdx := make(map[string]int, len(locs))
	for i, loc := range locs {
		locIdx[loc] = i
	}
	return &ErrorTable{
		locations: locs,
		locIdx:    locIdx,
		rows:      make(map[string][]float64),
	}
}

// NewErrors joins predictions and actuals on location, producing predicted - actual for every
// evaluated location. A location absent on either side yields NaN. Models are added in sorted
// order.
func NewErrors(locations []string, actual map[string]float64, predictions map[string]map[string]float64) *ErrorTable {
	e := NewErrorTable(locations)

	models := make([]string, 0, len(predictions))
	for model := range predictions {
		models = append(models, model)
	}
	sort.Strings(models)

	for _, model := range models {
		pred := predictions[model]
		row := make([]float64, len(e.locations))
		for i, loc := range e.locations {
			p, pExists := pred[loc]
			a, aExists := actual[loc]
			if !pExists || !aExists {
				row[i] = math.NaN()
				continue
			}
			row[i] = p - a
		}
		e.models = append(e.models, model)
		e.rows[model] = row
	}
	return e
}

// Locations returns the location columns
func (e *ErrorTable) Locations() []string {
	return slices.Clone(e.locations)
}

// Models returns the model rows in table order
func (e *ErrorTable) Models() []string {
	return slices.Clone(e.models)
}

// Len is the number of model rows
func (e *ErrorTable) Len() int {
	return len(e.models)
}

// Has reports whether the model has a row
func (e *ErrorTable) Has(model string) bool {
	_, exists := e.rows[model]
	return exists
}

// Set adds or replaces a model row. New models are appended.
func (e *ErrorTable) Set(model string, values []float64) error {
	if len(values) != len(e.locations) {
		return fmt.Errorf("expected %d, but got %d, %w", len(e.locations), len(values), ErrRowLenMismatch)
	}
	if !e.Has(model) {
		e.models = append(e.models, model)
	}
	e.rows[model] = slices.Clone(values)
	return nil
}

// Delete removes a model row
func (e *ErrorTable) Delete(model string) {
	if !e.Has(model) {
		return
	}
	delete(e.rows, model)
	e.models = slices.DeleteFunc(e.models, func(m string) bool {
		return m == model
	})
}

// Row returns a copy of the model's values aligned with Locations
func (e *ErrorTable) Row(model string) ([]float64, bool) {
	row, exists := e.rows[model]
	if !exists {
		return nil, false
	}
	return slices.Clone(row), true
}

// Get returns the value at (model, location) or NaN if either is absent
func (e *ErrorTable) Get(model, loc string) float64 {
	row, exists := e.rows[model]
	if !exists {
		return math.NaN()
	}
	idx, exists := e.locIdx[loc]
	if !exists {
		return math.NaN()
	}
	return row[idx]
}

// Column returns the values of a location aligned with Models
func (e *ErrorTable) Column(loc string) []float64 {
	col := make([]float64, len(e.models))
	for i, model := range e.models {
		col[i] = e.Get(model, loc)
	}
	return col
}

// CountValid returns the number of non-missing locations of a model
func (e *ErrorTable) CountValid(model string) int {
	return stats.CountValid(e.rows[model])
}

// CountMissing returns the number of missing values across the whole table
func (e *ErrorTable) CountMissing() int {
	var cnt int
	for _, row := range e.rows {
		cnt += len(row) - stats.CountValid(row)
	}
	return cnt
}

// Clone returns a deep copy
func (e *ErrorTable) Clone() *ErrorTable {
	c := NewErrorTable(e.locations)
	for _, model := range e.models {
		c.models = append(c.models, model)
		c.rows[model] = slices.Clone(e.rows[model])
	}
	return c
}

// DropLocation returns a copy of the table without the location column
func (e *ErrorTable) DropLocation(loc string) *ErrorTable {
	idx, exists := e.locIdx[loc]
	if !exists {
		return e.Clone()
	}
	c := NewErrorTable(slices.Delete(slices.Clone(e.locations), idx, idx+1))
	for _, model := range e.models {
		c.models = append(c.models, model)
		c.rows[model] = slices.Delete(slices.Clone(e.rows[model]), idx, idx+1)
	}
	return c
}

// Filter returns a copy holding only the models keep accepts
func (e *ErrorTable) Filter(keep func(model string, row []float64) bool) *ErrorTable {
	c := NewErrorTable(e.locations)
	for _, model := range e.models {
		if !keep(model, e.rows[model]) {
			continue
		}
		c.models = append(c.models, model)
		c.rows[model] = slices.Clone(e.rows[model])
	}
	return c
}

// Map returns a copy with fn applied to every value
func (e *ErrorTable) Map(fn func(float64) float64) *ErrorTable {
	c := e.Clone()
	for _, row := range c.rows {
		for i, v := range row {
			row[i] = fn(v)
		}
	}
	return c
}

// VerifyCounts checks that every model has exactly the expected number of non-missing locations
func (e *ErrorTable) VerifyCounts(expected map[string]int) error {
	for _, model := range e.models {
		cnt, exists := expected[model]
		if !exists {
			return fmt.Errorf("%s not expected, %w", model, ErrLocationCountMismatch)
		}
		if got := e.CountValid(model); got != cnt {
			return fmt.Errorf("%s expected %d, but got %d, %w", model, cnt, got, ErrLocationCountMismatch)
		}
	}
	if len(expected) != len(e.models) {
		return fmt.Errorf("expected %d models, but got %d, %w", len(expected), len(e.models), ErrLocationCountMismatch)
	}
	return nil
}
