// Package location loads the forecast hub locations table and derives the set of locations a run
// is evaluated over
package location

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// US is the code of the national aggregate location
const US = "US"

var (
	ErrMissingColumn = errors.New("locations table is missing a required column")
	ErrMissingUS     = errors.New("missing US location")
	ErrLocationCount = errors.New("unexpected number of state level locations")
	ErrUnknownMode   = errors.New("unknown evaluation mode")
)

// Mode selects the geographic granularity of an evaluation
type Mode string

const (
	States   Mode = "states"
	Counties Mode = "counties"
)

// Options configures which rows of the locations table are evaluated
type Options struct {
	// Territories are state level abbreviations never evaluated in state mode
	Territories []string `json:"territories"`

	// CountyExclusions are location codes dropped from county mode
	CountyExclusions []string `json:"county_exclusions"`

	// ExpectedStateRows is the number of state level rows the table must contain. 0 disables
	// the check.
	ExpectedStateRows int `json:"expected_state_rows"`
}

// NewDefaultOptions returns the territory and exclusion lists used by the forecast hub
func NewDefaultOptions() *Options {
	return &Options{
		Territories:       []string{"AS", "GU", "MP", "PR", "VI", "UM"},
		CountyExclusions:  []string{"11001"},
		ExpectedStateRows: 58,
	}
}

// Row is a single entry of the locations table
type Row struct {
	Location     string
	Abbreviation string
	Name         string
}

// Universe is the set of locations for one evaluation mode
type Universe struct {
	Mode Mode

	// Codes are the evaluated location codes, in table order
	Codes []string

	// Names maps every known location code of the mode to a display name
	Names map[string]string

	codeSet map[string]struct{}
}

// NormalizeCode restores leading zeros that were lost when a code was read as a number. State
// codes have two digits and county codes five.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || code == US || !isDigits(code) {
		return code
	}
	switch len(code) {
	case 1, 4:
		return "0" + code
	}
	return code
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ReadTable parses a locations CSV with at least the location, abbreviation and location_name
// columns. Every value is kept as a string.
func ReadTable(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read locations header, %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[strings.TrimSpace(col)] = i
	}
	for _, col := range []string{"location", "abbreviation", "location_name"} {
		if _, exists := cols[col]; !exists {
			return nil, fmt.Errorf("%q, %w", col, ErrMissingColumn)
		}
	}

	var rows []Row
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read locations row, %w", err)
		}
		rows = append(rows, Row{
			Location:     field(rec, cols["location"]),
			Abbreviation: field(rec, cols["abbreviation"]),
			Name:         field(rec, cols["location_name"]),
		})
	}
	return rows, nil
}

// LoadTable reads the locations table from a file
func LoadTable(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open locations table, %w", err)
	}
	defer f.Close()
	return ReadTable(f)
}

func field(rec []string, idx int) string {
	if idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

// NewUniverse builds the evaluation universe of the given mode from the locations table. State
// mode keeps rows with an abbreviation and drops territories from evaluation. County mode keeps
// rows without an abbreviation plus US and drops the configured exclusions.
func NewUniverse(rows []Row, mode Mode, opt *Options) (*Universe, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}

	switch mode {
	case States:
		return newStateUniverse(rows, opt)
	case Counties:
		return newCountyUniverse(rows, opt)
	default:
		return nil, fmt.Errorf("%q, %w", mode, ErrUnknownMode)
	}
}

func newStateUniverse(rows []Row, opt *Options) (*Universe, error) {
	u := &Universe{
		Mode:  States,
		Names: make(map[string]string),
	}
	var stateRows int
	var hasUS bool
	for _, row := range rows {
		if row.Abbreviation == "" {
			continue
		}
		stateRows++
		code := NormalizeCode(row.Location)
		if row.Abbreviation == US {
			code = US
			hasUS = true
		}
		u.Names[code] = row.Name
		if slices.Contains(opt.Territories, row.Abbreviation) {
			continue
		}
		u.Codes = append(u.Codes, code)
	}
	if !hasUS {
		return nil, ErrMissingUS
	}
	if opt.ExpectedStateRows > 0 && stateRows != opt.ExpectedStateRows {
		return nil, fmt.Errorf("expected %d, but got %d, %w", opt.ExpectedStateRows, stateRows, ErrLocationCount)
	}
	u.index()
	return u, nil
}

func newCountyUniverse(rows []Row, opt *Options) (*Universe, error) {
	u := &Universe{
		Mode:  Counties,
		Names: make(map[string]string),
	}
	var hasUS bool
	for _, row := range rows {
		if row.Abbreviation != "" && row.Location != US {
			continue
		}
		code := NormalizeCode(row.Location)
		if code == US {
			hasUS = true
		}
		u.Names[code] = code
		if slices.Contains(opt.CountyExclusions, code) {
			continue
		}
		u.Codes = append(u.Codes, code)
	}
	if !hasUS {
		return nil, ErrMissingUS
	}
	u.index()
	return u, nil
}

func (u *Universe) index() {
	u.codeSet = make(map[string]struct{}, len(u.Codes))
	for _, code := range u.Codes {
		u.codeSet[code] = struct{}{}
	}
}

// Contains reports whether the location code is evaluated
func (u *Universe) Contains(code string) bool {
	_, exists := u.codeSet[code]
	return exists
}

// Size is the number of known locations of the mode, including those not evaluated
func (u *Universe) Size() int {
	return len(u.Names)
}

// Name returns the display name of a location code, falling back to the code itself
func (u *Universe) Name(code string) string {
	if name, exists := u.Names[code]; exists && name != "" {
		return name
	}
	return code
}
