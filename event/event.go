// Package event finds the US federal holidays observed inside an evaluation window. Daily case
// reporting dips around these days, so a holiday in the window often explains a shared error
// across models.
package event

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

var (
	ErrStartAfterEnd = errors.New("window start time is after end time")
	ErrUnsetTime     = errors.New("unset window start or end time")
)

// FederalHolidays are the holidays checked against every evaluation window
var FederalHolidays = []*cal.Holiday{
	us.NewYear,
	us.MlkDay,
	us.PresidentsDay,
	us.MemorialDay,
	us.IndependenceDay,
	us.LaborDay,
	us.ColumbusDay,
	us.VeteransDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

// Event is a single observed holiday
type Event struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

func validWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ErrUnsetTime
	}
	if start.After(end) {
		return fmt.Errorf("start %s, end %s, %w", start.Format(time.DateOnly), end.Format(time.DateOnly), ErrStartAfterEnd)
	}
	return nil
}

// Holiday returns the observed dates of hol that fall within [start, end], expressed as midnight
// in the location of start
func Holiday(hol *cal.Holiday, start, end time.Time) []Event {
	startLoc := start.Location()

	var events []Event
	for i := start.Year(); i <= end.Year(); i++ {
		_, observed := hol.Calc(i)
		if observed.IsZero() {
			continue
		}
		observed = time.Date(observed.Year(), observed.Month(), observed.Day(), 0, 0, 0, 0, startLoc)

		if observed.Before(start) || observed.After(end) {
			continue
		}
		events = append(events, Event{
			Name: strings.ReplaceAll(fmt.Sprintf("%s_%d", hol.Name, i), " ", "_"),
			Date: observed,
		})
	}
	return events
}

// Holidays returns every federal holiday observed within [start, end] ordered by date
func Holidays(start, end time.Time) ([]Event, error) {
	if err := validWindow(start, end); err != nil {
		return nil, err
	}

	var events []Event
	for _, hol := range FederalHolidays {
		events = append(events, Holiday(hol, start, end)...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}
