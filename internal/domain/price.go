package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTicker is the Brent crude front-month future on Yahoo Finance.
const DefaultTicker = "BZ=F"

// DefaultPeriod is the historical window the forecasting pages train on.
const DefaultPeriod = "20y"

// SupportedPeriods lists the range values accepted by the chart API.
var SupportedPeriods = []string{"1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "20y", "ytd", "max"}

// PricePoint is a single daily close, dated at UTC midnight of the exchange-local day.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// Window selects the historical range to load: either a named Period or an explicit Start/End.
type Window struct {
	Period string    `json:"period,omitempty"`
	Start  time.Time `json:"start,omitempty"`
	End    time.Time `json:"end,omitempty"`
}

// PeriodWindow returns a window covering a named period such as "20y".
func PeriodWindow(period string) Window {
	return Window{Period: strings.ToLower(strings.TrimSpace(period))}
}

// RangeWindow returns a window covering [start, end].
func RangeWindow(start, end time.Time) Window {
	return Window{Start: TruncateDay(start), End: TruncateDay(end)}
}

func (w Window) IsRange() bool {
	return w.Period == "" && !w.Start.IsZero()
}

// Validate checks that the window is usable against the chart API.
func (w Window) Validate() error {
	if w.IsRange() {
		if !w.End.IsZero() && w.End.Before(w.Start) {
			return fmt.Errorf("window end %s before start %s", w.End.Format(time.DateOnly), w.Start.Format(time.DateOnly))
		}
		return nil
	}
	for _, p := range SupportedPeriods {
		if w.Period == p {
			return nil
		}
	}
	return fmt.Errorf("unsupported period %q", w.Period)
}

// Key is a stable cache key fragment for the window.
func (w Window) Key() string {
	if w.IsRange() {
		end := "open"
		if !w.End.IsZero() {
			end = w.End.Format(time.DateOnly)
		}
		return w.Start.Format(time.DateOnly) + "_" + end
	}
	return w.Period
}

// PriceSeries is an ordered daily close series with strictly increasing, unique dates.
type PriceSeries struct {
	Ticker string       `json:"ticker"`
	Window Window       `json:"window"`
	Points []PricePoint `json:"points"`
}

func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Last returns the most recent observation.
func (s *PriceSeries) Last() (PricePoint, bool) {
	if s.Len() == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Tail returns up to n trailing observations.
func (s *PriceSeries) Tail(n int) []PricePoint {
	if s.Len() == 0 || n <= 0 {
		return nil
	}
	if n > len(s.Points) {
		n = len(s.Points)
	}
	out := make([]PricePoint, n)
	copy(out, s.Points[len(s.Points)-n:])
	return out
}

// Fingerprint identifies the data content well enough to key derived artifacts.
func (s *PriceSeries) Fingerprint() string {
	last, ok := s.Last()
	if !ok {
		return "empty"
	}
	return fmt.Sprintf("%d@%s", s.Len(), last.Date.Format(time.DateOnly))
}

// TruncateDay drops the time-of-day and zone, keeping the calendar date as UTC midnight.
func TruncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
