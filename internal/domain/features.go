package domain

import "time"

// FeatureNames is the column order of FeatureRow.Vector.
var FeatureNames = []string{"year", "month", "day", "weekday", "previous_day_price"}

// FeatureRow holds the calendar and lag features for one trading day, plus the day's close.
type FeatureRow struct {
	Date             time.Time `json:"date"`
	Year             int       `json:"year"`
	Month            int       `json:"month"`
	Day              int       `json:"day"`
	WeekdayIndex     int       `json:"weekday_index"`
	PreviousDayPrice float64   `json:"previous_day_price"`
	Price            float64   `json:"price"`
}

func (r FeatureRow) Vector() []float64 {
	return []float64{
		float64(r.Year),
		float64(r.Month),
		float64(r.Day),
		float64(r.WeekdayIndex),
		r.PreviousDayPrice,
	}
}

// WeekdayIndex maps a date to ISO ordering with Monday as 0 and Sunday as 6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// CalendarRow fills the calendar columns of a FeatureRow for the given date.
func CalendarRow(date time.Time, previous float64) FeatureRow {
	d := TruncateDay(date)
	return FeatureRow{
		Date:             d,
		Year:             d.Year(),
		Month:            int(d.Month()),
		Day:              d.Day(),
		WeekdayIndex:     WeekdayIndex(d),
		PreviousDayPrice: previous,
	}
}

// LagFill decides what happens to the first row, which has no previous day.
type LagFill string

const (
	LagFillDrop     LagFill = "drop"
	LagFillBackfill LagFill = "backfill"
)

func (f LagFill) Valid() bool {
	return f == LagFillDrop || f == LagFillBackfill
}
