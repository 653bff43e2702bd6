package forecast

import (
	"errors"
	"testing"
	"time"

	"crude-outlook/internal/domain"
)

// echoModel predicts lag + 1 so propagation is observable.
type echoModel struct{}

func (echoModel) Predict(x []float64) float64 { return x[4] + 1 }

func TestProjectRecursive(t *testing.T) {
	origin := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	rows, err := Project(echoModel{}, 81, origin, 5, domain.LagRecursive)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	for i, row := range rows {
		want := origin.AddDate(0, 0, i+1)
		if !row.Date.Equal(want) {
			t.Fatalf("row %d dated %s, want %s", i, row.Date, want)
		}
		if row.PreviousDayPrice != 81+float64(i) {
			t.Fatalf("row %d lag %.1f, want %.1f", i, row.PreviousDayPrice, 81+float64(i))
		}
		if row.PredictedPrice != 82+float64(i) {
			t.Fatalf("row %d prediction %.1f", i, row.PredictedPrice)
		}
	}
	if rows[0].WeekdayIndex != 3 {
		t.Fatalf("expected Thursday index 3 for 2024-01-04, got %d", rows[0].WeekdayIndex)
	}
}

func TestProjectHold(t *testing.T) {
	origin := time.Date(2024, 1, 3, 15, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	rows, err := Project(echoModel{}, 81, origin, 3, domain.LagHold)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	for i, row := range rows {
		if row.PreviousDayPrice != 81 || row.PredictedPrice != 82 {
			t.Fatalf("row %d expected held lag, got %+v", i, row)
		}
	}
	if got := rows[0].Date.Format(time.DateOnly); got != "2024-01-04" {
		t.Fatalf("expected first date 2024-01-04, got %s", got)
	}
}

func TestProjectRejectsBadInput(t *testing.T) {
	if _, err := Project(echoModel{}, 80, time.Now(), 0, domain.LagRecursive); !errors.Is(err, domain.ErrInvalidHorizon) {
		t.Fatalf("expected ErrInvalidHorizon, got %v", err)
	}
	if _, err := Project(echoModel{}, 80, time.Now(), 3, domain.LagStrategy("ffill")); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestResolveOrigin(t *testing.T) {
	last := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 2, 10, 18, 0, 0, 0, time.UTC)
	if got := ResolveOrigin(domain.OriginLastObservation, last, now); !got.Equal(last) {
		t.Fatalf("expected last observation origin, got %s", got)
	}
	if got := ResolveOrigin(domain.OriginWallClock, last, now); got.Format(time.DateOnly) != "2024-02-10" {
		t.Fatalf("expected wall clock origin, got %s", got)
	}
}
