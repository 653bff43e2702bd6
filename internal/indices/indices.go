// Package indices merges Brent with the market indices it is usually compared against and derives
// the relative-variation and correlation views of the index page.
package indices

import (
	"errors"
	"math"
	"time"

	"crude-outlook/internal/domain"

	"gonum.org/v1/gonum/stat"
)

const (
	Brent = "brent"
	SP500 = "sp500"
	Gold  = "gold"
	DXY   = "dxy"
	TASI  = "tasi"
)

// Columns is the display order of every merged series.
var Columns = []string{Brent, SP500, Gold, DXY, TASI}

// Tickers maps each Yahoo-sourced column to its chart symbol. TASI comes from CSV.
var Tickers = map[string]string{
	Brent: "BZ=F",
	SP500: "^GSPC",
	Gold:  "IAU",
	DXY:   "DX-Y.NYB",
}

// Cutoff is the last excluded date; merged rows start the day after.
var Cutoff = time.Date(2005, time.December, 31, 0, 0, 0, 0, time.UTC)

var ErrNoBase = errors.New("indices: base series is empty")

// Row is one Brent trading day. Values omits columns that have no observation yet.
type Row struct {
	Date        time.Time          `json:"date"`
	Values      map[string]float64 `json:"values"`
	DailyReturn float64            `json:"daily_return"`
}

type Matrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
	Samples int         `json:"samples"`
}

// Merge left-joins every other series onto the Brent calendar with forward fill, computes the Brent
// daily return, keeps rows after Cutoff and then joins TASI the same way.
func Merge(brent []domain.PricePoint, others map[string][]domain.PricePoint, tasi []domain.PricePoint) ([]Row, error) {
	if len(brent) == 0 {
		return nil, ErrNoBase
	}
	rows := make([]Row, len(brent))
	for i, p := range brent {
		rows[i] = Row{Date: p.Date, Values: map[string]float64{Brent: p.Price}}
		if i > 0 && brent[i-1].Price != 0 {
			rows[i].DailyReturn = p.Price/brent[i-1].Price - 1
		}
	}
	for _, col := range []string{SP500, Gold, DXY} {
		joinFill(rows, col, others[col])
	}

	start := len(rows)
	for i, r := range rows {
		if r.Date.After(Cutoff) {
			start = i
			break
		}
	}
	rows = rows[start:]
	joinFill(rows, TASI, tasi)
	return rows, nil
}

func joinFill(rows []Row, col string, points []domain.PricePoint) {
	if len(points) == 0 {
		return
	}
	byDate := make(map[time.Time]float64, len(points))
	for _, p := range points {
		byDate[domain.TruncateDay(p.Date)] = p.Price
	}
	last, seen := 0.0, false
	for i := range rows {
		if v, ok := byDate[rows[i].Date]; ok {
			last, seen = v, true
		}
		if seen {
			rows[i].Values[col] = last
		}
	}
}

// present lists the columns that have at least one value in rows.
func present(rows []Row) []string {
	var cols []string
	for _, c := range Columns {
		for _, r := range rows {
			if _, ok := r.Values[c]; ok {
				cols = append(cols, c)
				break
			}
		}
	}
	return cols
}

// complete drops leading rows until every present column has a value.
func complete(rows []Row, cols []string) []Row {
	for i, r := range rows {
		ok := true
		for _, c := range cols {
			if _, has := r.Values[c]; !has {
				ok = false
				break
			}
		}
		if ok {
			return rows[i:]
		}
	}
	return nil
}

// Normalize divides each column by its first value so every series starts at 1.0.
func Normalize(rows []Row) []Row {
	cols := present(rows)
	rows = complete(rows, cols)
	if len(rows) == 0 {
		return nil
	}
	base := rows[0].Values
	out := make([]Row, len(rows))
	for i, r := range rows {
		vals := make(map[string]float64, len(cols))
		for _, c := range cols {
			if base[c] != 0 {
				vals[c] = r.Values[c] / base[c]
			}
		}
		out[i] = Row{Date: r.Date, Values: vals, DailyReturn: r.DailyReturn}
	}
	return out
}

// Correlation computes the Pearson matrix over rows where every present column has a value.
// Pairs involving a constant column are reported as 0.
func Correlation(rows []Row) Matrix {
	cols := present(rows)
	rows = complete(rows, cols)
	m := Matrix{Columns: cols, Samples: len(rows), Values: make([][]float64, len(cols))}
	series := make([][]float64, len(cols))
	for j, c := range cols {
		series[j] = make([]float64, len(rows))
		for i, r := range rows {
			series[j][i] = r.Values[c]
		}
	}
	for a := range cols {
		m.Values[a] = make([]float64, len(cols))
		for b := range cols {
			if a == b {
				m.Values[a][b] = 1
				continue
			}
			r := 0.0
			if len(rows) > 1 {
				r = stat.Correlation(series[a], series[b], nil)
			}
			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = 0
			}
			m.Values[a][b] = r
		}
	}
	return m
}
