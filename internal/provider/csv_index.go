package provider

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"crude-outlook/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TASICSVURL is the public Tadawul All Share export used by the index page.
const TASICSVURL = "https://raw.githubusercontent.com/ntfcamargo/Base-TECH-CHALLENGE-3/refs/heads/main/Dados%20Hist%C3%B3ricos%20-%20Tadawul%20All%20Share.csv"

var csvDateLayouts = []string{"02.01.2006", "02/01/2006", "2006-01-02"}

// CSVIndexProvider loads a daily index series from a CSV export with pt-BR number formatting.
type CSVIndexProvider struct {
	client      *http.Client
	url         string
	dateColumn  string
	valueColumn string
	tracer      trace.Tracer
}

func NewCSVIndexProvider(tracer trace.Tracer, url string) *CSVIndexProvider {
	if url == "" {
		url = TASICSVURL
	}
	return &CSVIndexProvider{
		client:      &http.Client{Timeout: 30 * time.Second},
		url:         url,
		dateColumn:  "Data",
		valueColumn: "Último",
		tracer:      tracer,
	}
}

func (p *CSVIndexProvider) FetchSeries(ctx context.Context) ([]domain.PricePoint, error) {
	ctx, span := p.tracer.Start(ctx, "csv-index.fetch-series")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch index csv: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index csv status %d", resp.StatusCode)
	}

	points, err := ParseIndexCSV(resp.Body, p.dateColumn, p.valueColumn)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("points", len(points)))
	return points, nil
}

// ParseIndexCSV reads dateColumn/valueColumn pairs. Values use "." for thousands and "," for
// decimals; unparseable rows are skipped.
func ParseIndexCSV(r io.Reader, dateColumn, valueColumn string) ([]domain.PricePoint, error) {
	br := bufio.NewReader(r)
	if rn, _, err := br.ReadRune(); err == nil && rn != '\ufeff' {
		_ = br.UnreadRune()
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	dateIdx, valueIdx := -1, -1
	for i, h := range header {
		name := strings.TrimSpace(h)
		switch name {
		case dateColumn:
			dateIdx = i
		case valueColumn:
			valueIdx = i
		}
	}
	if dateIdx < 0 || valueIdx < 0 {
		return nil, fmt.Errorf("csv missing %q or %q column", dateColumn, valueColumn)
	}

	byDay := map[time.Time]float64{}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if dateIdx >= len(rec) || valueIdx >= len(rec) {
			continue
		}
		d, ok := parseCSVDate(rec[dateIdx])
		if !ok {
			continue
		}
		v, err := ParseBRNumber(rec[valueIdx])
		if err != nil || v <= 0 {
			continue
		}
		byDay[d] = v
	}

	points := make([]domain.PricePoint, 0, len(byDay))
	for d, v := range byDay {
		points = append(points, domain.PricePoint{Date: d, Price: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// ParseBRNumber converts "11.234,56" to 11234.56.
func ParseBRNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func parseCSVDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
