package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"crude-outlook/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider fetches daily closes from the Yahoo Finance chart API.
type YahooProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
}

// NewYahooProvider creates a provider limited to 30 requests per minute.
func NewYahooProvider(tracer trace.Tracer, baseURL string) *YahooProvider {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	return &YahooProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		tracer:  tracer,
		limiter: NewRateLimiter(30, 2*time.Second),
	}
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				Currency  string `json:"currency"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDailyCloses returns one close per exchange-local trading day, sorted ascending. Null and
// non-positive closes are dropped; when a day repeats the later bar wins.
func (p *YahooProvider) FetchDailyCloses(ctx context.Context, ticker string, window domain.Window) ([]domain.PricePoint, error) {
	ctx, span := p.tracer.Start(ctx, "yahoo.fetch-daily-closes")
	defer span.End()
	span.SetAttributes(attribute.String("ticker", ticker), attribute.String("window", window.Key()))

	if err := window.Validate(); err != nil {
		return nil, err
	}

	body, err := p.doRequest(ctx, p.chartURL(ticker, window))
	if err != nil {
		return nil, fmt.Errorf("fetch chart for %s: %w", ticker, err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("parse chart for %s: %w", ticker, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error for %s: %s", ticker, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	closes := result.Indicators.Quote[0].Close
	offset := time.Duration(result.Meta.GMTOffset) * time.Second

	byDay := make(map[time.Time]float64, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		c := *closes[i]
		if c <= 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		local := time.Unix(ts, 0).UTC().Add(offset)
		byDay[domain.TruncateDay(local)] = c
	}

	points := make([]domain.PricePoint, 0, len(byDay))
	for d, c := range byDay {
		if window.IsRange() && (d.Before(window.Start) || (!window.End.IsZero() && d.After(window.End))) {
			continue
		}
		points = append(points, domain.PricePoint{Date: d, Price: c})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	span.SetAttributes(attribute.Int("points", len(points)))
	return points, nil
}

func (p *YahooProvider) chartURL(ticker string, window domain.Window) string {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("includePrePost", "false")
	if window.IsRange() {
		q.Set("period1", strconv.FormatInt(window.Start.Unix(), 10))
		end := window.End
		if end.IsZero() {
			end = time.Now().UTC()
		}
		q.Set("period2", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))
	} else {
		q.Set("range", window.Period)
	}
	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(ticker), q.Encode())
}

func (p *YahooProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("yahoo API error %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
