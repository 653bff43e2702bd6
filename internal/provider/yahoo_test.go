package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"crude-outlook/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func newTestYahoo(t *testing.T, fn roundTripFunc) *YahooProvider {
	t.Helper()
	p := NewYahooProvider(trace.NewNoopTracerProvider().Tracer("test"), "http://example")
	p.client = &http.Client{Transport: fn}
	p.limiter = NewRateLimiter(10, time.Millisecond)
	return p
}

func TestYahooFetchDailyCloses(t *testing.T) {
	t.Parallel()

	// 2024-01-02 00:00 at UTC-5 is 05:00 UTC; the second bar repeats the same local day.
	body := `{"chart":{"result":[{"meta":{"symbol":"BZ=F","gmtoffset":-18000},
		"timestamp":[1704189600,1704200400,1704276000,1704362400,1704448800],
		"indicators":{"quote":[{"close":[77.5,78.0,null,-1,79.25]}]}}],"error":null}}`

	p := newTestYahoo(t, func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "/v8/finance/chart/BZ=F") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if req.URL.Query().Get("range") != "20y" || req.URL.Query().Get("interval") != "1d" {
			t.Fatalf("unexpected query: %s", req.URL.RawQuery)
		}
		return jsonResponse(http.StatusOK, body), nil
	})

	points, err := p.FetchDailyCloses(context.Background(), domain.DefaultTicker, domain.PeriodWindow("20y"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points after null/negative/duplicate handling, got %d: %+v", len(points), points)
	}
	if got := points[0].Date.Format(time.DateOnly); got != "2024-01-02" || points[0].Price != 78.0 {
		t.Fatalf("expected last bar of 2024-01-02 to win, got %s %.2f", got, points[0].Price)
	}
	if got := points[1].Date.Format(time.DateOnly); got != "2024-01-05" || points[1].Price != 79.25 {
		t.Fatalf("unexpected second point %s %.2f", got, points[1].Price)
	}
	if points[0].Date.Location() != time.UTC || points[0].Date.Hour() != 0 {
		t.Fatalf("expected zone-free midnight dates, got %s", points[0].Date)
	}
}

func TestYahooFetchDailyClosesRangeWindow(t *testing.T) {
	t.Parallel()

	var query string
	p := newTestYahoo(t, func(req *http.Request) (*http.Response, error) {
		query = req.URL.RawQuery
		return jsonResponse(http.StatusOK, `{"chart":{"result":[],"error":null}}`), nil
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	points, err := p.FetchDailyCloses(context.Background(), "^GSPC", domain.RangeWindow(start, end))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected empty result, got %d", len(points))
	}
	if !strings.Contains(query, "period1=1704067200") || strings.Contains(query, "range=") {
		t.Fatalf("expected period1/period2 query, got %s", query)
	}
}

func TestYahooFetchDailyClosesAPIError(t *testing.T) {
	t.Parallel()

	p := newTestYahoo(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`), nil
	})
	if _, err := p.FetchDailyCloses(context.Background(), "NOPE", domain.PeriodWindow("1y")); err == nil {
		t.Fatalf("expected api error")
	}

	p = newTestYahoo(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, "slow down"), nil
	})
	if _, err := p.FetchDailyCloses(context.Background(), "BZ=F", domain.PeriodWindow("1y")); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestYahooRejectsUnsupportedPeriod(t *testing.T) {
	t.Parallel()

	p := newTestYahoo(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	if _, err := p.FetchDailyCloses(context.Background(), "BZ=F", domain.PeriodWindow("3w")); err == nil {
		t.Fatalf("expected validation error")
	}
}
