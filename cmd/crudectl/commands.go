package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crude-outlook/internal/config"
	"crude-outlook/internal/domain"
	"crude-outlook/internal/indices"
	"crude-outlook/internal/job"
	"crude-outlook/internal/report"
	"crude-outlook/internal/ta"
	"crude-outlook/internal/tui"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var errNoDatabase = errors.New("DATABASE_URL is not configured")

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func (c *cli) pagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List the forecast pages and their presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pages := c.app.Pages.List()
			if c.jsonOut {
				return c.printJSON(pages)
			}
			t := newTable("Page", "Title", "Horizon", "Trees", "Learning rate", "Max depth", "Tunable")
			for _, p := range pages {
				t.Row(
					p.Name,
					p.Title,
					fmt.Sprintf("%d (%d-%d)", p.DefaultHorizon, p.MinHorizon, p.MaxHorizon),
					strconv.Itoa(p.Hyper.Trees),
					strconv.FormatFloat(p.Hyper.LearningRate, 'f', -1, 64),
					strconv.Itoa(p.Hyper.MaxDepth),
					strconv.FormatBool(p.Tunable),
				)
			}
			_, err := fmt.Fprintln(c.out, t.Render())
			return err
		},
	}
}

func (c *cli) forecastCmd() *cobra.Command {
	var (
		horizon      int
		trees        int
		learningRate float64
		maxDepth     int
		lag          string
		origin       string
	)
	cmd := &cobra.Command{
		Use:   "forecast <page>",
		Short: "Train the page model, evaluate it and project the horizon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := c.app.Pages.Get(args[0])
			if err != nil {
				return err
			}

			var o config.Overrides
			flags := cmd.Flags()
			if flags.Changed("trees") {
				o.Trees = &trees
			}
			if flags.Changed("learning-rate") {
				o.LearningRate = &learningRate
			}
			if flags.Changed("max-depth") {
				o.MaxDepth = &maxDepth
			}
			if lag != "" {
				s := domain.LagStrategy(lag)
				o.LagStrategy = &s
			}
			if origin != "" {
				v := domain.Origin(origin)
				o.Origin = &v
			}
			if !flags.Changed("horizon") {
				horizon = page.DefaultHorizon
			}

			req, err := page.Request(c.session, horizon, o)
			if err != nil {
				return err
			}
			res, err := c.app.Pipeline.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			rep := report.Build(res)
			if c.jsonOut {
				return c.printJSON(rep)
			}
			return report.RenderText(c.out, rep)
		},
	}
	cmd.Flags().IntVar(&horizon, "horizon", 0, "days to forecast (page default when omitted)")
	cmd.Flags().IntVar(&trees, "trees", 0, "number of boosting rounds")
	cmd.Flags().Float64Var(&learningRate, "learning-rate", 0, "shrinkage applied to each tree")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum tree depth")
	cmd.Flags().StringVar(&lag, "lag", "", "lag propagation: recursive or hold")
	cmd.Flags().StringVar(&origin, "origin", "", "forecast origin: last_observation or wall_clock")
	return cmd
}

func (c *cli) seriesCmd() *cobra.Command {
	var (
		period     string
		start      string
		end        string
		tail       int
		indicators bool
	)
	cmd := &cobra.Command{
		Use:   "series [ticker]",
		Short: "Show the cleaned daily closes of a ticker",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := indices.Tickers[indices.Brent]
			if len(args) == 1 {
				ticker = args[0]
			}
			window, err := seriesWindow(period, start, end)
			if err != nil {
				return err
			}

			series, err := c.app.Series.Load(cmd.Context(), c.session, ticker, window)
			if err != nil {
				return err
			}
			if indicators {
				return c.printIndicators(series)
			}
			if c.jsonOut {
				return c.printJSON(series)
			}

			last, _ := series.Last()
			fmt.Fprintf(c.out, "%s over %s: %d closes, last %.2f on %s\n",
				series.Ticker, window.Key(), series.Len(), last.Price, last.Date.Format(time.DateOnly))
			t := newTable("Date", "Close (USD)")
			for _, p := range series.Tail(tail) {
				t.Row(p.Date.Format(time.DateOnly), fmt.Sprintf("%.2f", p.Price))
			}
			_, err = fmt.Fprintln(c.out, t.Render())
			return err
		},
	}
	cmd.Flags().StringVar(&period, "period", "1y", "named period ("+strings.Join(domain.SupportedPeriods, ", ")+")")
	cmd.Flags().StringVar(&start, "start", "", "range start YYYY-MM-DD, overrides --period")
	cmd.Flags().StringVar(&end, "end", "", "range end YYYY-MM-DD")
	cmd.Flags().IntVar(&tail, "tail", 10, "trailing closes to print")
	cmd.Flags().BoolVar(&indicators, "indicators", false, "print technical indicators at the last close instead")
	return cmd
}

func (c *cli) printIndicators(series *domain.PriceSeries) error {
	snap, err := ta.Summarize(series)
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.printJSON(snap)
	}
	t := newTable("Indicator", "Value")
	t.Row("Close", fmt.Sprintf("%.2f", snap.Close))
	t.Row("EMA 20 / 50", fmt.Sprintf("%.2f / %.2f (%s)", snap.EMA20, snap.EMA50, snap.Trend))
	t.Row("RSI 14", fmt.Sprintf("%.1f", snap.RSI14))
	t.Row("MACD / signal", fmt.Sprintf("%.3f / %.3f", snap.MACD, snap.MACDSignal))
	t.Row("Bollinger 20", fmt.Sprintf("%.2f / %.2f / %.2f", snap.BollingerLower, snap.BollingerMiddle, snap.BollingerUpper))
	t.Row("Volatility 20d", fmt.Sprintf("%.1f%%", 100*snap.Volatility20))
	fmt.Fprintf(c.out, "%s at %s\n", snap.Ticker, snap.Date.Format(time.DateOnly))
	_, err = fmt.Fprintln(c.out, t.Render())
	return err
}

func seriesWindow(period, start, end string) (domain.Window, error) {
	if start == "" {
		if end != "" {
			return domain.Window{}, errors.New("--end requires --start")
		}
		w := domain.PeriodWindow(period)
		return w, w.Validate()
	}
	from, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return domain.Window{}, fmt.Errorf("invalid --start: %w", err)
	}
	var to time.Time
	if end != "" {
		if to, err = time.Parse(time.DateOnly, end); err != nil {
			return domain.Window{}, fmt.Errorf("invalid --end: %w", err)
		}
	}
	w := domain.RangeWindow(from, to)
	return w, w.Validate()
}

func (c *cli) indicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indices",
		Short: "Compare Brent with the S&P 500, gold, DXY and TASI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := c.app.Indices.Build(cmd.Context(), c.session)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(ds)
			}

			fmt.Fprintf(c.out, "%d merged rows", len(ds.Rows))
			if len(ds.Missing) > 0 {
				fmt.Fprintf(c.out, ", unavailable: %s", strings.Join(ds.Missing, ", "))
			}
			fmt.Fprintln(c.out)

			m := ds.Correlation
			t := newTable(append([]string{""}, m.Columns...)...)
			for i, name := range m.Columns {
				row := []string{name}
				for _, v := range m.Values[i] {
					row = append(row, fmt.Sprintf("%.2f", v))
				}
				t.Row(row...)
			}
			_, err = fmt.Fprintln(c.out, t.Render())
			return err
		},
	}
}

func (c *cli) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Drop every cached series and model of the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := c.app.Pipeline.Refresh(cmd.Context(), c.session)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(map[string]any{"session": c.session, "cleared": n})
			}
			_, err = fmt.Fprintf(c.out, "cleared %d cached entries for session %s\n", n, c.session)
			return err
		},
	}
}

func (c *cli) syncCmd() *cobra.Command {
	var (
		period  string
		tickers []string
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Archive recent daily closes into Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.app.Prices == nil {
				return errNoDatabase
			}
			if !cmd.Flags().Changed("period") {
				period = c.cfg.SyncPeriod
			}
			if len(tickers) == 0 {
				tickers = c.cfg.SyncTickers
			}

			n, err := job.NewHistorySync(c.app.Tracer, c.app.Series, tickers, period).RunOnce(cmd.Context())
			if c.jsonOut {
				out := map[string]any{"rows": n}
				if err != nil {
					out["error"] = err.Error()
				}
				if perr := c.printJSON(out); perr != nil {
					return perr
				}
				return err
			}
			fmt.Fprintf(c.out, "archived %d rows for %s\n", n, strings.Join(tickers, ", "))
			return err
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "named period to fetch (SYNC_PERIOD when omitted)")
	cmd.Flags().StringSliceVar(&tickers, "ticker", nil, "ticker to archive, repeatable (SYNC_TICKERS when omitted)")
	return cmd
}

func (c *cli) runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent persisted forecast runs of the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.app.Runs == nil {
				return errNoDatabase
			}
			runs, err := c.app.Runs.ListRuns(cmd.Context(), c.session, limit)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(runs)
			}
			t := newTable("Run", "Page", "Horizon", "RMSE", "MAPE", "Created")
			for _, r := range runs {
				id := r.ID
				if len(id) > 8 {
					id = id[:8]
				}
				t.Row(
					id,
					r.Page,
					strconv.Itoa(r.Horizon),
					fmt.Sprintf("%.4f", r.Evaluation.RMSE),
					fmt.Sprintf("%.2f%%", r.Evaluation.MAPE),
					r.CreatedAt.Format(time.DateTime),
				)
			}
			_, err = fmt.Fprintln(c.out, t.Render())
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs (max 200)")
	return cmd
}

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive forecast dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProgramFunc(tui.NewModel(cmd.Context(), c.app.Pipeline, c.app.Pages, c.session))
		},
	}
}
