// Package tui is the terminal dashboard served over SSH and by crudectl.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crude-outlook/internal/config"
	"crude-outlook/internal/domain"
	"crude-outlook/internal/pipeline"
	"crude-outlook/internal/report"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const chartHeight = 12

type Forecaster interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Refresh(ctx context.Context, session string) (int, error)
}

type forecastMsg struct {
	page   string
	report *report.Report
	err    error
}

type refreshMsg struct {
	cleared int
	err     error
}

// Model is the dashboard state: one tab per page, each with its own horizon and last report.
type Model struct {
	ctx     context.Context
	runner  Forecaster
	pages   []config.Page
	session string

	active   int
	horizons map[string]int
	reports  map[string]*report.Report

	loading bool
	status  string
	err     error

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width  int
	height int
}

func NewModel(ctx context.Context, runner Forecaster, pages *config.Pages, session string) Model {
	list := pages.List()
	horizons := make(map[string]int, len(list))
	for _, p := range list {
		horizons[p.Name] = p.DefaultHorizon
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:      ctx,
		runner:   runner,
		pages:    list,
		session:  session,
		horizons: horizons,
		reports:  map[string]*report.Report{},
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
	}
}

// SetSize applies the initial terminal size before the first WindowSizeMsg arrives.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) page() config.Page {
	return m.pages[m.active]
}

// Horizon is the horizon currently selected on the active page.
func (m Model) Horizon() int {
	return m.horizons[m.page().Name]
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case forecastMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		m.err = nil
		m.reports[msg.page] = msg.report
		m.status = fmt.Sprintf("forecast ready in %dms", msg.report.ElapsedMS)
		return m, nil

	case refreshMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.reports = map[string]*report.Report{}
		m.status = fmt.Sprintf("data cleared (%d cached entries)", msg.cleared)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.loading {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.NextPage):
		m.active = (m.active + 1) % len(m.pages)
		m.err = nil
	case key.Matches(msg, m.keys.PrevPage):
		m.active = (m.active - 1 + len(m.pages)) % len(m.pages)
		m.err = nil
	case key.Matches(msg, m.keys.Increase):
		p := m.page()
		if h := m.horizons[p.Name]; h < p.MaxHorizon {
			m.horizons[p.Name] = h + 1
		}
	case key.Matches(msg, m.keys.Decrease):
		p := m.page()
		if h := m.horizons[p.Name]; h > p.MinHorizon {
			m.horizons[p.Name] = h - 1
		}
	case key.Matches(msg, m.keys.Predict):
		m.loading = true
		m.status = "training model..."
		return m, tea.Batch(m.spinner.Tick, m.predictCmd())
	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		m.status = "updating data..."
		return m, tea.Batch(m.spinner.Tick, m.refreshCmd())
	}
	return m, nil
}

func (m Model) predictCmd() tea.Cmd {
	p := m.page()
	h := m.horizons[p.Name]
	return func() tea.Msg {
		req, err := p.Request(m.session, h, config.Overrides{})
		if err != nil {
			return forecastMsg{page: p.Name, err: err}
		}
		res, err := m.runner.Run(m.ctx, req)
		if err != nil {
			return forecastMsg{page: p.Name, err: err}
		}
		rep := report.Build(res)
		return forecastMsg{page: p.Name, report: &rep}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		n, err := m.runner.Refresh(m.ctx, m.session)
		return refreshMsg{cleared: n, err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Brent crude outlook"))
	b.WriteString("  ")
	b.WriteString(labelStyle.Render("session " + m.session))
	b.WriteString("\n\n")
	b.WriteString(m.tabs())
	b.WriteString("\n\n")

	p := m.page()
	fmt.Fprintf(&b, "%s %s   %s %s\n",
		labelStyle.Render("Horizon:"), valueStyle.Render(fmt.Sprintf("%d days", m.Horizon())),
		labelStyle.Render("range"), fmt.Sprintf("%d-%d", p.MinHorizon, p.MaxHorizon))
	fmt.Fprintf(&b, "%s %d trees, lr %.2f, depth %d\n\n",
		labelStyle.Render("Model:"), p.Hyper.Trees, p.Hyper.LearningRate, p.Hyper.MaxDepth)

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " " + m.status + "\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: "+describe(m.err)) + "\n")
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}

	if rep := m.reports[p.Name]; rep != nil {
		b.WriteString("\n")
		b.WriteString(renderReport(*rep))
	} else if !m.loading {
		b.WriteString("\n" + labelStyle.Render("press enter to run the forecast") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) tabs() string {
	tabs := make([]string, len(m.pages))
	for i, p := range m.pages {
		title := p.Title
		if title == "" {
			title = p.Name
		}
		if i == m.active {
			tabs[i] = activeTabStyle.Render(title)
		} else {
			tabs[i] = tabStyle.Render(title)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func renderReport(r report.Report) string {
	head := fmt.Sprintf("%s\n%s %s USD (%s)   %s %s%%",
		r.Summary,
		labelStyle.Render("Last price:"), valueStyle.Render(r.LastPrice.StringFixed(2)), r.LastDate,
		labelStyle.Render("Reliability:"), valueStyle.Render(r.Reliability.StringFixed(2)))
	chart := strings.Join(report.ASCIIChart(r.Chart, chartHeight), "\n")
	table := report.Table(r.Table).Render()
	return lipgloss.JoinVertical(lipgloss.Left,
		head,
		panelStyle.Render(chart),
		table,
	) + "\n"
}

// describe turns pipeline errors into the one-line messages shown on the status line.
func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientData):
		return "not enough history for this horizon"
	case errors.Is(err, domain.ErrDataUnavailable):
		return "price data unavailable, try updating data later"
	case errors.Is(err, domain.ErrModelTraining):
		return "model training failed"
	default:
		return err.Error()
	}
}
