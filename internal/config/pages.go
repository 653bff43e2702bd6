package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"crude-outlook/internal/domain"
	"crude-outlook/internal/pipeline"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Page is a named preset of pipeline configuration, one per dashboard variant.
type Page struct {
	Name           string                 `json:"name" yaml:"name" validate:"required"`
	Title          string                 `json:"title" yaml:"title"`
	Ticker         string                 `json:"ticker" yaml:"ticker" default:"BZ=F" validate:"required"`
	Period         string                 `json:"period" yaml:"period" default:"20y" validate:"required"`
	MinHorizon     int                    `json:"min_horizon" yaml:"min_horizon" default:"1" validate:"gte=1"`
	MaxHorizon     int                    `json:"max_horizon" yaml:"max_horizon" default:"30" validate:"gtefield=MinHorizon"`
	DefaultHorizon int                    `json:"default_horizon" yaml:"default_horizon" validate:"gtefield=MinHorizon,ltefield=MaxHorizon"`
	Hyper          domain.Hyperparameters `json:"hyperparameters" yaml:"hyperparameters"`
	Tunable        bool                   `json:"tunable" yaml:"tunable"`
	LagStrategy    domain.LagStrategy     `json:"lag_strategy" yaml:"lag_strategy" default:"recursive" validate:"oneof=recursive hold"`
	LagFill        domain.LagFill         `json:"lag_fill" yaml:"lag_fill" default:"drop" validate:"oneof=drop backfill"`
	Origin         domain.Origin          `json:"origin" yaml:"origin" default:"last_observation" validate:"oneof=last_observation wall_clock"`
}

// Overrides are the user-adjustable knobs of a forecast request. Nil fields keep the preset.
type Overrides struct {
	Trees        *int                `json:"trees,omitempty"`
	LearningRate *float64            `json:"learning_rate,omitempty"`
	MaxDepth     *int                `json:"max_depth,omitempty"`
	LagStrategy  *domain.LagStrategy `json:"lag_strategy,omitempty"`
	Origin       *domain.Origin      `json:"origin,omitempty"`
}

func (o Overrides) touchesHyper() bool {
	return o.Trees != nil || o.LearningRate != nil || o.MaxDepth != nil
}

// Request validates h and overrides against the page and builds the pipeline request.
func (p Page) Request(session string, h int, o Overrides) (pipeline.Request, error) {
	if h < p.MinHorizon || h > p.MaxHorizon {
		return pipeline.Request{}, fmt.Errorf("%w: %d outside [%d, %d] for page %s", domain.ErrInvalidHorizon, h, p.MinHorizon, p.MaxHorizon, p.Name)
	}
	hp := p.Hyper
	if o.touchesHyper() {
		if !p.Tunable {
			return pipeline.Request{}, fmt.Errorf("%w: page %s does not accept overrides", domain.ErrInvalidHyperparameters, p.Name)
		}
		if o.Trees != nil {
			hp.Trees = *o.Trees
		}
		if o.LearningRate != nil {
			hp.LearningRate = *o.LearningRate
		}
		if o.MaxDepth != nil {
			hp.MaxDepth = *o.MaxDepth
		}
	}
	if err := hp.Validate(); err != nil {
		return pipeline.Request{}, err
	}

	req := pipeline.Request{
		Session:     session,
		Page:        p.Name,
		Ticker:      p.Ticker,
		Window:      domain.PeriodWindow(p.Period),
		Horizon:     h,
		Hyper:       hp,
		LagStrategy: p.LagStrategy,
		LagFill:     p.LagFill,
		Origin:      p.Origin,
	}
	if o.LagStrategy != nil {
		if !o.LagStrategy.Valid() {
			return pipeline.Request{}, fmt.Errorf("unsupported lag strategy %q", *o.LagStrategy)
		}
		req.LagStrategy = *o.LagStrategy
	}
	if o.Origin != nil {
		if !o.Origin.Valid() {
			return pipeline.Request{}, fmt.Errorf("unsupported origin %q", *o.Origin)
		}
		req.Origin = *o.Origin
	}
	return req, nil
}

// Pages is an ordered set of presets.
type Pages struct {
	order  []string
	byName map[string]Page
}

type pagesFile struct {
	Pages []Page `yaml:"pages"`
}

// DefaultPages mirrors the dashboard variants: a tunable model page and two fixed suggestion pages.
func DefaultPages() *Pages {
	ps := &Pages{byName: map[string]Page{}}
	for _, p := range []Page{
		{
			Name: "modelo", Title: "Modelo",
			MinHorizon: 1, MaxHorizon: 30, DefaultHorizon: 7,
			Hyper:   domain.Hyperparameters{Trees: 200, LearningRate: 0.1, MaxDepth: 6, EarlyStopping: true},
			Tunable: true, LagFill: domain.LagFillBackfill,
		},
		{
			Name: "sugestao", Title: "Sugestão", Period: "max",
			MinHorizon: 7, MaxHorizon: 60, DefaultHorizon: 15,
			Hyper: domain.Hyperparameters{Trees: 300, LearningRate: 0.1, MaxDepth: 6},
		},
		{
			Name: "xgboost", Title: "XGBoost", Period: "max",
			MinHorizon: 10, MaxHorizon: 60, DefaultHorizon: 50,
			Hyper: domain.Hyperparameters{Trees: 300, LearningRate: 0.1, MaxDepth: 6},
		},
	} {
		if err := ps.add(p); err != nil {
			panic(err)
		}
	}
	return ps
}

// LoadPages returns the defaults overlaid with the pages in path. Pages in the file replace
// defaults of the same name; new names are appended.
func LoadPages(path string) (*Pages, error) {
	ps := DefaultPages()
	if strings.TrimSpace(path) == "" {
		return ps, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pages file: %w", err)
	}
	var file pagesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse pages file: %w", err)
	}
	for _, p := range file.Pages {
		if err := ps.add(p); err != nil {
			return nil, err
		}
	}
	return ps, nil
}

func (ps *Pages) add(p Page) error {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if err := defaults.Set(&p); err != nil {
		return fmt.Errorf("page %s defaults: %w", p.Name, err)
	}
	if err := defaults.Set(&p.Hyper); err != nil {
		return fmt.Errorf("page %s hyperparameter defaults: %w", p.Name, err)
	}
	if p.DefaultHorizon == 0 {
		p.DefaultHorizon = p.MinHorizon
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("page %q: field %s failed %s", p.Name, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("page %q: %w", p.Name, err)
	}
	if err := p.Hyper.Validate(); err != nil {
		return fmt.Errorf("page %q: %w", p.Name, err)
	}
	if _, ok := ps.byName[p.Name]; !ok {
		ps.order = append(ps.order, p.Name)
	}
	ps.byName[p.Name] = p
	return nil
}

func (ps *Pages) Get(name string) (Page, error) {
	p, ok := ps.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Page{}, fmt.Errorf("%w: %q", domain.ErrUnknownPage, name)
	}
	return p, nil
}

func (ps *Pages) List() []Page {
	out := make([]Page, 0, len(ps.order))
	for _, name := range ps.order {
		out = append(out, ps.byName[name])
	}
	return out
}
