package source

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/notifyhub/pricewatch/internal/domain"
)

// Kind selects a source variant.
type Kind string

const (
	KindAPI      Kind = "api"
	KindMarkup   Kind = "markup"
	KindRendered Kind = "rendered"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindAPI, KindMarkup, KindRendered:
		return true
	}
	return false
}

// Spec is the configuration of one source as read from the config file.
type Spec struct {
	ID             string        `mapstructure:"id"`
	Kind           Kind          `mapstructure:"kind"`
	Disabled       bool          `mapstructure:"disabled"`
	Priority       int           `mapstructure:"priority"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	MinInterval    time.Duration `mapstructure:"min_interval"`

	URL      string      `mapstructure:"url"`
	Unit     domain.Unit `mapstructure:"unit"`
	Currency string      `mapstructure:"currency"`

	// api
	Token          string `mapstructure:"token"`
	TokenEnv       string `mapstructure:"token_env"`
	TokenHeader    string `mapstructure:"token_header"`
	PrimaryField   string `mapstructure:"primary_field"`
	SecondaryField string `mapstructure:"secondary_field"`

	// markup
	Tag     string `mapstructure:"tag"`
	Attr    string `mapstructure:"attr"`
	Val     string `mapstructure:"val"`
	Pos     int    `mapstructure:"pos"`
	Pattern string `mapstructure:"pattern"`

	// rendered
	Selector string `mapstructure:"selector"`
}

// SourceConfig extracts the retry policy part of the spec.
func (s Spec) SourceConfig() domain.SourceConfig {
	return domain.SourceConfig{
		ID:             s.ID,
		Priority:       s.Priority,
		MaxAttempts:    s.MaxAttempts,
		AttemptTimeout: s.AttemptTimeout,
		RetryDelay:     s.RetryDelay,
	}
}

// Validate checks the fields the selected kind needs.
func (s Spec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("source: empty id")
	}
	if !s.Kind.IsValid() {
		return fmt.Errorf("source %s: %w %q", s.ID, domain.ErrUnknownSourceKind, s.Kind)
	}
	if s.MaxAttempts <= 0 {
		return fmt.Errorf("source %s: max_attempts must be positive, got %d", s.ID, s.MaxAttempts)
	}
	if s.AttemptTimeout <= 0 {
		return fmt.Errorf("source %s: attempt_timeout must be positive", s.ID)
	}
	if s.URL == "" {
		return fmt.Errorf("source %s: empty url", s.ID)
	}
	if !s.Unit.IsValid() {
		return fmt.Errorf("source %s: %w %q", s.ID, domain.ErrUnknownUnit, s.Unit)
	}
	if s.Currency == "" {
		return fmt.Errorf("source %s: empty currency", s.ID)
	}
	switch s.Kind {
	case KindAPI:
		if s.PrimaryField == "" {
			return fmt.Errorf("source %s: api source needs primary_field", s.ID)
		}
	case KindMarkup:
		if s.Pattern == "" && s.Tag == "" {
			return fmt.Errorf("source %s: markup source needs tag or pattern", s.ID)
		}
	case KindRendered:
		if s.Selector == "" {
			return fmt.Errorf("source %s: rendered source needs selector", s.ID)
		}
	}
	return nil
}

// Deps are the shared collaborators handed to every source.
type Deps struct {
	HTTP    HTTPClient
	Browser Browser
}

// Build constructs the variant named by spec.Kind.
func Build(spec Spec, deps Deps) (Source, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	hc := deps.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	currency := strings.ToUpper(spec.Currency)

	switch spec.Kind {
	case KindAPI:
		return NewAPISource(APIConfig{
			Source:         spec.SourceConfig(),
			URL:            spec.URL,
			Token:          spec.Token,
			TokenHeader:    spec.TokenHeader,
			PrimaryField:   spec.PrimaryField,
			SecondaryField: spec.SecondaryField,
			Unit:           spec.Unit,
			Currency:       currency,
		}, WithHTTPClient(hc)), nil
	case KindMarkup:
		return NewMarkupSource(MarkupConfig{
			Source: spec.SourceConfig(),
			URL:    spec.URL,
			Locator: Locator{
				Selector: NodeSelector{Tag: spec.Tag, Attr: spec.Attr, Val: spec.Val, Pos: spec.Pos},
				Pattern:  spec.Pattern,
			},
			Unit:     spec.Unit,
			Currency: currency,
		}, hc)
	case KindRendered:
		if deps.Browser == nil {
			return nil, fmt.Errorf("source %s: rendered source needs a browser", spec.ID)
		}
		return NewRenderedSource(RenderedConfig{
			Source:   spec.SourceConfig(),
			URL:      spec.URL,
			Selector: spec.Selector,
			Unit:     spec.Unit,
			Currency: currency,
		}, deps.Browser), nil
	}
	return nil, fmt.Errorf("source %s: %w %q", spec.ID, domain.ErrUnknownSourceKind, spec.Kind)
}
