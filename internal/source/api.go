package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/notifyhub/pricewatch/internal/domain"
)

// APIConfig configures a JSON price endpoint.
type APIConfig struct {
	Source         domain.SourceConfig
	URL            string
	Token          string
	TokenHeader    string // default "x-access-token"
	PrimaryField   string
	SecondaryField string // optional
	Unit           domain.Unit
	Currency       string
}

// APISource reads named numeric fields from a JSON price endpoint that is
// authorized with an access-token header.
type APISource struct {
	cfg    APIConfig
	client HTTPClient
	now    func() time.Time
}

// APISourceOption is a configuration option for APISource.
type APISourceOption func(*APISource)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc HTTPClient) APISourceOption {
	return func(s *APISource) { s.client = hc }
}

// WithClock overrides the clock used to stamp quotes.
func WithClock(now func() time.Time) APISourceOption {
	return func(s *APISource) { s.now = now }
}

func NewAPISource(cfg APIConfig, options ...APISourceOption) *APISource {
	if cfg.TokenHeader == "" {
		cfg.TokenHeader = "x-access-token"
	}
	if cfg.Unit == "" {
		cfg.Unit = domain.UnitGram
	}
	s := &APISource{cfg: cfg, client: http.DefaultClient, now: time.Now}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *APISource) ID() string                  { return s.cfg.Source.ID }
func (s *APISource) Config() domain.SourceConfig { return s.cfg.Source }

// Fetch performs one GET against the endpoint. A missing, non-numeric or
// non-positive primary field is a parse failure; the secondary field is
// best-effort.
func (s *APISource) Fetch(ctx context.Context) (domain.PriceQuote, error) {
	ctx, cancel := attemptContext(ctx, s.cfg.Source)
	defer cancel()

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		header.Set(s.cfg.TokenHeader, s.cfg.Token)
	}

	body, err := get(ctx, s.client, s.ID(), s.cfg.URL, header)
	if err != nil {
		return domain.PriceQuote{}, err
	}

	fields := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return domain.PriceQuote{}, domain.NewFetchError(s.ID(), domain.KindParseFailure, fmt.Errorf("decode: %w", err))
	}

	primary, err := numberField(fields, s.cfg.PrimaryField)
	if err != nil {
		return domain.PriceQuote{}, domain.NewFetchError(s.ID(), domain.KindParseFailure, err)
	}
	var secondary float64
	if s.cfg.SecondaryField != "" {
		if v, err := numberField(fields, s.cfg.SecondaryField); err == nil && v > 0 {
			secondary = v
		}
	}

	return newQuote(s.cfg.Source, primary, secondary, s.cfg.Unit, s.cfg.Currency, s.now)
}

func numberField(fields map[string]any, name string) (float64, error) {
	raw, ok := fields[name]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %q absent", domain.ErrFieldMissing, name)
	}
	n, ok := raw.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: %q is %T", domain.ErrFieldMissing, name, raw)
	}
	v, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", domain.ErrFieldMissing, name, err)
	}
	return v, nil
}

// compile-time check that APISource implements Source
var _ Source = (*APISource)(nil)
