package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/pricewatch/internal/channel"
	"github.com/notifyhub/pricewatch/internal/config"
	"github.com/notifyhub/pricewatch/internal/conversion"
	"github.com/notifyhub/pricewatch/internal/dispatch"
	"github.com/notifyhub/pricewatch/internal/fallback"
	"github.com/notifyhub/pricewatch/internal/httpx"
	"github.com/notifyhub/pricewatch/internal/job"
	"github.com/notifyhub/pricewatch/internal/metrics"
	"github.com/notifyhub/pricewatch/internal/ratelimiter"
	"github.com/notifyhub/pricewatch/internal/rates"
	"github.com/notifyhub/pricewatch/internal/source"
)

// App is the fully wired pipeline for one process.
type App struct {
	Config     *config.Config
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Sources    []source.Source
	Channels   []channel.Channel
	Controller *job.Controller
}

// NewApp wires every component from cfg. Disabled sources are left out;
// channels are always wired and report themselves unconfigured when their
// credentials are missing.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hc := httpx.New(cfg.HTTPTimeout)

	deps := source.Deps{HTTP: hc}
	if cfg.NeedsBrowser() {
		deps.Browser = source.ChromeBrowser{
			RemoteURL: cfg.Browser.RemoteURL,
			ExecPath:  cfg.Browser.ExecPath,
			UserAgent: cfg.Browser.UserAgent,
		}
	}

	limiters := ratelimiter.New(cfg.MinIntervals())
	var sources []source.Source
	for _, spec := range cfg.Sources {
		if spec.Disabled {
			logger.Info("source disabled", zap.String("source_id", spec.ID))
			continue
		}
		src, err := source.Build(spec, deps)
		if err != nil {
			return nil, fmt.Errorf("build source: %w", err)
		}
		sources = append(sources, limiters.Wrap(src))
	}

	resolver := rates.NewResolver(rates.Config{
		Base:     cfg.Rate.Base,
		Quote:    cfg.Commodity.Currency,
		Fallback: cfg.Rate.Fallback,
		Policy:   cfg.RatePolicy(),
	}, &rates.HTTPRateSource{
		ID:      "exchange-rate",
		URL:     cfg.Rate.URL,
		Timeout: cfg.Rate.AttemptTimeout,
		Client:  hc,
	}, logger.Named("rates"), rates.Hooks{OnResolved: m.OnResolved})

	renderer := channel.NewRenderer(cfg.Location())
	smtp := channel.SMTPConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		Timeout:  cfg.Email.Timeout,
	}
	// Messaging goes first so the order of outcomes is stable across runs.
	channels := []channel.Channel{
		channel.NewMessaging(channel.MessagingConfig{
			Endpoint:    cfg.Messaging.Endpoint,
			Token:       cfg.Messaging.Token,
			Phone:       cfg.Messaging.Phone,
			TrunkPrefix: cfg.Messaging.TrunkPrefix,
			CountryCode: cfg.Messaging.CountryCode,
			Timeout:     cfg.Messaging.Timeout,
		}, hc, renderer),
		channel.NewEmail(channel.EmailConfig{
			From:  cfg.Email.From,
			To:    cfg.Email.To,
			Ready: smtp.Complete(),
		}, channel.NewSMTPSender(smtp), renderer),
	}

	controller := job.NewController(job.Settings{
		Commodity:      cfg.Commodity.Name,
		PrimaryLabel:   cfg.Commodity.PrimaryLabel,
		SecondaryLabel: cfg.Commodity.SecondaryLabel,
		Unit:           cfg.Commodity.Unit,
	}, job.Deps{
		Rates:      resolver,
		Acquirer:   fallback.New(logger.Named("fallback"), fallback.Hooks{OnAttempt: m.OnAttempt}),
		Sources:    sources,
		Engine:     conversion.New(conversion.Precision(cfg.Commodity.Precision)),
		Dispatcher: dispatch.New(logger.Named("dispatch"), dispatch.Hooks{OnOutcome: m.OnOutcome}),
		Channels:   channels,
	}, logger.Named("job"), job.Hooks{OnRun: m.OnRun})

	return &App{
		Config:     cfg,
		Registry:   reg,
		Metrics:    m,
		Sources:    sources,
		Channels:   channels,
		Controller: controller,
	}, nil
}
