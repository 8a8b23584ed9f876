package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notifyhub/pricewatch/internal/api/handler"
	"github.com/notifyhub/pricewatch/internal/metrics"
)

// ErrNotDispatched is returned by run --strict when nothing was sent.
var ErrNotDispatched = errors.New("run finished without dispatching")

// NewRunCmd performs a single run and exits. Without --strict the exit code
// is 0 even when no price could be acquired.
func NewRunCmd(g *Globals) *cobra.Command {
	var strict bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the price once and notify",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			app, err := NewApp(cfg, logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			rep := app.Controller.Run(ctx)

			out := NewOutput(cmd.OutOrStdout(), g.JSON)
			if g.JSON {
				out.JSON(handler.NewRunView(rep))
			} else {
				out.Text(rep.Summary())
			}

			if err := metrics.Push(cfg.Metrics.PushgatewayURL, "pricewatch", app.Registry, cfg.Metrics.PushTimeout); err != nil {
				logger.Warn("metrics push failed", zap.Error(err))
			}

			if strict && !rep.Dispatched {
				return ErrNotDispatched
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when nothing was dispatched")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Upper bound for the whole run")

	return cmd
}
