package cli

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/notifyhub/pricewatch/internal/source"
)

type sourceRow struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	Priority       int    `json:"priority"`
	MaxAttempts    int    `json:"max_attempts"`
	AttemptTimeout string `json:"attempt_timeout"`
	RetryDelay     string `json:"retry_delay"`
	Enabled        bool   `json:"enabled"`
	URL            string `json:"url"`
}

type channelRow struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

// NewSourcesCmd prints the source chain in the order it is tried and the
// channels with their readiness. Secrets are never printed.
func NewSourcesCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Show the configured source chain and channels",
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

			specs := make([]source.Spec, len(cfg.Sources))
			copy(specs, cfg.Sources)
			sort.SliceStable(specs, func(i, j int) bool { return specs[i].Priority < specs[j].Priority })

			rows := make([]sourceRow, 0, len(specs))
			table := make([][]string, 0, len(specs))
			for _, s := range specs {
				r := sourceRow{
					ID:             s.ID,
					Kind:           string(s.Kind),
					Priority:       s.Priority,
					MaxAttempts:    s.MaxAttempts,
					AttemptTimeout: s.AttemptTimeout.String(),
					RetryDelay:     s.RetryDelay.String(),
					Enabled:        !s.Disabled,
					URL:            s.URL,
				}
				rows = append(rows, r)
				table = append(table, []string{
					r.ID, r.Kind, strconv.Itoa(r.Priority), strconv.Itoa(r.MaxAttempts),
					r.AttemptTimeout, r.RetryDelay, strconv.FormatBool(r.Enabled), r.URL,
				})
			}

			channels := make([]channelRow, 0, len(app.Channels))
			for _, ch := range app.Channels {
				channels = append(channels, channelRow{Name: ch.Name(), Configured: ch.Configured()})
			}

			out := NewOutput(cmd.OutOrStdout(), g.JSON)
			if g.JSON {
				out.JSON(map[string]any{"sources": rows, "channels": channels})
				return nil
			}
			out.Table([]string{"ID", "KIND", "PRIORITY", "ATTEMPTS", "TIMEOUT", "DELAY", "ENABLED", "URL"}, table)
			out.Text("\n")
			chTable := make([][]string, 0, len(channels))
			for _, c := range channels {
				chTable = append(chTable, []string{c.Name, strconv.FormatBool(c.Configured)})
			}
			out.Table([]string{"CHANNEL", "CONFIGURED"}, chTable)
			return nil
		},
	}
}
