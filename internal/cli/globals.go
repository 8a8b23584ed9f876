package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/notifyhub/pricewatch/internal/config"
)

// Globals are the persistent flags of the root command.
type Globals struct {
	ConfigPath string
	LogLevel   string
	JSON       bool
}

// load reads the configuration and builds the logger. An explicit
// --log-level wins over the configured one.
func (g *Globals) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if g.LogLevel != "" {
		level = g.LogLevel
	}
	logger, err := NewLogger(cfg.Env, level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
