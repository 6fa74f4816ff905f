package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrz1836/satvault/internal/config"
	"github.com/mrz1836/satvault/internal/metrics"
	"github.com/mrz1836/satvault/internal/output"
)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Config    *config.Config
	Logger    *config.Logger
	Formatter *output.Formatter
	Metrics   *metrics.Metrics
}

type cmdContextKey struct{}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(
	cfg *config.Config,
	logger *config.Logger,
	formatter *output.Formatter,
) *CommandContext {
	return &CommandContext{
		Config:    cfg,
		Logger:    logger,
		Formatter: formatter,
	}
}

// WithMetrics sets the metrics sink.
func (c *CommandContext) WithMetrics(m *metrics.Metrics) *CommandContext {
	c.Metrics = m
	return c
}

// SetCmdContext attaches cc to cmd's context.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the CommandContext attached to cmd. Commands only
// run after PersistentPreRunE has attached one, so a missing context falls
// back to defaults rather than nil.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	if cc := contextFrom(cmd); cc != nil {
		return cc
	}
	cfg := config.Defaults()
	return NewCommandContext(cfg, config.NullLogger(), output.NewFormatter(output.FormatText, cmd.OutOrStdout()))
}

func contextFrom(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cc, _ := ctx.Value(cmdContextKey{}).(*CommandContext)
	return cc
}
