package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/talktime/pkg/clientip"
	"github.com/dmitrymomot/talktime/pkg/config"
	"github.com/dmitrymomot/talktime/pkg/environment"
	"github.com/dmitrymomot/talktime/pkg/logger"
	"github.com/dmitrymomot/talktime/pkg/requestid"
	"github.com/dmitrymomot/talktime/svc/api"
)

// app is filled by the root command before any subcommand runs.
type app struct {
	cfg config.App
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "talktime",
		Short: "Speaking-time quota and admission service",
		Long: `talktime meters the seconds users spend in calls, practice and role-play
sessions, admits new sessions against their plan's daily pool and the
lifetime onboarding allowance, and runs the one-time free trial.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newUsageCmd(a),
	)
	return root
}

func (a *app) init() error {
	if err := config.Load(&a.cfg); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.log = logger.New(
		logger.WithEnvironment(a.cfg.Environment(), a.cfg.ServiceName),
		logger.WithLevelName(a.cfg.LogLevel),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			clientip.LoggerExtractor(),
			environment.LoggerExtractor(),
			api.LoggerExtractor(),
		),
	)
	return nil
}
