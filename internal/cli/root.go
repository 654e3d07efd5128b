package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/hekaconf/internal/config"
	"github.com/obsidianstack/hekaconf/internal/logging"
)

// app holds state shared by all subcommands once the root has run.
type app struct {
	configPath string

	cfg    *config.Config
	logger *slog.Logger
}

// New returns the root command.
func New() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "hekaconf",
		Short: "Compile declarative Heka plugin definitions into TOML fragments",
		Long: `hekaconf validates typed Heka plugin definitions, renders one TOML
fragment per plugin instance and keeps the fragments in the Heka
configuration directory in their desired state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"path to config.yaml; when empty, defaults, HEKACONF_* variables and OS facts are used")
	logging.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newApplyCmd(a))
	cmd.AddCommand(newRenderCmd(a))
	cmd.AddCommand(newRemoveCmd(a))
	cmd.AddCommand(newPluginsCmd(a))
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	opts := logging.Merge(cmd.Flags(), logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger, err := logging.New(cmd.ErrOrStderr(), opts)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Debug("config loaded",
		"config_dir", cfg.ConfigDir,
		"family", cfg.Facts.Family,
		"workers", cfg.Workers,
	)
	a.cfg, a.logger = cfg, logger
	return nil
}
