// Package cmd provides the CLI commands for docsearch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/logging"
	"github.com/Aman-CERP/docsearch/internal/profiling"
	"github.com/Aman-CERP/docsearch/pkg/version"
)

// app holds state shared by every command of one invocation.
type app struct {
	debug      bool
	configPath string
	profile    profiling.Options

	cfg            *config.Config
	profiler       *profiling.Session
	loggingCleanup func()
}

// NewRootCmd creates the root command for the docsearch CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Hybrid keyword and semantic search over a document corpus",
		Long: `docsearch splits markdown and text documents into passages, indexes
them with BM25 and embeddings, and answers queries with a weighted
fusion of both scores.

Build an index with 'docsearch index', then query it with
'docsearch search' or serve it to an MCP client with 'docsearch serve'.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.before,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.after()
		},
	}

	cmd.SetVersionTemplate("docsearch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging (also mirrored to stderr)")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ./"+config.ProjectConfigName+")")
	cmd.PersistentFlags().StringVar(&a.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newIndexCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newChunksCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	a := &app{}
	err := newRootCmd(a).Execute()
	// Post-run hooks are skipped when a command fails.
	_ = a.after()
	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, errors.FormatForCLI(err))
	}
	return err
}

// before loads configuration, then starts logging and profiling.
func (a *app) before(cmd *cobra.Command, _ []string) error {
	// init must work next to a config file that does not load.
	if cmd.Name() == "version" || cmd.Name() == "init" {
		return nil
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return errors.New(errors.ErrCodeConfigInvalid, "failed to load configuration", err).
			WithSuggestion("check " + config.ProjectConfigName + " and DOCSEARCH_* environment variables")
	}
	a.cfg = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	if a.debug {
		logCfg.Level = "debug"
		// stdout and stderr belong to the MCP client while serving.
		logCfg.WriteToStderr = cmd.Name() != "serve"
	}
	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.loggingCleanup = cleanup

	if a.profile.Enabled() {
		a.profiler, err = profiling.Start(a.profile)
		if err != nil {
			return err
		}
	}

	slog.Debug("command_started",
		slog.String("command", cmd.Name()),
		slog.String("version", version.Version))
	return nil
}

// after stops profiling and closes the log file.
func (a *app) after() error {
	var err error
	if a.profiler != nil {
		err = a.profiler.Stop()
		a.profiler = nil
	}
	if a.loggingCleanup != nil {
		a.loggingCleanup()
		a.loggingCleanup = nil
	}
	return err
}

func (a *app) loadConfig() (*config.Config, error) {
	if a.configPath != "" {
		return config.LoadFile(a.configPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Load(wd)
}
