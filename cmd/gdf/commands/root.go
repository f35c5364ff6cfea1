// Package commands provides the CLI commands for the gdf tool.
package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-dataflow/internal/config"
	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/cache"
	"github.com/l3aro/go-dataflow/pkg/pipeline"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "gdf",
	Short: "go-dataflow - constant propagation and dead code detection for Go",
	Long: `gdf lowers Go functions to a three-address IR and runs intraprocedural
dataflow analyses over their control flow graphs.

Commands:
  ir          Print the lowered IR of a function
  cfg         Show the control flow graph of a function
  constprop   Show the constant propagation facts of a function
  deadcode    Report dead statements in a file or function
  scan        Report dead statements across a directory tree
  init        Create a configuration file interactively
  doctor      Check configuration, cache and parser
  version     Print version information

Use "gdf [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

// env is the configuration and logger shared by the commands of one run.
type env struct {
	cfg    *config.Config
	logger log.Logger
	out    io.Writer
}

var current *env

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("json") {
		if asJSON, _ := flags.GetBool("json"); asJSON {
			cfg.OutputFormat = config.FormatJSON
		} else {
			cfg.OutputFormat = config.FormatText
		}
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		cfg.CacheEnabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := log.New(log.LoggerConfig{Level: cfg.Level(), JSONOutput: cfg.JSONLogs, Output: cmd.ErrOrStderr()})
	current = &env{cfg: cfg, logger: logger, out: cmd.OutOrStdout()}
	return nil
}

// analyzer returns a pipeline analyzer backed by the persisted report cache
// when caching is enabled. The returned function saves the cache.
func (e *env) analyzer() (*pipeline.Analyzer, func()) {
	if !e.cfg.CacheEnabled {
		return pipeline.New(pipeline.WithLogger(e.logger)), func() {}
	}

	reports := cache.New(cache.Options[pipeline.Report]{MaxSize: e.cfg.MaxCacheEntries})
	path := e.cfg.CacheFile()
	if err := reports.LoadFromFile(path); err != nil {
		e.logger.Warn("ignoring unreadable report cache", "path", path, "error", err)
		reports.Clear()
	}

	a := pipeline.New(pipeline.WithLogger(e.logger), pipeline.WithCache(reports))
	return a, func() {
		if !reports.Dirty() {
			return
		}
		if err := reports.PersistToFile(path); err != nil {
			e.logger.Warn("could not save report cache", "path", path, "error", err)
			return
		}
		stats := reports.Stats()
		e.logger.Debug("saved report cache", "path", path, "entries", stats.Length, "hits", stats.Hits, "misses", stats.Misses)
	}
}

func (e *env) jsonOutput() bool {
	return e.cfg.OutputFormat == config.FormatJSON
}

func init() {
	RootCmd.PersistentFlags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().Bool("no-cache", false, "Do not read or write the report cache")
}
