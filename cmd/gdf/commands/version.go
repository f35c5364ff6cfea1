package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-dataflow/internal/config"
	"github.com/l3aro/go-dataflow/internal/log"
)

// Version and BuildTime are set by main from linker flags.
var (
	Version   = "dev"
	BuildTime = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		current = defaultEnv(cmd)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion(current)
	},
}

func runVersion(e *env) error {
	fmt.Fprintf(e.out, "gdf version %s\n", Version)
	if BuildTime != "" {
		fmt.Fprintf(e.out, "built:   %s\n", BuildTime)
	}
	fmt.Fprintf(e.out, "go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				fmt.Fprintf(e.out, "commit:  %s\n", s.Value)
			}
		}
	}
	return nil
}

// defaultEnv is the environment of commands that do not read the
// configuration files.
func defaultEnv(cmd *cobra.Command) *env {
	return &env{
		cfg:    config.DefaultConfig(),
		logger: log.New(log.LoggerConfig{Level: log.WarnLevel, Output: cmd.ErrOrStderr()}),
		out:    cmd.OutOrStdout(),
	}
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
