// Command noetctl compiles a network of belief documents into a graph and
// commits it to a persistent cache. Subcommands follow the teacher's
// per-module cobra.Command-plus-PersistentPreRunE idiom (internal state
// initialized lazily, once, the first time any of a group's subcommands
// runs) instead of one monolithic main.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ali01/noetgraph/internal/config"
)

var (
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "noetctl",
	Short: "Compile and serve belief graphs from networks of linked documents",
}

// loadConfig is shared as a PersistentPreRunE by every subcommand that
// needs cfg populated, mirroring the teacher CLI's once-per-process lazy
// init (e.g. warehouseCmd's whInit) without repeating the YAML-load
// boilerplate in each subcommand file.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if cfg != nil {
		return nil
	}
	loaded, err := config.LoadFromYAML(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "noetctl.yaml", "path to noetctl configuration file")
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
