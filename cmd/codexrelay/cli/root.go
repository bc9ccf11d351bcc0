// Package cli implements the codexrelay command-line interface using
// Cobra: account management and OAuth login over the Command Surface in
// internal/command.
package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/majorcontext/codexrelay/internal/config"
	"github.com/majorcontext/codexrelay/internal/log"
)

var (
	verbose bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "codexrelay",
	Short: "Manage Codex/ChatGPT accounts",
	Long: `codexrelay manages multiple OpenAI Codex/ChatGPT accounts: it adds,
switches, renames and removes them, runs the ChatGPT OAuth login, and
reports rate-limit usage. It has no command that runs the proxy or the
PM-Router.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		globalCfg, _ := config.LoadGlobal()
		debugDir := ""
		if globalCfg.Debug.Enabled {
			debugDir = filepath.Join(config.GlobalConfigDir(), "debug")
		}

		if err := log.Init(log.Options{
			Verbose:       verbose,
			JSONFormat:    jsonOut,
			Quiet:         jsonOut,
			DebugDir:      debugDir,
			RetentionDays: globalCfg.Debug.RetentionDays,
		}); err != nil {
			cmd.PrintErrf("warning: failed to initialize debug logging: %v\n", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "emit JSON output")
}
