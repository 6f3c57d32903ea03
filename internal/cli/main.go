package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/speakercut/internal/logging"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "speakercut",
		Short:         "Cut speaker-aware vertical clips with synced captions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Init(opts.verbose)
		},
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ./speakercut.yaml or ~/.speakercut/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		newGenerateCmd(opts),
		newResyncCmd(opts),
		newWorkerCmd(opts),
		newStatusCmd(opts),
		newConfigCmd(opts),
	)
	return root
}
