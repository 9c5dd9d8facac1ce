package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ironpage",
	Short: "IronPage is a hardened HTML page server",
	Long: `A server-rendered HTML application with in-memory sessions, session-bound
CSRF tokens and a strict Content-Security-Policy.
Complete documentation is available at https://github.com/jmcleod/ironpage`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
