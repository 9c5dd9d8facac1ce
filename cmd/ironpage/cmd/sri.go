package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/ironpage/web"
)

var sriCmd = &cobra.Command{
	Use:   "sri [file...]",
	Short: "Print subresource integrity hashes",
	Long: `Prints the sha384 integrity value of each file. Without arguments, prints
the hashes of the embedded scripts pinned in the Content-Security-Policy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			hashes, err := web.ScriptHashes()
			if err != nil {
				return err
			}
			for _, h := range hashes {
				fmt.Fprintln(out, h)
			}
			return nil
		}
		for _, name := range args {
			data, err := os.ReadFile(name)
			if err != nil {
				return fmt.Errorf("reading %s: %w", name, err)
			}
			fmt.Fprintf(out, "%s  %s\n", web.Integrity(data), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sriCmd)
}
