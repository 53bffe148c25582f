package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/emulator"
)

var implementationsCmd = &cobra.Command{
	Use:   "implementations",
	Short: "List registered implementations",
	Long: `Prints the implementations a server can create. The number in front is the
value of the legacy implementation selector.`,
	Args: cobra.NoArgs,
	RunE: runImplementations,
}

func init() {
	rootCmd.AddCommand(implementationsCmd)
}

func runImplementations(cmd *cobra.Command, args []string) error {
	reg, err := newRegistry(emulator.DefaultConfig())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Registered implementations:")
	for i, impl := range reg.Implementations() {
		fmt.Fprintf(out, "  %d. %s\n", i+1, impl.Label())
	}
	return nil
}
