package cmd

import (
	"flag"
	"fmt"
	"os"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rsa",
	Short: "Repetitive signal acquisition server",
	Long: `Runs acquisition implementations and publishes their parameters and results
as broker variables and result streams.

Examples:
  rsa implementations                       # List registered implementations
  rsa params --impl Emulator                # Show the published variables
  rsa decode 0x00FF0020                     # Split an id into its fields
  rsa serve --addr :8080 --bolt rsa.db      # Serve the emulator over HTTP
  rsa console                               # Interactive session`,
	Version: "0.9.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// glog refuses to log before its flag set is parsed.
		if !flag.Parsed() {
			flag.CommandLine.Parse(nil)
		}
	},
}

// Execute runs the root command
func Execute() {
	defer log.Flush()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Flush()
		os.Exit(1)
	}
}

func init() {
	// -v, -logtostderr, -log_dir and friends come from glog.
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}
