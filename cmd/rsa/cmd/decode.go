package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

var decodeDevice uint32

var decodeCmd = &cobra.Command{
	Use:   "decode <id>",
	Short: "Split a parameter or result id into its fields",
	Long: `Prints the channel, gate and index of an id and the broker ids it is
published under in both addressing schemes.

Examples:
  rsa decode 0xFFFF0002      # device level
  rsa decode 0x01FF0020      # channel 2
  rsa decode 0x00010005      # channel 1, gate 2`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().Uint32Var(&decodeDevice, "device", rsaid.DeviceUT, "device number of the broker ids")
}

func component(v uint8, none uint8) string {
	if v == none {
		return "none"
	}
	return fmt.Sprintf("%d", v)
}

func runDecode(cmd *cobra.Command, args []string) error {
	id, err := rsaid.Parse(args[0])
	if err != nil {
		return err
	}
	ch, gate, index := rsaid.Decode(id)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:       %s\n", id)
	fmt.Fprintf(out, "channel:  %s\n", component(ch, rsaid.NoChannel))
	fmt.Fprintf(out, "gate:     %s\n", component(gate, rsaid.NoGate))
	fmt.Fprintf(out, "index:    0x%X\n", index)
	fmt.Fprintf(out, "current:  %s\n", hexID(rsaid.Current(decodeDevice, ch, gate, index)))
	fmt.Fprintf(out, "legacy:   %s\n", hexID(rsaid.Legacy(decodeDevice, ch, gate, index)))
	return nil
}
