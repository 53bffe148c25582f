package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/broker"
)

var (
	listOpts   = defaultServerOptions()
	outputJSON bool
)

// VariableInfo is one published variable.
type VariableInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
	Flags string `json:"flags"`
	Class string `json:"class"`
	Setup string `json:"setup"`
}

// ResultStreamInfo is one published result stream.
type ResultStreamInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	BlockSize   int    `json:"block_size"`
	SegmentSize int    `json:"segment_size"`
	Flags       string `json:"flags"`
	Setup       string `json:"setup"`
}

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List the variables an implementation publishes",
	Long: `Creates the implementation and prints every broker variable with its id,
current value and setup string.

Examples:
  rsa params
  rsa params --legacy --json`,
	Args: cobra.NoArgs,
	RunE: runParams,
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List the result streams an implementation publishes",
	Args:  cobra.NoArgs,
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(paramsCmd, resultsCmd)
	for _, c := range []*cobra.Command{paramsCmd, resultsCmd} {
		listOpts.addFlags(c)
		c.Flags().BoolVar(&outputJSON, "json", false, "output as JSON (for programmatic access)")
	}
}

func runParams(cmd *cobra.Command, args []string) error {
	sess, err := listOpts.open()
	if err != nil {
		return err
	}
	defer sess.close()

	b := sess.srv.Broker()
	var infos []VariableInfo
	for _, v := range b.Variables() {
		c, _ := b.Class(v)
		infos = append(infos, VariableInfo{
			ID:    hexID(v.ID()),
			Name:  v.Name(),
			Value: displayValue(v),
			Unit:  v.Definition().Unit,
			Flags: v.CurFlags().String(),
			Class: c.String(),
			Setup: v.SetupString(),
		})
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), infos)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVALUE\tUNIT\tFLAGS\tCLASS")
	for _, i := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", i.ID, i.Name, i.Value, i.Unit, i.Flags, i.Class)
	}
	fmt.Fprintf(w, "\n%d variables\n", len(infos))
	return w.Flush()
}

func runResults(cmd *cobra.Command, args []string) error {
	sess, err := listOpts.open()
	if err != nil {
		return err
	}
	defer sess.close()

	var infos []ResultStreamInfo
	for _, r := range sess.srv.Broker().Results() {
		d := r.Definition()
		infos = append(infos, ResultStreamInfo{
			ID:          hexID(d.ID),
			Name:        d.Name,
			Type:        d.Type.String(),
			BlockSize:   d.BlockSize,
			SegmentSize: d.SegmentSize,
			Flags:       r.CurFlags().String(),
			Setup:       r.SetupString(),
		})
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), infos)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tBLOCK\tSEGMENT\tFLAGS")
	for _, i := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", i.ID, i.Name, i.Type, i.BlockSize, i.SegmentSize, i.Flags)
	}
	fmt.Fprintf(w, "\n%d results\n", len(infos))
	return w.Flush()
}

// displayValue prefers a variable's state label over its raw value.
func displayValue(v *broker.Variable) string {
	if st, ok := v.StateName(); ok {
		return st
	}
	return v.Cur().String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
