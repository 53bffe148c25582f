package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/emulator"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/profile"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
)

var (
	settingsProfile string
	settingsImpl    = "Emulator"
)

var settingsCmd = &cobra.Command{
	Use:   "settings read|write",
	Short: "Move system parameters between an implementation and a profile",
	Long: `"read" loads the profile into a fresh implementation and prints the system
parameters it ended up with. "write" stores the implementation's system
parameters in the profile.

Profiles ending in .db or .bolt are bolt databases, anything else is INI.

Examples:
  rsa settings write --profile rsa.ini
  rsa settings read --profile settings.db`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"read", "write"},
	RunE:      runSettings,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.Flags().StringVar(&settingsProfile, "profile", "", "profile file")
	settingsCmd.Flags().StringVar(&settingsImpl, "impl", settingsImpl, "implementation to use")
	settingsCmd.MarkFlagRequired("profile")
}

func runSettings(cmd *cobra.Command, args []string) error {
	reg, err := newRegistry(emulator.DefaultConfig())
	if err != nil {
		return err
	}
	acq, err := reg.Create(settingsImpl)
	if err != nil {
		return err
	}
	store, err := profile.Open(settingsProfile)
	if err != nil {
		return err
	}
	defer store.Close()

	read := args[0] == "read"
	if read {
		acq.SetProfile(store)
	}
	if !acq.Initialize() {
		return errors.New("settings: implementation did not initialize cleanly")
	}
	defer acq.Uninitialize()
	if !read && !rsa.ReadWriteSettings(acq, store, false) {
		return errors.New("settings: not every system parameter was written")
	}

	out := cmd.OutOrStdout()
	n := 0
	for _, id := range acq.EnumParamIDs() {
		info, ok := acq.ParamInfo(id)
		if !ok || !info.Flags.Has(rsa.ParamSystem) {
			continue
		}
		section, key, err := rsa.SettingsKey(acq, info)
		if err != nil {
			return err
		}
		v, _ := acq.Param(id)
		fmt.Fprintf(out, "[%s] %s = %s\n", section, key, v)
		n++
	}
	verb := "read"
	if !read {
		verb = "wrote"
	}
	fmt.Fprintf(out, "%s %d settings (%s)\n", verb, n, settingsProfile)
	return nil
}
