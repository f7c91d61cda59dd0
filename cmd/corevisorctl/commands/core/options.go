package core

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/options"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Change core app options",
	Long: `Merge the given options into the stored core app options. Only the
flags you pass are changed. Setting an image marks it as an override of the
default image; --reset-image returns to the default.

Examples:
  corevisorctl core options --boot=false --watchdog
  corevisorctl core options --image ghcr.io/acme/core --port 8124
  corevisorctl core options --reset-image
  corevisorctl core options --audio-input none`,
	RunE: runOptions,
}

func init() {
	addOptionFlags(optionsCmd.Flags())
}

func addOptionFlags(f *pflag.FlagSet) {
	f.Bool("boot", false, "Start the core app when the supervisor starts")
	f.String("image", "", "Container image override")
	f.Bool("reset-image", false, "Clear the image override")
	f.Int("port", 0, "Core app HTTP port")
	f.Bool("ssl", false, "Core app serves HTTPS")
	f.Bool("watchdog", false, "Restart the core app when it stops answering")
	f.String("refresh-token", "", "Refresh token handed to the core app")
	f.String("audio-input", "", "Default audio input device ('none' clears it)")
	f.String("audio-output", "", "Default audio output device ('none' clears it)")
	f.Bool("backups-exclude-database", false, "Exclude the database from backups")
}

func runOptions(cmd *cobra.Command, args []string) error {
	partial, err := partialFromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	opts, err := client.SetCoreOptions(partial)
	if err != nil {
		return fmt.Errorf("failed to update options: %w", err)
	}
	return cmdutil.PrintSuccess(os.Stdout, opts, "Core app options updated")
}

// partialFromFlags builds a merge-update from the flags that were set.
func partialFromFlags(f *pflag.FlagSet) (options.Partial, error) {
	var p options.Partial
	var err error

	boolFlag := func(name string) *bool {
		if err != nil || !f.Changed(name) {
			return nil
		}
		var v bool
		v, err = f.GetBool(name)
		return &v
	}
	stringFlag := func(name string, clearValue string) options.Nullable[string] {
		if err != nil || !f.Changed(name) {
			return options.Nullable[string]{}
		}
		var v string
		v, err = f.GetString(name)
		if v == clearValue {
			return options.Null[string]()
		}
		return options.Value(v)
	}

	p.Boot = boolFlag("boot")
	p.SSL = boolFlag("ssl")
	p.Watchdog = boolFlag("watchdog")
	p.BackupsExcludeDatabase = boolFlag("backups-exclude-database")
	p.Image = stringFlag("image", "")
	p.RefreshToken = stringFlag("refresh-token", "")
	p.AudioInput = stringFlag("audio-input", "none")
	p.AudioOutput = stringFlag("audio-output", "none")

	if f.Changed("reset-image") {
		if f.Changed("image") {
			return p, errors.New("--image and --reset-image are mutually exclusive")
		}
		reset, _ := f.GetBool("reset-image")
		if reset {
			p.Image = options.Null[string]()
		}
	}
	if f.Changed("port") {
		port, _ := f.GetInt("port")
		p.Port = &port
	}
	if err != nil {
		return p, err
	}
	if p.Empty() {
		return p, errors.New("no option given; see 'corevisorctl core options --help'")
	}
	return p, nil
}
