package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// Options holds the root-level flag values.
type Options struct {
	Once      bool
	Interval  time.Duration
	NoRecover bool
	Verbose   bool
	LogDir    string
	Yes       bool
}

// appFunc resolves the App a command runs against. The root command
// resolves lazily so flag overrides are applied before wiring.
type appFunc func() (*App, error)

// NewRootCmd wires the cobra root command. The root itself runs the
// monitor loop; subcommands cover the single-action modes.
func NewRootCmd() *cobra.Command {
	opts := &Options{}

	var app *App
	getApp := func() (*App, error) {
		if app != nil {
			return app, nil
		}
		built, err := buildApp(opts)
		if err != nil {
			return nil, err
		}
		app = built
		return app, nil
	}

	root := &cobra.Command{
		Use:   "bt-sentinel",
		Short: "Bluetooth stack monitor and recovery daemon",
		Long: "bt-sentinel watches the local Bluetooth stack (kernel modules, adapter\n" +
			"hardware, daemon service, controller functionality), detects the Broadcom\n" +
			"reset bug and applies an escalating recovery ladder when the stack is\n" +
			"unhealthy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			if opts.Once {
				return runOnce(cmd.Context(), a)
			}
			return runLoop(cmd.Context(), a)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&opts.Verbose, "verbose", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&opts.LogDir, "log-dir", "", "Override the journal directory")
	root.PersistentFlags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip interactive confirmation prompts")
	root.Flags().BoolVar(&opts.Once, "once", false, "Run a single monitor cycle and exit")
	root.Flags().DurationVar(&opts.Interval, "interval", 0, "Override the poll interval")
	root.Flags().BoolVar(&opts.NoRecover, "no-recover", false, "Detect only, never run recovery actions")

	root.AddCommand(newCheckCommand(getApp))
	root.AddCommand(newServiceCommand(getApp))
	root.AddCommand(newPowerCommand(getApp))
	root.AddCommand(newUSBResetCommand(getApp))
	root.AddCommand(newStatusCommand(getApp))
	root.AddCommand(newRecoverCommand(getApp))
	root.AddCommand(newFullRecoverCommand(getApp))
	root.AddCommand(newVersionCommand())
	return root
}
