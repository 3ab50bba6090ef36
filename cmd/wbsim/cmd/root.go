// Package cmd provides the command-line interface for wbsim.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// EnvPrefix starts the names of the environment variables that set flags. The
// flag --run-cycles is set by WBSIM_RUN_CYCLES.
const EnvPrefix = "WBSIM_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wbsim",
	Short: "wbsim emulates a Wishbone memory slave for a bus master.",
	Long: `wbsim emulates a Wishbone memory slave, cycle by cycle, in front of a ` +
		`bus master. It drives the clocks and reset, answers reads and writes ` +
		`from a sparse memory, and writes waveforms and transaction records. ` +
		`Flags can also be set from WBSIM_* variables or from a .env file.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return applyEnv(cmd.Flags())
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// applyEnv loads .env when present and sets every flag that was not given on
// the command line from its environment variable.
func applyEnv(flags *pflag.FlagSet) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	var firstErr error

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}

		value, found := os.LookupEnv(envName(f.Name))
		if !found {
			return
		}

		if err := flags.Set(f.Name, value); err != nil {
			firstErr = fmt.Errorf("%s: %w", envName(f.Name), err)
		}
	})

	return firstErr
}

func envName(flag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
