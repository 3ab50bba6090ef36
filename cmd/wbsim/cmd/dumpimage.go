package cmd

import (
	"fmt"
	"io"

	"github.com/sarchlab/wbsim/mem"
	"github.com/spf13/cobra"
)

var dumpImageOpts struct {
	base     uint32
	from     uint32
	to       uint32
	preloads []string
}

var dumpImageCmd = &cobra.Command{
	Use:   "dump-image [image]",
	Short: "Print the memory an image loads, as the emulator sees it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		return dumpImage(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	f := dumpImageCmd.Flags()

	f.Uint32Var(&dumpImageOpts.base, "base", 0, "address of the first image word")
	f.Uint32Var(&dumpImageOpts.from, "from", 0, "first address to print")
	f.Uint32Var(&dumpImageOpts.to, "to", 0xFC, "last address to print")
	f.StringSliceVar(&dumpImageOpts.preloads, "preload", nil,
		"ADDR=VALUE words written before the image")

	rootCmd.AddCommand(dumpImageCmd)
}

func dumpImage(out io.Writer, path string) error {
	storage := mem.MakeStorageBuilder().Build()

	for _, p := range dumpImageOpts.preloads {
		preload, err := mem.ParsePreload(p)
		if err != nil {
			return err
		}

		storage.Apply([]mem.Preload{preload})
	}

	n, err := storage.LoadImageFile(path, dumpImageOpts.base)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "# %d words loaded at %08X\n", n, dumpImageOpts.base)

	return storage.DumpImage(out, dumpImageOpts.from, dumpImageOpts.to)
}
