package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sarchlab/wbsim/datarecording"
	"github.com/sarchlab/wbsim/driver"
	"github.com/sarchlab/wbsim/tracing"
	"github.com/spf13/cobra"
)

var reportOpts struct {
	kind  string
	limit int
}

var reportCmd = &cobra.Command{
	Use:   "report [recording.sqlite3]",
	Short: "Print the transactions and heartbeats of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		return printReport(cmd, args[0])
	},
}

func init() {
	f := reportCmd.Flags()

	f.StringVar(&reportOpts.kind, "kind", "", "only show RD or WR transactions")
	f.IntVar(&reportOpts.limit, "limit", 0, "show at most this many transactions")

	rootCmd.AddCommand(reportCmd)
}

func printReport(cmd *cobra.Command, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open recording: %w", err)
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	reader.MapTable(tracing.TransactionTable, tracing.TransactionEntry{})
	reader.MapTable(driver.HeartbeatTable, driver.HeartbeatEntry{})

	out := cmd.OutOrStdout()

	if err := printTransactions(cmd, reader, out); err != nil {
		return err
	}

	return printHeartbeats(cmd, reader, out)
}

func printTransactions(
	cmd *cobra.Command,
	reader datarecording.DataReader,
	out io.Writer,
) error {
	params := datarecording.QueryParams{
		OrderBy: "AcceptedCycle",
		Limit:   reportOpts.limit,
	}

	if reportOpts.kind != "" {
		params.Where = "Kind = ?"
		params.Args = []any{strings.ToUpper(reportOpts.kind)}
	}

	rows, total, err := reader.Query(cmd.Context(), tracing.TransactionTable, params)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d transactions\n", total)

	for _, row := range rows {
		t := row.(*tracing.TransactionEntry)
		fmt.Fprintf(out, "%08d-%08d %s RA=%08X SEL=%X DATA=%08X\n",
			t.AcceptedCycle, t.RetiredCycle, t.Kind, t.Address, t.ByteEnable, t.Data)
	}

	return nil
}

func printHeartbeats(
	cmd *cobra.Command,
	reader datarecording.DataReader,
	out io.Writer,
) error {
	rows, _, err := reader.Query(cmd.Context(), driver.HeartbeatTable,
		datarecording.QueryParams{OrderBy: "Cycle"})
	if err != nil {
		return err
	}

	for _, row := range rows {
		h := row.(*driver.HeartbeatEntry)
		fmt.Fprintf(out, "%08d %s\n", h.Cycle, h.Message)
	}

	return nil
}
