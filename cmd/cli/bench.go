package main

import (
	"github.com/downfa11-org/logunit/pkg/bench"
	"github.com/spf13/cobra"
)

func newBenchCommand(opts *rootOptions) *cobra.Command {
	var (
		writers  int
		entries  int
		batch    int
		payload  int
		readBack bool
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Append synthetic entries with concurrent writers and report throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sl, closeLog, err := opts.openStreamLog()
			if err != nil {
				return err
			}
			defer closeLog()

			// a batch may span at most two segments
			batch = int(min(int64(batch), sl.RecordsPerSegment()))

			runner := bench.NewBenchmarkRunner(sl, writers, entries, batch, payload, readBack)
			result := runner.Run()
			if err := sl.Sync(true); err != nil {
				return err
			}
			runner.Print(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().IntVar(&writers, "writers", 4, "Number of concurrent writers")
	cmd.Flags().IntVar(&entries, "entries", 10000, "Entries per writer")
	cmd.Flags().IntVar(&batch, "batch", 1, "Entries per append (>1 uses a range append)")
	cmd.Flags().IntVar(&payload, "payload", 128, "Payload size in bytes")
	cmd.Flags().BoolVar(&readBack, "read-back", false, "Read every entry back after writing it")
	cmd.Flags().BoolVar(&opts.memory, "memory", false, "Keep the trim mark and tail segment in memory only")
	return cmd
}
