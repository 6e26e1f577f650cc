package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/downfa11-org/logunit/pkg/controller"
	"github.com/spf13/cobra"
)

func newShellCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Run an interactive shell over the log unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sl, closeLog, err := opts.openStreamLog()
			if err != nil {
				return err
			}
			defer closeLog()

			ch := controller.NewCommandHandler(sl)
			ctx := controller.NewClientContext(int64(os.Getpid()))

			fmt.Fprintln(cmd.OutOrStdout(), "🔹 Log unit ready. Type HELP for commands.")
			fmt.Fprintln(cmd.OutOrStdout(), "")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := scanner.Text()
				if strings.EqualFold(strings.TrimSpace(line), "EXIT") {
					break
				}
				fmt.Fprintln(cmd.OutOrStdout(), ch.HandleCommand(line, ctx))
			}
			return scanner.Err()
		},
	}
	cmd.Flags().BoolVar(&opts.memory, "memory", false, "Keep the trim mark and tail segment in memory only")
	return cmd
}
