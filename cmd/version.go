package cmd

import (
	"fmt"

	"github.com/bnema/lisp-sessions/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "lses %s\n", version.Version)
			return err
		},
	}
}
