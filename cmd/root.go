package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/lisp-sessions/internal/application"
	"github.com/bnema/lisp-sessions/internal/domain"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lses",
		Short:         "Lisp sessions (lses): write Lisp code together",
		Long:          "lses keeps shared Lisp sessions: participants append code fragments, the buffer is indented and evaluated once its parentheses balance, and lines can be deleted or collaborators invited.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newSessionCmd(app),
		newAppendCmd(app),
		newDeleteCmd(app),
		newCollabCmd(app),
		newEvalCmd(app),
	)

	return rootCmd
}

// reply writes the message a participant sees for err and hands err back so
// the process still exits non-zero.
func reply(cmd *cobra.Command, action application.Action, err error, caller domain.ParticipantID) error {
	if msg := application.UserMessage(action, err, caller); msg != "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), msg)
	}
	return err
}

func addCallerFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "as", "", "participant acting on the session (default $LSES_USER, then $USER)")
}

func addSessionFlag(cmd *cobra.Command, target *string, required bool) {
	cmd.Flags().StringVar(target, "session", "", "session key")
	if required {
		_ = cmd.MarkFlagRequired("session")
	}
}
