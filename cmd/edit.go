package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/lisp-sessions/internal/application"
	"github.com/bnema/lisp-sessions/internal/domain"
)

func newAppendCmd(app *app) *cobra.Command {
	var key string
	var as string

	cmd := &cobra.Command{
		Use:   "append [fragment | -]",
		Short: "Append a code fragment to a session",
		Long:  "Append a code fragment to a session. With no fragment, or \"-\", the fragment is read from stdin. Once the parentheses balance the whole buffer is evaluated.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller := resolveCaller(as)

			fragment, err := readFragment(cmd, args)
			if err != nil {
				return err
			}

			return app.withService(cmd.Context(), func(svc *application.Service) error {
				result, err := svc.AppendCode(cmd.Context(), domain.ThreadKey(key), caller, fragment)
				if err != nil {
					return reply(cmd, application.ActionAppend, err, caller)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Message())
				return err
			})
		},
	}

	addSessionFlag(cmd, &key, true)
	addCallerFlag(cmd, &as)

	return cmd
}

func newDeleteCmd(app *app) *cobra.Command {
	var key string
	var as string
	var index int

	cmd := &cobra.Command{
		Use:   "del",
		Short: "Delete a line, counted from the end",
		RunE: func(cmd *cobra.Command, _ []string) error {
			caller := resolveCaller(as)
			return app.withService(cmd.Context(), func(svc *application.Service) error {
				msg, err := svc.DeleteLine(cmd.Context(), domain.ThreadKey(key), caller, index)
				if err != nil {
					return reply(cmd, application.ActionDelete, err, caller)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
				return err
			})
		},
	}

	addSessionFlag(cmd, &key, true)
	addCallerFlag(cmd, &as)
	cmd.Flags().IntVar(&index, "index", 0, "line to delete, 0 being the last one")

	return cmd
}

func newCollabCmd(app *app) *cobra.Command {
	var key string
	var as string
	var who string

	cmd := &cobra.Command{
		Use:   "collab",
		Short: "Invite a participant to a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			caller := resolveCaller(as)
			return app.withService(cmd.Context(), func(svc *application.Service) error {
				msg, err := svc.Invite(cmd.Context(), domain.ThreadKey(key), caller, domain.ParticipantID(who))
				if err != nil {
					return reply(cmd, application.ActionInvite, err, caller)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
				return err
			})
		},
	}

	addSessionFlag(cmd, &key, true)
	addCallerFlag(cmd, &as)
	cmd.Flags().StringVar(&who, "who", "", "participant to invite")
	_ = cmd.MarkFlagRequired("who")

	return cmd
}

func readFragment(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read fragment from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
