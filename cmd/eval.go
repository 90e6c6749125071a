package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/lisp-sessions/internal/application"
	"github.com/bnema/lisp-sessions/internal/domain"
)

func newEvalCmd(app *app) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "eval [sexpr]",
		Short: "Evaluate a session, or a single S-expression",
		Long:  "Evaluate every expression of a session. Without a session, exactly one S-expression must be given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			return app.withService(cmd.Context(), func(svc *application.Service) error {
				report, err := svc.Evaluate(cmd.Context(), domain.ThreadKey(key), input)
				if err != nil {
					return reply(cmd, application.ActionEvaluate, err, "")
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSuffix(report.Render(svc.RenderOptions()), "\n"))
				return err
			})
		},
	}

	addSessionFlag(cmd, &key, false)

	return cmd
}
