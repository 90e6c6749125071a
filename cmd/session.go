package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sessionrender "github.com/bnema/lisp-sessions/internal/adapters/render/session"
	"github.com/bnema/lisp-sessions/internal/application"
	"github.com/bnema/lisp-sessions/internal/domain"
)

const (
	formatText = "text"
	formatYAML = "yaml"
	formatJSON = "json"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start and inspect sessions",
	}

	cmd.AddCommand(
		newSessionNewCmd(app),
		newSessionListCmd(app),
		newSessionShowCmd(app),
	)

	return cmd
}

func newSessionNewCmd(app *app) *cobra.Command {
	var name string
	var as string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new session owned by the caller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			caller := resolveCaller(as)
			return app.withService(cmd.Context(), func(svc *application.Service) error {
				key, err := svc.StartSession(cmd.Context(), caller, name)
				if err != nil {
					return reply(cmd, application.ActionStart, err, caller)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Started session %s\n", key)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "session key (generated when empty)")
	addCallerFlag(cmd, &as)

	return cmd
}

func newSessionListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withService(cmd.Context(), func(svc *application.Service) error {
				views, err := svc.List(cmd.Context())
				if err != nil {
					return err
				}
				writeSessionTable(cmd.OutOrStdout(), views, app.now())
				return nil
			})
		},
	}
}

func newSessionShowCmd(app *app) *cobra.Command {
	var key string
	var format string
	var width int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the code of a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withService(cmd.Context(), func(svc *application.Service) error {
				view, err := svc.Show(cmd.Context(), domain.ThreadKey(key))
				if err != nil {
					return reply(cmd, application.ActionEvaluate, err, "")
				}
				if !cmd.Flags().Changed("width") {
					width = terminalWidth(cmd.OutOrStdout())
				}
				return writeSessionView(cmd, app, view, format, width)
			})
		},
	}

	addSessionFlag(cmd, &key, true)
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text, yaml or json")
	cmd.Flags().IntVar(&width, "width", 0, "wrap code at this many columns (defaults to the terminal width, 0 disables)")

	return cmd
}

func writeSessionTable(w io.Writer, views []application.SessionView, now time.Time) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Participants", "Lines", "Balance", "Updated"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, view := range views {
		table.Append([]string{
			string(view.Key),
			participantList(view.Participants),
			strconv.Itoa(view.Lines),
			view.Balance.String(),
			view.UpdatedAt.In(now.Location()).Format(time.DateTime),
		})
	}

	table.Render()
}

// sessionExport is the yaml/json shape of a session.
type sessionExport struct {
	Key          string    `yaml:"key" json:"key"`
	Participants []string  `yaml:"participants" json:"participants"`
	Code         string    `yaml:"code" json:"code"`
	Balance      string    `yaml:"balance" json:"balance"`
	CreatedAt    time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at" json:"updated_at"`
}

func newSessionExport(view application.SessionView) sessionExport {
	return sessionExport{
		Key:          string(view.Key),
		Participants: lo.Map(view.Participants, func(p domain.ParticipantID, _ int) string { return string(p) }),
		Code:         view.Code,
		Balance:      view.Balance.String(),
		CreatedAt:    view.CreatedAt,
		UpdatedAt:    view.UpdatedAt,
	}
}

func writeSessionView(cmd *cobra.Command, app *app, view application.SessionView, format string, width int) error {
	out := cmd.OutOrStdout()

	switch strings.ToLower(format) {
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(newSessionExport(view)); err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(newSessionExport(view))
	case formatText:
		rendered, err := app.sessionRenderer(view, sessionrender.RenderOptions{Now: app.now(), Width: width})
		if err != nil {
			return fmt.Errorf("render session: %w", err)
		}
		_, err = fmt.Fprintln(out, rendered)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// terminalWidth reports the width of w when it is a terminal, zero otherwise.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(f.Fd()) {
		return 0
	}
	width, _, err := term.GetSize(f.Fd())
	if err != nil {
		return 0
	}
	return width
}

func participantList(participants []domain.ParticipantID) string {
	return strings.Join(lo.Map(participants, func(p domain.ParticipantID, _ int) string { return string(p) }), ", ")
}
