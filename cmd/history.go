package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pgbuild/pkg/actions"
	"pgbuild/pkg/errors"
	"pgbuild/pkg/history"
	"pgbuild/pkg/progress"
	"pgbuild/pkg/prompt"

	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyAction string
	historyStatus string
	historyYes    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Review previously executed actions",
	Long:  `Every executed action is recorded in a local SQLite database unless --no-history is given.`,
}

var historyListCmd = NewCommand(
	"list",
	"List recorded executions",
	`List recorded executions, newest first.`,
).WithExample(`  # Last 10 downloads
  pgbuild history list --action downloadAppById --limit 10

  # Failed executions as JSON
  pgbuild history list --status failure --format json`).
	WithNoArgs().
	WithHistoryStore(func(cmd *cobra.Command, store *history.Store) error {
		query := history.Query{Limit: historyLimit}

		if historyAction != "" {
			action, ok := actions.Lookup(historyAction)
			if !ok {
				return errors.NoActionError(actions.Suggest(historyAction))
			}
			query.Action = action.Name
		}

		switch status := history.Status(strings.ToLower(historyStatus)); status {
		case "":
		case history.StatusSuccess, history.StatusFailure:
			query.Status = status
		default:
			return errors.NewWithSuggestion(errors.KindValidation,
				fmt.Sprintf("invalid status %q", historyStatus), "Use 'success' or 'failure'")
		}

		entries, err := store.List(query)
		if err != nil {
			return err
		}

		writer := NewOutputWriter(outputFormat)
		writer.SetWriter(cmd.OutOrStdout())
		if writer.IsStructured() {
			return writer.Write(entries)
		}

		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No executions recorded.")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.StartedAt.Local().Format(time.DateTime),
				e.ActionName,
				string(e.Status),
				httpStatusText(e.HTTPStatus),
				e.Duration.Round(time.Millisecond).String(),
				historyDetail(e),
			})
		}
		return Table(cmd.OutOrStdout(), []string{"Started", "Action", "Status", "HTTP", "Duration", "Detail"}, rows)
	}).
	Build()

var historyClearCmd = NewCommand(
	"clear",
	"Delete all recorded executions",
	"",
).WithNoArgs().
	WithHistoryStore(func(cmd *cobra.Command, store *history.Store) error {
		if !historyYes {
			ok, err := prompt.NewTerminalWith(os.Stdin, cmd.ErrOrStderr()).Confirm(cmd.Context(), "Delete all recorded executions?")
			if err != nil {
				return errors.PromptError(err)
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		n, err := store.Clear()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries.\n", n)
		return nil
	}).
	Build()

func httpStatusText(code int) string {
	if code == 0 {
		return "-"
	}
	return strconv.Itoa(code)
}

func historyDetail(e history.Entry) string {
	switch {
	case e.Error != "":
		return e.Error
	case e.File != "":
		return fmt.Sprintf("%s (%s)", e.File, progress.FormatBytes(e.Bytes))
	default:
		return e.Path
	}
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of entries (0 for all)")
	historyListCmd.Flags().StringVar(&historyAction, "action", "", "Only show this action (name or id)")
	historyListCmd.Flags().StringVar(&historyStatus, "status", "", "Only show 'success' or 'failure'")

	historyClearCmd.Flags().BoolVarP(&historyYes, "yes", "y", false, "Skip the confirmation prompt")
}
