package cmd

import (
	"fmt"

	"pgbuild/pkg/actions"
	"pgbuild/pkg/filter"

	"github.com/spf13/cobra"
)

var actionsFilter string

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the available actions",
	Long: `List every action the client can perform. --filter keeps actions whose
name, description or URL fuzzy-matches the pattern.`,
	Example: `  pgbuild actions
  pgbuild actions --filter key
  pgbuild actions --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list := actions.All()

		if actionsFilter != "" {
			f, err := filter.NewStringFilter(actionsFilter, filter.FilterModeFuzzy)
			if err != nil {
				return err
			}
			matched := list[:0]
			for _, a := range list {
				if f.MatchAny(a.Name, a.Description, a.URL) {
					matched = append(matched, a)
				}
			}
			list = matched
		}

		if len(list) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No actions match %q.\n", actionsFilter)
			return nil
		}
		return printActions(cmd.OutOrStdout(), list)
	},
}

func init() {
	actionsCmd.Flags().StringVar(&actionsFilter, "filter", "", "Fuzzy filter on name, description or URL")
}
