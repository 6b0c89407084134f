package cmd

import "github.com/spf13/cobra"

func RegisterCommands(root *cobra.Command) {
	root.AddCommand(versionCmd)
	root.AddCommand(actionsCmd)
	root.AddCommand(configCmd)
	root.AddCommand(historyCmd)

	configCmd.AddCommand(
		configShowCmd,
		configPathCmd,
		configProfilesCmd,
	)

	configProfilesCmd.AddCommand(
		configProfilesListCmd,
		configProfilesAddCmd,
		configProfilesRemoveCmd,
		configProfilesUseCmd,
	)

	historyCmd.AddCommand(
		historyListCmd,
		historyClearCmd,
	)
}
