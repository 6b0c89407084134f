// Package completions wires shell completion for pgbuild flag values.
package completions

import (
	"fmt"
	"strings"

	"pgbuild/pkg/actions"
	"pgbuild/pkg/config"

	"github.com/spf13/cobra"
)

var platforms = []string{"android", "ios", "windows"}

var formats = []string{"table", "json", "yaml"}

type Completer struct {
	// loadConfig is replaced in tests.
	loadConfig func() (*config.Config, error)
}

func NewCompleter() *Completer {
	return &Completer{loadConfig: config.LoadFile}
}

// CompleteActions offers action names with their description, plus the
// numeric id when the user has started typing digits.
func (c *Completer) CompleteActions(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, a := range actions.All() {
		id := fmt.Sprint(a.ID)
		switch {
		case hasPrefixFold(a.Name, toComplete):
			out = append(out, a.Name+"\t"+a.Description)
		case toComplete != "" && strings.HasPrefix(id, toComplete):
			out = append(out, id+"\t"+a.Name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func (c *Completer) CompletePlatform(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, p := range c.filterPrefix(platforms, toComplete) {
		out = append(out, p+"\t."+actions.Extension(p))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func (c *Completer) CompleteFormat(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, f := range c.filterPrefix(formats, toComplete) {
		out = append(out, f+"\t"+getFormatDescription(f))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func (c *Completer) CompleteProfile(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := c.loadConfig()
	if err != nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return c.filterPrefix(cfg.ListProfiles(), toComplete), cobra.ShellCompDirectiveNoFileComp
}

func (c *Completer) filterPrefix(items []string, prefix string) []string {
	var filtered []string
	for _, item := range items {
		if hasPrefixFold(item, prefix) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}

func getFormatDescription(format string) string {
	switch format {
	case "table":
		return "Human-readable tables and text"
	case "json":
		return "Indented JSON"
	case "yaml":
		return "YAML documents"
	default:
		return ""
	}
}

// RegisterCompletions attaches completion funcs to the root command and
// the subcommands that take matching flags. Flags must already be defined.
func RegisterCompletions(rootCmd *cobra.Command) {
	completer := NewCompleter()

	register := func(cmd *cobra.Command, flag string, fn func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective)) {
		if cmd.Flag(flag) == nil {
			return
		}
		_ = cmd.RegisterFlagCompletionFunc(flag, fn)
	}

	register(rootCmd, "action", completer.CompleteActions)
	register(rootCmd, "platform", completer.CompletePlatform)
	register(rootCmd, "format", completer.CompleteFormat)
	register(rootCmd, "profile", completer.CompleteProfile)

	if historyListCmd, _, err := rootCmd.Find([]string{"history", "list"}); err == nil && historyListCmd != rootCmd {
		register(historyListCmd, "action", completer.CompleteActions)
	}
	if useCmd, _, err := rootCmd.Find([]string{"config", "profiles", "use"}); err == nil && useCmd != rootCmd {
		register(useCmd, "name", completer.CompleteProfile)
	}
	if removeCmd, _, err := rootCmd.Find([]string{"config", "profiles", "remove"}); err == nil && removeCmd != rootCmd {
		register(removeCmd, "name", completer.CompleteProfile)
	}
}
