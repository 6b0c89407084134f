package cmd

import (
	"pgbuild/pkg/errors"
	"pgbuild/pkg/history"

	"github.com/spf13/cobra"
)

type CommandBuilder struct {
	cmd *cobra.Command
}

func NewCommand(name, short, long string) *CommandBuilder {
	return &CommandBuilder{
		cmd: &cobra.Command{
			Use:     name,
			Short:   short,
			Long:    long,
			Example: "",
		},
	}
}

func (b *CommandBuilder) WithExample(example string) *CommandBuilder {
	b.cmd.Example = example
	return b
}

// WithHistoryStore runs fn against the local history database and closes it
// afterwards.
func (b *CommandBuilder) WithHistoryStore(fn func(cmd *cobra.Command, store *history.Store) error) *CommandBuilder {
	b.cmd.RunE = func(cmd *cobra.Command, args []string) error {
		store, err := history.NewStoreFromEnv()
		if err != nil {
			return errors.Wrap(err, "failed to open history")
		}
		defer store.Close()
		return fn(cmd, store)
	}
	return b
}

func (b *CommandBuilder) WithNoArgs() *CommandBuilder {
	b.cmd.Args = cobra.NoArgs
	return b
}

func (b *CommandBuilder) Build() *cobra.Command {
	return b.cmd
}
