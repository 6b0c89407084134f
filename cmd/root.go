package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"pgbuild/pkg/actions"
	"pgbuild/pkg/completions"
	"pgbuild/pkg/dispatch"
	"pgbuild/pkg/errors"
	"pgbuild/pkg/logger"

	"github.com/spf13/cobra"
)

const (
	unknownValue = "unknown"
)

var (
	Version   string
	BuildTime string
	GitCommit string
)

var globalTimeout time.Duration
var outputFormat string
var dryRunFlag bool
var copyToClipboardFlag bool
var logLevel string
var profileName string
var outputDir string
var noHistoryFlag bool

var (
	actionRef string
	listFlag  bool
	runArgs   actions.Args
)

var rootCmd = &cobra.Command{
	Use:   "pgbuild [payload]",
	Short: "PhoneGap Build command-line client",
	Long: `Perform PhoneGap Build API actions from the command line.

Each action maps to a single REST call (or an artifact download). Missing
credentials are prompted for. The optional payload is a JSON document sent as
form data for create and update actions.`,
	Example: `  # List the available actions
  pgbuild --list

  # Show the authenticated user
  pgbuild -a me -u dev@example.com

  # Start an Android build for app 12345
  pgbuild -a buildAppsByIdByPlatform -i 12345 -d android

  # Create an app from a JSON payload
  pgbuild -a createApp '{"title":"Demo","create_method":"remote_repo","repo":"https://github.com/org/demo.git"}'

  # Download the iOS build of app 12345
  pgbuild -a downloadAppById -i 12345 -d ios --output-dir ./dist`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if !cmd.Flags().Changed("log-level") {
			if envLevel := os.Getenv("PGBUILD_LOG_LEVEL"); envLevel != "" {
				level = envLevel
			}
		}
		logger.SetLevel(level)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if listFlag {
			return printActions(cmd.OutOrStdout(), actions.All())
		}
		if len(args) > 0 {
			runArgs.Payload = args[0]
		}
		return runAction(cmd, actionRef, runArgs)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		ver := Version
		if ver == "" {
			ver = "dev"
		}
		bt := BuildTime
		if bt == "" {
			bt = unknownValue
		}
		gc := GitCommit
		if gc == "" {
			gc = unknownValue
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pgbuild version %s\n", ver)
		fmt.Fprintf(out, "Built: %s\n", bt)
		fmt.Fprintf(out, "Git commit: %s\n", gc)
	},
}

func Execute() {
	os.Exit(int(run(os.Args[1:], os.Stdout, os.Stderr)))
}

// run executes the command tree and maps the outcome to an exit code:
// 0 on success, 1 on any failure.
func run(args []string, stdout, stderr io.Writer) errors.ExitCode {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return errors.ExitCodeSuccess
	}

	var verr *dispatch.ValidationError
	if stderrors.As(err, &verr) {
		printValidations(stdout, verr.Validations)
		logger.Debug().Int("count", len(verr.Validations)).Msg("validation failed")
		return errors.ExitCodeFailure
	}

	return errors.HandleTo(stderr, err)
}

func userAgent() string {
	if Version == "" {
		return "pgbuild/dev"
	}
	return "pgbuild/" + Version
}

func init() {
	RegisterCommands(rootCmd)

	flags := rootCmd.Flags()
	flags.StringVarP(&actionRef, "action", "a", "", "The PhoneGap Build action to perform (name or id)")
	flags.StringVarP(&runArgs.CollaboratorID, "collaborator_id", "c", "", "The PhoneGap Build Collaborator id")
	flags.StringVarP(&runArgs.Platform, "platform", "d", "", "The PhoneGap Build platform")
	flags.StringVarP(&runArgs.AppID, "app_id", "i", "", "The PhoneGap Build Application id")
	flags.StringVarP(&runArgs.KeyID, "key_id", "k", "", "The PhoneGap Build Signing key id")
	flags.BoolVarP(&listFlag, "list", "l", false, "List the available actions")
	flags.StringVarP(&runArgs.Password, "password", "p", "", "The User's password")
	flags.StringVarP(&runArgs.Username, "username", "u", "", "The User to authenticate as")
	flags.StringVar(&outputDir, "output-dir", "", "Directory downloaded artifacts are written to (default: system temp dir)")
	flags.BoolVar(&dryRunFlag, "dry-run", false, "Show the request that would be made without sending it")
	flags.BoolVar(&noHistoryFlag, "no-history", false, "Do not record this execution in the local history")

	persistent := rootCmd.PersistentFlags()
	persistent.DurationVar(&globalTimeout, "timeout", 0, "Timeout for API requests (e.g., 30s, 1m); defaults to the configured timeout")
	persistent.StringVar(&outputFormat, "format", string(FormatTable), "Output format (table, json, yaml)")
	persistent.BoolVar(&copyToClipboardFlag, "copy", false, "Copy the response output to the clipboard")
	persistent.StringVar(&logLevel, "log-level", logger.DefaultLevel, "Log level (debug, info, warn, error)")
	persistent.StringVar(&profileName, "profile", "", "Configuration profile to use")

	completions.RegisterCompletions(rootCmd)
}
