package cmd

import (
	"fmt"
	"io"

	"pgbuild/pkg/actions"
	"pgbuild/pkg/config"
	"pgbuild/pkg/dispatch"
	"pgbuild/pkg/errors"
	"pgbuild/pkg/history"
	"pgbuild/pkg/logger"
	"pgbuild/pkg/phonegap"
	"pgbuild/pkg/progress"

	"github.com/spf13/cobra"
)

// newAuthenticator builds the build service client. Tests replace it.
var newAuthenticator = func(baseURL string) dispatch.Authenticator {
	return dispatch.ClientAuthenticator{
		Client: phonegap.NewClient(phonegap.Options{
			BaseURL:   baseURL,
			UserAgent: userAgent(),
		}),
	}
}

// runAction drives a single action: lookup, prompt for credentials,
// validate, execute, print.
func runAction(cmd *cobra.Command, ref string, args actions.Args) error {
	cfg, err := config.Load(profileName)
	if err != nil {
		return err
	}

	if _, err := dispatch.Lookup(ref); err != nil {
		return err
	}

	if args.Username == "" {
		args.Username = cfg.Service.Username
	}
	if args.Password == "" {
		args.Password = cfg.Service.Password
	}

	out := cmd.OutOrStdout()
	writer := NewOutputWriter(outputFormat)
	writer.SetWriter(out)

	// Status lines must not corrupt structured output.
	status := out
	if writer.IsStructured() {
		status = cmd.ErrOrStderr()
	}

	downloadDir := cfg.Service.DownloadDir
	if outputDir != "" {
		downloadDir = outputDir
	}
	timeout := cfg.Service.Timeout
	if globalTimeout > 0 {
		timeout = globalTimeout
	}

	if dryRunFlag {
		plan, err := dispatch.Resolve(ref, args)
		if err != nil {
			return err
		}
		return printDryRun(out, cfg.Service.BaseURL, plan, downloadDir)
	}

	var recorder history.Recorder
	if !noHistoryFlag {
		store, err := history.NewStoreFromEnv()
		if err != nil {
			logger.Warn().Err(err).Msg("history disabled")
		} else {
			defer store.Close()
			recorder = store
		}
	}

	svc, err := dispatch.NewService(dispatch.ServiceOptions{
		Auth:        newAuthenticator(cfg.Service.BaseURL),
		History:     recorder,
		DownloadDir: downloadDir,
		Timeout:     timeout,
		Progress:    downloadProgress,
		Out:         status,
	})
	if err != nil {
		return err
	}

	args, err = svc.Credentials(cmd.Context(), args)
	if err != nil {
		return err
	}

	plan, err := dispatch.Resolve(ref, args)
	if err != nil {
		return err
	}

	var result *dispatch.Result
	execute := func() error {
		var execErr error
		result, execErr = svc.Execute(cmd.Context(), plan)
		return execErr
	}
	// downloads draw their own byte counter
	if plan.Action.Method == actions.MethodDownload {
		err = execute()
	} else {
		err = progress.WithSpinner(fmt.Sprintf("Running %s...", plan.Action.Name), execute)
	}
	if err != nil {
		return err
	}

	return printResult(cmd, writer, status, result)
}

func downloadProgress(w io.Writer) (io.Writer, func()) {
	counter := progress.NewCounter("Downloading")
	return io.MultiWriter(w, counter), counter.Finish
}

func printResult(cmd *cobra.Command, writer *OutputWriter, status io.Writer, result *dispatch.Result) error {
	if result.File != "" {
		fmt.Fprintf(status, "Download complete.  File can be found here: %s\n", result.File)
		if writer.IsStructured() {
			return writer.Write(result)
		}
		return nil
	}

	rendered, err := writer.Render(result.Data)
	if err != nil {
		return errors.NewWithError(errors.KindGeneral, "failed to render response", err)
	}

	if !writer.IsStructured() {
		if err := writer.WriteBytes([]byte("data: ")); err != nil {
			return err
		}
	}
	if err := writer.WriteBytes(rendered); err != nil {
		return err
	}

	if ShouldCopyOutput(cmd) {
		if err := CopyToClipboard(string(rendered)); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "✓ Copied to clipboard!")
	}
	return nil
}

func printDryRun(w io.Writer, baseURL string, plan dispatch.Plan, downloadDir string) error {
	details := map[string]string{
		"action": plan.Action.Name,
		"method": string(plan.Action.Method),
		"url":    baseURL + plan.Path,
	}
	if plan.Action.Method.HasPayload() {
		details["payload"] = plan.Args.Payload
	}
	if plan.Action.Method == actions.MethodDownload {
		details["file"] = dispatch.ArtifactPathIn(downloadDir, plan.Args)
	}
	PrintDryRunAction(w, "perform "+plan.Action.Name, details)
	return nil
}
