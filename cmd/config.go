package cmd

import (
	"fmt"
	"strings"

	"pgbuild/pkg/config"
	"pgbuild/pkg/errors"

	"github.com/spf13/cobra"
)

var (
	configProfileName string
	configBaseURL     string
	configUsername    string
	configDownloadDir string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pgbuild configuration and profiles",
	Long:  `Manage pgbuild configuration, including named build service accounts (profiles).`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after profile, environment and defaults are applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(profileName)
		if err != nil {
			return err
		}

		writer := NewOutputWriter(outputFormat)
		writer.SetWriter(cmd.OutOrStdout())
		if writer.IsStructured() {
			shown := *cfg
			shown.Service.Password = maskSecret(cfg.Service.Password)
			shown.Profiles = nil
			return writer.Write(shown)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Current Configuration:")
		fmt.Fprintln(out, "======================")
		fmt.Fprintf(out, "Active Profile: %s\n", orNone(cfg.ActiveProfile))
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Base URL: %s\n", cfg.Service.BaseURL)
		fmt.Fprintf(out, "Username: %s\n", orNone(cfg.Service.Username))
		fmt.Fprintf(out, "Password: %s\n", maskSecret(cfg.Service.Password))
		fmt.Fprintf(out, "Download Dir: %s\n", cfg.Service.DownloadDir)
		fmt.Fprintf(out, "Timeout: %s\n", cfg.Service.Timeout)

		if len(cfg.Profiles) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Available Profiles:")
			for _, p := range cfg.Profiles {
				active := ""
				if cfg.IsProfileActive(p.Name) {
					active = " (active)"
				}
				fmt.Fprintf(out, "  - %s%s\n", p.Name, active)
			}
		}

		return nil
	},
}

var configProfilesCmd = &cobra.Command{
	Use:     "profiles",
	Aliases: []string{"profile"},
	Short:   "Manage configuration profiles",
	Long:    `List, add, remove, and switch between build service profiles.`,
}

var configProfilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFile()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		profiles := cfg.ListProfiles()
		if len(profiles) == 0 {
			fmt.Fprintln(out, "No profiles configured.")
			fmt.Fprintln(out, "Use 'pgbuild config profiles add --name <name>' to create one.")
			return nil
		}

		rows := make([][]string, 0, len(profiles))
		for _, name := range profiles {
			profile, _ := cfg.GetProfile(name)
			active := ""
			if cfg.IsProfileActive(name) {
				active = "*"
			}
			rows = append(rows, []string{
				name,
				active,
				orNone(profile.Service.Username),
				orNone(profile.Service.BaseURL),
			})
		}
		return Table(out, []string{"Name", "Active", "Username", "Base URL"}, rows)
	},
}

var configProfilesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new profile",
	Long:  `Add a build service profile. Passwords are never stored by this command; they are prompted for or read from PGBUILD_PASSWORD.`,
	Example: `  # Add a profile for a work account
  pgbuild config profiles add --name work --username dev@example.com

  # Add a profile pointing at a different endpoint
  pgbuild config profiles add --name staging --base-url https://staging.example.com/api/v1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(configProfileName) == "" {
			return errors.ConfigError("profile name is required (--name)")
		}

		cfg, err := config.LoadFile()
		if err != nil {
			return err
		}

		profile := config.Profile{
			Name: configProfileName,
			Service: config.ServiceConfig{
				BaseURL:     strings.TrimRight(configBaseURL, "/"),
				Username:    configUsername,
				DownloadDir: configDownloadDir,
			},
		}

		if err := cfg.AddProfile(profile); err != nil {
			return errors.ConfigError(err.Error())
		}

		if err := config.Save(cfg); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Profile '%s' added successfully.\n", configProfileName)
		fmt.Fprintf(out, "Use 'pgbuild config profiles use --name %s' to activate it.\n", configProfileName)
		return nil
	},
}

var configProfilesRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFile()
		if err != nil {
			return err
		}

		if err := cfg.RemoveProfile(configProfileName); err != nil {
			return errors.ConfigError(err.Error())
		}

		if err := config.Save(cfg); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' removed successfully.\n", configProfileName)
		return nil
	},
}

var configProfilesUseCmd = &cobra.Command{
	Use:   "use",
	Short: "Switch to a profile",
	Long:  `Set the active profile for subsequent commands. An empty name clears it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFile()
		if err != nil {
			return err
		}

		if err := cfg.SetProfile(configProfileName); err != nil {
			return errors.ConfigError(err.Error())
		}

		if err := config.Save(cfg); err != nil {
			return err
		}

		if configProfileName == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared the active profile.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile '%s'.\n", configProfileName)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return errors.NewWithError(errors.KindConfig, "failed to get config path", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "(set)"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func init() {
	configProfilesAddCmd.Flags().StringVar(&configProfileName, "name", "", "Profile name (required)")
	configProfilesAddCmd.Flags().StringVar(&configBaseURL, "base-url", "", "Build service API base URL")
	configProfilesAddCmd.Flags().StringVar(&configUsername, "username", "", "Account username")
	configProfilesAddCmd.Flags().StringVar(&configDownloadDir, "download-dir", "", "Directory for downloaded artifacts")
	if err := configProfilesAddCmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}

	configProfilesRemoveCmd.Flags().StringVar(&configProfileName, "name", "", "Profile name (required)")
	if err := configProfilesRemoveCmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}

	configProfilesUseCmd.Flags().StringVar(&configProfileName, "name", "", "Profile name (empty clears the active profile)")
}
