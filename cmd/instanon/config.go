package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"instanon/pkg/config"
	"instanon/pkg/mirror"
	"instanon/pkg/ui"
)

const defaultConfigFile = ".instanon.yaml"

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage instanon configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (INSTANON_*), including a .env file
  - Configuration file
  - Default values`,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default values",
		Long: `Write a configuration file holding every option at its default value.

The file is created as '` + defaultConfigFile + `' in the current directory
unless a different path is given with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, opts, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, opts)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Validate the effective configuration.

This command checks:
  - YAML syntax
  - Value ranges
  - That the mirror variant exists
  - That the log file directory can be created`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd, opts)
		},
	}

	configCmd.AddCommand(initCmd, showCmd, validateCmd)
	return configCmd
}

func runConfigInit(cmd *cobra.Command, opts *rootOptions, force bool) error {
	path := opts.configFile
	if path == "" {
		path = defaultConfigFile
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	term := ui.NewTerminal(cmd.OutOrStdout(), opts.quiet)
	term.Success("[*] Configuration file created: %s", path)
	term.Info("Run 'instanon config validate --config %s' after editing it", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	var problems []error
	if _, err := mirror.LookupVariant(cfg.Mirror.Variant); err != nil {
		problems = append(problems, err)
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Errorf("cannot create log directory: %w", err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("configuration has errors: %w", errors.Join(problems...))
	}

	term := ui.NewTerminal(cmd.OutOrStdout(), opts.quiet)
	if cfg.Mirror.InsecureSkipVerify {
		term.Warning("[!] TLS certificate verification is disabled for the mirror")
	}
	term.Success("[*] Configuration is valid")
	term.Info("  Variant: %s", cfg.Mirror.Variant)
	term.Info("  Output directory: %s", cfg.Output.BaseDirectory)
	term.Info("  Max attempts: %d", cfg.Retry.MaxAttempts)
	term.Info("  Rate limit: %d requests/minute", cfg.RateLimit.RequestsPerMinute)
	term.Info("  Log level: %s", cfg.Logging.Level)
	return nil
}
