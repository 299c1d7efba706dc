// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/procubot-tui/internal/config"
	"github.com/jeranaias/procubot-tui/internal/model"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

func newConfigCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the configuration",
		Long: `Show and edit the configuration file (~/.procubot/config.toml by
default, or config.yaml when only that exists). Keys use dot notation,
e.g. provider.model or ui.language. A running TUI picks up saved changes.`,
	}
	cmd.AddCommand(
		newConfigShowCommand(flags),
		newConfigPathCommand(flags),
		newConfigInitCommand(flags),
		newConfigGetCommand(flags),
		newConfigSetCommand(flags),
		newConfigModelsCommand(flags),
	)
	return cmd
}

func newConfigShowCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (API key redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, cfg.String())
			fmt.Fprintln(out)
			fmt.Fprintln(out, RenderLabel("API key:")+maskKey(cfg.ResolveAPIKey()))
			if info, ok := model.GetModelInfo(modelName(cfg)); ok {
				fmt.Fprintln(out, RenderLabel("Model:")+info.Name)
				fmt.Fprintln(out, RenderLabel("Inputs:")+info.CapabilitiesString())
				fmt.Fprintln(out, RenderLabel("Context:")+info.ContextString())
			}
			return nil
		},
	}
}

func newConfigPathCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := flags.path()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigInitCommand(flags *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := flags.path()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.SaveTo(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Wrote")+" "+path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigGetCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "get <key>",
		Short:     "Print one configuration value",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return fmt.Errorf("%w (keys: %s)", err, strings.Join(config.Keys(), ", "))
			}
			if strings.EqualFold(args[0], "provider.api_key") {
				v = maskKey(cfg.ResolveAPIKey())
			}
			if v == nil {
				v = ""
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newConfigSetCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one value in the config file",
		Long: `Change one value in the config file. Only the file is edited:
environment variables and flags still override it at run time.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := flags.path()
			if err != nil {
				return err
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.SaveTo(cfg, path); err != nil {
				return err
			}
			shown := args[1]
			if strings.EqualFold(args[0], "provider.api_key") {
				shown = maskKey(args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", SuccessStyle.Render("Set"), strings.ToLower(args[0]), shown)
			return nil
		},
	}
}

func newConfigModelsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the known models of the configured provider",
		Long: `List the known models of the configured provider. The active one is
marked with *. Any other model ID the provider serves may also be set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			active := modelName(cfg)
			for _, info := range model.GetModelsByProvider(cfg.Provider.Name) {
				marker := "  "
				if info.ID == active {
					marker = SuccessStyle.Render("*") + " "
				}
				fmt.Fprintf(out, "%s%-24s %s\n", marker, info.ID, info.Name)
				fmt.Fprintln(out, DimStyle.Render(fmt.Sprintf("  %-24s %s; %s", "", info.ContextString(), info.CapabilitiesString())))
			}
			return nil
		},
	}
}
