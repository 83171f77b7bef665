package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tradetariff/uktt/internal/config"
	"github.com/tradetariff/uktt/internal/home"
	"github.com/tradetariff/uktt/internal/svcctx"
)

var (
	forceInit   bool
	globalInit  bool
	watchConfig bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage uktt configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Long: `Write a commented default config file to path, ./uktt.yaml, or with
--global to the home directory (~/.uktt/uktt.yaml).`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipServices: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(".", home.ConfigFileName)
		switch {
		case len(args) == 1:
			path = args[0]
		case globalInit:
			h, err := home.New(homeDir)
			if err != nil {
				return err
			}
			if err := h.EnsureExists(); err != nil {
				return err
			}
			path = h.ConfigPath()
		}
		if err := config.WriteDefault(path, forceInit); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging defaults, the config file,
environment variables and flags.

With --watch, prints it again whenever the config file changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr := svcctx.ConfigManagerFrom(ctx)
		if mgr == nil {
			return fmt.Errorf("services not initialized")
		}

		show := func(cfg *config.Config) {
			data, err := config.Marshal(cfg)
			if err != nil {
				svcctx.LoggerFrom(ctx).Error("failed to render config", "error", err)
				return
			}
			if f := mgr.ConfigFile(); f != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", f)
			}
			cmd.OutOrStdout().Write(data)
		}
		show(mgr.Get())

		if !watchConfig {
			return nil
		}
		if mgr.ConfigFile() == "" {
			return fmt.Errorf("no config file to watch")
		}
		mgr.OnChange(func(cfg *config.Config) {
			fmt.Fprintln(cmd.OutOrStdout(), "---")
			show(cfg)
		})
		mgr.WatchConfig()
		<-ctx.Done()
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
	configInitCmd.Flags().BoolVar(&globalInit, "global", false, "write to the home directory")
	configShowCmd.Flags().BoolVarP(&watchConfig, "watch", "w", false, "print again on every config file change")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
