package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/region-ocr/internal/config"
	"github.com/menta2k/region-ocr/internal/logutil"
	"github.com/menta2k/region-ocr/internal/utils"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:         "init [path]",
	Short:       "Write a commented default configuration",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{"skipConfig": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetConfigPath()
		if len(args) == 1 {
			path = args[0]
		} else if cfgFile != "" {
			path = cfgFile
		}
		if utils.FileExists(path) && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *cfgManager.Get()
		if cfg.Gemini.APIKey != "" {
			cfg.Gemini.APIKey = logutil.RedactKey(cfg.Gemini.APIKey)
		}
		if cfg.LlamaCpp.APIKey != "" {
			cfg.LlamaCpp.APIKey = logutil.RedactKey(cfg.LlamaCpp.APIKey)
		}
		if f := cfgManager.ConfigFile(); f != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", f)
		}
		data, err := config.Marshal(&cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
