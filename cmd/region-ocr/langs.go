package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/menta2k/region-ocr/pkg/tesseract"
)

var langsCmd = &cobra.Command{
	Use:   "langs",
	Short: "List the languages installed for the local engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cfgManager.Get()
		engine := tesseract.NewCLIEngine(cfg.Tesseract.Path, logger)
		langs, err := engine.Languages(cmd.Context())
		if err != nil {
			return err
		}

		configured := strings.Split(cfg.Tesseract.Language, "+")
		for _, l := range langs {
			marker := " "
			for _, c := range configured {
				if c == l {
					marker = "*"
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, l)
		}
		for _, c := range configured {
			if !contains(langs, c) {
				logger.Warn("configured language is not installed", "language", c)
			}
		}
		return nil
	},
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
