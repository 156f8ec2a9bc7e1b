package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Crawl lead websites to fill missing contact emails",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.enrich.EnrichMissing(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("enrichment complete",
			zap.Int("candidatos", result.Candidates),
			zap.Int("enriquecidos", result.Enriched),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
