package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/farmaleads/leads-cli/internal/capture"
)

var (
	captureZona     string
	captureCP       string
	captureExtra    string
	captureSource   string
	captureMaxItems int
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture pharmacy leads from the configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		maxItems := captureMaxItems
		if maxItems < 5 {
			maxItems = 5
		}
		if maxItems > 100 {
			maxItems = 100
		}

		result, err := env.capture.Run(ctx, capture.Params{
			Zona:         captureZona,
			CodigoPostal: captureCP,
			Extra:        captureExtra,
			Source:       captureSource,
			MaxItems:     maxItems,
		})
		if err != nil {
			return err
		}

		for _, warning := range result.Warnings {
			zap.L().Warn("capture warning", zap.String("aviso", warning))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	captureCmd.Flags().StringVar(&captureZona, "zona", "", "target zone, e.g. a city or neighborhood")
	captureCmd.Flags().StringVar(&captureCP, "cp", "", "postal code")
	captureCmd.Flags().StringVar(&captureExtra, "extra", "", "extra search terms")
	captureCmd.Flags().StringVar(&captureSource, "fuente", capture.SelectMaps, "source: google_maps, paginas_amarillas, openstreetmap, ambas or todas")
	captureCmd.Flags().IntVar(&captureMaxItems, "max-items", capture.DefaultMaxPerSource, "max results per source (clamped to 5-100)")
	rootCmd.AddCommand(captureCmd)
}
