package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/farmaleads/leads-cli/internal/campaign"
)

var (
	campaignSubject   string
	campaignBodyFile  string
	campaignRemitente string
	campaignFirma     string
	campaignPropuesta string
	campaignAll       bool
	campaignLeadIDs   []int64
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Send a templated email campaign to captured leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var body string
		if campaignBodyFile != "" {
			raw, err := os.ReadFile(campaignBodyFile)
			if err != nil {
				return err
			}
			body = string(raw)
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.campaign.Send(ctx, campaign.Params{
			Subject:        campaignSubject,
			Body:           body,
			Remitente:      campaignRemitente,
			Firma:          campaignFirma,
			PropuestaValor: campaignPropuesta,
			OnlyPending:    !campaignAll,
			LeadIDs:        campaignLeadIDs,
		})
		if err != nil {
			return err
		}

		zap.L().Info("campaign complete",
			zap.Int("total", result.Total),
			zap.Int("enviados", result.Sent),
			zap.Int("errores", result.Errors),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	campaignCmd.Flags().StringVar(&campaignSubject, "asunto", "", "subject template (default template when empty)")
	campaignCmd.Flags().StringVar(&campaignBodyFile, "cuerpo-file", "", "path to a body template file (default template when empty)")
	campaignCmd.Flags().StringVar(&campaignRemitente, "remitente", "", "sender name used in the template")
	campaignCmd.Flags().StringVar(&campaignFirma, "firma", "", "signature used in the template")
	campaignCmd.Flags().StringVar(&campaignPropuesta, "propuesta", "", "value proposition paragraph")
	campaignCmd.Flags().BoolVar(&campaignAll, "todos", false, "include leads already contacted")
	campaignCmd.Flags().Int64SliceVar(&campaignLeadIDs, "lead-ids", nil, "restrict the campaign to these lead ids")
	rootCmd.AddCommand(campaignCmd)
}
