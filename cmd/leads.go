package main

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/farmaleads/leads-cli/internal/store"
)

var (
	leadsSkip        int
	leadsLimit       int
	leadsFuente      string
	leadsOnlyPending bool
	leadsWithEmail   bool
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List captured leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Skip:         leadsSkip,
			Limit:        leadsLimit,
			Fuente:       leadsFuente,
			OnlyPending:  leadsOnlyPending,
			RequireEmail: leadsWithEmail,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(leads)
	},
}

var leadsEmailsCmd = &cobra.Command{
	Use:   "emails <lead-id>",
	Short: "Show the email audit log for a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		leadID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Wrapf(err, "invalid lead id %q", args[0])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		logs, err := st.ListEmailLogs(ctx, leadID, 50)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(logs)
	},
}

func init() {
	leadsCmd.Flags().IntVar(&leadsSkip, "skip", 0, "rows to skip")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 500, "max rows to return")
	leadsCmd.Flags().StringVar(&leadsFuente, "fuente", "", "filter by source")
	leadsCmd.Flags().BoolVar(&leadsOnlyPending, "solo-pendientes", false, "only leads not yet contacted")
	leadsCmd.Flags().BoolVar(&leadsWithEmail, "con-email", false, "only leads with an email")
	leadsCmd.AddCommand(leadsEmailsCmd)
	rootCmd.AddCommand(leadsCmd)
}
