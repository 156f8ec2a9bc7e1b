// Package store persists leads and delivery logs. It owns the dedup/merge
// policy: the (nombre, direccion) identity key is unique per store and
// conflicting candidates only fill fields the existing record is missing.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/farmaleads/leads-cli/internal/config"
	"github.com/farmaleads/leads-cli/internal/lead"
)

// defaultLeadLimit caps unbounded listings.
const defaultLeadLimit = 500

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	OnlyPending  bool   `json:"only_pending,omitempty"`
	RequireEmail bool   `json:"require_email,omitempty"`
	Fuente       string `json:"fuente,omitempty"`
	Skip         int    `json:"skip,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the lead pipeline.
type Store interface {
	// Upsert runs one batch in a single transaction: candidates are
	// normalized with the fallback zone/postal code, non-viable ones are
	// skipped, new identity keys are inserted as pending, and conflicting
	// ones merge-fill website/telefono/email only. Returns the number of
	// newly created leads.
	UpsertLeads(ctx context.Context, candidates []lead.Lead, fallbackZona, fallbackCP string) (int, error)

	ListLeads(ctx context.Context, filter LeadFilter) ([]lead.Lead, error)

	// Enrichment
	LeadsMissingEmail(ctx context.Context) ([]lead.Lead, error)
	SetLeadEmail(ctx context.Context, id int64, email string) error

	// Campaign
	CampaignTargets(ctx context.Context, onlyPending bool, leadIDs []int64) ([]lead.Lead, error)
	SetSendState(ctx context.Context, id int64, state string) error
	AppendEmailLog(ctx context.Context, entry *lead.EmailLog) error
	ListEmailLogs(ctx context.Context, leadID int64, limit int) ([]lead.EmailLog, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// New opens the store selected by config.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
