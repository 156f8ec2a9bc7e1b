package enrich

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/farmaleads/leads-cli/internal/store"
)

// Service walks leads that have a website but no email and tries to fill
// the gap with the crawler.
type Service struct {
	store  store.Store
	finder *Finder
}

// NewService builds an enrichment service.
func NewService(st store.Store, finder *Finder) *Service {
	return &Service{store: st, finder: finder}
}

// Result summarizes one enrichment run.
type Result struct {
	Candidates int `json:"candidatos"`
	Enriched   int `json:"enriquecidos"`
}

// EnrichMissing crawls every lead missing an email and persists each
// discovery as it is found. A crawl that yields nothing leaves the lead
// untouched; a store write failure aborts the run, keeping the emails
// already saved. Crawling is the expensive part, so a fault late in the
// pass must not throw away verified addresses, and re-running only
// revisits the leads still missing an email.
func (s *Service) EnrichMissing(ctx context.Context) (Result, error) {
	leads, err := s.store.LeadsMissingEmail(ctx)
	if err != nil {
		return Result{}, eris.Wrap(err, "enrich: listing leads missing email")
	}

	result := Result{Candidates: len(leads)}
	for _, l := range leads {
		email := s.finder.FindEmail(ctx, l.Website)
		if email == "" {
			continue
		}
		if err := s.store.SetLeadEmail(ctx, l.ID, email); err != nil {
			return result, eris.Wrapf(err, "enrich: saving email for lead %d", l.ID)
		}
		zap.L().Info("enrich: email found",
			zap.Int64("lead_id", l.ID),
			zap.String("email", email))
		result.Enriched++
	}
	return result, nil
}
