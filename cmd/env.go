package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/farmaleads/leads-cli/internal/campaign"
	"github.com/farmaleads/leads-cli/internal/capture"
	"github.com/farmaleads/leads-cli/internal/enrich"
	"github.com/farmaleads/leads-cli/internal/fetch"
	"github.com/farmaleads/leads-cli/internal/mailer"
	"github.com/farmaleads/leads-cli/internal/source"
	"github.com/farmaleads/leads-cli/internal/store"
	"github.com/farmaleads/leads-cli/pkg/overpass"
	"github.com/farmaleads/leads-cli/pkg/serpapi"
	"github.com/farmaleads/leads-cli/pkg/supabase"
)

// appEnv bundles the store and pipeline services a command needs.
type appEnv struct {
	store    store.Store
	capture  *capture.Service
	enrich   *enrich.Service
	campaign *campaign.Dispatcher
	auth     supabase.Client
}

func (e *appEnv) Close() {
	_ = e.store.Close()
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// initEnv builds every pipeline service on top of a migrated store.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	fetcher := fetch.NewClient(time.Duration(cfg.HTTP.TimeoutSecs)*time.Second, cfg.HTTP.UserAgent)

	serpClient := serpapi.NewClient(cfg.SerpAPI.Key, serpapi.WithBaseURL(cfg.SerpAPI.BaseURL))
	osmClient := overpass.NewClient(cfg.HTTP.UserAgent,
		overpass.WithNominatimURL(cfg.Overpass.NominatimURL),
		overpass.WithEndpoints(cfg.Overpass.Endpoints))

	captureSvc := capture.NewService(st,
		source.NewMapsCollector(serpClient),
		source.NewYellowPagesCollector(fetcher),
		source.NewOSMCollector(osmClient),
		cfg.SerpAPI.Key != "")

	enrichSvc := enrich.NewService(st, enrich.NewFinder(fetcher))
	dispatcher := campaign.NewDispatcher(st, mailer.NewSMTP(cfg.SMTP))

	var auth supabase.Client
	if cfg.Supabase.Configured() {
		auth = supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey)
	}

	return &appEnv{
		store:    st,
		capture:  captureSvc,
		enrich:   enrichSvc,
		campaign: dispatcher,
		auth:     auth,
	}, nil
}
