package source

import (
	"context"
	"strings"

	"github.com/farmaleads/leads-cli/internal/lead"
	"github.com/farmaleads/leads-cli/pkg/serpapi"
)

// MapsCollector searches Google Maps listings through SerpAPI.
type MapsCollector struct {
	client serpapi.Client
}

// NewMapsCollector wraps a SerpAPI client as a Collector.
func NewMapsCollector(client serpapi.Client) *MapsCollector {
	return &MapsCollector{client: client}
}

func (m *MapsCollector) Name() string { return lead.SourceGoogleMaps }

func (m *MapsCollector) Search(ctx context.Context, q Query) ([]lead.Lead, error) {
	resp, err := m.client.MapsSearch(ctx, q.Criteria)
	if err != nil {
		return nil, err
	}

	var leads []lead.Lead
	for _, item := range resp.LocalResults {
		l := lead.Lead{
			Nombre:    strings.TrimSpace(item.Title),
			Direccion: strings.TrimSpace(item.Address),
			Telefono:  strings.TrimSpace(item.Phone),
			Website:   strings.TrimSpace(item.Website),
			Fuente:    lead.SourceGoogleMaps,
		}
		if !l.Viable() {
			continue
		}
		leads = append(leads, l)
	}
	return leads, nil
}
