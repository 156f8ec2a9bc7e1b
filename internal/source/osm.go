package source

import (
	"context"
	"strings"

	"github.com/farmaleads/leads-cli/internal/lead"
	"github.com/farmaleads/leads-cli/pkg/overpass"
)

// OSMCollector searches OpenStreetMap pharmacy amenities: it geocodes the
// zone or postal code into a bounding box and queries Overpass inside it.
type OSMCollector struct {
	client overpass.Client
}

// NewOSMCollector wraps an overpass client as a Collector.
func NewOSMCollector(client overpass.Client) *OSMCollector {
	return &OSMCollector{client: client}
}

func (o *OSMCollector) Name() string { return lead.SourceOpenStreetMap }

func (o *OSMCollector) Search(ctx context.Context, q Query) ([]lead.Lead, error) {
	area := strings.TrimSpace(q.Area)
	if area == "" {
		return nil, nil
	}

	box, err := o.client.Geocode(ctx, area)
	if err != nil {
		return nil, err
	}

	elements, err := o.client.Pharmacies(ctx, *box)
	if err != nil {
		return nil, err
	}

	var leads []lead.Lead
	for _, el := range elements {
		nombre := strings.TrimSpace(el.Tags["name"])
		if nombre == "" {
			continue
		}
		leads = append(leads, lead.Lead{
			Nombre:    nombre,
			Direccion: buildAddress(el.Tags),
			Telefono:  pick(el.Tags["contact:phone"], el.Tags["phone"]),
			Website:   pick(el.Tags["contact:website"], el.Tags["website"]),
			Email:     pick(el.Tags["contact:email"], el.Tags["email"]),
			Fuente:    lead.SourceOpenStreetMap,
		})
	}
	return leads, nil
}

// buildAddress assembles a street address from OSM addr:* tags.
func buildAddress(tags map[string]string) string {
	parts := []string{
		tags["addr:street"],
		tags["addr:housenumber"],
		tags["addr:postcode"],
		tags["addr:city"],
	}
	var present []string
	for _, p := range parts {
		if p != "" {
			present = append(present, p)
		}
	}
	return strings.TrimSpace(strings.Join(present, " "))
}

// pick returns the first non-empty value, trimmed.
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
