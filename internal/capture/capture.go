// Package capture runs source adapters against a search criteria and
// saves the resulting leads through the store's dedup/merge policy.
package capture

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/farmaleads/leads-cli/internal/lead"
	"github.com/farmaleads/leads-cli/internal/source"
	"github.com/farmaleads/leads-cli/internal/store"
)

// Source selector values accepted by a capture run. The single-adapter
// values match the lead fuente constants.
const (
	SelectMaps          = lead.SourceGoogleMaps
	SelectYellowPages   = lead.SourcePaginasAmarillas
	SelectOSM           = lead.SourceOpenStreetMap
	SelectBoth          = "ambas"
	SelectAll           = "todas"
	DefaultMaxPerSource = 20
)

// Params describe one capture run.
type Params struct {
	Zona         string `json:"zona"`
	CodigoPostal string `json:"codigo_postal"`
	Extra        string `json:"extra"`
	Source       string `json:"fuente"`
	MaxItems     int    `json:"max_items"`
}

// Result summarizes one capture run. Warnings carry non-fatal adapter
// problems so a partially degraded run still reports what it saved.
type Result struct {
	Criteria  string         `json:"criterio"`
	Found     int            `json:"encontrados"`
	Saved     int            `json:"guardados"`
	PerSource map[string]int `json:"por_fuente"`
	Warnings  []string       `json:"avisos,omitempty"`
}

// Service wires the source adapters to the lead store.
type Service struct {
	store          store.Store
	maps           source.Collector
	yellowPages    source.Collector
	osm            source.Collector
	serpConfigured bool
}

// NewService builds a capture service. serpConfigured gates a warning for
// runs that select the Maps adapter without an API key.
func NewService(st store.Store, maps, yellowPages, osm source.Collector, serpConfigured bool) *Service {
	return &Service{
		store:          st,
		maps:           maps,
		yellowPages:    yellowPages,
		osm:            osm,
		serpConfigured: serpConfigured,
	}
}

// ErrInvalidParams marks capture requests rejected before any adapter runs.
var ErrInvalidParams = eris.New("capture: peticion invalida")

// Run executes the selected adapters, caps each adapter's contribution and
// saves the union in one batch. Adapter failures degrade to warnings; an
// empty criteria or an unknown source selector is an ErrInvalidParams.
func (s *Service) Run(ctx context.Context, params Params) (Result, error) {
	if strings.TrimSpace(params.Zona) == "" && strings.TrimSpace(params.CodigoPostal) == "" {
		return Result{}, eris.Wrap(ErrInvalidParams, "capture: indica al menos zona o codigo postal")
	}
	criteria := buildCriteria(params)

	collectors, err := s.selectCollectors(params.Source)
	if err != nil {
		return Result{}, err
	}

	perSourceCap := params.MaxItems
	if perSourceCap <= 0 {
		perSourceCap = DefaultMaxPerSource
	}

	result := Result{Criteria: criteria, PerSource: map[string]int{}}
	if !s.serpConfigured && selectsMaps(params.Source) {
		result.Warnings = append(result.Warnings,
			"SERPAPI key no configurada: la fuente google_maps devolvera 0 resultados")
	}

	// geocoding adapters need the bare zone or postal code
	area := strings.TrimSpace(params.Zona)
	if area == "" {
		area = strings.TrimSpace(params.CodigoPostal)
	}
	query := source.Query{Criteria: criteria, Area: area}

	var batch []lead.Lead
	for _, collector := range collectors {
		found, err := collector.Search(ctx, query)
		if err != nil {
			zap.L().Warn("capture: adapter failed",
				zap.String("fuente", collector.Name()), zap.Error(err))
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("fuente %s fallo: %v", collector.Name(), err))
			continue
		}
		if len(found) > perSourceCap {
			found = found[:perSourceCap]
		}
		result.PerSource[collector.Name()] = len(found)
		batch = append(batch, found...)
	}
	result.Found = len(batch)

	saved, err := s.store.UpsertLeads(ctx, batch, params.Zona, params.CodigoPostal)
	if err != nil {
		return result, eris.Wrap(err, "capture: saving leads")
	}
	result.Saved = saved

	zap.L().Info("capture: run finished",
		zap.String("criterio", criteria),
		zap.Int("encontrados", result.Found),
		zap.Int("guardados", result.Saved))
	return result, nil
}

// buildCriteria composes the adapter search text from the zone, postal
// code and free-form extra terms.
func buildCriteria(params Params) string {
	parts := []string{"farmacia"}
	for _, p := range []string{params.Zona, params.CodigoPostal, params.Extra} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 1 {
		return ""
	}
	return strings.Join(parts, " ")
}

func (s *Service) selectCollectors(selector string) ([]source.Collector, error) {
	switch selector {
	case SelectMaps, "":
		return []source.Collector{s.maps}, nil
	case SelectYellowPages:
		return []source.Collector{s.yellowPages}, nil
	case SelectOSM:
		return []source.Collector{s.osm}, nil
	case SelectBoth:
		return []source.Collector{s.maps, s.yellowPages}, nil
	case SelectAll:
		return []source.Collector{s.maps, s.yellowPages, s.osm}, nil
	default:
		return nil, eris.Wrapf(ErrInvalidParams, "capture: fuente desconocida %q", selector)
	}
}

func selectsMaps(selector string) bool {
	switch selector {
	case SelectMaps, "", SelectBoth, SelectAll:
		return true
	}
	return false
}
