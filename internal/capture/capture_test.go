package capture

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmaleads/leads-cli/internal/lead"
	"github.com/farmaleads/leads-cli/internal/source"
	"github.com/farmaleads/leads-cli/internal/store"
)

type fakeCollector struct {
	name  string
	leads []lead.Lead
	err   error
	query source.Query
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Search(ctx context.Context, q source.Query) ([]lead.Lead, error) {
	f.query = q
	return f.leads, f.err
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestRun_SingleSource(t *testing.T) {
	st := newTestStore(t)
	maps := &fakeCollector{name: lead.SourceGoogleMaps, leads: []lead.Lead{
		{Nombre: "Farmacia Sol", Direccion: "Calle Mayor 1", Fuente: lead.SourceGoogleMaps},
	}}
	svc := NewService(st, maps, &fakeCollector{name: lead.SourcePaginasAmarillas}, &fakeCollector{name: lead.SourceOpenStreetMap}, true)

	result, err := svc.Run(context.Background(), Params{Zona: "Madrid", CodigoPostal: "28001"})
	require.NoError(t, err)

	assert.Equal(t, "farmacia Madrid 28001", result.Criteria)
	assert.Equal(t, "farmacia Madrid 28001", maps.query.Criteria)
	assert.Equal(t, "Madrid", maps.query.Area)
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 1, result.Saved)
	assert.Empty(t, result.Warnings)

	// zone fallback applied on save
	leads, err := st.ListLeads(context.Background(), store.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Madrid", leads[0].Zona)
	assert.Equal(t, "28001", leads[0].CodigoPostal)
}

func TestRun_AllSourcesDedupAcrossAdapters(t *testing.T) {
	st := newTestStore(t)
	maps := &fakeCollector{name: lead.SourceGoogleMaps, leads: []lead.Lead{
		{Nombre: "Farmacia Sol", Direccion: "Calle Mayor 1", Telefono: "912345678", Fuente: lead.SourceGoogleMaps},
	}}
	osm := &fakeCollector{name: lead.SourceOpenStreetMap, leads: []lead.Lead{
		{Nombre: "Farmacia Sol", Direccion: "Calle Mayor 1", Website: "https://sol.es", Fuente: lead.SourceOpenStreetMap},
	}}
	svc := NewService(st, maps, &fakeCollector{name: lead.SourcePaginasAmarillas}, osm, true)

	result, err := svc.Run(context.Background(), Params{Zona: "Madrid", Source: SelectAll})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 1, result.Saved)

	// the geocoding adapter receives the bare zone, not the composed text
	assert.Equal(t, "Madrid", osm.query.Area)
	assert.Equal(t, "farmacia Madrid", osm.query.Criteria)

	leads, err := st.ListLeads(context.Background(), store.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "912345678", leads[0].Telefono)
	assert.Equal(t, "https://sol.es", leads[0].Website)
}

func TestRun_FailedAdapterDegradesToWarning(t *testing.T) {
	st := newTestStore(t)
	maps := &fakeCollector{name: lead.SourceGoogleMaps, err: eris.New("quota exceeded")}
	yp := &fakeCollector{name: lead.SourcePaginasAmarillas, leads: []lead.Lead{
		{Nombre: "Farmacia Luna", Direccion: "Calle Luna 2", Fuente: lead.SourcePaginasAmarillas},
	}}
	svc := NewService(st, maps, yp, &fakeCollector{name: lead.SourceOpenStreetMap}, true)

	result, err := svc.Run(context.Background(), Params{Zona: "Madrid", Source: SelectBoth})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Saved)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], lead.SourceGoogleMaps)
}

func TestRun_CapsPerSource(t *testing.T) {
	st := newTestStore(t)
	var many []lead.Lead
	for _, n := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		many = append(many, lead.Lead{Nombre: "Farmacia " + n, Direccion: n, Fuente: lead.SourceGoogleMaps})
	}
	maps := &fakeCollector{name: lead.SourceGoogleMaps, leads: many}
	svc := NewService(st, maps, &fakeCollector{name: lead.SourcePaginasAmarillas}, &fakeCollector{name: lead.SourceOpenStreetMap}, true)

	result, err := svc.Run(context.Background(), Params{Zona: "Madrid", MaxItems: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Found)
	assert.Equal(t, 5, result.Saved)
}

func TestRun_EmptyCriteriaRejected(t *testing.T) {
	svc := NewService(newTestStore(t), &fakeCollector{}, &fakeCollector{}, &fakeCollector{}, true)

	_, err := svc.Run(context.Background(), Params{Extra: "   "})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidParams))
}

func TestRun_PostalCodeAloneIsEnough(t *testing.T) {
	st := newTestStore(t)
	maps := &fakeCollector{name: lead.SourceGoogleMaps}
	svc := NewService(st, maps, &fakeCollector{name: lead.SourcePaginasAmarillas}, &fakeCollector{name: lead.SourceOpenStreetMap}, true)

	result, err := svc.Run(context.Background(), Params{CodigoPostal: "28001"})
	require.NoError(t, err)
	assert.Equal(t, "farmacia 28001", result.Criteria)
	assert.Equal(t, "28001", maps.query.Area)
}

func TestRun_UnknownSourceRejected(t *testing.T) {
	svc := NewService(newTestStore(t), &fakeCollector{}, &fakeCollector{}, &fakeCollector{}, true)

	_, err := svc.Run(context.Background(), Params{Zona: "Madrid", Source: "bing"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidParams))
	assert.Contains(t, err.Error(), "fuente desconocida")
}

func TestRun_WarnsWhenSerpAPIUnconfigured(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st, &fakeCollector{name: lead.SourceGoogleMaps},
		&fakeCollector{name: lead.SourcePaginasAmarillas},
		&fakeCollector{name: lead.SourceOpenStreetMap}, false)

	result, err := svc.Run(context.Background(), Params{Zona: "Madrid"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "SERPAPI")
}
