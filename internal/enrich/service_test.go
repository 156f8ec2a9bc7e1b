package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmaleads/leads-cli/internal/lead"
	"github.com/farmaleads/leads-cli/internal/store"
)

func TestEnrichMissing(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>info@sol.es</body></html>`))
	}))
	defer site.Close()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	_, err = st.UpsertLeads(ctx, []lead.Lead{
		{Nombre: "Farmacia Sol", Direccion: "a", Website: site.URL, Fuente: lead.SourceGoogleMaps},
		{Nombre: "Farmacia Luna", Direccion: "b", Fuente: lead.SourceGoogleMaps},
		{Nombre: "Farmacia Mar", Direccion: "c", Website: site.URL, Email: "ya@mar.es", Fuente: lead.SourceGoogleMaps},
	}, "Madrid", "")
	require.NoError(t, err)

	svc := NewService(st, newTestFinder())

	result, err := svc.EnrichMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Candidates)
	assert.Equal(t, 1, result.Enriched)

	missing, err := st.LeadsMissingEmail(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)

	leads, err := st.ListLeads(ctx, store.LeadFilter{RequireEmail: true})
	require.NoError(t, err)
	assert.Len(t, leads, 2)
}

// failingStore errors on the nth SetLeadEmail call.
type failingStore struct {
	store.Store
	failOnCall int
	calls      int
}

func (f *failingStore) SetLeadEmail(ctx context.Context, id int64, email string) error {
	f.calls++
	if f.calls == f.failOnCall {
		return errors.New("disk full")
	}
	return f.Store.SetLeadEmail(ctx, id, email)
}

func TestEnrichMissing_StoreFaultAbortsButKeepsEarlierFills(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>info@sol.es</body></html>`))
	}))
	defer site.Close()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	_, err = st.UpsertLeads(ctx, []lead.Lead{
		{Nombre: "Farmacia Sol", Direccion: "a", Website: site.URL, Fuente: lead.SourceGoogleMaps},
		{Nombre: "Farmacia Luna", Direccion: "b", Website: site.URL, Fuente: lead.SourceGoogleMaps},
	}, "Madrid", "")
	require.NoError(t, err)

	svc := NewService(&failingStore{Store: st, failOnCall: 2}, newTestFinder())

	result, err := svc.EnrichMissing(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, result.Enriched)

	// the fill committed before the fault survives
	saved, err := st.ListLeads(ctx, store.LeadFilter{RequireEmail: true})
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}
