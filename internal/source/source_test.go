package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmaleads/leads-cli/internal/fetch"
	"github.com/farmaleads/leads-cli/internal/lead"
	"github.com/farmaleads/leads-cli/pkg/overpass"
	"github.com/farmaleads/leads-cli/pkg/serpapi"
)

type fakeSerpAPI struct {
	resp *serpapi.MapsResponse
	err  error
}

func (f *fakeSerpAPI) MapsSearch(ctx context.Context, query string) (*serpapi.MapsResponse, error) {
	return f.resp, f.err
}
func TestMapsCollector_MapsResults(t *testing.T) {
	collector := NewMapsCollector(&fakeSerpAPI{resp: &serpapi.MapsResponse{
		LocalResults: []serpapi.LocalResult{
			{Title: " Farmacia Sol ", Address: "Calle Mayor 1", Phone: "912345678", Website: "https://sol.es"},
			{Title: "", Address: "sin nombre"},
		},
	}})

	leads, err := collector.Search(context.Background(), Query{Criteria: "farmacia Madrid", Area: "Madrid"})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Farmacia Sol", leads[0].Nombre)
	assert.Equal(t, "Calle Mayor 1", leads[0].Direccion)
	assert.Equal(t, lead.SourceGoogleMaps, leads[0].Fuente)
}

type fakeOverpass struct {
	box      *overpass.BoundingBox
	elements []overpass.Element
	geocoded string
}

func (f *fakeOverpass) Geocode(ctx context.Context, query string) (*overpass.BoundingBox, error) {
	f.geocoded = query
	return f.box, nil
}

func (f *fakeOverpass) Pharmacies(ctx context.Context, box overpass.BoundingBox) ([]overpass.Element, error) {
	return f.elements, nil
}

func TestOSMCollector_GeocodesAreaNotCriteria(t *testing.T) {
	// the bounding box must cover the whole zone; geocoding the composed
	// search text would resolve to a single pharmacy POI or nothing
	geocoded := ""
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		geocoded = r.URL.Query().Get("q")
		w.Write([]byte(`[{"boundingbox": ["40.31", "40.64", "-3.88", "-3.52"]}]`))
	})
	mux.HandleFunc("/interpreter", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"elements": [{"tags": {"name": "Farmacia Sol"}}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := overpass.NewClient("test-agent",
		overpass.WithNominatimURL(srv.URL),
		overpass.WithEndpoints([]string{srv.URL + "/interpreter"}))

	leads, err := NewOSMCollector(client).Search(context.Background(),
		Query{Criteria: "farmacia Madrid 28001", Area: "Madrid"})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Madrid", geocoded)
}

func TestOSMCollector_MapsTags(t *testing.T) {
	fake := &fakeOverpass{
		box: &overpass.BoundingBox{South: 40.3, North: 40.5, West: -3.8, East: -3.6},
		elements: []overpass.Element{
			{Tags: map[string]string{
				"name":             "Farmacia Luna",
				"addr:street":      "Calle Luna",
				"addr:housenumber": "2",
				"addr:city":        "Madrid",
				"contact:phone":    "911111111",
				"website":          "https://luna.es",
			}},
			{Tags: map[string]string{"amenity": "pharmacy"}},
		},
	}
	collector := NewOSMCollector(fake)

	leads, err := collector.Search(context.Background(), Query{Criteria: "farmacia Madrid", Area: "Madrid"})
	require.NoError(t, err)
	assert.Equal(t, "Madrid", fake.geocoded)
	require.Len(t, leads, 1)
	assert.Equal(t, "Farmacia Luna", leads[0].Nombre)
	assert.Equal(t, "Calle Luna 2 Madrid", leads[0].Direccion)
	assert.Equal(t, "911111111", leads[0].Telefono)
	assert.Equal(t, "https://luna.es", leads[0].Website)
	assert.Equal(t, lead.SourceOpenStreetMap, leads[0].Fuente)
}

func TestYellowPagesCollector_ParsesCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/search/farmacia/")
		w.Write([]byte(`<html><body>
			<article>
				<h2> Farmacia  Sol </h2>
				<address>Calle Mayor 1, Madrid</address>
				<span class="js-phone">912 345 678</span>
				<a href="https://farmaciasol.es">web</a>
			</article>
			<article>
				<address>card without a name is skipped</address>
			</article>
		</body></html>`))
	}))
	defer srv.Close()

	collector := NewYellowPagesCollectorWithBaseURL(
		fetch.NewClient(5*time.Second, "test-agent"), srv.URL)

	leads, err := collector.Search(context.Background(), Query{Criteria: "farmacia Madrid 28001", Area: "Madrid"})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Farmacia Sol", leads[0].Nombre)
	assert.Equal(t, "Calle Mayor 1, Madrid", leads[0].Direccion)
	assert.Equal(t, "912 345 678", leads[0].Telefono)
	assert.Equal(t, "https://farmaciasol.es", leads[0].Website)
	assert.Equal(t, lead.SourcePaginasAmarillas, leads[0].Fuente)
}

func TestYellowPagesCollector_FetchErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	collector := NewYellowPagesCollectorWithBaseURL(
		fetch.NewClient(5*time.Second, "test-agent"), srv.URL)

	_, err := collector.Search(context.Background(), Query{Criteria: "farmacia Madrid", Area: "Madrid"})
	require.Error(t, err)
}
