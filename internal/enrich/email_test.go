package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmaleads/leads-cli/internal/fetch"
)

func newTestFinder() *Finder {
	return NewFinder(fetch.NewClient(5*time.Second, "test-agent"))
}

func TestFindEmail_PrefersInfoAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			Escribenos a ventas@farmaciasol.es o a info@farmaciasol.es
		</body></html>`))
	}))
	defer srv.Close()

	email := newTestFinder().FindEmail(context.Background(), srv.URL)
	assert.Equal(t, "info@farmaciasol.es", email)
}

func TestFindEmail_SkipsPlaceholderDomains(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			demo@example.com prueba@test.com contacto@sol.es
		</body></html>`))
	}))
	defer srv.Close()

	email := newTestFinder().FindEmail(context.Background(), srv.URL)
	assert.Equal(t, "contacto@sol.es", email)
}

func TestFindEmail_ReadsMailtoAnchors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="mailto:info@sol.es">Escribenos</a>
		</body></html>`))
	}))
	defer srv.Close()

	email := newTestFinder().FindEmail(context.Background(), srv.URL)
	assert.Equal(t, "info@sol.es", email)
}

func TestFindEmail_FollowsContactPageOneHop(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/contacto">Contacto</a></body></html>`))
	})
	mux.HandleFunc("/contacto", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>info@sol.es</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	email := newTestFinder().FindEmail(context.Background(), srv.URL)
	assert.Equal(t, "info@sol.es", email)
}

func TestFindEmail_BrokenContactLinkDoesNotFailCrawl(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="/contacto">Contacto</a>
			ventas@sol.es
		</body></html>`))
	})
	mux.HandleFunc("/contacto", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	email := newTestFinder().FindEmail(context.Background(), srv.URL)
	assert.Equal(t, "ventas@sol.es", email)
}

func TestFindEmail_UnreachableSiteGivesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	email := newTestFinder().FindEmail(context.Background(), srv.URL)
	assert.Empty(t, email)
}

func TestFindEmail_EmptyURL(t *testing.T) {
	assert.Empty(t, newTestFinder().FindEmail(context.Background(), ""))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://sol.es", normalizeURL("sol.es"))
	assert.Equal(t, "http://sol.es", normalizeURL("http://sol.es"))
	assert.Equal(t, "https://sol.es", normalizeURL("https://sol.es"))
}

func TestBestCandidate_RanksShorterWhenNoInfo(t *testing.T) {
	got := bestCandidate(map[string]bool{
		"administracion@farmaciasol.es": true,
		"ventas@sol.es":                 true,
	})
	require.Equal(t, "ventas@sol.es", got)
}
