package source

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/farmaleads/leads-cli/internal/fetch"
	"github.com/farmaleads/leads-cli/internal/lead"
)

// yellowPagesBaseURL follows the public result-page layout of
// paginasamarillas.es; selectors may need adjusting when the site changes.
const yellowPagesBaseURL = "https://www.paginasamarillas.es"

// YellowPagesCollector scrapes the paginasamarillas.es pharmacy results page.
type YellowPagesCollector struct {
	fetch   *fetch.Client
	baseURL string
}

// NewYellowPagesCollector builds the scraper on the shared fetch client.
func NewYellowPagesCollector(fetcher *fetch.Client) *YellowPagesCollector {
	return &YellowPagesCollector{fetch: fetcher, baseURL: yellowPagesBaseURL}
}

// NewYellowPagesCollectorWithBaseURL is used by tests to point the scraper
// at a local server.
func NewYellowPagesCollectorWithBaseURL(fetcher *fetch.Client, baseURL string) *YellowPagesCollector {
	return &YellowPagesCollector{fetch: fetcher, baseURL: baseURL}
}

func (y *YellowPagesCollector) Name() string { return lead.SourcePaginasAmarillas }

func (y *YellowPagesCollector) Search(ctx context.Context, q Query) ([]lead.Lead, error) {
	query := url.QueryEscape(strings.TrimSpace(q.Criteria))
	pageURL := y.baseURL + "/search/farmacia/all-ma/" + query + "/all-is/all-ci/all-ba/all-pu/all-nc/1"

	body, err := y.fetch.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "yellowpages: parse results page")
	}

	var leads []lead.Lead
	doc.Find("article").Each(func(_ int, card *goquery.Selection) {
		nombre := cardText(card, "h2")
		if nombre == "" {
			return
		}

		website := ""
		card.Find(`a[href*='http']`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			website = strings.TrimSpace(a.AttrOr("href", ""))
			return false
		})

		leads = append(leads, lead.Lead{
			Nombre:    nombre,
			Direccion: cardText(card, "address"),
			Telefono:  cardText(card, ".js-phone"),
			Website:   website,
			Fuente:    lead.SourcePaginasAmarillas,
		})
	})
	return leads, nil
}

// cardText returns the collapsed text of the first selector match within a
// result card.
func cardText(card *goquery.Selection, selector string) string {
	return strings.Join(strings.Fields(card.Find(selector).First().Text()), " ")
}
