// Package enrich fills missing lead emails by crawling the lead's website.
// The crawler is a best-candidate heuristic: it scans the landing page and
// one hop of contact-looking links, then picks the most plausible address.
package enrich

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/farmaleads/leads-cli/internal/fetch"
)

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// contactKeywords mark anchors worth following one hop. Spanish terms cover
// the usual legal-notice pages.
var contactKeywords = []string{"contact", "contacto", "legal", "aviso", "about"}

// blockedDomains are placeholder domains that never hold a real contact.
var blockedDomains = map[string]bool{
	"example.com": true,
	"test.com":    true,
}

// Finder crawls a website for its best contact email candidate.
type Finder struct {
	fetch *fetch.Client
}

// NewFinder builds a Finder on the shared fetch client.
func NewFinder(fetcher *fetch.Client) *Finder {
	return &Finder{fetch: fetcher}
}

// FindEmail returns the best contact email found on the site, or "" when
// nothing plausible turns up. Fetch failures are not retried; a failed
// sub-link is skipped without failing the crawl.
func (f *Finder) FindEmail(ctx context.Context, websiteURL string) string {
	if websiteURL == "" {
		return ""
	}

	baseURL := normalizeURL(websiteURL)
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	body, err := f.fetch.Get(ctx, baseURL)
	if err != nil {
		zap.L().Debug("enrich: landing page fetch failed",
			zap.String("url", baseURL), zap.Error(err))
		return ""
	}

	candidates := map[string]bool{}
	for _, m := range emailRe.FindAllString(string(body), -1) {
		candidates[m] = true
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		f.scanAnchors(ctx, doc, base, candidates)
	}

	return bestCandidate(candidates)
}

// scanAnchors collects mailto targets and follows same-host contact links
// one hop, pooling any emails found there.
func (f *Finder) scanAnchors(ctx context.Context, doc *goquery.Document, base *url.URL, candidates map[string]bool) {
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}

		if strings.HasPrefix(href, "mailto:") {
			candidates[strings.TrimSpace(strings.TrimPrefix(href, "mailto:"))] = true
			return
		}

		if !hasContactKeyword(href) {
			return
		}

		linkURL, err := base.Parse(href)
		if err != nil || linkURL.Host != base.Host {
			return
		}

		page, err := f.fetch.Get(ctx, linkURL.String())
		if err != nil {
			zap.L().Debug("enrich: contact page fetch failed",
				zap.String("url", linkURL.String()), zap.Error(err))
			return
		}
		for _, m := range emailRe.FindAllString(string(page), -1) {
			candidates[m] = true
		}
	})
}

// normalizeURL prepends https:// when the URL has no scheme.
func normalizeURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

func hasContactKeyword(href string) bool {
	lowered := strings.ToLower(href)
	for _, kw := range contactKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// validEmail rejects empty, malformed and placeholder-domain addresses.
func validEmail(email string) bool {
	lowered := strings.ToLower(email)
	at := strings.LastIndex(lowered, "@")
	if email == "" || at < 0 || at == len(lowered)-1 {
		return false
	}
	domain := lowered[at+1:]
	return domain != "" && !blockedDomains[domain]
}

// bestCandidate ranks the surviving candidates: an address containing
// "info@" beats one without, shorter beats longer, then lexicographic for
// determinism.
func bestCandidate(candidates map[string]bool) string {
	var valid []string
	for c := range candidates {
		if validEmail(c) {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return ""
	}

	sort.Slice(valid, func(i, j int) bool {
		iInfo := strings.Contains(strings.ToLower(valid[i]), "info@")
		jInfo := strings.Contains(strings.ToLower(valid[j]), "info@")
		if iInfo != jInfo {
			return iInfo
		}
		if len(valid[i]) != len(valid[j]) {
			return len(valid[i]) < len(valid[j])
		}
		return valid[i] < valid[j]
	})
	return valid[0]
}
