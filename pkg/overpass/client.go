// Package overpass queries OpenStreetMap: Nominatim for geocoding a zone or
// postal code into a bounding box, then the Overpass API for pharmacy
// amenities inside it.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// defaultEndpoints are tried in order until one returns elements.
var defaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
}

// Client geocodes free-text areas and searches pharmacies within them.
type Client interface {
	Geocode(ctx context.Context, query string) (*BoundingBox, error)
	Pharmacies(ctx context.Context, box BoundingBox) ([]Element, error)
}

// BoundingBox is a lat/lon rectangle.
type BoundingBox struct {
	South float64
	North float64
	West  float64
	East  float64
}

// Element is one OSM node/way/relation with its tag map.
type Element struct {
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []Element `json:"elements"`
}

type nominatimPlace struct {
	BoundingBox []string `json:"boundingbox"`
}

// Option configures the client.
type Option func(*httpClient)

// WithNominatimURL overrides the geocoder base URL.
func WithNominatimURL(u string) Option {
	return func(c *httpClient) {
		c.nominatimURL = u
	}
}

// WithEndpoints overrides the Overpass interpreter endpoints.
func WithEndpoints(endpoints []string) Option {
	return func(c *httpClient) {
		c.endpoints = endpoints
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	nominatimURL string
	endpoints    []string
	userAgent    string
	http         *http.Client
}

// NewClient creates an OSM client. Overpass queries are slow; the default
// timeout is 30 seconds.
func NewClient(userAgent string, opts ...Option) Client {
	c := &httpClient{
		nominatimURL: defaultNominatimURL,
		endpoints:    defaultEndpoints,
		userAgent:    userAgent,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Geocode(ctx context.Context, query string) (*BoundingBox, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.nominatimURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: create geocode request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: geocode")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read geocode response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("overpass: geocode status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "overpass: unmarshal geocode response")
	}
	if len(places) == 0 {
		return nil, eris.Errorf("overpass: no geocode match for %q", query)
	}
	if len(places[0].BoundingBox) != 4 {
		return nil, eris.Errorf("overpass: malformed bounding box for %q", query)
	}

	// Nominatim order: south, north, west, east.
	vals := make([]float64, 4)
	for i, raw := range places[0].BoundingBox {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "overpass: parse bounding box value %q", raw)
		}
		vals[i] = v
	}
	return &BoundingBox{South: vals[0], North: vals[1], West: vals[2], East: vals[3]}, nil
}

// Pharmacies tries each configured interpreter endpoint in order and returns
// the first non-empty element set. Endpoint failures fall through to the
// next endpoint.
func (c *httpClient) Pharmacies(ctx context.Context, box BoundingBox) ([]Element, error) {
	query := pharmacyQuery(box)

	var lastErr error
	for _, endpoint := range c.endpoints {
		elements, err := c.query(ctx, endpoint, query)
		if err != nil {
			lastErr = err
			continue
		}
		if len(elements) > 0 {
			return elements, nil
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "overpass: all endpoints failed")
	}
	return nil, nil
}

func (c *httpClient) query(ctx context.Context, endpoint, query string) ([]Element, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(query))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: create query request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "overpass: query %s", endpoint)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read query response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("overpass: query status %d from %s", resp.StatusCode, endpoint)
	}

	var result overpassResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "overpass: unmarshal query response")
	}
	return result.Elements, nil
}

func pharmacyQuery(box BoundingBox) string {
	bbox := fmt.Sprintf("%g,%g,%g,%g", box.South, box.West, box.North, box.East)
	return fmt.Sprintf(`[out:json][timeout:25];
(
  node["amenity"="pharmacy"](%[1]s);
  way["amenity"="pharmacy"](%[1]s);
  relation["amenity"="pharmacy"](%[1]s);
);
out center tags;
`, bbox)
}
