// Package source holds the adapters that query external data providers and
// normalize their listings into candidate leads. Adapters never dedup; the
// store owns that. They report failures as errors so the capture layer can
// degrade to an empty result plus a warning.
package source

import (
	"context"

	"github.com/farmaleads/leads-cli/internal/lead"
)

// Query carries the inputs one capture run hands to each adapter.
type Query struct {
	// Criteria is the full search text, e.g. "farmacia Madrid 28001".
	Criteria string
	// Area is the bare zone or postal code. Adapters that geocode use this
	// instead of Criteria so the bounding box covers the whole zone rather
	// than whatever single place matches the full text.
	Area string
}

// Collector queries one external provider.
type Collector interface {
	Name() string
	Search(ctx context.Context, q Query) ([]lead.Lead, error)
}
