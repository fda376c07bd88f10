package catalog

import (
	"context"
	"slices"

	"github.com/memolab/memory-server/game/engine"
)

// Catalog supplies card faces for pool generation. Snapshot returns a
// read-only view of the available cards; implementations must not expose
// internal state through the returned slice.
type Catalog interface {
	Snapshot(ctx context.Context) ([]engine.CardFace, error)
}

// Static is a fixed in-memory catalog.
type Static struct {
	faces []engine.CardFace
}

// NewStatic creates a catalog over a fixed set of faces.
func NewStatic(faces []engine.CardFace) *Static {
	return &Static{faces: slices.Clone(faces)}
}

// Snapshot returns a copy of the catalog contents.
func (s *Static) Snapshot(ctx context.Context) ([]engine.CardFace, error) {
	return slices.Clone(s.faces), nil
}
