package catalogapi

import (
	"context"
	"errors"

	"github.com/partscatalog/backend/internal/domain/projection"
)

// ErrNotConfigured is returned by Unconfigured for every push
var ErrNotConfigured = errors.New("catalogapi: no shop credentials configured")

// Unconfigured stands in for the client when no shop is set up. Local
// writes still commit; each push fails and is recorded for retry.
type Unconfigured struct{}

// WriteMetafields always fails with ErrNotConfigured
func (Unconfigured) WriteMetafields(context.Context, string, []projection.Metafield) error {
	return ErrNotConfigured
}

var _ projection.CatalogWriter = Unconfigured{}
