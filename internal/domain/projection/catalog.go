package projection

import (
	"context"
	"fmt"
)

// ProductSummary is the minimal set of attributes read back from the catalog
type ProductSummary struct {
	GID      string `json:"gid"`
	Title    string `json:"title"`
	Handle   string `json:"handle"`
	Status   string `json:"status"`
	ImageURL string `json:"image_url,omitempty"`
}

// CatalogWriter pushes metafields to the external catalog.
// Every call is a full overwrite of the given keys.
type CatalogWriter interface {
	WriteMetafields(ctx context.Context, ownerGID string, fields []Metafield) error
}

// CatalogReader reads products from the external catalog
type CatalogReader interface {
	ReadProduct(ctx context.Context, gid string) (*ProductSummary, error)
}

// ExternalWriteError wraps a failed push for one product. The local state
// it was computed from stays committed.
type ExternalWriteError struct {
	ProductGID string
	Err        error
}

// Error implements the error interface
func (e *ExternalWriteError) Error() string {
	return fmt.Sprintf("projection push for %s failed: %v", e.ProductGID, e.Err)
}

// Unwrap returns the catalog error
func (e *ExternalWriteError) Unwrap() error {
	return e.Err
}
