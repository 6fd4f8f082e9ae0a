package linkage

import (
	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/shopspring/decimal"
)

// LinkCategoriesRequest links categories (ids or slugs) to a product
type LinkCategoriesRequest struct {
	Categories []string `json:"categories" binding:"max=500"`
	Replace    bool     `json:"replace"`
}

// FitmentRequest identifies a fitment row by its unique tuple
type FitmentRequest struct {
	Make     string  `json:"make" binding:"required,min=1,max=100"`
	Model    string  `json:"model" binding:"required,min=1,max=100"`
	YearFrom *int    `json:"year_from" binding:"omitempty,gte=1886,lte=2100"`
	YearTo   *int    `json:"year_to" binding:"omitempty,gte=1886,lte=2100"`
	Trim     *string `json:"trim" binding:"omitempty,max=100"`
	Chassis  *string `json:"chassis" binding:"omitempty,max=100"`
}

// Key builds the fitment tuple for a product
func (r FitmentRequest) Key(productGID string) fitment.Key {
	return fitment.Key{
		ProductGID: productGID,
		Make:       r.Make,
		Model:      r.Model,
		YearFrom:   r.YearFrom,
		YearTo:     r.YearTo,
		Trim:       r.Trim,
		Chassis:    r.Chassis,
	}
}

// LinkedCategory is one category linked to a product
type LinkedCategory struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Slug  string    `json:"slug"`
}

// FitmentMutationResponse is returned by fitment upserts
type FitmentMutationResponse struct {
	Fitment *fitment.ProductFitment `json:"fitment"`
	Created bool                    `json:"created"`
	Sync    linkage.SyncStatus      `json:"sync"`
}

// ImportRecord is one normalized ingestion record
type ImportRecord struct {
	SKU          string          `json:"sku" validate:"required,max=100"`
	ProductGID   string          `json:"product_gid" validate:"omitempty,max=255"`
	Title        string          `json:"title" validate:"required,max=500"`
	Description  string          `json:"description" validate:"max=20000"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     string          `json:"image_url" validate:"omitempty,url,max=1000"`
	CategoryPath string          `json:"category_path" validate:"max=500"`
	Make         string          `json:"make" validate:"required_with=Model,max=100"`
	Model        string          `json:"model" validate:"required_with=Make,max=100"`
	YearFrom     *int            `json:"year_from" validate:"omitempty,gte=1886,lte=2100"`
	YearTo       *int            `json:"year_to" validate:"omitempty,gte=1886,lte=2100"`
}

// ImportFailure is one record that could not be imported
type ImportFailure struct {
	Index int    `json:"index"`
	SKU   string `json:"sku"`
	Error string `json:"error"`
}

// ImportReport summarizes an import run
type ImportReport struct {
	Total    int             `json:"total"`
	Imported int             `json:"imported"`
	Linked   int             `json:"linked"`
	Failed   []ImportFailure `json:"failed"`
	// SyncFailed lists products whose projection push failed after import
	SyncFailed []string `json:"sync_failed,omitempty"`
}
