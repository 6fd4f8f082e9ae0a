package linkage

import (
	"strings"

	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CategoryPathSeparator splits an ingestion category path into levels
const CategoryPathSeparator = ">"

// SourceProduct is a normalized distributor record, keyed by sku
type SourceProduct struct {
	shared.BaseEntity
	SKU          string          `gorm:"column:sku;type:varchar(100);not null;uniqueIndex:idx_source_products_sku"`
	ProductGID   *string         `gorm:"column:product_gid;type:varchar(255);index"`
	Title        string          `gorm:"type:varchar(500);not null"`
	Description  string          `gorm:"type:text"`
	Price        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ImageURL     string          `gorm:"column:image_url;type:varchar(1000)"`
	CategoryPath string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (SourceProduct) TableName() string {
	return "source_products"
}

// NewSourceProduct creates a record; the id is kept stable across upserts by the repository
func NewSourceProduct(sku, title string) (*SourceProduct, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "SKU cannot be empty")
	}
	return &SourceProduct{
		BaseEntity: shared.NewBaseEntity(),
		SKU:        sku,
		Title:      strings.TrimSpace(title),
	}, nil
}

// SplitCategoryPath turns "Exhaust > Downpipes" into ["Exhaust", "Downpipes"]
func SplitCategoryPath(path string) []string {
	parts := strings.Split(path, CategoryPathSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
