// Package fitment holds product fitment rows and the predicate that decides
// whether a row satisfies a vehicle query.
package fitment

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/shared"
)

const (
	minYear = 1886
	maxYear = 2100
)

// ProductFitment asserts that a product fits a (range of) vehicle(s).
// Make and model are stored as names, not fit-term ids.
type ProductFitment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductGID string    `gorm:"column:product_gid;type:varchar(255);not null;index" json:"product_gid"`
	Make       string    `gorm:"type:varchar(100);not null" json:"make"`
	Model      string    `gorm:"type:varchar(100);not null" json:"model"`
	YearFrom   *int      `gorm:"column:year_from" json:"year_from"`
	YearTo     *int      `gorm:"column:year_to" json:"year_to"`
	Trim       *string   `gorm:"type:varchar(100)" json:"trim"`
	Chassis    *string   `gorm:"type:varchar(100)" json:"chassis"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

// TableName returns the table name for GORM
func (ProductFitment) TableName() string {
	return "product_fitments"
}

// Key is the unique tuple of a fitment row
type Key struct {
	ProductGID string
	Make       string
	Model      string
	YearFrom   *int
	YearTo     *int
	Trim       *string
	Chassis    *string
}

// NewProductFitment validates and normalizes a fitment row.
// Blank trim or chassis is stored as null.
func NewProductFitment(key Key) (*ProductFitment, error) {
	f := &ProductFitment{
		ID:         uuid.New(),
		ProductGID: key.ProductGID,
		Make:       strings.TrimSpace(key.Make),
		Model:      strings.TrimSpace(key.Model),
		YearFrom:   key.YearFrom,
		YearTo:     key.YearTo,
		Trim:       normalizeOptional(key.Trim),
		Chassis:    normalizeOptional(key.Chassis),
		CreatedAt:  time.Now(),
	}
	if f.ProductGID == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidProductGID, "Product gid cannot be empty")
	}
	if f.Make == "" || f.Model == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Fitment requires make and model")
	}
	if err := validateYear("yearFrom", f.YearFrom); err != nil {
		return nil, err
	}
	if err := validateYear("yearTo", f.YearTo); err != nil {
		return nil, err
	}
	if f.YearFrom != nil && f.YearTo != nil && *f.YearFrom > *f.YearTo {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "yearFrom cannot be after yearTo")
	}
	return f, nil
}

// Key returns the unique tuple of the row
func (f *ProductFitment) Key() Key {
	return Key{
		ProductGID: f.ProductGID,
		Make:       f.Make,
		Model:      f.Model,
		YearFrom:   f.YearFrom,
		YearTo:     f.YearTo,
		Trim:       f.Trim,
		Chassis:    f.Chassis,
	}
}

// Normalized returns the key with the same trimming NewProductFitment applies
func (k Key) Normalized() Key {
	k.Make = strings.TrimSpace(k.Make)
	k.Model = strings.TrimSpace(k.Model)
	k.Trim = normalizeOptional(k.Trim)
	k.Chassis = normalizeOptional(k.Chassis)
	return k
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func validateYear(field string, year *int) error {
	if year == nil {
		return nil
	}
	if *year < minYear || *year > maxYear {
		return shared.NewDomainErrorf(shared.CodeInvalidInput, "%s must be between %d and %d", field, minYear, maxYear)
	}
	return nil
}
