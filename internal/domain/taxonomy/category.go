package taxonomy

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/shared"
)

const (
	maxCategoryTitleLength = 200
	maxSlugLength          = 200
)

var (
	slugPattern    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// Category is a node of the product category tree
type Category struct {
	shared.BaseEntity
	Title       string     `gorm:"type:varchar(200);not null"`
	Slug        string     `gorm:"type:varchar(200);not null;uniqueIndex:idx_categories_slug"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"`
	Image       string     `gorm:"type:varchar(500)"`
	Description string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a category. An empty slug is derived from the title.
// The parent is only recorded here; the caller checks that it exists.
func NewCategory(title, slug string, parentID *uuid.UUID) (*Category, error) {
	title = strings.TrimSpace(title)
	if err := validateCategoryTitle(title); err != nil {
		return nil, err
	}
	if slug == "" {
		slug = Slugify(title)
	}
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}

	category := &Category{
		BaseEntity: shared.NewBaseEntity(),
		Title:      title,
		Slug:       slug,
	}
	if parentID != nil {
		if *parentID == category.ID {
			return nil, shared.NewDomainError(shared.CodeSelfParent, "Category cannot be its own parent")
		}
		p := *parentID
		category.ParentID = &p
	}
	return category, nil
}

// Update changes the descriptive fields of the category
func (c *Category) Update(title, image, description string) error {
	title = strings.TrimSpace(title)
	if err := validateCategoryTitle(title); err != nil {
		return err
	}
	c.Title = title
	c.Image = image
	c.Description = description
	c.Touch()
	return nil
}

// ChangeSlug replaces the slug. Products linked beneath this category need a projection rebuild afterwards.
func (c *Category) ChangeSlug(slug string) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	c.Slug = slug
	c.Touch()
	return nil
}

// SetParent records a new parent (nil moves the category to the root).
// Cycle checks need the whole tree and live in CategoryIndex.CanReparent.
func (c *Category) SetParent(parentID *uuid.UUID) error {
	if parentID != nil && *parentID == c.ID {
		return shared.NewDomainError(shared.CodeSelfParent, "Category cannot be its own parent")
	}
	if parentID == nil {
		c.ParentID = nil
	} else {
		p := *parentID
		c.ParentID = &p
	}
	c.Touch()
	return nil
}

// IsRoot returns true if this is a root category
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// Slugify derives a URL slug from free text
func Slugify(text string) string {
	s := nonSlugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	return s
}

// ValidateSlug checks the slug format
func ValidateSlug(slug string) error {
	if slug == "" {
		return shared.NewDomainError(shared.CodeInvalidSlug, "Slug cannot be empty")
	}
	if len(slug) > maxSlugLength {
		return shared.NewDomainError(shared.CodeInvalidSlug, "Slug cannot exceed 200 characters")
	}
	if !slugPattern.MatchString(slug) {
		return shared.NewDomainError(shared.CodeInvalidSlug, "Slug can only contain lowercase letters, digits and single hyphens")
	}
	return nil
}

func validateCategoryTitle(title string) error {
	if title == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Category title cannot be empty")
	}
	if len(title) > maxCategoryTitleLength {
		return shared.NewDomainError(shared.CodeInvalidInput, "Category title cannot exceed 200 characters")
	}
	return nil
}
