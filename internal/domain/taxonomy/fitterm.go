package taxonomy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/shared"
)

const maxFitTermNameLength = 100

// FitTermType is the kind of vehicle attribute a fit-term describes
type FitTermType string

const (
	FitTermMake    FitTermType = "MAKE"
	FitTermModel   FitTermType = "MODEL"
	FitTermTrim    FitTermType = "TRIM"
	FitTermChassis FitTermType = "CHASSIS"
)

// IsValid returns true if the type is known
func (t FitTermType) IsValid() bool {
	switch t {
	case FitTermMake, FitTermModel, FitTermTrim, FitTermChassis:
		return true
	default:
		return false
	}
}

// String returns the string representation of FitTermType
func (t FitTermType) String() string {
	return string(t)
}

// ParseFitTermType parses a type name case-insensitively
func ParseFitTermType(s string) (FitTermType, error) {
	t := FitTermType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.NewDomainErrorf(shared.CodeInvalidInput, "Unknown fit-term type %q", s)
	}
	return t, nil
}

// parentRule describes which parent types a fit-term type accepts
type parentRule struct {
	required bool
	allowed  []FitTermType
}

var parentRules = map[FitTermType]parentRule{
	FitTermMake:    {required: false, allowed: nil},
	FitTermModel:   {required: true, allowed: []FitTermType{FitTermMake}},
	FitTermTrim:    {required: true, allowed: []FitTermType{FitTermModel}},
	FitTermChassis: {required: false, allowed: []FitTermType{FitTermMake, FitTermModel}},
}

// FitTerm is one node of the vehicle-attribute hierarchy
type FitTerm struct {
	shared.BaseEntity
	Type     FitTermType `gorm:"type:varchar(20);not null;uniqueIndex:idx_fit_terms_type_name_parent,priority:1"`
	Name     string      `gorm:"type:varchar(100);not null;uniqueIndex:idx_fit_terms_type_name_parent,priority:2"`
	ParentID *uuid.UUID  `gorm:"type:uuid;index;uniqueIndex:idx_fit_terms_type_name_parent,priority:3"`
}

// TableName returns the table name for GORM
func (FitTerm) TableName() string {
	return "fit_terms"
}

// NewFitTerm validates the parent-type table and builds a term.
// parent is the loaded parent row, or nil when parentID is nil.
func NewFitTerm(termType FitTermType, name string, parent *FitTerm) (*FitTerm, error) {
	if !termType.IsValid() {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Unknown fit-term type %q", termType)
	}
	name = strings.TrimSpace(name)
	if err := validateFitTermName(name); err != nil {
		return nil, err
	}
	var parentType *FitTermType
	if parent != nil {
		parentType = &parent.Type
	}
	if err := ValidateParentType(termType, parentType); err != nil {
		return nil, err
	}

	term := &FitTerm{
		BaseEntity: shared.NewBaseEntity(),
		Type:       termType,
		Name:       name,
	}
	if parent != nil {
		id := parent.ID
		term.ParentID = &id
	}
	return term, nil
}

// ValidateParentType checks the parent-type table. parentType is nil when the term has no parent.
func ValidateParentType(termType FitTermType, parentType *FitTermType) error {
	rule, ok := parentRules[termType]
	if !ok {
		return shared.NewDomainErrorf(shared.CodeInvalidInput, "Unknown fit-term type %q", termType)
	}
	if parentType == nil {
		if rule.required {
			return shared.NewDomainErrorf(shared.CodeParentRequired,
				"%s requires a parent of type %s", termType, joinTypes(rule.allowed))
		}
		return nil
	}
	for _, allowed := range rule.allowed {
		if *parentType == allowed {
			return nil
		}
	}
	if len(rule.allowed) == 0 {
		return shared.NewDomainErrorf(shared.CodeInvalidParentType, "%s cannot have a parent", termType)
	}
	return shared.NewDomainErrorf(shared.CodeInvalidParentType,
		"%s parent must be of type %s, got %s", termType, joinTypes(rule.allowed), *parentType)
}

// Rename changes the display name
func (t *FitTerm) Rename(name string) error {
	name = strings.TrimSpace(name)
	if err := validateFitTermName(name); err != nil {
		return err
	}
	t.Name = name
	t.Touch()
	return nil
}

func validateFitTermName(name string) error {
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Fit-term name cannot be empty")
	}
	if len(name) > maxFitTermNameLength {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Fit-term name cannot exceed %d characters", maxFitTermNameLength))
	}
	return nil
}

func joinTypes(types []FitTermType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, " or ")
}
