package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is embedded by the taxonomy and source product rows. IDs are
// generated client side so a row can be referenced before it is saved.
type BaseEntity struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// NewBaseEntity assigns a fresh id and stamps both timestamps in UTC
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch records a mutation
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
