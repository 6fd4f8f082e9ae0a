package persistence

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isUniqueViolation recognizes unique-constraint failures from postgres and
// sqlite, with or without gorm's error translation enabled.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
