package utils

import (
	"strconv"

	"maderalink/internal/apperrors"
)

// ParseID parses a positive numeric path id.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id: " + s)
	}
	return id, nil
}
