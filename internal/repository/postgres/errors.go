package postgres

import (
	"errors"

	"github.com/dom/taskflow/internal/domain"
	"gorm.io/gorm"
)

// translate maps gorm sentinel errors onto domain errors. duplicate is
// returned for unique violations.
func translate(err error, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case duplicate != nil && errors.Is(err, gorm.ErrDuplicatedKey):
		return duplicate
	default:
		return err
	}
}
