package catalog

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Zuniga63/digital-menu-api/apperr"
)

const (
	NameMin        = 3
	NameMax        = 45
	DescriptionMax = 255
)

// MinPrice is the floor for product prices, in minor units.
var MinPrice = decimal.NewFromInt(100)

// FormBool coerces a form field: only "true" is true.
func FormBool(v string) bool {
	return v == "true"
}

func checkName(f apperr.Fields, field, value string) {
	switch n := utf8.RuneCountInString(value); {
	case n == 0:
		f.Add(field, "the field is required")
	case n < NameMin:
		f.Add(field, fmt.Sprintf("must have at least %d characters", NameMin))
	case n > NameMax:
		f.Add(field, fmt.Sprintf("must have at most %d characters", NameMax))
	}
}

func checkDescription(f apperr.Fields, field, value string) {
	if utf8.RuneCountInString(value) > DescriptionMax {
		f.Add(field, fmt.Sprintf("must have at most %d characters", DescriptionMax))
	}
}

// parsePrice parses raw as a decimal. An empty value yields an invalid
// NullDecimal and, when required, a field error.
func parsePrice(f apperr.Fields, field, raw string, required bool) decimal.NullDecimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			f.Add(field, "the field is required")
		}
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		f.Add(field, "must be a number")
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// nameTaken reports whether another row of model already uses name. The match
// is exact and case-sensitive.
func nameTaken(tx *gorm.DB, model interface{}, name string, exceptID uint) (bool, error) {
	var n int64
	q := tx.Model(model).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// duplicate turns a unique-index violation that slipped past nameTaken (two
// concurrent creates) into the same validation error.
func duplicate(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Validation(msg, apperr.Fields{"name": msg})
	}
	return err
}

func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource)
	}
	return err
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func byOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order")
}
