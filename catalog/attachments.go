package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/Zuniga63/digital-menu-api/apperr"
	"github.com/Zuniga63/digital-menu-api/models"
)

// OptionItemUpdate edits one snapshot item of an attachment. A nil field is
// left alone; an empty Price clears the override.
type OptionItemUpdate struct {
	Price     *string
	Published *bool
}

var errBadIDList = errors.New("option set ids must be a JSON array of ids")

// parseIDList decodes a JSON array of ids. Elements may be numbers or numeric
// strings, since multipart clients tend to send either.
func parseIDList(raw string) ([]uint, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var values []interface{}
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadIDList, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", errBadIDList)
	}

	ids := make([]uint, 0, len(values))
	for _, v := range values {
		var s string
		switch t := v.(type) {
		case json.Number:
			s = t.String()
		case string:
			s = strings.TrimSpace(t)
		default:
			return nil, fmt.Errorf("%w: unexpected %T", errBadIDList, v)
		}
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errBadIDList, s)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// attach snapshots each option set onto the product, after any attachment it
// already has. Ids without an option set are skipped.
func attach(tx *gorm.DB, productID uint, setIDs []uint) ([]models.ProductOptionSet, error) {
	var count int64
	err := tx.Model(&models.ProductOptionSet{}).Where("product_id = ?", productID).Count(&count).Error
	if err != nil {
		return nil, err
	}

	var attached []models.ProductOptionSet
	for _, id := range setIDs {
		set, err := findSet(tx, id)
		if apperr.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		count++
		pos := snapshot(productID, set, int(count))
		if err := tx.Create(&pos).Error; err != nil {
			return nil, fmt.Errorf("attach option set %d: %w", id, err)
		}
		attached = append(attached, pos)
	}
	return attached, nil
}

// snapshot copies the set as it is right now. Later edits to the set do not
// reach the copy.
func snapshot(productID uint, set *models.OptionSet, order int) models.ProductOptionSet {
	pos := models.ProductOptionSet{
		ProductID:   productID,
		OptionSetID: set.ID,
		Title:       set.Name,
		Published:   set.IsEnabled,
		Order:       order,
		Items:       make([]models.ProductOptionItem, 0, len(set.Items)),
	}
	for _, item := range set.Items {
		pos.Items = append(pos.Items, models.ProductOptionItem{
			OptionSetItemID: item.ID,
			Name:            item.Name,
			Order:           item.Order,
			Published:       item.IsEnabled,
		})
	}
	return pos
}

// AttachOptionSets snapshots the given option sets onto an existing product.
func (s *ProductService) AttachOptionSets(ctx context.Context, productID uint, setIDs []uint) ([]models.ProductOptionSet, error) {
	var attached []models.ProductOptionSet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findProduct(tx, productID); err != nil {
			return err
		}
		var err error
		attached, err = attach(tx, productID, setIDs)
		return err
	})
	return attached, err
}

// detachAll deletes every attachment of the product with its snapshot items.
func detachAll(tx *gorm.DB, productID uint) (int64, error) {
	ids := tx.Model(&models.ProductOptionSet{}).Select("id").Where("product_id = ?", productID)
	err := tx.Where("product_option_set_id IN (?)", ids).Delete(&models.ProductOptionItem{}).Error
	if err != nil {
		return 0, err
	}
	res := tx.Where("product_id = ?", productID).Delete(&models.ProductOptionSet{})
	return res.RowsAffected, res.Error
}

// DetachOptionSets removes every attachment of the product and reports how
// many there were.
func (s *ProductService) DetachOptionSets(ctx context.Context, productID uint) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findProduct(tx, productID); err != nil {
			return err
		}
		var err error
		removed, err = detachAll(tx, productID)
		return err
	})
	return removed, err
}

func findAttachment(tx *gorm.DB, productID, id uint) (*models.ProductOptionSet, error) {
	var pos models.ProductOptionSet
	err := tx.Where("id = ? AND product_id = ?", id, productID).First(&pos).Error
	if err != nil {
		return nil, notFound(err, "product option set")
	}
	return &pos, nil
}

// RemoveProductOptionSet detaches one option set and closes the gap it leaves
// in the order of the product's remaining attachments.
func (s *ProductService) RemoveProductOptionSet(ctx context.Context, productID, id uint) (*models.ProductOptionSet, error) {
	var pos *models.ProductOptionSet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if pos, err = findAttachment(tx, productID, id); err != nil {
			return err
		}
		if err := tx.Where("product_option_set_id = ?", pos.ID).Delete(&models.ProductOptionItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(pos).Error; err != nil {
			return err
		}
		return tx.Model(&models.ProductOptionSet{}).
			Where("product_id = ? AND sort_order > ?", productID, pos.Order).
			UpdateColumn("sort_order", gorm.Expr("sort_order - 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// UpdateProductOptionItem edits the price override or the published flag of
// one snapshot item.
func (s *ProductService) UpdateProductOptionItem(ctx context.Context, productID, posID, itemID uint, in OptionItemUpdate) (*models.ProductOptionItem, error) {
	var item models.ProductOptionItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findAttachment(tx, productID, posID); err != nil {
			return err
		}
		err := tx.Where("id = ? AND product_option_set_id = ?", itemID, posID).First(&item).Error
		if err != nil {
			return notFound(err, "product option item")
		}

		var cols []string
		if in.Price != nil {
			fields := apperr.Fields{}
			price := parsePrice(fields, "price", *in.Price, false)
			if price.Valid && price.Decimal.IsNegative() {
				fields.Add("price", "must not be negative")
			}
			if len(fields) > 0 {
				return apperr.Validation("the option item is invalid", fields)
			}
			item.Price = price
			cols = append(cols, "price")
		}
		if in.Published != nil && *in.Published != item.Published {
			item.Published = *in.Published
			cols = append(cols, "published")
		}
		if len(cols) == 0 {
			return nil
		}
		return tx.Model(&item).Select(cols).Updates(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
