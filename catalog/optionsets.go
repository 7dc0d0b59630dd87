package catalog

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Zuniga63/digital-menu-api/apperr"
	"github.com/Zuniga63/digital-menu-api/media"
	"github.com/Zuniga63/digital-menu-api/models"
)

const msgSetNameTaken = "an option set with this name already exists"

type ItemInput struct {
	Name      string `json:"name"`
	IsEnabled *bool  `json:"isEnabled"`
}

type OptionSetInput struct {
	Name      string      `json:"name"`
	IsEnabled *bool       `json:"isEnabled"`
	Items     []ItemInput `json:"items"`
}

// ItemUpdate carries the fields of an option item update; nil means unchanged.
type ItemUpdate struct {
	Name      *string
	IsEnabled *bool
}

// OptionSetService manages option sets and their ordered items.
type OptionSetService struct {
	db    *gorm.DB
	media media.Store
}

func NewOptionSetService(db *gorm.DB, store media.Store) *OptionSetService {
	return &OptionSetService{db: db, media: store}
}

func (s *OptionSetService) List(ctx context.Context) ([]models.OptionSet, error) {
	var sets []models.OptionSet
	err := s.db.WithContext(ctx).Preload("Items", byOrder).Order("name").Find(&sets).Error
	return sets, err
}

func (s *OptionSetService) Get(ctx context.Context, id uint) (*models.OptionSet, error) {
	return findSet(s.db.WithContext(ctx), id)
}

func findSet(tx *gorm.DB, id uint) (*models.OptionSet, error) {
	var set models.OptionSet
	if err := tx.Preload("Items", byOrder).First(&set, id).Error; err != nil {
		return nil, notFound(err, "option set")
	}
	return &set, nil
}

func findItem(tx *gorm.DB, setID, itemID uint) (*models.OptionSetItem, error) {
	var item models.OptionSetItem
	err := tx.Where("id = ? AND option_set_id = ?", itemID, setID).First(&item).Error
	if err != nil {
		return nil, notFound(err, "option item")
	}
	return &item, nil
}

// CreateSet stores a set and its items, ordered as given. Either everything is
// written or nothing is, and every rejected item is reported with its index.
func (s *OptionSetService) CreateSet(ctx context.Context, in OptionSetInput) (*models.OptionSet, error) {
	in.Name = strings.TrimSpace(in.Name)

	fields := apperr.Fields{}
	checkName(fields, "name", in.Name)
	if len(in.Items) == 0 {
		fields.Add("items", "the option set cannot be empty")
	}
	itemErrs := validateItems(ctx, in.Items)

	db := s.db.WithContext(ctx)
	if _, bad := fields["name"]; !bad {
		taken, err := nameTaken(db, &models.OptionSet{}, in.Name, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			fields.Add("name", msgSetNameTaken)
		}
	}
	if len(fields) > 0 || len(itemErrs) > 0 {
		return nil, &apperr.ValidationError{Message: "the option set is invalid", Fields: fields, Items: itemErrs}
	}

	set := models.OptionSet{Name: in.Name, IsEnabled: boolOr(in.IsEnabled, true)}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&set).Error; err != nil {
			return duplicate(err, msgSetNameTaken)
		}
		for i, in := range in.Items {
			item := models.OptionSetItem{
				OptionSetID: set.ID,
				Name:        strings.TrimSpace(in.Name),
				Order:       i + 1,
				IsEnabled:   boolOr(in.IsEnabled, true),
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("create option item %d: %w", i, err)
			}
			set.Items = append(set.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// validateItems checks every item payload concurrently and returns the
// failures in index order.
func validateItems(ctx context.Context, items []ItemInput) []apperr.ItemError {
	results := make([]*apperr.ItemError, len(items))
	g, _ := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			f := apperr.Fields{}
			checkName(f, "name", strings.TrimSpace(item.Name))
			if len(f) > 0 {
				results[i] = &apperr.ItemError{Index: i, Name: item.Name, Errors: f}
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []apperr.ItemError
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// RenameSet is a no-op when the name is unchanged.
func (s *OptionSetService) RenameSet(ctx context.Context, id uint, name string) (*models.OptionSet, error) {
	db := s.db.WithContext(ctx)
	set, err := findSet(db, id)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if set.Name == name {
		return set, nil
	}

	fields := apperr.Fields{}
	checkName(fields, "name", name)
	if len(fields) == 0 {
		taken, err := nameTaken(db, &models.OptionSet{}, name, set.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			fields.Add("name", msgSetNameTaken)
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("the option set name is invalid", fields)
	}

	if err := db.Model(set).Omit(clause.Associations).Update("name", name).Error; err != nil {
		return nil, duplicate(err, msgSetNameTaken)
	}
	set.Name = name
	return set, nil
}

// SetEnabled writes only when the flag changes and reports whether it did.
func (s *OptionSetService) SetEnabled(ctx context.Context, id uint, enabled bool) (*models.OptionSet, bool, error) {
	db := s.db.WithContext(ctx)
	set, err := findSet(db, id)
	if err != nil {
		return nil, false, err
	}
	if set.IsEnabled == enabled {
		return set, false, nil
	}
	if err := db.Model(set).Omit(clause.Associations).Update("is_enabled", enabled).Error; err != nil {
		return nil, false, err
	}
	set.IsEnabled = enabled
	return set, true, nil
}

// ReorderItems gives the item at position i the order i+1. Ids that do not
// belong to the set match no row and are ignored.
func (s *OptionSetService) ReorderItems(ctx context.Context, setID uint, itemIDs []uint) (*models.OptionSet, error) {
	db := s.db.WithContext(ctx)
	if _, err := findSet(db, setID); err != nil {
		return nil, err
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		for i, id := range itemIDs {
			err := tx.Model(&models.OptionSetItem{}).
				Where("id = ? AND option_set_id = ?", id, setID).
				Update("sort_order", i+1).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return findSet(db, setID)
}

func (s *OptionSetService) ListItems(ctx context.Context, setID uint) ([]models.OptionSetItem, error) {
	set, err := findSet(s.db.WithContext(ctx), setID)
	if err != nil {
		return nil, err
	}
	return set.Items, nil
}

// AddItem appends an item to the set. The uploaded image, if any, is destroyed
// when the item cannot be stored.
func (s *OptionSetService) AddItem(ctx context.Context, setID uint, in ItemInput, image *models.Image) (*models.OptionSetItem, error) {
	pending := media.Track(s.media, image)
	defer pending.Release(ctx)

	in.Name = strings.TrimSpace(in.Name)
	item := models.OptionSetItem{
		OptionSetID: setID,
		Name:        in.Name,
		Image:       image,
		IsEnabled:   boolOr(in.IsEnabled, true),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findSet(tx, setID); err != nil {
			return err
		}
		fields := apperr.Fields{}
		checkName(fields, "name", in.Name)
		if len(fields) > 0 {
			return apperr.Validation("the option item is invalid", fields)
		}

		var count int64
		if err := tx.Model(&models.OptionSetItem{}).Where("option_set_id = ?", setID).Count(&count).Error; err != nil {
			return err
		}
		item.Order = int(count) + 1
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	pending.Keep()
	return &item, nil
}

// UpdateItem writes only the changed columns. A replaced image is destroyed
// after the save succeeds; the new one is destroyed if it fails.
func (s *OptionSetService) UpdateItem(ctx context.Context, setID, itemID uint, in ItemUpdate, image *models.Image) (*models.OptionSetItem, error) {
	pending := media.Track(s.media, image)
	defer pending.Release(ctx)

	db := s.db.WithContext(ctx)
	item, err := findItem(db, setID, itemID)
	if err != nil {
		return nil, err
	}

	var cols []string
	fields := apperr.Fields{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name != item.Name {
			checkName(fields, "name", name)
			item.Name = name
			cols = append(cols, "name")
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("the option item is invalid", fields)
	}
	if in.IsEnabled != nil && *in.IsEnabled != item.IsEnabled {
		item.IsEnabled = *in.IsEnabled
		cols = append(cols, "is_enabled")
	}
	var previous *models.Image
	if image != nil {
		previous = item.Image
		item.Image = image
		cols = append(cols, "image")
	}

	if len(cols) > 0 {
		if err := db.Model(item).Select(cols).Updates(item).Error; err != nil {
			return nil, err
		}
	}
	pending.Keep()
	media.Discard(ctx, s.media, previous)
	return item, nil
}

func (s *OptionSetService) SetItemEnabled(ctx context.Context, setID, itemID uint, enabled bool) (*models.OptionSetItem, bool, error) {
	db := s.db.WithContext(ctx)
	item, err := findItem(db, setID, itemID)
	if err != nil {
		return nil, false, err
	}
	if item.IsEnabled == enabled {
		return item, false, nil
	}
	if err := db.Model(item).Update("is_enabled", enabled).Error; err != nil {
		return nil, false, err
	}
	item.IsEnabled = enabled
	return item, true, nil
}

// RemoveItemImage clears the image column and then destroys the asset.
func (s *OptionSetService) RemoveItemImage(ctx context.Context, setID, itemID uint) (*models.OptionSetItem, error) {
	db := s.db.WithContext(ctx)
	item, err := findItem(db, setID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Image == nil {
		return item, nil
	}
	previous := item.Image
	if err := db.Model(item).UpdateColumn("image", gorm.Expr("NULL")).Error; err != nil {
		return nil, err
	}
	item.Image = nil
	media.Discard(ctx, s.media, previous)
	return item, nil
}

// RemoveItem deletes the item and closes the gap it leaves in the order of
// its siblings.
func (s *OptionSetService) RemoveItem(ctx context.Context, setID, itemID uint) (*models.OptionSetItem, error) {
	var item *models.OptionSetItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if item, err = findItem(tx, setID, itemID); err != nil {
			return err
		}
		if err := tx.Delete(item).Error; err != nil {
			return err
		}
		return tx.Model(&models.OptionSetItem{}).
			Where("option_set_id = ? AND sort_order > ?", setID, item.Order).
			UpdateColumn("sort_order", gorm.Expr("sort_order - 1")).Error
	})
	if err != nil {
		return nil, err
	}
	media.Discard(ctx, s.media, item.Image)
	return item, nil
}

// DeleteSet removes the set with all of its items and their images. Product
// attachments keep their snapshots.
func (s *OptionSetService) DeleteSet(ctx context.Context, id uint) (*models.OptionSet, int64, error) {
	var (
		set     *models.OptionSet
		removed int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if set, err = findSet(tx, id); err != nil {
			return err
		}
		res := tx.Where("option_set_id = ?", id).Delete(&models.OptionSetItem{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Delete(set).Error
	})
	if err != nil {
		return nil, 0, err
	}

	images := make([]*models.Image, 0, len(set.Items))
	for _, item := range set.Items {
		images = append(images, item.Image)
	}
	media.Discard(ctx, s.media, images...)
	return set, removed, nil
}
