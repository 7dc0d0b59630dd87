package catalog

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Zuniga63/digital-menu-api/apperr"
	"github.com/Zuniga63/digital-menu-api/media"
	"github.com/Zuniga63/digital-menu-api/models"
)

const msgCategoryNameTaken = "a category with this name already exists"

type CategoryInput struct {
	Name        string
	Description string
}

type CategoryUpdate struct {
	Name        string
	Description string
	IsEnabled   bool
}

// CategoryService keeps categories densely ordered from 1 to N.
type CategoryService struct {
	db    *gorm.DB
	media media.Store
}

func NewCategoryService(db *gorm.DB, store media.Store) *CategoryService {
	return &CategoryService{db: db, media: store}
}

func (s *CategoryService) List(ctx context.Context) ([]models.ProductCategory, error) {
	var categories []models.ProductCategory
	err := s.db.WithContext(ctx).Order("sort_order").Find(&categories).Error
	return categories, err
}

// Home returns the enabled categories with their published products, each
// carrying its option sets and snapshot items.
func (s *CategoryService) Home(ctx context.Context) ([]models.ProductCategory, error) {
	var categories []models.ProductCategory
	err := s.db.WithContext(ctx).
		Where("is_enabled = ?", true).
		Order("sort_order").
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Where("published = ?", true).Order("views").Order("name")
		}).
		Preload("Products.OptionSets", byOrder).
		Preload("Products.OptionSets.Items", byOrder).
		Preload("Products.OptionSets.Items.OptionSetItem").
		Find(&categories).Error
	return categories, err
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*models.ProductCategory, error) {
	var category models.ProductCategory
	err := s.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		First(&category, id).Error
	if err != nil {
		return nil, notFound(err, "category")
	}
	return &category, nil
}

func findCategory(tx *gorm.DB, id uint) (*models.ProductCategory, error) {
	var category models.ProductCategory
	if err := tx.First(&category, id).Error; err != nil {
		return nil, notFound(err, "category")
	}
	return &category, nil
}

func (s *CategoryService) validate(tx *gorm.DB, name, description string, exceptID uint) error {
	fields := apperr.Fields{}
	checkName(fields, "name", name)
	checkDescription(fields, "description", description)
	if _, bad := fields["name"]; !bad {
		taken, err := nameTaken(tx, &models.ProductCategory{}, name, exceptID)
		if err != nil {
			return err
		}
		if taken {
			fields.Add("name", msgCategoryNameTaken)
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("the category is invalid", fields)
	}
	return nil
}

// Create appends the category at order count+1.
func (s *CategoryService) Create(ctx context.Context, in CategoryInput, image *models.Image) (*models.ProductCategory, error) {
	pending := media.Track(s.media, image)
	defer pending.Release(ctx)

	category := models.ProductCategory{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Image:       image,
		IsEnabled:   true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.validate(tx, category.Name, category.Description, 0); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.ProductCategory{}).Count(&count).Error; err != nil {
			return err
		}
		category.Order = int(count) + 1
		return duplicate(tx.Create(&category).Error, msgCategoryNameTaken)
	})
	if err != nil {
		return nil, err
	}
	pending.Keep()
	return &category, nil
}

// Update writes the changed columns; the order never changes here.
func (s *CategoryService) Update(ctx context.Context, id uint, in CategoryUpdate, image *models.Image) (*models.ProductCategory, error) {
	pending := media.Track(s.media, image)
	defer pending.Release(ctx)

	db := s.db.WithContext(ctx)
	category, err := findCategory(db, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	if err := s.validate(db, name, description, category.ID); err != nil {
		return nil, err
	}

	var cols []string
	if name != category.Name {
		category.Name = name
		cols = append(cols, "name")
	}
	if description != category.Description {
		category.Description = description
		cols = append(cols, "description")
	}
	if in.IsEnabled != category.IsEnabled {
		category.IsEnabled = in.IsEnabled
		cols = append(cols, "is_enabled")
	}
	var previous *models.Image
	if image != nil {
		previous = category.Image
		category.Image = image
		cols = append(cols, "image")
	}

	if len(cols) > 0 {
		if err := db.Model(category).Select(cols).Updates(category).Error; err != nil {
			return nil, duplicate(err, msgCategoryNameTaken)
		}
	}
	pending.Keep()
	media.Discard(ctx, s.media, previous)
	return category, nil
}

func (s *CategoryService) SetEnabled(ctx context.Context, id uint, enabled bool) (*models.ProductCategory, bool, error) {
	db := s.db.WithContext(ctx)
	category, err := findCategory(db, id)
	if err != nil {
		return nil, false, err
	}
	if category.IsEnabled == enabled {
		return category, false, nil
	}
	if err := db.Model(category).Update("is_enabled", enabled).Error; err != nil {
		return nil, false, err
	}
	category.IsEnabled = enabled
	return category, true, nil
}

func (s *CategoryService) UpdateImage(ctx context.Context, id uint, image *models.Image) (*models.ProductCategory, error) {
	pending := media.Track(s.media, image)
	defer pending.Release(ctx)

	if image == nil {
		return nil, apperr.Validation("the image could not be updated", apperr.Fields{"image": "the field is required"})
	}
	db := s.db.WithContext(ctx)
	category, err := findCategory(db, id)
	if err != nil {
		return nil, err
	}
	previous := category.Image
	category.Image = image
	if err := db.Model(category).Select("image").Updates(category).Error; err != nil {
		return nil, err
	}
	pending.Keep()
	media.Discard(ctx, s.media, previous)
	return category, nil
}

func (s *CategoryService) RemoveImage(ctx context.Context, id uint) (*models.ProductCategory, error) {
	db := s.db.WithContext(ctx)
	category, err := findCategory(db, id)
	if err != nil {
		return nil, err
	}
	if category.Image == nil {
		return nil, apperr.Validation("the category has no image", nil)
	}
	previous := category.Image
	if err := db.Model(category).UpdateColumn("image", gorm.Expr("NULL")).Error; err != nil {
		return nil, err
	}
	category.Image = nil
	media.Discard(ctx, s.media, previous)
	return category, nil
}

// Delete removes the category in one transaction: its products become
// unassigned and the categories after it move up one position.
func (s *CategoryService) Delete(ctx context.Context, id uint) (*models.ProductCategory, error) {
	var category *models.ProductCategory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if category, err = findCategory(tx, id); err != nil {
			return err
		}
		err = tx.Model(&models.Product{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error
		if err != nil {
			return err
		}
		if err := tx.Delete(category).Error; err != nil {
			return err
		}
		return tx.Model(&models.ProductCategory{}).
			Where("sort_order >= ?", category.Order).
			UpdateColumn("sort_order", gorm.Expr("sort_order - 1")).Error
	})
	if err != nil {
		return nil, err
	}
	media.Discard(ctx, s.media, category.Image)
	return category, nil
}

// DeleteAll removes every category and unassigns every product.
func (s *CategoryService) DeleteAll(ctx context.Context) (int64, error) {
	var (
		categories []models.ProductCategory
		removed    int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Find(&categories).Error; err != nil {
			return err
		}
		err := tx.Model(&models.Product{}).
			Where("category_id IS NOT NULL").
			Update("category_id", nil).Error
		if err != nil {
			return err
		}
		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ProductCategory{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, err
	}

	images := make([]*models.Image, 0, len(categories))
	for _, c := range categories {
		images = append(images, c.Image)
	}
	media.Discard(ctx, s.media, images...)
	return removed, nil
}
