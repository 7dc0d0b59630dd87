package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Zuniga63/digital-menu-api/apperr"
	"github.com/Zuniga63/digital-menu-api/media"
	"github.com/Zuniga63/digital-menu-api/models"
)

const (
	msgProductNameTaken = "a product with this name already exists"
	msgProductSlugTaken = "another product already uses the address this name produces"
)

// Warnings attached to product responses. None of them fail the request.
const (
	WarnNoCategory       = "the product is not associated with a category"
	WarnInvalidCategory  = "the category id is invalid"
	WarnCategoryNotFound = "the category was not found"
	WarnOptionSets       = "option sets could not be attached"
)

// ProductInput mirrors the multipart form of the product endpoints. Numbers
// and ids stay strings until validation.
type ProductInput struct {
	CategoryID        string
	Name              string
	Description       string
	Price             string
	HasDiscount       bool
	PriceWithDiscount string
	IsNew             bool
	HasVariant        bool
	VariantTitle      string
	Published         bool
	OptionSetIDs      string
}

type ProductResult struct {
	Product  *models.Product
	Category *models.ProductCategory
	Warnings []string
}

func (r *ProductResult) warn(msg string) {
	if msg != "" {
		r.Warnings = append(r.Warnings, msg)
	}
}

// ProductService handles products, their category and their attached option sets.
type ProductService struct {
	db    *gorm.DB
	media media.Store
}

func NewProductService(db *gorm.DB, store media.Store) *ProductService {
	return &ProductService{db: db, media: store}
}

func withOptionSets(db *gorm.DB) *gorm.DB {
	return db.
		Preload("OptionSets", byOrder).
		Preload("OptionSets.Items", byOrder).
		Preload("OptionSets.Items.OptionSetItem")
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := withOptionSets(s.db.WithContext(ctx)).
		Preload("Category").
		Order("name").
		Find(&products).Error
	return products, err
}

func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := withOptionSets(s.db.WithContext(ctx)).
		Preload("Category").
		Where("slug = ?", slug).
		First(&product).Error
	if err != nil {
		return nil, notFound(err, "product")
	}
	return &product, nil
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := withOptionSets(s.db.WithContext(ctx)).Preload("Category").First(&product, id).Error
	if err != nil {
		return nil, notFound(err, "product")
	}
	return &product, nil
}

func findProduct(tx *gorm.DB, id uint) (*models.Product, error) {
	var product models.Product
	if err := tx.First(&product, id).Error; err != nil {
		return nil, notFound(err, "product")
	}
	return &product, nil
}

// productFields holds the validated, typed form of a ProductInput.
type productFields struct {
	name              string
	description       string
	price             decimal.Decimal
	priceWithDiscount decimal.NullDecimal
	variantTitle      *string
}

func (s *ProductService) validate(tx *gorm.DB, in ProductInput, exceptID uint) (*productFields, error) {
	out := productFields{
		name:        strings.TrimSpace(in.Name),
		description: strings.TrimSpace(in.Description),
	}

	fields := apperr.Fields{}
	checkName(fields, "name", out.name)
	checkDescription(fields, "description", out.description)

	price := parsePrice(fields, "price", in.Price, true)
	if price.Valid && price.Decimal.LessThan(MinPrice) {
		fields.Add("price", "must be at least "+MinPrice.String())
	}
	out.price = price.Decimal

	if in.HasDiscount {
		out.priceWithDiscount = parsePrice(fields, "priceWithDiscount", in.PriceWithDiscount, true)
	}
	if in.HasVariant {
		title := strings.TrimSpace(in.VariantTitle)
		checkName(fields, "variantTitle", title)
		out.variantTitle = &title
	}

	if _, bad := fields["name"]; !bad {
		taken, err := nameTaken(tx, &models.Product{}, out.name, exceptID)
		if err != nil {
			return nil, err
		}
		if taken {
			fields.Add("name", msgProductNameTaken)
		}
	}
	if _, bad := fields["name"]; !bad {
		taken, err := slugTaken(tx, models.Slugify(out.name), exceptID)
		if err != nil {
			return nil, err
		}
		if taken {
			fields.Add("name", msgProductSlugTaken)
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("the product is invalid", fields)
	}
	return &out, nil
}

// slugTaken keeps slugs unique, since products are addressed by slug and
// distinct names such as "Café" and "Cafe" share one.
func slugTaken(tx *gorm.DB, slug string, exceptID uint) (bool, error) {
	if slug == "" {
		return false, nil
	}
	var n int64
	err := tx.Model(&models.Product{}).Where("slug = ? AND id <> ?", slug, exceptID).Count(&n).Error
	return n > 0, err
}

// resolveCategory looks up the category named by a form value. Problems come
// back as a warning and a nil category, never as an error, unless the
// database itself fails.
func resolveCategory(tx *gorm.DB, raw string) (*models.ProductCategory, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, WarnNoCategory, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, WarnInvalidCategory, nil
	}
	category, err := findCategory(tx, uint(id))
	if apperr.IsNotFound(err) {
		return nil, WarnCategoryNotFound, nil
	}
	if err != nil {
		return nil, "", err
	}
	return category, "", nil
}

// Create stores the product and links it to its category and option sets.
// Category and option set problems are reported as warnings.
func (s *ProductService) Create(ctx context.Context, in ProductInput, image *models.Image) (*ProductResult, error) {
	pending := media.Track(s.media, image)
	defer pending.Release(ctx)

	res := &ProductResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := s.validate(tx, in, 0)
		if err != nil {
			return err
		}

		category, warning, err := resolveCategory(tx, in.CategoryID)
		if err != nil {
			return err
		}
		res.warn(warning)

		product := models.Product{
			Name:              f.name,
			Description:       f.description,
			Image:             image,
			Price:             f.price,
			HasDiscount:       in.HasDiscount,
			PriceWithDiscount: f.priceWithDiscount,
			IsNew:             in.IsNew,
			HasVariant:        in.HasVariant,
			VariantTitle:      f.variantTitle,
			Published:         in.Published,
			OptionSets:        []models.ProductOptionSet{},
		}
		if category != nil {
			product.CategoryID = &category.ID
		}
		if err := tx.Create(&product).Error; err != nil {
			return duplicate(err, msgProductNameTaken)
		}
		product.Category = category
		res.Product = &product
		res.Category = category

		if strings.TrimSpace(in.OptionSetIDs) == "" {
			return nil
		}
		// A failed attachment rolls back to this savepoint and leaves the
		// product in place.
		err = tx.Transaction(func(tx *gorm.DB) error {
			ids, err := parseIDList(in.OptionSetIDs)
			if err != nil {
				return err
			}
			attached, err := attach(tx, product.ID, ids)
			if err != nil {
				return err
			}
			product.OptionSets = attached
			return nil
		})
		if err != nil {
			product.OptionSets = []models.ProductOptionSet{}
			res.warn(WarnOptionSets)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	pending.Keep()
	return res, nil
}

// Update rewrites the product from a full form. Discount and variant fields
// are cleared when their flag is off, the slug follows the name, and the
// category is reassigned when it differs.
func (s *ProductService) Update(ctx context.Context, id uint, in ProductInput, image *models.Image) (*ProductResult, error) {
	pending := media.Track(s.media, image)
	defer pending.Release(ctx)

	res := &ProductResult{}
	var previous *models.Image
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := findProduct(tx, id)
		if err != nil {
			return err
		}
		f, err := s.validate(tx, in, product.ID)
		if err != nil {
			return err
		}

		cols := []string{
			"description", "price", "has_discount", "price_with_discount",
			"is_new", "has_variant", "variant_title", "published",
		}
		if f.name != product.Name {
			product.Name = f.name
			product.Slug = models.Slugify(f.name)
			cols = append(cols, "name", "slug")
		}
		product.Description = f.description
		product.Price = f.price
		product.HasDiscount = in.HasDiscount
		product.PriceWithDiscount = f.priceWithDiscount
		product.IsNew = in.IsNew
		product.HasVariant = in.HasVariant
		product.VariantTitle = f.variantTitle
		product.Published = in.Published
		if image != nil {
			previous = product.Image
			product.Image = image
			cols = append(cols, "image")
		}

		var category *models.ProductCategory
		if strings.TrimSpace(in.CategoryID) != "" {
			var warning string
			if category, warning, err = resolveCategory(tx, in.CategoryID); err != nil {
				return err
			}
			res.warn(warning)
		}
		if !sameCategory(product.CategoryID, category) {
			product.CategoryID = nil
			if category != nil {
				product.CategoryID = &category.ID
			}
			cols = append(cols, "category_id")
		}

		if err := tx.Model(product).Select(cols).Updates(product).Error; err != nil {
			return duplicate(err, msgProductNameTaken)
		}
		product.Category = category
		res.Product = product
		res.Category = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	pending.Keep()
	media.Discard(ctx, s.media, previous)
	return res, nil
}

func sameCategory(current *uint, target *models.ProductCategory) bool {
	if current == nil || target == nil {
		return current == nil && target == nil
	}
	return *current == target.ID
}

// AssignCategory moves the product to categoryID, or unassigns it when nil.
// A category that does not exist leaves the product unassigned with a warning.
func (s *ProductService) AssignCategory(ctx context.Context, productID uint, categoryID *uint) (*ProductResult, error) {
	res := &ProductResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := findProduct(tx, productID)
		if err != nil {
			return err
		}
		var category *models.ProductCategory
		if categoryID != nil {
			category, err = findCategory(tx, *categoryID)
			if apperr.IsNotFound(err) {
				res.warn(WarnCategoryNotFound)
			} else if err != nil {
				return err
			}
		}
		if !sameCategory(product.CategoryID, category) {
			product.CategoryID = nil
			if category != nil {
				product.CategoryID = &category.ID
			}
			if err := tx.Model(product).Select("category_id").Updates(product).Error; err != nil {
				return err
			}
		}
		product.Category = category
		res.Product = product
		res.Category = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Delete removes the product together with its option set attachments.
func (s *ProductService) Delete(ctx context.Context, id uint) (*models.Product, error) {
	var product *models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if product, err = findProduct(tx, id); err != nil {
			return err
		}
		if _, err := detachAll(tx, product.ID); err != nil {
			return err
		}
		return tx.Delete(product).Error
	})
	if err != nil {
		return nil, err
	}
	media.Discard(ctx, s.media, product.Image)
	return product, nil
}

func (s *ProductService) UpdateImage(ctx context.Context, id uint, image *models.Image) (*models.Product, error) {
	pending := media.Track(s.media, image)
	defer pending.Release(ctx)

	db := s.db.WithContext(ctx)
	product, err := findProduct(db, id)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return product, nil
	}
	previous := product.Image
	product.Image = image
	if err := db.Model(product).Select("image").Updates(product).Error; err != nil {
		return nil, err
	}
	pending.Keep()
	media.Discard(ctx, s.media, previous)
	return product, nil
}

// RemoveImage is a no-op for a product without an image.
func (s *ProductService) RemoveImage(ctx context.Context, id uint) (*models.Product, error) {
	db := s.db.WithContext(ctx)
	product, err := findProduct(db, id)
	if err != nil {
		return nil, err
	}
	if product.Image == nil {
		return product, nil
	}
	previous := product.Image
	if err := db.Model(product).UpdateColumn("image", gorm.Expr("NULL")).Error; err != nil {
		return nil, err
	}
	product.Image = nil
	media.Discard(ctx, s.media, previous)
	return product, nil
}

// AddView increments the view counter in place.
func (s *ProductService) AddView(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("product")
	}
	return nil
}
