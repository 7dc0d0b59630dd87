package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleEditor Role = "EDITOR"
	RoleWaiter Role = "WAITER"
	RoleUser   Role = "USER"
)

// Base replaces gorm.Model: records are hard deleted so unique names can be reused.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Image is the descriptor returned by the media store for an uploaded asset.
type Image struct {
	PublicID string `json:"publicId"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	Type     string `json:"type"`
	URL      string `json:"url"`
}

type User struct {
	Base
	Name     string `gorm:"size:90;not null" json:"name"`
	Email    string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"size:10;not null" json:"role"`
}

type ProductCategory struct {
	Base
	Name        string    `gorm:"size:45;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Image       *Image    `gorm:"type:text;serializer:json" json:"image,omitempty"`
	Order       int       `gorm:"column:sort_order;not null;index" json:"order"`
	IsEnabled   bool      `gorm:"not null" json:"isEnabled"`
	Products    []Product `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

type Product struct {
	Base
	CategoryID        *uint               `gorm:"index" json:"categoryId"`
	Category          *ProductCategory    `json:"category,omitempty"`
	Name              string              `gorm:"size:45;uniqueIndex;not null" json:"name"`
	Slug              string              `gorm:"size:90;index" json:"slug"`
	Description       string              `gorm:"size:255" json:"description"`
	Image             *Image              `gorm:"type:text;serializer:json" json:"image,omitempty"`
	Price             decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"price"`
	HasDiscount       bool                `gorm:"not null" json:"hasDiscount"`
	PriceWithDiscount decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"priceWithDiscount"`
	IsNew             bool                `gorm:"not null" json:"isNew"`
	HasVariant        bool                `gorm:"not null" json:"hasVariant"`
	VariantTitle      *string             `gorm:"size:45" json:"variantTitle"`
	Published         bool                `gorm:"not null" json:"published"`
	Views             int64               `gorm:"not null" json:"views"`
	OptionSets        []ProductOptionSet  `gorm:"foreignKey:ProductID" json:"optionSets"`
}

// BeforeCreate derives the slug; renames recompute it explicitly.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	p.Slug = Slugify(p.Name)
	return nil
}

type OptionSet struct {
	Base
	Name      string          `gorm:"size:45;uniqueIndex;not null" json:"name"`
	IsEnabled bool            `gorm:"not null" json:"isEnabled"`
	Items     []OptionSetItem `gorm:"foreignKey:OptionSetID" json:"items"`
}

type OptionSetItem struct {
	Base
	OptionSetID uint   `gorm:"not null;index" json:"optionSet"`
	Name        string `gorm:"size:45;not null" json:"name"`
	Image       *Image `gorm:"type:text;serializer:json" json:"image,omitempty"`
	Order       int    `gorm:"column:sort_order;not null" json:"order"`
	IsEnabled   bool   `gorm:"not null" json:"isEnabled"`
}

// ProductOptionSet is an option set attached to a product. OptionSetID is kept
// as a plain id: the snapshot outlives edits and deletion of the source set.
type ProductOptionSet struct {
	Base
	ProductID   uint                `gorm:"not null;index" json:"product"`
	OptionSetID uint                `gorm:"not null;index" json:"optionSet"`
	Title       string              `gorm:"size:45;not null" json:"title"`
	Required    bool                `gorm:"not null" json:"required"`
	Published   bool                `gorm:"not null" json:"published"`
	Multiple    bool                `gorm:"not null" json:"multiple"`
	MinCount    *int                `json:"minCount,omitempty"`
	MaxCount    *int                `json:"maxCount,omitempty"`
	Order       int                 `gorm:"column:sort_order;not null" json:"order"`
	Items       []ProductOptionItem `gorm:"foreignKey:ProductOptionSetID" json:"items"`
}

// ProductOptionItem is one snapshot entry. OptionSetItem is loaded for display
// and is nil once the source item has been deleted.
type ProductOptionItem struct {
	Base
	ProductOptionSetID uint                `gorm:"not null;index" json:"-"`
	OptionSetItemID    uint                `gorm:"not null" json:"optionSetItemId"`
	OptionSetItem      *OptionSetItem      `gorm:"foreignKey:OptionSetItemID;constraint:false" json:"optionSetItem"`
	Name               string              `gorm:"size:45;not null" json:"name"`
	Price              decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"price"`
	Order              int                 `gorm:"column:sort_order;not null" json:"order"`
	Published          bool                `gorm:"not null" json:"published"`
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&ProductCategory{},
		&Product{},
		&OptionSet{},
		&OptionSetItem{},
		&ProductOptionSet{},
		&ProductOptionItem{},
	}
}
