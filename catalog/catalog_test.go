package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Zuniga63/digital-menu-api/config"
	"github.com/Zuniga63/digital-menu-api/database"
	"github.com/Zuniga63/digital-menu-api/media"
	"github.com/Zuniga63/digital-menu-api/models"
)

type fixture struct {
	db         *gorm.DB
	store      *media.Memory
	optionSets *OptionSetService
	categories *CategoryService
	products   *ProductService
}

// newFixture opens a private in-memory database named after the test.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(config.Database{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	store := media.NewMemory()
	return &fixture{
		db:         db,
		store:      store,
		optionSets: NewOptionSetService(db, store),
		categories: NewCategoryService(db, store),
		products:   NewProductService(db, store),
	}
}

// countUpdates counts successful UPDATE statements issued through db.
func countUpdates(t *testing.T, db *gorm.DB) *int {
	t.Helper()
	n := 0
	err := db.Callback().Update().After("gorm:update").Register("test:count_updates", func(tx *gorm.DB) {
		if tx.Error == nil {
			n++
		}
	})
	require.NoError(t, err)
	return &n
}

func (f *fixture) image(id string) *models.Image {
	return f.store.Put(models.Image{PublicID: id, URL: "memory://test/" + id})
}

func (f *fixture) createSet(t *testing.T, name string, items ...string) *models.OptionSet {
	t.Helper()
	in := OptionSetInput{Name: name}
	for _, item := range items {
		in.Items = append(in.Items, ItemInput{Name: item})
	}
	set, err := f.optionSets.CreateSet(context.Background(), in)
	require.NoError(t, err)
	return set
}

func (f *fixture) createCategory(t *testing.T, name string) *models.ProductCategory {
	t.Helper()
	category, err := f.categories.Create(context.Background(), CategoryInput{Name: name}, nil)
	require.NoError(t, err)
	return category
}

func (f *fixture) createProduct(t *testing.T, in ProductInput) *ProductResult {
	t.Helper()
	if in.Price == "" {
		in.Price = "2500"
	}
	res, err := f.products.Create(context.Background(), in, nil)
	require.NoError(t, err)
	return res
}

func (f *fixture) categoryOrders(t *testing.T) []int {
	t.Helper()
	var orders []int
	require.NoError(t, f.db.Model(&models.ProductCategory{}).Order("sort_order").Pluck("sort_order", &orders).Error)
	return orders
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func idString(id uint) string { return fmt.Sprint(id) }
