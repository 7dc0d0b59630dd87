package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Coffee":           "coffee",
		"  Café con Leche ": "cafe-con-leche",
		"Piña Colada":      "pina-colada",
		"Two  Spaces":      "two--spaces",
		"":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "slug of %q", in)
	}
}

func TestProductBeforeCreateSetsSlug(t *testing.T) {
	p := &Product{Name: "Hot Chocolate"}
	assert.NoError(t, p.BeforeCreate(nil))
	assert.Equal(t, "hot-chocolate", p.Slug)
}
