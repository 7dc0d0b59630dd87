package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zuniga63/digital-menu-api/catalog"
	"github.com/Zuniga63/digital-menu-api/media"
)

// productForm reads the multipart product form. published defaults to true
// on create and to false on update, as unchecked boxes are not submitted.
func productForm(c *gin.Context, publishedDefault bool) catalog.ProductInput {
	return catalog.ProductInput{
		CategoryID:        c.PostForm("categoryId"),
		Name:              c.PostForm("name"),
		Description:       c.PostForm("description"),
		Price:             c.PostForm("price"),
		HasDiscount:       catalog.FormBool(c.PostForm("hasDiscount")),
		PriceWithDiscount: c.PostForm("priceWithDiscount"),
		IsNew:             catalog.FormBool(c.PostForm("isNew")),
		HasVariant:        catalog.FormBool(c.PostForm("hasVariant")),
		VariantTitle:      c.PostForm("variantTitle"),
		Published:         formBoolDefault(c, "published", publishedDefault),
		OptionSetIDs:      c.PostForm("optionSetIds"),
	}
}

func warnings(res *catalog.ProductResult) []string {
	if res.Warnings == nil {
		return []string{}
	}
	return res.Warnings
}

func registerProductRoutes(g *gin.RouterGroup, guard []gin.HandlerFunc, app *App) {
	products := app.Products

	g.GET("", func(c *gin.Context) {
		list, err := products.List(c.Request.Context())
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "products": list})
	})

	// Create a product (multipart, optionSetIds as a JSON array string)
	g.POST("", guarded(guard, func(c *gin.Context) {
		ctx := c.Request.Context()
		in := productForm(c, true)
		image, err := uploadImage(ctx, c, app.Media, media.PresetProduct, in.Name)
		if err != nil {
			sendError(c, err)
			return
		}
		res, err := products.Create(ctx, in, image)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"ok":       true,
			"message":  "product created",
			"product":  res.Product,
			"category": res.Category,
			"warnings": warnings(res),
		})
	})...)

	g.GET("/:slug", func(c *gin.Context) {
		product, err := products.GetBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "product": product})
	})

	g.PUT("/:productId", guarded(guard, func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := idParam(c, "productId", "product")
		if err != nil {
			sendError(c, err)
			return
		}
		in := productForm(c, false)
		image, err := uploadImage(ctx, c, app.Media, media.PresetProduct, in.Name)
		if err != nil {
			sendError(c, err)
			return
		}
		res, err := products.Update(ctx, id, in, image)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "product": res.Product, "warnings": warnings(res)})
	})...)

	g.DELETE("/:productId", guarded(guard, func(c *gin.Context) {
		id, err := idParam(c, "productId", "product")
		if err != nil {
			sendError(c, err)
			return
		}
		product, err := products.Delete(c.Request.Context(), id)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "product": product})
	})...)

	g.PUT("/:productId/update-image", guarded(guard, func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := idParam(c, "productId", "product")
		if err != nil {
			sendError(c, err)
			return
		}
		current, err := products.Get(ctx, id)
		if err != nil {
			sendError(c, err)
			return
		}
		image, err := uploadImage(ctx, c, app.Media, media.PresetProduct, current.Name)
		if err != nil {
			sendError(c, err)
			return
		}
		product, err := products.UpdateImage(ctx, id, image)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "product": product})
	})...)

	g.DELETE("/:productId/remove-image", guarded(guard, func(c *gin.Context) {
		id, err := idParam(c, "productId", "product")
		if err != nil {
			sendError(c, err)
			return
		}
		product, err := products.RemoveImage(c.Request.Context(), id)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "product": product})
	})...)

	// Public: menu clients count product views
	g.PUT("/:productId/add-view", func(c *gin.Context) {
		id, err := idParam(c, "productId", "product")
		if err != nil {
			sendError(c, err)
			return
		}
		if err := products.AddView(c.Request.Context(), id); err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	g.PUT("/:productId/category", guarded(guard, func(c *gin.Context) {
		id, err := idParam(c, "productId", "product")
		if err != nil {
			sendError(c, err)
			return
		}
		var req struct {
			CategoryID *uint `json:"categoryId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			sendError(c, bindError(err))
			return
		}
		res, err := products.AssignCategory(c.Request.Context(), id, req.CategoryID)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "product": res.Product, "category": res.Category, "warnings": warnings(res)})
	})...)

	g.POST("/:productId/option-sets", guarded(guard, func(c *gin.Context) {
		id, err := idParam(c, "productId", "product")
		if err != nil {
			sendError(c, err)
			return
		}
		var req struct {
			OptionSetIDs []uint `json:"optionSetIds" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			sendError(c, bindError(err))
			return
		}
		attached, err := products.AttachOptionSets(c.Request.Context(), id, req.OptionSetIDs)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true, "optionSets": attached})
	})...)

	g.DELETE("/:productId/option-sets", guarded(guard, func(c *gin.Context) {
		id, err := idParam(c, "productId", "product")
		if err != nil {
			sendError(c, err)
			return
		}
		removed, err := products.DetachOptionSets(c.Request.Context(), id)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "removed": removed})
	})...)

	g.DELETE("/:productId/option-sets/:productOptionSetId", guarded(guard, func(c *gin.Context) {
		productID, err := idParam(c, "productId", "product")
		if err != nil {
			sendError(c, err)
			return
		}
		posID, err := idParam(c, "productOptionSetId", "product option set")
		if err != nil {
			sendError(c, err)
			return
		}
		pos, err := products.RemoveProductOptionSet(c.Request.Context(), productID, posID)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "productOptionSet": pos})
	})...)

	g.PUT("/:productId/option-sets/:productOptionSetId/items/:productOptionItemId", guarded(guard, func(c *gin.Context) {
		productID, err := idParam(c, "productId", "product")
		if err != nil {
			sendError(c, err)
			return
		}
		posID, err := idParam(c, "productOptionSetId", "product option set")
		if err != nil {
			sendError(c, err)
			return
		}
		itemID, err := idParam(c, "productOptionItemId", "product option item")
		if err != nil {
			sendError(c, err)
			return
		}
		var req struct {
			Price     *string `json:"price"`
			Published *bool   `json:"published"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			sendError(c, bindError(err))
			return
		}
		item, err := products.UpdateProductOptionItem(c.Request.Context(), productID, posID, itemID,
			catalog.OptionItemUpdate{Price: req.Price, Published: req.Published})
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "optionItem": item})
	})...)
}
