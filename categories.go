package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zuniga63/digital-menu-api/catalog"
	"github.com/Zuniga63/digital-menu-api/media"
)

func registerCategoryRoutes(g *gin.RouterGroup, guard []gin.HandlerFunc, app *App) {
	categories := app.Categories

	g.GET("", func(c *gin.Context) {
		list, err := categories.List(c.Request.Context())
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "categories": list})
	})

	// Create a category (multipart: name, description, image)
	g.POST("", guarded(guard, func(c *gin.Context) {
		ctx := c.Request.Context()
		in := catalog.CategoryInput{Name: c.PostForm("name"), Description: c.PostForm("description")}
		image, err := uploadImage(ctx, c, app.Media, media.PresetCategory, in.Name)
		if err != nil {
			sendError(c, err)
			return
		}
		category, err := categories.Create(ctx, in, image)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true, "category": category})
	})...)

	g.DELETE("", guarded(guard, func(c *gin.Context) {
		removed, err := categories.DeleteAll(c.Request.Context())
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "removed": removed})
	})...)

	g.GET("/:categoryId", func(c *gin.Context) {
		id, err := idParam(c, "categoryId", "category")
		if err != nil {
			sendError(c, err)
			return
		}
		category, err := categories.Get(c.Request.Context(), id)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "category": category})
	})

	g.PUT("/:categoryId", guarded(guard, func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := idParam(c, "categoryId", "category")
		if err != nil {
			sendError(c, err)
			return
		}
		in := catalog.CategoryUpdate{
			Name:        c.PostForm("name"),
			Description: c.PostForm("description"),
			IsEnabled:   catalog.FormBool(c.PostForm("isEnabled")),
		}
		image, err := uploadImage(ctx, c, app.Media, media.PresetCategory, in.Name)
		if err != nil {
			sendError(c, err)
			return
		}
		category, err := categories.Update(ctx, id, in, image)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "category": category})
	})...)

	g.DELETE("/:categoryId", guarded(guard, func(c *gin.Context) {
		id, err := idParam(c, "categoryId", "category")
		if err != nil {
			sendError(c, err)
			return
		}
		category, err := categories.Delete(c.Request.Context(), id)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "category": category})
	})...)

	g.PUT("/:categoryId/update-image", guarded(guard, func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := idParam(c, "categoryId", "category")
		if err != nil {
			sendError(c, err)
			return
		}
		current, err := categories.Get(ctx, id)
		if err != nil {
			sendError(c, err)
			return
		}
		image, err := uploadImage(ctx, c, app.Media, media.PresetCategory, current.Name)
		if err != nil {
			sendError(c, err)
			return
		}
		category, err := categories.UpdateImage(ctx, id, image)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "category": category})
	})...)

	g.DELETE("/:categoryId/delete-image", guarded(guard, func(c *gin.Context) {
		id, err := idParam(c, "categoryId", "category")
		if err != nil {
			sendError(c, err)
			return
		}
		category, err := categories.RemoveImage(c.Request.Context(), id)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "category": category})
	})...)

	toggle := func(enabled bool) gin.HandlerFunc {
		return func(c *gin.Context) {
			id, err := idParam(c, "categoryId", "category")
			if err != nil {
				sendError(c, err)
				return
			}
			category, changed, err := categories.SetEnabled(c.Request.Context(), id, enabled)
			if err != nil {
				sendError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true, "category": category, "changed": changed})
		}
	}
	g.PUT("/:categoryId/enabled", guarded(guard, toggle(true))...)
	g.PUT("/:categoryId/disabled", guarded(guard, toggle(false))...)
}
