package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zuniga63/digital-menu-api/catalog"
	"github.com/Zuniga63/digital-menu-api/media"
)

func registerOptionSetRoutes(g *gin.RouterGroup, guard []gin.HandlerFunc, app *App) {
	sets := app.OptionSets

	g.GET("", func(c *gin.Context) {
		list, err := sets.List(c.Request.Context())
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "optionSets": list})
	})

	// Create an option set with its items (JSON)
	g.POST("", guarded(guard, func(c *gin.Context) {
		var in catalog.OptionSetInput
		if err := c.ShouldBindJSON(&in); err != nil {
			sendError(c, bindError(err))
			return
		}
		set, err := sets.CreateSet(c.Request.Context(), in)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true, "optionSet": set, "message": "option set created"})
	})...)

	g.GET("/:setId", func(c *gin.Context) {
		id, err := idParam(c, "setId", "option set")
		if err != nil {
			sendError(c, err)
			return
		}
		set, err := sets.Get(c.Request.Context(), id)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "optionSet": set})
	})

	g.DELETE("/:setId", guarded(guard, func(c *gin.Context) {
		id, err := idParam(c, "setId", "option set")
		if err != nil {
			sendError(c, err)
			return
		}
		set, removed, err := sets.DeleteSet(c.Request.Context(), id)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "optionSet": set, "removedItems": removed})
	})...)

	g.PUT("/:setId/update-name", guarded(guard, func(c *gin.Context) {
		id, err := idParam(c, "setId", "option set")
		if err != nil {
			sendError(c, err)
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			sendError(c, bindError(err))
			return
		}
		set, err := sets.RenameSet(c.Request.Context(), id, req.Name)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "optionSet": set})
	})...)

	toggleSet := func(enabled bool) gin.HandlerFunc {
		return func(c *gin.Context) {
			id, err := idParam(c, "setId", "option set")
			if err != nil {
				sendError(c, err)
				return
			}
			set, changed, err := sets.SetEnabled(c.Request.Context(), id, enabled)
			if err != nil {
				sendError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true, "optionSet": set, "changed": changed})
		}
	}
	g.PUT("/:setId/enabled", guarded(guard, toggleSet(true))...)
	g.PUT("/:setId/disabled", guarded(guard, toggleSet(false))...)

	g.PUT("/:setId/sort-items", guarded(guard, func(c *gin.Context) {
		id, err := idParam(c, "setId", "option set")
		if err != nil {
			sendError(c, err)
			return
		}
		var req struct {
			ItemIDs []uint `json:"itemIds" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			sendError(c, bindError(err))
			return
		}
		set, err := sets.ReorderItems(c.Request.Context(), id, req.ItemIDs)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "optionSet": set})
	})...)

	g.GET("/:setId/items", func(c *gin.Context) {
		id, err := idParam(c, "setId", "option set")
		if err != nil {
			sendError(c, err)
			return
		}
		items, err := sets.ListItems(c.Request.Context(), id)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "optionItems": items})
	})

	// Add an item (multipart: name, isEnabled, image)
	g.POST("/:setId/items", guarded(guard, func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := idParam(c, "setId", "option set")
		if err != nil {
			sendError(c, err)
			return
		}
		in := catalog.ItemInput{Name: c.PostForm("name"), IsEnabled: formBoolPtr(c, "isEnabled")}
		image, err := uploadImage(ctx, c, app.Media, media.PresetOptionItem, in.Name)
		if err != nil {
			sendError(c, err)
			return
		}
		item, err := sets.AddItem(ctx, id, in, image)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true, "optionItem": item})
	})...)

	itemParams := func(c *gin.Context) (uint, uint, error) {
		setID, err := idParam(c, "setId", "option set")
		if err != nil {
			return 0, 0, err
		}
		itemID, err := idParam(c, "itemId", "option item")
		return setID, itemID, err
	}

	// Update an item (multipart: name, isEnabled, image)
	g.POST("/:setId/items/:itemId", guarded(guard, func(c *gin.Context) {
		ctx := c.Request.Context()
		setID, itemID, err := itemParams(c)
		if err != nil {
			sendError(c, err)
			return
		}
		var in catalog.ItemUpdate
		if name, ok := c.GetPostForm("name"); ok {
			in.Name = &name
		}
		in.IsEnabled = formBoolPtr(c, "isEnabled")
		image, err := uploadImage(ctx, c, app.Media, media.PresetOptionItem, c.PostForm("name"))
		if err != nil {
			sendError(c, err)
			return
		}
		item, err := sets.UpdateItem(ctx, setID, itemID, in, image)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "optionItem": item})
	})...)

	g.DELETE("/:setId/items/:itemId", guarded(guard, func(c *gin.Context) {
		setID, itemID, err := itemParams(c)
		if err != nil {
			sendError(c, err)
			return
		}
		item, err := sets.RemoveItem(c.Request.Context(), setID, itemID)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "optionItem": item})
	})...)

	toggleItem := func(enabled bool) gin.HandlerFunc {
		return func(c *gin.Context) {
			setID, itemID, err := itemParams(c)
			if err != nil {
				sendError(c, err)
				return
			}
			item, changed, err := sets.SetItemEnabled(c.Request.Context(), setID, itemID, enabled)
			if err != nil {
				sendError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true, "optionItem": item, "changed": changed})
		}
	}
	g.PUT("/:setId/items/:itemId/enabled", guarded(guard, toggleItem(true))...)
	g.PUT("/:setId/items/:itemId/disabled", guarded(guard, toggleItem(false))...)

	g.PUT("/:setId/items/:itemId/remove-image", guarded(guard, func(c *gin.Context) {
		setID, itemID, err := itemParams(c)
		if err != nil {
			sendError(c, err)
			return
		}
		item, err := sets.RemoveItemImage(c.Request.Context(), setID, itemID)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "optionItem": item})
	})...)
}
