package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Zuniga63/digital-menu-api/apperr"
	"github.com/Zuniga63/digital-menu-api/auth"
	"github.com/Zuniga63/digital-menu-api/models"
)

func SetupRouter(app *App) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(apperr.JSONFieldName)
	}

	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	api := r.Group(app.Config.APIPrefix)

	// Health check endpoint
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Write routes need an editor or an administrator.
	editors := []gin.HandlerFunc{
		app.Authenticator.Middleware(),
		auth.RequireRole(models.RoleAdmin, models.RoleEditor),
	}

	registerAuthRoutes(api.Group("/auth"), app)
	registerOptionSetRoutes(api.Group("/option-sets"), editors, app)
	registerProductRoutes(api.Group("/products"), editors, app)
	registerCategoryRoutes(api.Group("/product-categories"), editors, app)

	// Public menu: enabled categories with their published products
	api.GET("/home", func(c *gin.Context) {
		categories, err := app.Categories.Home(c.Request.Context())
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "categories": categories})
	})

	return r
}

// guarded prepends the guard chain to handler.
func guarded(guard []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(guard)+1)
	chain = append(chain, guard...)
	return append(chain, handler)
}

func registerAuthRoutes(g *gin.RouterGroup, app *App) {
	g.POST("/local/signup", func(c *gin.Context) {
		var in auth.SignUpInput
		if err := c.ShouldBindJSON(&in); err != nil {
			sendError(c, bindError(err))
			return
		}
		token, _, err := app.Auth.SignUp(c.Request.Context(), in)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true, "token": token})
	})

	g.POST("/local/signin", func(c *gin.Context) {
		var in auth.SignInInput
		if err := c.ShouldBindJSON(&in); err != nil {
			sendError(c, bindError(err))
			return
		}
		token, _, err := app.Auth.SignIn(c.Request.Context(), in)
		if err != nil {
			sendError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "token": token})
	})
}
