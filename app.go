package main

import (
	"github.com/coreos/go-oidc/v3/oidc"
	"gorm.io/gorm"

	"github.com/Zuniga63/digital-menu-api/auth"
	"github.com/Zuniga63/digital-menu-api/catalog"
	"github.com/Zuniga63/digital-menu-api/config"
	"github.com/Zuniga63/digital-menu-api/mailer"
	"github.com/Zuniga63/digital-menu-api/media"
)

// App wires the services the HTTP layer needs around one database handle.
type App struct {
	Config config.Config
	DB     *gorm.DB
	Media  media.Store

	OptionSets    *catalog.OptionSetService
	Categories    *catalog.CategoryService
	Products      *catalog.ProductService
	Auth          *auth.Service
	Authenticator *auth.Authenticator
}

// NewApp builds the services. verifier may be nil, in which case only API
// tokens are accepted.
func NewApp(cfg config.Config, db *gorm.DB, store media.Store, verifier *oidc.IDTokenVerifier) *App {
	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL, cfg.AppName)
	users := auth.NewService(db, tokens, mailer.New(cfg.Mail, cfg.AppName))
	return &App{
		Config:        cfg,
		DB:            db,
		Media:         store,
		OptionSets:    catalog.NewOptionSetService(db, store),
		Categories:    catalog.NewCategoryService(db, store),
		Products:      catalog.NewProductService(db, store),
		Auth:          users,
		Authenticator: auth.NewAuthenticator(tokens, users, verifier),
	}
}
