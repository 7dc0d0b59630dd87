package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Zuniga63/digital-menu-api/auth"
	"github.com/Zuniga63/digital-menu-api/config"
	"github.com/Zuniga63/digital-menu-api/database"
	"github.com/Zuniga63/digital-menu-api/mailer"
	"github.com/Zuniga63/digital-menu-api/media"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string
	root := &cobra.Command{
		Use:           "digital-menu",
		Short:         "Administration API for a digital menu",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load (default .env)")

	load := func() (config.Config, error) {
		return config.Load(envFiles...)
	}
	root.AddCommand(newServeCmd(load), newMigrateCmd(load), newSeedCmd(load))
	return root
}

type loader func() (config.Config, error)

// openDatabase connects and migrates.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, err
	}
	return db, nil
}

// newMediaStore uses Cloudinary when credentials are configured and keeps
// assets in memory otherwise.
func newMediaStore(cfg config.Config) (media.Store, error) {
	if cfg.Media.Enabled() {
		cld, err := media.NewCloudinary(cfg.Media)
		if err != nil {
			return nil, err
		}
		return cld, nil
	}
	log.Printf("media: no cloudinary credentials, images are kept in memory")
	return media.NewMemory(), nil
}

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)

			store, err := newMediaStore(cfg)
			if err != nil {
				return err
			}

			var verifier *oidc.IDTokenVerifier
			if cfg.Auth.OIDCIssuer != "" {
				verifier, err = auth.NewOIDCVerifier(cmd.Context(), cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID)
				if err != nil {
					return err
				}
			}

			r := SetupRouter(NewApp(cfg, db, store, verifier))
			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(cmd.Context(), srv)
		},
	}
}

// serve runs srv until SIGINT or SIGTERM and then drains it.
func serve(ctx context.Context, srv *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMigrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)
			fmt.Fprintln(cmd.OutOrStdout(), "database migrated")
			return nil
		},
	}
}

func newSeedCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the administrator from ADMIN_NAME, ADMIN_EMAIL and ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)

			tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL, cfg.AppName)
			users := auth.NewService(db, tokens, mailer.New(cfg.Mail, cfg.AppName))
			user, created, err := users.EnsureAdmin(cmd.Context(), cfg.Admin)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "administrator %s created\n", user.Email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "administrator %s already exists\n", user.Email)
			}
			return nil
		},
	}
}
