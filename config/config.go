package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	Port      string
	AppName   string
	APIPrefix string

	Database Database
	Auth     Auth
	Media    Media
	Mail     Mail
	Admin    Admin
}

type Database struct {
	Driver string // "postgres" or "sqlite"
	DSN    string
	Debug  bool
}

type Auth struct {
	Secret       string
	TokenTTL     time.Duration
	OIDCIssuer   string
	OIDCClientID string
}

type Media struct {
	CloudinaryURL string
	CloudName     string
	APIKey        string
	APISecret     string
}

// Enabled reports whether Cloudinary credentials were provided.
func (m Media) Enabled() bool {
	return m.CloudinaryURL != "" || (m.CloudName != "" && m.APIKey != "" && m.APISecret != "")
}

type Mail struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

type Admin struct {
	Name     string
	Email    string
	Password string
}

// Load reads the given .env files (".env" when none is given) and builds the
// configuration from the environment. Missing files are not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	ttl, err := time.ParseDuration(getenv("TOKEN_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	debug, _ := strconv.ParseBool(os.Getenv("DB_DEBUG"))

	cfg := Config{
		Env:       getenv("APP_ENV", "local"),
		Port:      getenv("PORT", getenv("APP_PORT", "8080")),
		AppName:   getenv("APP_NAME", "Digital Menu"),
		APIPrefix: getenv("API_PREFIX", "/api"),
		Database: Database{
			Driver: getenv("DB_DRIVER", "postgres"),
			DSN:    databaseDSN(),
			Debug:  debug,
		},
		Auth: Auth{
			Secret:       os.Getenv("JWT_SECRET_KEY"),
			TokenTTL:     ttl,
			OIDCIssuer:   os.Getenv("OIDC_ISSUER"),
			OIDCClientID: os.Getenv("OIDC_CLIENT_ID"),
		},
		Media: Media{
			CloudinaryURL: os.Getenv("CLOUDINARY_URL"),
			CloudName:     os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:        os.Getenv("CLOUDINARY_API_KEY"),
			APISecret:     os.Getenv("CLOUDINARY_API_SECRET"),
		},
		Mail: Mail{
			Host:     os.Getenv("MAIL_HOST"),
			Port:     getenv("MAIL_PORT", "587"),
			User:     os.Getenv("MAIL_USER"),
			Password: os.Getenv("MAIL_PASSWORD"),
			From:     getenv("MAIL_FROM", os.Getenv("MAIL_USER")),
		},
		Admin: Admin{
			Name:     getenv("ADMIN_NAME", "Administrator"),
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}

	if cfg.Auth.Secret == "" {
		if cfg.Env != "local" && cfg.Env != "test" {
			return Config{}, errors.New("JWT_SECRET_KEY is required outside local environments")
		}
		cfg.Auth.Secret = "local-development-secret"
	}
	return cfg, nil
}

// databaseDSN prefers DATABASE_URL and otherwise assembles a postgres DSN from
// the DB_* variables.
func databaseDSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		getenv("DB_HOST", "localhost"),
		getenv("DB_USER", "postgres"),
		getenv("DB_PASSWORD", "postgres"),
		getenv("DB_NAME", "digital_menu"),
		getenv("DB_PORT", "5432"),
		getenv("DB_SSLMODE", "disable"),
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
