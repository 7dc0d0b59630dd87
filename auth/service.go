// Package auth registers and signs in users and guards the write routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Zuniga63/digital-menu-api/apperr"
	"github.com/Zuniga63/digital-menu-api/config"
	"github.com/Zuniga63/digital-menu-api/models"
)

const msgEmailTaken = "a user with this email is already registered"

// Notifier delivers the welcome mail.
type Notifier interface {
	SendWelcome(name, email string) error
}

type SignUpInput struct {
	Name     string `json:"name" validate:"required,min=3,max=90"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Service struct {
	db       *gorm.DB
	tokens   *Tokens
	mail     Notifier
	validate *validator.Validate
}

func NewService(db *gorm.DB, tokens *Tokens, mail Notifier) *Service {
	return &Service{db: db, tokens: tokens, mail: mail, validate: apperr.NewValidator()}
}

// strongPassword requires a lowercase letter, an uppercase letter, a digit and
// a symbol.
func strongPassword(p string) bool {
	var lower, upper, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

func (s *Service) checkSignUp(tx *gorm.DB, in SignUpInput) error {
	fields := apperr.Fields{}
	if err := s.validate.Struct(in); err != nil {
		var ve *apperr.ValidationError
		if !errors.As(apperr.FromValidator("", err), &ve) {
			return err
		}
		fields = ve.Fields
	}

	if _, bad := fields["password"]; !bad && !strongPassword(in.Password) {
		fields.Add("password", "the password is not strong enough")
	}
	if _, bad := fields["email"]; !bad {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", in.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			fields.Add("email", msgEmailTaken)
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("the user is invalid", fields)
	}
	return nil
}

func hashPassword(p string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) createUser(tx *gorm.DB, in SignUpInput, role models.Role) (*models.User, error) {
	if err := s.checkSignUp(tx, in); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{Name: in.Name, Email: in.Email, Password: hash, Role: role}
	if err := tx.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validation(msgEmailTaken, apperr.Fields{"email": msgEmailTaken})
		}
		return nil, err
	}
	return &user, nil
}

// SignUp registers a user and returns a token for it. The first user of the
// platform becomes its administrator.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (string, *models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return err
		}
		role := models.RoleUser
		if count == 0 {
			role = models.RoleAdmin
		}
		var err error
		user, err = s.createUser(tx, in, role)
		return err
	})
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	if s.mail != nil {
		if err := s.mail.SendWelcome(user.Name, user.Email); err != nil {
			log.Printf("auth: welcome mail for user %d: %v", user.ID, err)
		}
	}
	return token, user, nil
}

// SignIn checks the credentials. Unknown emails and wrong passwords fail the
// same way.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (string, *models.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return "", nil, apperr.FromValidator("the credentials are incomplete", err)
	}

	var user models.User
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperr.ErrInvalidSignIn
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return "", nil, apperr.ErrInvalidSignIn
	}

	token, err := s.tokens.Issue(&user)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// EnsureAdmin creates the configured administrator unless a user with that
// email exists. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, cfg config.Admin) (*models.User, bool, error) {
	if cfg.Email == "" || cfg.Password == "" {
		return nil, false, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}
	email := strings.ToLower(strings.TrimSpace(cfg.Email))

	var (
		user    *models.User
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("email = ?", email).First(&existing).Error
		if err == nil {
			user = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		user, err = s.createUser(tx, SignUpInput{Name: cfg.Name, Email: email, Password: cfg.Password}, models.RoleAdmin)
		created = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// UserByEmail backs the OIDC path, where the identity provider vouches for the
// email and the role comes from the local account.
func (s *Service) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
