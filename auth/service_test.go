package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Zuniga63/digital-menu-api/apperr"
	"github.com/Zuniga63/digital-menu-api/config"
	"github.com/Zuniga63/digital-menu-api/database"
	"github.com/Zuniga63/digital-menu-api/models"
)

type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) SendWelcome(name, email string) error {
	m.sent = append(m.sent, email)
	return m.err
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(config.Database{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newTestService(t *testing.T) (*Service, *recordingMailer) {
	t.Helper()
	mail := &recordingMailer{}
	return NewService(newTestDB(t), NewTokens("test", time.Hour, "digital-menu"), mail), mail
}

const strongPass = "S3cret!pass"

func TestSignUpFirstUserIsAdmin(t *testing.T) {
	s, mail := newTestService(t)
	ctx := context.Background()

	token, first, err := s.SignUp(ctx, SignUpInput{Name: "Ana", Email: " Ana@Example.com ", Password: strongPass})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, models.RoleAdmin, first.Role)
	assert.Equal(t, "ana@example.com", first.Email)
	assert.NotEqual(t, strongPass, first.Password)

	_, second, err := s.SignUp(ctx, SignUpInput{Name: "Luis", Email: "luis@example.com", Password: strongPass})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, second.Role)

	assert.Equal(t, []string{"ana@example.com", "luis@example.com"}, mail.sent)
}

func TestSignUpValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	_, _, err := s.SignUp(ctx, SignUpInput{Name: "Ana", Email: "ana@example.com", Password: strongPass})
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    SignUpInput
		field string
	}{
		{"short name", SignUpInput{Name: "Al", Email: "al@example.com", Password: strongPass}, "name"},
		{"bad email", SignUpInput{Name: "Alba", Email: "alba", Password: strongPass}, "email"},
		{"taken email", SignUpInput{Name: "Alba", Email: "ANA@example.com", Password: strongPass}, "email"},
		{"short password", SignUpInput{Name: "Alba", Email: "alba@example.com", Password: "S3!a"}, "password"},
		{"weak password", SignUpInput{Name: "Alba", Email: "alba@example.com", Password: "password123"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.SignUp(ctx, tt.in)
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestSignUpSurvivesMailFailure(t *testing.T) {
	s, mail := newTestService(t)
	mail.err = errors.New("smtp down")

	token, _, err := s.SignUp(context.Background(), SignUpInput{Name: "Ana", Email: "ana@example.com", Password: strongPass})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestSignIn(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	_, user, err := s.SignUp(ctx, SignUpInput{Name: "Ana", Email: "ana@example.com", Password: strongPass})
	require.NoError(t, err)

	token, got, err := s.SignIn(ctx, SignInInput{Email: "ana@example.com", Password: strongPass})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	claims, err := s.tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, _, err = s.SignIn(ctx, SignInInput{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrInvalidSignIn)
	_, _, err = s.SignIn(ctx, SignInInput{Email: "nobody@example.com", Password: strongPass})
	assert.ErrorIs(t, err, apperr.ErrInvalidSignIn)
	_, _, err = s.SignIn(ctx, SignInInput{Email: "ana@example.com"})
	assert.True(t, apperr.IsValidation(err))
}

func TestEnsureAdmin(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cfg := config.Admin{Name: "Administrator", Email: "admin@example.com", Password: strongPass}

	user, created, err := s.EnsureAdmin(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleAdmin, user.Role)

	again, created, err := s.EnsureAdmin(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)

	_, _, err = s.EnsureAdmin(ctx, config.Admin{})
	assert.Error(t, err)
}
