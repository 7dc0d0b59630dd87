package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"

	"github.com/Zuniga63/digital-menu-api/models"
)

const principalKey = "auth.principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uint        `json:"id"`
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
}

// NewOIDCVerifier discovers the provider at issuer and verifies ID tokens
// issued for clientID.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*oidc.IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider %s: %w", issuer, err)
	}
	return provider.Verifier(&oidc.Config{ClientID: clientID}), nil
}

// Authenticator accepts API tokens and, when a verifier is configured, ID
// tokens from the identity provider for emails with a local account.
type Authenticator struct {
	tokens   *Tokens
	users    *Service
	verifier *oidc.IDTokenVerifier
}

func NewAuthenticator(tokens *Tokens, users *Service, verifier *oidc.IDTokenVerifier) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, verifier: verifier}
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "message": msg})
}

func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			abort(c, http.StatusUnauthorized, "missing or invalid authorization header")
			return
		}
		token := strings.TrimPrefix(authHeader, prefix)
		p, err := a.authenticate(c.Request.Context(), token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func (a *Authenticator) authenticate(ctx context.Context, raw string) (*Principal, error) {
	claims, err := a.tokens.Parse(raw)
	if err == nil {
		id, err := claims.UserID()
		if err != nil {
			return nil, err
		}
		return &Principal{UserID: id, Name: claims.Name, Role: claims.Role}, nil
	}
	if a.verifier == nil || a.users == nil {
		return nil, err
	}

	idToken, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var identity struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&identity); err != nil || identity.Email == "" {
		return nil, ErrInvalidToken
	}
	user, err := a.users.UserByEmail(ctx, identity.Email)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Principal{UserID: user.ID, Name: user.Name, Role: user.Role}, nil
}

// RequireRole lets the request through when the caller has one of roles. It
// must run after Middleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentUser(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "you are not allowed to perform this action")
	}
}

func CurrentUser(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}
