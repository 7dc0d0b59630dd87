package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/Zuniga63/digital-menu-api/models"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the contents of a signed API token.
type Claims struct {
	jwt.Claims
	Name string      `json:"name,omitempty"`
	Role models.Role `json:"role"`
}

// UserID parses the numeric subject.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token subject %q: %w", c.Subject, ErrInvalidToken)
	}
	return uint(id), nil
}

// Tokens issues and verifies HS256 tokens.
type Tokens struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokens derives the signing key from secret, so secrets of any length
// satisfy the HS256 key size.
func NewTokens(secret string, ttl time.Duration, issuer string) *Tokens {
	sum := sha256.Sum256([]byte(secret))
	return &Tokens{key: sum[:], ttl: ttl, issuer: issuer, now: time.Now}
}

func (t *Tokens) Issue(user *models.User) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: t.key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}

	now := t.now()
	claims := Claims{
		Claims: jwt.Claims{
			Issuer:    t.issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Expiry:    jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Name: user.Name,
		Role: user.Role,
	}
	raw, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return raw, nil
}

func (t *Tokens) Parse(raw string) (*Claims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := tok.Claims(t.key, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	err = claims.ValidateWithLeeway(jwt.Expected{Issuer: t.issuer, Time: t.now()}, time.Minute)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
