package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-accounts-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Token classes. Access tokens are short-lived request credentials; refresh
// tokens are long-lived and exchange for new access tokens.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claim names in the signed payload.
const (
	claimIssuedAt  = "iat"
	claimExpiresAt = "exp"
	claimTokenKey  = "token"
	claimEmail     = "email"
	claimType      = "type"
	claimUserID    = "user_id"
	claimIsStaff   = "is_staff"
)

type userResolver interface {
	GetActiveByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Engine signs and verifies HS256 JWTs bound to a user's rotating token key.
// Rotating the key invalidates every outstanding token for that user without
// any blocklist.
type Engine struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	users      userResolver
	now        func() time.Time
}

func NewEngine(secret []byte, accessTTL, refreshTTL time.Duration, users userResolver) *Engine {
	return &Engine{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		users:      users,
		now:        time.Now,
	}
}

// CreateAccessToken issues a short-lived access token for u. Extra claims
// are merged last and may override any base claim, including token and
// email — callers own that risk.
func (e *Engine) CreateAccessToken(u *domain.User, extra map[string]interface{}) (string, error) {
	return e.create(u, TypeAccess, e.accessTTL, extra)
}

// CreateRefreshToken issues a long-lived refresh token for u.
func (e *Engine) CreateRefreshToken(u *domain.User, extra map[string]interface{}) (string, error) {
	return e.create(u, TypeRefresh, e.refreshTTL, extra)
}

func (e *Engine) create(u *domain.User, tokenType string, ttl time.Duration, extra map[string]interface{}) (string, error) {
	now := e.now().UTC()
	claims := jwt.MapClaims{
		claimIssuedAt:  now.Unix(),
		claimExpiresAt: now.Add(ttl).Unix(),
		claimTokenKey:  u.TokenKey,
		claimEmail:     u.Email,
		claimType:      tokenType,
		claimUserID:    u.UserID,
		claimIsStaff:   u.IsStaff,
	}
	for k, v := range extra {
		claims[k] = v
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry and returns the claims. Every failure
// wraps domain.ErrInvalidToken so callers cannot distinguish an expired token
// from a forged one.
//
// Expiry is checked by hand rather than by the library validator: a token is
// expired only when now is strictly past exp, so a token presented at exactly
// its expiry second is still valid. The library default rejects that second.
func (e *Engine) Decode(tokenStr string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return e.secret, nil
	}, jwt.WithoutClaimsValidation())
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, fmt.Errorf("error decoding signature: %w", domain.ErrInvalidToken)
	default:
		return nil, fmt.Errorf("%w", domain.ErrInvalidToken)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w", domain.ErrInvalidToken)
	}
	if e.now().Unix() > exp.Unix() {
		return nil, fmt.Errorf("signature has expired: %w", domain.ErrInvalidToken)
	}
	return claims, nil
}

// ResolveUser maps verified claims back to the active user they were issued
// for. The embedded token key must equal the user's current one; a rotated
// key invalidates the token regardless of signature validity.
func (e *Engine) ResolveUser(ctx context.Context, claims jwt.MapClaims) (*domain.User, error) {
	email, _ := claims[claimEmail].(string)
	tokenKey, _ := claims[claimTokenKey].(string)
	if email == "" || tokenKey == "" {
		return nil, domain.ErrInvalidToken
	}
	u, err := e.users.GetActiveByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	if u.TokenKey != tokenKey {
		return nil, domain.ErrInvalidToken
	}
	return u, nil
}

// Verify decodes tokenStr, enforces the expected token type and resolves the
// user. A refresh token is never accepted where an access token is expected,
// and vice versa.
func (e *Engine) Verify(ctx context.Context, tokenStr, wantType string) (*domain.User, error) {
	claims, err := e.Decode(tokenStr)
	if err != nil {
		return nil, err
	}
	if tokenType, _ := claims[claimType].(string); tokenType != wantType {
		return nil, fmt.Errorf("wrong token type: %w", domain.ErrInvalidToken)
	}
	return e.ResolveUser(ctx, claims)
}
