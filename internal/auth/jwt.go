package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/actuallystonmai/booklist-service/internal/domain"
)

// Claims carried by viewer access tokens. The session id is the token's jti.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 viewer tokens.
type Manager struct {
	secret []byte
	now    func() time.Time
}

func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for viewer. Token issuance belongs to the account
// service; this is used by tooling and tests.
func (m *Manager) Issue(viewer domain.ViewerID, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: int64(viewer),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses and validates a token.
func (m *Manager) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !parsed.Valid || claims.UserID <= 0 || claims.ID == "" {
		return nil, fmt.Errorf("%w: invalid claims", domain.ErrUnauthorized)
	}
	return claims, nil
}

// Remaining is how long the token stays valid.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

type ctxKey int

const (
	viewerKey ctxKey = iota
	tokenKey
	claimsKey
)

// WithViewer stores the authenticated viewer, its raw token and claims.
func WithViewer(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = context.WithValue(ctx, viewerKey, domain.ViewerID(claims.UserID))
	ctx = context.WithValue(ctx, claimsKey, claims)
	return context.WithValue(ctx, tokenKey, token)
}

func ViewerFromContext(ctx context.Context) (domain.ViewerID, bool) {
	v, ok := ctx.Value(viewerKey).(domain.ViewerID)
	return v, ok
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// TokenFromContext returns the bearer token of the current request, if any.
func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}
