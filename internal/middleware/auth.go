// Package middleware provides authentication, logging, rate limiting and
// tracing middleware for the application.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wanderplan/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTokenRevoked is returned by Parse for a token whose jti was revoked, or
// that was issued to a user before their tokens were revoked wholesale.
var ErrTokenRevoked = errors.New("token has been revoked")

// ErrRevocationUnavailable is returned by RevokeUser without Redis.
var ErrRevocationUnavailable = errors.New("token revocation requires redis")

// Claims is the authenticated identity carried by a bearer token.
type Claims struct {
	UserID    uint
	Username  string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Tokens issues and verifies HS256 bearer tokens. Revocation lives in Redis
// under blacklist:<jti> until the token would have expired anyway. A user's
// whole token set is revoked by revoked_user:<id>, holding the unix second
// at or before which their tokens are no longer accepted.
type Tokens struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	rdb      *redis.Client
}

// NewTokens returns a token service. rdb may be nil, which disables revocation.
func NewTokens(secret, issuer, audience string, ttl time.Duration, rdb *redis.Client) *Tokens {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Tokens{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		rdb:      rdb,
	}
}

// Issue signs a token for the user.
func (t *Tokens) Issue(userID uint, username string) (string, *Claims, error) {
	if len(t.secret) == 0 {
		return "", nil, fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		JTI:       uuid.NewString(),
		IssuedAt:  time.Unix(now.Unix(), 0),
		ExpiresAt: now.Add(t.ttl),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      t.issuer,
		"aud":      t.audience,
		"exp":      claims.ExpiresAt.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      claims.JTI,
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse validates signature, expiry, issuer and audience, then checks revocation.
func (t *Tokens) Parse(ctx context.Context, raw string) (*Claims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, errors.New("invalid user id in token")
	}

	claims := &Claims{UserID: uint(userID)}
	claims.Username, _ = mc["username"].(string)
	claims.JTI, _ = mc["jti"].(string)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}

	if t.rdb == nil {
		return claims, nil
	}
	if claims.JTI != "" {
		n, err := t.rdb.Exists(ctx, revokedKey(claims.JTI)).Result()
		if err == nil && n > 0 {
			return nil, ErrTokenRevoked
		}
	}
	cutoff, err := t.rdb.Get(ctx, userRevokedKey(claims.UserID)).Int64()
	if err == nil && !claims.IssuedAt.After(time.Unix(cutoff, 0)) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// RevokeUser rejects every token issued to userID up to now. The marker
// outlives the longest token it can affect.
func (t *Tokens) RevokeUser(ctx context.Context, userID uint) error {
	if t.rdb == nil {
		return ErrRevocationUnavailable
	}
	return t.rdb.Set(ctx, userRevokedKey(userID), time.Now().Unix(), t.ttl).Err()
}

// Revoke blacklists the token's jti until its expiry.
func (t *Tokens) Revoke(ctx context.Context, claims *Claims) error {
	if t.rdb == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return t.rdb.Set(ctx, revokedKey(claims.JTI), claims.UserID, ttl).Err()
}

func revokedKey(jti string) string {
	return "blacklist:" + jti
}

func userRevokedKey(userID uint) string {
	return "revoked_user:" + strconv.FormatUint(uint64(userID), 10)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthRequired rejects requests without a valid bearer token. WebSocket
// upgrades may pass the token as ?token= since browsers cannot set headers.
func AuthRequired(tokens *Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := BearerToken(c)
		if raw == "" && strings.HasPrefix(c.Path(), "/api/ws") {
			raw = c.Query("token")
		}
		if raw == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := tokens.Parse(c.UserContext(), raw)
		if errors.Is(err, ErrTokenRevoked) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		c.Locals("userID", claims.UserID)
		c.Locals("claims", claims)
		c.SetUserContext(WithUserID(c.UserContext(), claims.UserID))
		return c.Next()
	}
}

// OptionalUserID returns the caller's id when a valid token is present.
func OptionalUserID(c *fiber.Ctx, tokens *Tokens) (uint, bool) {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid, true
	}
	raw := BearerToken(c)
	if raw == "" {
		return 0, false
	}
	claims, err := tokens.Parse(c.UserContext(), raw)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}
