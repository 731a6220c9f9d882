package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"csrgive.com/app/internal/modules/users"
	"csrgive.com/app/internal/shared/apperr"
)

const ctxKeyUser = "current_user"

type UserLoader interface {
	Get(ctx context.Context, id uint) (users.User, error)
}

var errInvalidToken = errors.New("invalid token")

// ParseToken verifies an HS256 token and returns its subject as a user id.
func ParseToken(secret []byte, raw string) (uint, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return 0, errInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidToken
	}
	return uint(id), nil
}

// IssueToken signs a token for userID. Used by csrctl and tests; the API
// itself does not issue tokens.
func IssueToken(secret []byte, userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Authenticate resolves "Authorization: Bearer <jwt>" to a user. Requests
// without the header pass through anonymous; a bad token is rejected.
func Authenticate(secret []byte, loader UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			Fail(c, apperr.UnauthorizedErr("Invalid authorization header."))
			return
		}
		id, err := ParseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			Fail(c, apperr.UnauthorizedErr("Invalid or expired token."))
			return
		}

		u, err := loader.Get(c.Request.Context(), id)
		if errors.Is(err, users.ErrNotFound) {
			Fail(c, apperr.UnauthorizedErr("Invalid or expired token."))
			return
		}
		if err != nil {
			Fail(c, apperr.Wrap(err))
			return
		}

		c.Set(ctxKeyUser, u)
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (users.User, bool) {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return users.User{}, false
	}
	u, ok := v.(users.User)
	return u, ok
}
