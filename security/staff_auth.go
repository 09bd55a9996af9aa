package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"waitlist/utils"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("staff: invalid credentials")

const staffTokenPrefix = "staff:token:"

// StaffAuth issues opaque bearer tokens to staff after a shared password
// check. Tokens live in Redis until their TTL runs out or they are revoked.
type StaffAuth struct {
	redis *redis.Client
	hash  []byte
	ttl   time.Duration
}

// NewStaffAuth prefers a bcrypt hash and falls back to hashing a plain
// password once at startup. With neither set every login fails.
func NewStaffAuth(redisClient *redis.Client, passwordHash, password string, ttl time.Duration) (*StaffAuth, error) {
	a := &StaffAuth{redis: redisClient, ttl: ttl}

	switch {
	case passwordHash != "":
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("staff password hash: %w", err)
		}
		a.hash = []byte(passwordHash)
	case password != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		a.hash = hash
	default:
		slog.Warn("no staff password configured, staff login is disabled")
	}

	return a, nil
}

type StaffSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *StaffAuth) Login(ctx context.Context, password string) (StaffSession, error) {
	if a.hash == nil {
		return StaffSession{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return StaffSession{}, ErrInvalidCredentials
	}

	token, err := utils.GenerateCode(32)
	if err != nil {
		return StaffSession{}, err
	}

	if err := a.redis.Set(ctx, staffTokenPrefix+token, time.Now().Unix(), a.ttl).Err(); err != nil {
		return StaffSession{}, fmt.Errorf("failed to store staff token: %w", err)
	}

	return StaffSession{Token: token, ExpiresAt: time.Now().Add(a.ttl)}, nil
}

func (a *StaffAuth) Logout(ctx context.Context, token string) error {
	return a.redis.Del(ctx, staffTokenPrefix+token).Err()
}

func (a *StaffAuth) Valid(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	n, err := a.redis.Exists(ctx, staffTokenPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RequireStaff rejects requests without a live staff bearer token.
func (a *StaffAuth) RequireStaff() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		token := BearerToken(e.Request.Header.Get("Authorization"))

		ok, err := a.Valid(e.Request.Context(), token)
		if err != nil {
			slog.Error("a.Valid()", "error", err)
			return apis.NewInternalServerError("Failed to verify staff token", nil)
		}
		if !ok {
			return apis.NewUnauthorizedError("Staff authorization required", nil)
		}
		return e.Next()
	}
}

// RequestToken takes the bearer token from the Authorization header, or from
// the token query parameter for clients that cannot set headers.
func RequestToken(r *http.Request) string {
	if token := BearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
