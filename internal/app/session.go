// internal/app/session.go
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/tillhanna/lingon/internal/models"
)

const (
	timeFormat    = "2006-01-02 15:04:05"
	sessionKeyTpl = "session:%s" // session:${token}
	tokenPrefix   = "sk-lngn-"
)

// ErrUnauthenticated means the presented session token resolved to
// nothing: missing, unknown, or carrying an unrecognized role.
var ErrUnauthenticated = errors.New("session not recognized")

// SessionStore issues opaque tokens at login and resolves them back to an
// identity on every call. Sessions never expire; the legacy system has no
// expiry or revocation either, so callers should treat this as a known
// hardening gap rather than a guarantee.
type SessionStore interface {
	Create(ctx context.Context, ident models.Identity) (string, error)
	Resolve(ctx context.Context, token string) (*models.Identity, error)
	Close() error
}

// RedisSessions keeps sessions as redis hashes, one per token, with
// request-count bookkeeping on every resolution.
type RedisSessions struct {
	redis *redis.Client
}

func NewRedisSessions(redisURL string) (*RedisSessions, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSessions{redis: client}, nil
}

func generateToken() (string, error) {
	randomBytes := make([]byte, 12)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return tokenPrefix + hex.EncodeToString(randomBytes), nil
}

func (s *RedisSessions) Create(ctx context.Context, ident models.Identity) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}

	key := fmt.Sprintf(sessionKeyTpl, token)
	now := time.Now().UTC()

	err = s.redis.HSet(ctx, key, map[string]interface{}{
		"id":               ident.ID,
		"role":             string(ident.Role),
		"request_count":    0,
		"created_dttm_utc": now.Format(timeFormat),
	}).Err()
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return token, nil
}

func (s *RedisSessions) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	key := fmt.Sprintf(sessionKeyTpl, token)
	fields, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		logger.Debug.Printf("Session not found for key: %s", key)
		return nil, ErrUnauthenticated
	}

	role, err := models.ParseRole(fields["role"])
	if err != nil {
		logger.Debug.Printf("Session %s carries bad role: %v", key, err)
		return nil, ErrUnauthenticated
	}
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		logger.Debug.Printf("Session %s carries bad id: %v", key, err)
		return nil, ErrUnauthenticated
	}

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, "request_count", 1)
	pipe.HSet(ctx, key, "last_request_dttm_utc", time.Now().UTC().Format(timeFormat))
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Debug.Printf("Failed to update session stats for %s: %v", key, err)
	}

	return &models.Identity{ID: id, Role: role}, nil
}

func (s *RedisSessions) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
