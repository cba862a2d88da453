// Package redis stores password reset tokens in Redis with a TTL.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/repository"
)

const passwordResetPrefix = "password_reset:"

var _ repository.ResetTokenRepository = (*ResetTokens)(nil)

// ResetTokens maps "password_reset:<token>" to a user id.
type ResetTokens struct {
	client *goredis.Client
}

func NewResetTokens(client *goredis.Client) *ResetTokens {
	return &ResetTokens{client: client}
}

// Connect builds a client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return client, nil
}

func (r *ResetTokens) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, passwordResetPrefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis: saving reset token: %w", err)
	}
	return nil
}

func (r *ResetTokens) Lookup(ctx context.Context, token string) (string, error) {
	userID, err := r.client.Get(ctx, passwordResetPrefix+token).Result()
	if err != nil {
		return "", notFoundOr(err, "looking up reset token")
	}
	return userID, nil
}

// Consume uses GETDEL so two concurrent confirmations cannot both succeed.
func (r *ResetTokens) Consume(ctx context.Context, token string) (string, error) {
	userID, err := r.client.GetDel(ctx, passwordResetPrefix+token).Result()
	if err != nil {
		return "", notFoundOr(err, "consuming reset token")
	}
	return userID, nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, goredis.Nil) {
		return apperror.NotFound("reset token", "(redacted)")
	}
	return fmt.Errorf("redis: %s: %w", op, err)
}
