package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ailabhub/tres-guard/internal/telegram"
)

type StatusLookup interface {
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
}

type roleKey struct {
	chatID int64
	userID int64
}

// RoleCache answers "is this user an admin of this chat" and remembers the
// answer for a short while so busy chats do not hit getChatMember per message.
type RoleCache struct {
	lookup StatusLookup
	logger *slog.Logger
	roles  *expirable.LRU[roleKey, bool]
}

// NewRoleCache returns a cache holding up to capacity answers for ttl. A zero
// ttl disables caching and every call goes to the platform.
func NewRoleCache(logger *slog.Logger, lookup StatusLookup, capacity int, ttl time.Duration) *RoleCache {
	c := &RoleCache{
		lookup: lookup,
		logger: logger,
	}
	if ttl > 0 {
		c.roles = expirable.NewLRU[roleKey, bool](capacity, nil, ttl)
	}
	return c
}

// IsAdmin is fail-closed: if the lookup keeps failing the user is treated as
// a regular member and the failure is not cached.
func (c *RoleCache) IsAdmin(ctx context.Context, chatID, userID int64) bool {
	key := roleKey{chatID: chatID, userID: userID}
	if c.roles != nil {
		if isAdmin, ok := c.roles.Get(key); ok {
			return isAdmin
		}
	}

	var status string
	err := retry.Do(
		func() error {
			var err error
			status, err = c.lookup.MemberStatus(ctx, chatID, userID)
			if err != nil {
				return fmt.Errorf("lookup.MemberStatus: %w", err)
			}
			return nil
		},
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("Member status lookup failed, retrying", "attempt", n+1, "chatID", chatID, "userID", userID, "error", err)
		}),
		retry.Attempts(2),
		retry.Delay(100*time.Millisecond),
	)
	if err != nil {
		c.logger.Warn("Could not resolve member status, treating as non-admin", "chatID", chatID, "userID", userID, "error", err)
		return false
	}

	isAdmin := telegram.IsAdminStatus(status)
	if c.roles != nil {
		c.roles.Add(key, isAdmin)
	}
	return isAdmin
}

// Forget drops a cached answer, e.g. after the user was banned.
func (c *RoleCache) Forget(chatID, userID int64) {
	if c.roles != nil {
		c.roles.Remove(roleKey{chatID: chatID, userID: userID})
	}
}
