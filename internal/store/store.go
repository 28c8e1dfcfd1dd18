// Package store keeps the moderation state shared by the command surface, the
// moderation pipeline and the janitor: per-chat flags and texts, mute records,
// report counters, custom keywords and tracked ephemeral messages.
package store

import (
	"context"
	"time"

	"github.com/ailabhub/tres-guard/internal/structs"
)

// Store must be safe for concurrent use: updates are handled by several
// goroutines at once and the janitor sweeps on its own ticker.
type Store interface {
	AdminOnly(ctx context.Context, chatID int64) (bool, error)
	SetAdminOnly(ctx context.Context, chatID int64, on bool) error

	Rules(ctx context.Context, chatID int64) (string, error)
	SetRules(ctx context.Context, chatID int64, rules string) error
	ChartLink(ctx context.Context, chatID int64) (string, error)
	SetChartLink(ctx context.Context, chatID int64, link string) error

	// MuteUntil returns the recorded expiry for a user. A record whose expiry is
	// not after now is inactive; callers compare, the store does not purge.
	MuteUntil(ctx context.Context, userID int64) (time.Time, bool, error)
	SetMute(ctx context.Context, userID int64, until time.Time) error

	IncrementReport(ctx context.Context, chatID int64, messageID int) (int, error)

	// AddKeyword reports whether the keyword was not yet present.
	AddKeyword(ctx context.Context, keyword string) (bool, error)
	// RemoveKeyword reports whether the keyword was present.
	RemoveKeyword(ctx context.Context, keyword string) (bool, error)
	CustomKeywords(ctx context.Context) ([]string, error)

	TrackEphemeral(ctx context.Context, msg structs.EphemeralMessage) error
	// EphemeralMessages returns a snapshot; entries tracked after the call are not included.
	EphemeralMessages(ctx context.Context) ([]structs.EphemeralMessage, error)
	ForgetEphemeral(ctx context.Context, chatID int64, messageID int) error

	Close() error
}

// IsMuted reports whether userID has a mute record that is still active at now.
func IsMuted(ctx context.Context, s Store, userID int64, now time.Time) (bool, error) {
	until, ok, err := s.MuteUntil(ctx, userID)
	if err != nil {
		return false, err
	}
	return ok && now.Before(until), nil
}

type messageKey struct {
	chatID    int64
	messageID int
}

var (
	_ Store = (*MemStore)(nil)
	_ Store = (*RedisStore)(nil)
)
