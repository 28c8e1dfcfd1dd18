package welcome

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/ailabhub/tres-guard/internal/metrics"
	"github.com/ailabhub/tres-guard/internal/structs"
)

type Platform interface {
	BanMember(ctx context.Context, chatID, userID int64) error
	SendText(ctx context.Context, chatID int64, replyTo int, text string, markdown bool) (int, error)
}

type Gate struct {
	logger   *slog.Logger
	platform Platform
	selfID   int64
}

func New(logger *slog.Logger, platform Platform, selfID int64) *Gate {
	return &Gate{
		logger:   logger,
		platform: platform,
		selfID:   selfID,
	}
}

// Suspicious flags bot accounts, members without a username and usernames
// containing a digit.
func Suspicious(u structs.User) bool {
	if u.IsBot || u.UserName == "" {
		return true
	}
	return strings.IndexFunc(u.UserName, unicode.IsDigit) >= 0
}

func Message(u structs.User) string {
	return fmt.Sprintf("Welcome, %s!\nPlease read the group rules.", u.FullName())
}

// Handle greets or evicts each joining member and reports how many were evicted.
func (g *Gate) Handle(ctx context.Context, chatID int64, members []structs.User) int {
	evicted := 0
	for _, member := range members {
		if member.ID == g.selfID {
			continue
		}

		if Suspicious(member) {
			evicted++
			if err := g.platform.BanMember(ctx, chatID, member.ID); err != nil {
				g.logger.Debug("Failed to remove suspicious member", "error", err, "chatID", chatID, "userID", member.ID)
				continue
			}
			metrics.MembersEvicted.Inc()
			g.logger.Info("Removed suspicious member", "chatID", chatID, "userID", member.ID, "username", member.UserName, "isBot", member.IsBot)
			continue
		}

		if _, err := g.platform.SendText(ctx, chatID, 0, Message(member), false); err != nil {
			g.logger.Error("Failed to send welcome message", "error", err, "chatID", chatID, "userID", member.ID)
		}
	}
	return evicted
}
