package moderation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ailabhub/tres-guard/internal/filter"
	"github.com/ailabhub/tres-guard/internal/metrics"
	"github.com/ailabhub/tres-guard/internal/store"
	"github.com/ailabhub/tres-guard/internal/structs"
)

type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictAdminOnly
	VerdictMuted
	VerdictKeyword
	VerdictEphemeral
)

func (v Verdict) String() string {
	switch v {
	case VerdictAdminOnly:
		return "admin_only"
	case VerdictMuted:
		return "muted"
	case VerdictKeyword:
		return "keyword"
	case VerdictEphemeral:
		return "ephemeral"
	default:
		return "allow"
	}
}

// Deletes reports whether the verdict ends with the message being deleted.
func (v Verdict) Deletes() bool {
	return v == VerdictAdminOnly || v == VerdictMuted || v == VerdictKeyword
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, chatID, userID int64) bool
}

type MessageDeleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

type Pipeline struct {
	logger        *slog.Logger
	store         store.Store
	filter        *filter.Filter
	admins        AdminChecker
	deleter       MessageDeleter
	chartTriggers []string
}

func New(logger *slog.Logger, s store.Store, f *filter.Filter, admins AdminChecker, deleter MessageDeleter, chartTriggers []string) *Pipeline {
	triggers := make([]string, 0, len(chartTriggers))
	for _, t := range chartTriggers {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			triggers = append(triggers, t)
		}
	}
	return &Pipeline{
		logger:        logger,
		store:         s,
		filter:        f,
		admins:        admins,
		deleter:       deleter,
		chartTriggers: triggers,
	}
}

// Evaluate decides what to do with a message without acting on it. Rules are
// checked in order and the first hit wins: admin-only mode, active mute,
// filtered keyword, chart trigger. Store errors are logged and the rule is
// skipped so a storage outage never silences a chat.
func (p *Pipeline) Evaluate(ctx context.Context, msg *structs.Message, now time.Time) Verdict {
	adminOnly, err := p.store.AdminOnly(ctx, msg.ChatID)
	if err != nil {
		p.logger.Error("Failed to read admin-only mode", "error", err, "chatID", msg.ChatID)
	}
	if adminOnly && !p.admins.IsAdmin(ctx, msg.ChatID, msg.From.ID) {
		return VerdictAdminOnly
	}

	muted, err := store.IsMuted(ctx, p.store, msg.From.ID, now)
	if err != nil {
		p.logger.Error("Failed to read mute record", "error", err, "userID", msg.From.ID)
	}
	if muted {
		return VerdictMuted
	}

	hit, err := p.filter.Check(ctx, msg.Text)
	if err != nil {
		p.logger.Error("Failed to check custom keywords", "error", err, "chatID", msg.ChatID)
	}
	if hit {
		return VerdictKeyword
	}

	if filter.Matches(msg.Text, p.chartTriggers) {
		return VerdictEphemeral
	}

	return VerdictAllow
}

// Handle evaluates msg and applies the verdict: at most one delete or one
// ephemeral record. Delete failures are logged and otherwise ignored.
func (p *Pipeline) Handle(ctx context.Context, msg *structs.Message, now time.Time) Verdict {
	verdict := p.Evaluate(ctx, msg, now)

	switch {
	case verdict.Deletes():
		err := p.deleter.DeleteMessage(ctx, msg.ChatID, msg.MessageID)
		if err != nil {
			p.logger.Debug("Failed to delete message", "error", err, "chatID", msg.ChatID, "messageID", msg.MessageID, "reason", verdict.String())
			break
		}
		metrics.MessagesDeleted.WithLabelValues(verdict.String()).Inc()
		p.logger.Info("Deleted message", "chatID", msg.ChatID, "messageID", msg.MessageID, "userID", msg.From.ID, "reason", verdict.String())
	case verdict == VerdictEphemeral:
		err := p.store.TrackEphemeral(ctx, structs.EphemeralMessage{
			ChatID:    msg.ChatID,
			MessageID: msg.MessageID,
			CreatedAt: now,
		})
		if err != nil {
			p.logger.Error("Failed to track chart message", "error", err, "chatID", msg.ChatID, "messageID", msg.MessageID)
			break
		}
		metrics.EphemeralTracked.Inc()
		p.logger.Debug("Tracking chart message", "chatID", msg.ChatID, "messageID", msg.MessageID)
	}

	return verdict
}
