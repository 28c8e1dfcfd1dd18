// Package commands implements the slash commands admins and members use to
// configure and drive the guard.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ailabhub/tres-guard/internal/consts"
	"github.com/ailabhub/tres-guard/internal/filter"
	"github.com/ailabhub/tres-guard/internal/metrics"
	"github.com/ailabhub/tres-guard/internal/store"
	"github.com/ailabhub/tres-guard/internal/structs"
)

var (
	ErrNoReplyTarget   = errors.New("command must reply to a user's message")
	ErrInvalidDuration = errors.New("duration must be a positive number of seconds")
)

type Platform interface {
	SendText(ctx context.Context, chatID int64, replyTo int, text string, markdown bool) (int, error)
	RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error
	BanMember(ctx context.Context, chatID, userID int64) error
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, chatID, userID int64) bool
	Forget(chatID, userID int64)
}

type Request struct {
	Message *structs.Message
	Command consts.Command
	Args    []string
	// Raw is the argument text as typed, line breaks included.
	Raw     string
	Now     time.Time
}

func NewRequest(msg *structs.Message, name, rawArgs string, now time.Time) *Request {
	return &Request{
		Message: msg,
		Command: consts.Command(strings.ToLower(name)),
		Args:    strings.Fields(rawArgs),
		Raw:     strings.TrimSpace(rawArgs),
		Now:     now,
	}
}

// Text is the free-text argument used by /setrules and /setchart.
func (r *Request) Text() string {
	if r.Raw != "" {
		return r.Raw
	}
	return strings.Join(r.Args, " ")
}

// Target returns the author of the message the command replies to.
func (r *Request) Target() (structs.User, error) {
	if r.Message.ReplyTo == nil || r.Message.ReplyTo.From.ID == 0 {
		return structs.User{}, ErrNoReplyTarget
	}
	return r.Message.ReplyTo.From, nil
}

type reply struct {
	text      string
	markdown  bool
	// ephemeral replies are removed by the janitor together with the command
	ephemeral bool
}

func text(s string) reply {
	return reply{text: s}
}

type command struct {
	// rejection is sent to non-admins; empty means the command is open to everyone
	rejection string
	run       func(ctx context.Context, r *Request) reply
}

type Handler struct {
	logger   *slog.Logger
	store    store.Store
	filter   *filter.Filter
	admins   AdminChecker
	platform Platform
	commands map[consts.Command]command
}

func New(logger *slog.Logger, s store.Store, f *filter.Filter, admins AdminChecker, platform Platform) *Handler {
	h := &Handler{
		logger:   logger,
		store:    s,
		filter:   f,
		admins:   admins,
		platform: platform,
	}
	h.commands = map[consts.Command]command{
		consts.CommandStart:        {run: h.start},
		consts.CommandHelp:         {run: h.help},
		consts.CommandCommands:     {run: h.list},
		consts.CommandFilter:       {rejection: "Only admins can add filters.", run: h.addFilter},
		consts.CommandFilters:      {run: h.showFilters},
		consts.CommandRemoveFilter: {rejection: "Only admins can remove filters.", run: h.removeFilter},
		consts.CommandAdminMode:    {rejection: "Only admins can toggle admin mode.", run: h.adminMode},
		consts.CommandMute:         {rejection: "Only admins can mute users.", run: h.mute},
		consts.CommandBan:          {rejection: "Only admins can ban users.", run: h.ban},
		consts.CommandReport:       {run: h.report},
		consts.CommandSetChart:     {rejection: "Only admins can set the chart link.", run: h.setChart},
		consts.CommandChart:        {run: h.showChart},
		consts.CommandSetRules:     {rejection: "Only admins can set the rules.", run: h.setRules},
		consts.CommandRules:        {run: h.showRules},
	}
	return h
}

// Known reports whether name is a command this handler serves.
func (h *Handler) Known(name string) bool {
	_, ok := h.commands[consts.Command(strings.ToLower(name))]
	return ok
}

// Handle runs the command and sends its single reply. Unknown commands are
// ignored and reported as not handled.
func (h *Handler) Handle(ctx context.Context, r *Request) bool {
	cmd, ok := h.commands[r.Command]
	if !ok {
		return false
	}
	metrics.CommandsHandled.WithLabelValues(r.Command.String()).Inc()

	var out reply
	if cmd.rejection != "" && !h.admins.IsAdmin(ctx, r.Message.ChatID, r.Message.From.ID) {
		h.logger.Debug("Rejected command from non-admin", "command", r.Command, "chatID", r.Message.ChatID, "userID", r.Message.From.ID)
		out = text(cmd.rejection)
	} else {
		out = cmd.run(ctx, r)
	}

	if out.text == "" {
		return true
	}
	sentID, err := h.platform.SendText(ctx, r.Message.ChatID, r.Message.MessageID, out.text, out.markdown)
	if err != nil {
		h.logger.Error("Failed to send command reply", "error", err, "command", r.Command, "chatID", r.Message.ChatID)
	}
	if out.ephemeral {
		h.trackEphemeral(ctx, r, r.Message.MessageID)
		if err == nil {
			h.trackEphemeral(ctx, r, sentID)
		}
	}
	return true
}

func (h *Handler) trackEphemeral(ctx context.Context, r *Request, messageID int) {
	err := h.store.TrackEphemeral(ctx, structs.EphemeralMessage{
		ChatID:    r.Message.ChatID,
		MessageID: messageID,
		CreatedAt: r.Now,
	})
	if err != nil {
		h.logger.Error("Failed to track chart message", "error", err, "chatID", r.Message.ChatID, "messageID", messageID)
		return
	}
	metrics.EphemeralTracked.Inc()
}

func (h *Handler) failed(r *Request, op string, err error) reply {
	h.logger.Error("Command failed", "command", r.Command, "op", op, "error", err, "chatID", r.Message.ChatID)
	return text("Something went wrong, please try again later.")
}

func (h *Handler) start(_ context.Context, _ *Request) reply {
	return text(consts.BotName + " is active and watching your group.")
}

func (h *Handler) help(_ context.Context, _ *Request) reply {
	return reply{
		text: "*" + consts.BotName + " Help*\n\n" +
			"/start - Check bot status\n" +
			"/help - Show help message\n" +
			"/commands - List commands\n" +
			"/filter <word> - Add keyword to filter\n" +
			"/filters - Show filter list\n" +
			"/removefilter <word> - Remove keyword\n" +
			"/adminmode on/off - Only admins can chat\n" +
			"/mute <seconds> - Mute the user you reply to\n" +
			"/ban - Ban the user you reply to\n" +
			"/report - Report a message\n" +
			"/setchart <link> - Set chart URL\n" +
			"/chart - Show chart URL\n" +
			"/setrules <text> - Set group rules\n" +
			"/rules - Show rules",
		markdown: true,
	}
}

func (h *Handler) list(_ context.Context, _ *Request) reply {
	return text("/start /help /commands /filter /filters /removefilter /adminmode /mute /ban /report /setchart /chart /setrules /rules")
}

func (h *Handler) addFilter(ctx context.Context, r *Request) reply {
	if len(r.Args) == 0 {
		return text("Usage: /filter <word>")
	}
	word, added, err := h.filter.Add(ctx, strings.Join(r.Args, " "))
	if err != nil {
		return h.failed(r, "filter.Add", err)
	}
	if !added {
		return text(fmt.Sprintf("'%s' is already filtered.", word))
	}
	h.logger.Info("Added filter", "keyword", word, "chatID", r.Message.ChatID, "userID", r.Message.From.ID)
	return text(fmt.Sprintf("Added '%s' to filters.", word))
}

func (h *Handler) showFilters(ctx context.Context, r *Request) reply {
	keywords, err := h.filter.List(ctx)
	if err != nil {
		return h.failed(r, "filter.List", err)
	}
	return text("Current filters:\n" + strings.Join(keywords, "\n"))
}

func (h *Handler) removeFilter(ctx context.Context, r *Request) reply {
	if len(r.Args) == 0 {
		return text("Usage: /removefilter <word>")
	}
	word, removed, err := h.filter.Remove(ctx, strings.Join(r.Args, " "))
	if err != nil {
		return h.failed(r, "filter.Remove", err)
	}
	if !removed {
		return text(fmt.Sprintf("'%s' is not in custom filters.", word))
	}
	h.logger.Info("Removed filter", "keyword", word, "chatID", r.Message.ChatID, "userID", r.Message.From.ID)
	return text(fmt.Sprintf("Removed '%s' from filters.", word))
}

func (h *Handler) adminMode(ctx context.Context, r *Request) reply {
	on := len(r.Args) > 0 && strings.ToLower(r.Args[0]) == "on"
	if err := h.store.SetAdminOnly(ctx, r.Message.ChatID, on); err != nil {
		return h.failed(r, "store.SetAdminOnly", err)
	}
	h.logger.Info("Admin-only mode changed", "chatID", r.Message.ChatID, "on", on)
	if on {
		return text("Admin-only mode is now ON.")
	}
	return text("Admin-only mode is now OFF.")
}

// parseDuration reads the last argument, so both "/mute 60" and the older
// "/mute @user 60" form work.
func parseDuration(args []string) (time.Duration, error) {
	seconds, err := strconv.ParseInt(args[len(args)-1], 10, 64)
	if err != nil || seconds <= 0 || seconds > int64(consts.MaxMuteDuration/time.Second) {
		return 0, ErrInvalidDuration
	}
	return time.Duration(seconds) * time.Second, nil
}

func (h *Handler) mute(ctx context.Context, r *Request) reply {
	if len(r.Args) == 0 {
		return text("Usage: reply to a message with /mute <seconds>")
	}
	target, err := r.Target()
	if err != nil {
		return text("Usage: reply to a message with /mute <seconds>")
	}
	duration, err := parseDuration(r.Args)
	if err != nil {
		h.logger.Debug("Invalid mute duration", "args", r.Args, "error", err)
		return text("Could not mute user.")
	}

	until := r.Now.Add(duration)
	if err := h.store.SetMute(ctx, target.ID, until); err != nil {
		h.logger.Error("Failed to record mute", "error", err, "userID", target.ID)
		return text("Could not mute user.")
	}
	if err := h.platform.RestrictMember(ctx, r.Message.ChatID, target.ID, until); err != nil {
		h.logger.Warn("Failed to restrict member", "error", err, "chatID", r.Message.ChatID, "userID", target.ID)
		return text("Could not mute user.")
	}

	h.logger.Info("Muted user", "chatID", r.Message.ChatID, "userID", target.ID, "until", until)
	return text(fmt.Sprintf("Muted %s for %d seconds.", target.FirstName, int(duration.Seconds())))
}

func (h *Handler) ban(ctx context.Context, r *Request) reply {
	target, err := r.Target()
	if err != nil {
		return text("Usage: reply to a message with /ban")
	}
	if err := h.platform.BanMember(ctx, r.Message.ChatID, target.ID); err != nil {
		h.logger.Warn("Failed to ban member", "error", err, "chatID", r.Message.ChatID, "userID", target.ID)
		return text("Could not ban user.")
	}
	h.admins.Forget(r.Message.ChatID, target.ID)

	h.logger.Info("Banned user", "chatID", r.Message.ChatID, "userID", target.ID)
	return text(fmt.Sprintf("Banned %s.", target.FirstName))
}

// report counts reports per message. Nothing reads the counter back yet.
func (h *Handler) report(ctx context.Context, r *Request) reply {
	messageID := r.Message.MessageID
	if r.Message.ReplyTo != nil {
		messageID = r.Message.ReplyTo.MessageID
	}
	count, err := h.store.IncrementReport(ctx, r.Message.ChatID, messageID)
	if err != nil {
		return h.failed(r, "store.IncrementReport", err)
	}
	h.logger.Info("Message reported", "chatID", r.Message.ChatID, "messageID", messageID, "reports", count)
	return text("Reported. Admins will review this.")
}

func (h *Handler) setChart(ctx context.Context, r *Request) reply {
	if len(r.Args) == 0 {
		return text("Usage: /setchart <link>")
	}
	if err := h.store.SetChartLink(ctx, r.Message.ChatID, r.Text()); err != nil {
		return h.failed(r, "store.SetChartLink", err)
	}
	return text("Chart link updated.")
}

func (h *Handler) showChart(ctx context.Context, r *Request) reply {
	link, err := h.store.ChartLink(ctx, r.Message.ChatID)
	if err != nil {
		return h.failed(r, "store.ChartLink", err)
	}
	if link == "" {
		return text("No chart link has been set yet.")
	}
	return reply{text: link, ephemeral: true}
}

func (h *Handler) setRules(ctx context.Context, r *Request) reply {
	if len(r.Args) == 0 {
		return text("Usage: /setrules <text>")
	}
	if err := h.store.SetRules(ctx, r.Message.ChatID, r.Text()); err != nil {
		return h.failed(r, "store.SetRules", err)
	}
	return text("Rules updated.")
}

func (h *Handler) showRules(ctx context.Context, r *Request) reply {
	rules, err := h.store.Rules(ctx, r.Message.ChatID)
	if err != nil {
		return h.failed(r, "store.Rules", err)
	}
	if rules == "" {
		return text("No rules have been set yet.")
	}
	return text(rules)
}
