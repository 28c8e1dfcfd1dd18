package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ailabhub/tres-guard/internal/cache"
	"github.com/ailabhub/tres-guard/internal/commands"
	"github.com/ailabhub/tres-guard/internal/consts"
	"github.com/ailabhub/tres-guard/internal/filter"
	"github.com/ailabhub/tres-guard/internal/janitor"
	"github.com/ailabhub/tres-guard/internal/moderation"
	"github.com/ailabhub/tres-guard/internal/store"
	"github.com/ailabhub/tres-guard/internal/structs"
	"github.com/ailabhub/tres-guard/internal/telegram"
	"github.com/ailabhub/tres-guard/internal/welcome"
)

// Platform is the subset of the Telegram client the handlers call.
type Platform interface {
	SendText(ctx context.Context, chatID int64, replyTo int, text string, markdown bool) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error
	BanMember(ctx context.Context, chatID, userID int64) error
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
}

type UpdateSource interface {
	Updates(timeoutSeconds int) tgbotapi.UpdatesChannel
	StopUpdates()
}

type Bot struct {
	source   UpdateSource
	logger   *slog.Logger
	config   *Config
	self     structs.User
	store    store.Store
	pipeline *moderation.Pipeline
	commands *commands.Handler
	welcome  *welcome.Gate
	janitor  *janitor.Janitor
	now      func() time.Time

	group    *errgroup.Group
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type Config struct {
	Workers       int
	Keywords      []string
	ChartTriggers []string
	AdminCacheTTL time.Duration
	JanitorPeriod time.Duration
	EphemeralTTL  time.Duration
}

func New(logger *slog.Logger, client *telegram.Client, s store.Store, config *Config) *Bot {
	return newBot(logger, client, client, client.Self(), s, config)
}

func newBot(logger *slog.Logger, source UpdateSource, platform Platform, self structs.User, s store.Store, config *Config) *Bot {
	roles := cache.NewRoleCache(logger, platform, consts.AdminCacheSize, config.AdminCacheTTL)
	keywords := filter.New(config.Keywords, s)

	group := &errgroup.Group{}
	if config.Workers > 0 {
		group.SetLimit(config.Workers)
	}

	return &Bot{
		source:   source,
		logger:   logger,
		config:   config,
		self:     self,
		store:    s,
		pipeline: moderation.New(logger, s, keywords, roles, platform, config.ChartTriggers),
		commands: commands.New(logger, s, keywords, roles, platform),
		welcome:  welcome.New(logger, platform, self.ID),
		janitor:  janitor.New(logger, s, platform, config.JanitorPeriod, config.EphemeralTTL),
		now:      time.Now,
		group:    group,
		stopChan: make(chan struct{}),
	}
}

// Start begins polling for updates and runs the janitor. Updates are handled
// concurrently, at most Config.Workers at a time.
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("Authorized on account", "username", b.self.UserName)
	b.logger.Info("Config", "workers", b.config.Workers, "keywords", b.config.Keywords, "chartTriggers", b.config.ChartTriggers, "adminCacheTTL", b.config.AdminCacheTTL)
	b.logger.Info("Starting bot")

	b.janitor.Start(ctx)

	updates := b.source.Updates(int(consts.PollTimeout / time.Second))
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stopChan:
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				b.group.Go(func() error {
					b.safeHandle(ctx, update)
					return nil
				})
			}
		}
	}()
}

// Stop stops polling, waits for in-flight updates and the janitor, then
// closes the store.
func (b *Bot) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
		b.source.StopUpdates()
	})
	b.wg.Wait()
	_ = b.group.Wait()
	b.janitor.Stop()
	if err := b.store.Close(); err != nil {
		b.logger.Error("Failed to close store", "error", err)
	}
}

func (b *Bot) safeHandle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic while handling update", "updateID", update.UpdateID, "panic", fmt.Sprint(r))
		}
	}()
	b.handleUpdate(ctx, update)
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	m := update.Message
	if m == nil || m.Chat == nil {
		return
	}
	if m.From != nil && m.From.ID == b.self.ID { // Ignore self
		return
	}

	if len(m.NewChatMembers) > 0 {
		b.welcome.Handle(ctx, m.Chat.ID, telegram.FromUsers(m.NewChatMembers))
		return
	}

	if m.IsCommand() {
		if !b.addressedToMe(m) {
			b.logger.Debug("Skipping command for another bot", "command", m.CommandWithAt(), "chatID", m.Chat.ID)
			return
		}
		if !b.commands.Known(m.Command()) {
			b.logger.Debug("Ignoring unknown command", "command", m.Command(), "chatID", m.Chat.ID)
			return
		}
		b.commands.Handle(ctx, commands.NewRequest(telegram.FromMessage(m), m.Command(), m.CommandArguments(), b.now()))
		return
	}

	if m.Text == "" {
		return
	}
	verdict := b.pipeline.Handle(ctx, telegram.FromMessage(m), b.now())
	b.logger.Debug("Moderation verdict", "chatID", m.Chat.ID, "messageID", m.MessageID, "verdict", verdict.String())
}

// addressedToMe is false for "/cmd@otherbot" in groups with several bots.
func (b *Bot) addressedToMe(m *tgbotapi.Message) bool {
	_, mention, found := strings.Cut(m.CommandWithAt(), "@")
	return !found || b.self.UserName == "" || strings.EqualFold(mention, b.self.UserName)
}
