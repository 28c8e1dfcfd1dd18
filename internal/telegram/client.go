// Package telegram wraps the Bot API calls the guard relies on behind a rate
// limiter and a per-request timeout.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/ailabhub/tres-guard/internal/consts"
	"github.com/ailabhub/tres-guard/internal/metrics"
	"github.com/ailabhub/tres-guard/internal/structs"
)

const (
	StatusCreator       = "creator"
	StatusAdministrator = "administrator"
)

type Config struct {
	// RateLimit is the number of outbound requests per second, 0 disables limiting.
	RateLimit float64
	Timeout   time.Duration
}

type Client struct {
	api         *tgbotapi.BotAPI
	poller      *tgbotapi.BotAPI
	logger      *slog.Logger
	rateLimiter *rate.Limiter
	timeout     time.Duration
}

func New(logger *slog.Logger, token string, config Config) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("tgbotapi.NewBotAPIWithClient: %w", err)
	}
	// getUpdates holds the connection open for up to PollTimeout, so it gets its own client.
	poller, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: pollHTTPTimeout(config)})
	if err != nil {
		return nil, fmt.Errorf("tgbotapi.NewBotAPIWithClient: %w", err)
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	} else {
		limiter = rate.NewLimiter(rate.Inf, 0) // No rate limit
	}

	return &Client{
		api:         api,
		poller:      poller,
		logger:      logger,
		rateLimiter: limiter,
		timeout:     config.Timeout,
	}, nil
}

func (c *Client) Self() structs.User {
	return FromUser(&c.api.Self)
}

// pollHTTPTimeout is the request timeout plus a full polling window. Zero
// means no timeout.
func pollHTTPTimeout(config Config) time.Duration {
	if config.Timeout <= 0 {
		return 0
	}
	return config.Timeout + consts.PollTimeout
}

// Updates starts long polling. The channel is closed after StopUpdates.
func (c *Client) Updates(timeoutSeconds int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSeconds
	return c.poller.GetUpdatesChan(u)
}

func (c *Client) StopUpdates() {
	c.poller.StopReceivingUpdates()
}

// wait blocks on the rate limiter; the HTTP call itself is bounded by the client timeout.
func (c *Client) wait(ctx context.Context) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, op string, chattable tgbotapi.Chattable) error {
	if err := c.wait(ctx); err != nil {
		metrics.PlatformErrors.WithLabelValues(op).Inc()
		return err
	}
	if _, err := c.api.Request(chattable); err != nil {
		metrics.PlatformErrors.WithLabelValues(op).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SendText sends text to chatID, as a reply when replyTo is non-zero, and
// returns the id of the sent message.
func (c *Client) SendText(ctx context.Context, chatID int64, replyTo int, text string, markdown bool) (int, error) {
	if err := c.wait(ctx); err != nil {
		metrics.PlatformErrors.WithLabelValues("sendMessage").Inc()
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		metrics.PlatformErrors.WithLabelValues("sendMessage").Inc()
		return 0, fmt.Errorf("sendMessage: %w", err)
	}
	return sent.MessageID, nil
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.request(ctx, "deleteMessage", tgbotapi.NewDeleteMessage(chatID, messageID))
}

// RestrictMember revokes the right to send messages until the given instant.
func (c *Client) RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	return c.request(ctx, "restrictChatMember", tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
		UntilDate: until.Unix(),
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages: false,
		},
	})
}

func (c *Client) BanMember(ctx context.Context, chatID, userID int64) error {
	return c.request(ctx, "banChatMember", tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
	})
}

// MemberStatus returns the Telegram status string ("creator", "administrator", "member", ...).
func (c *Client) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	if err := c.wait(ctx); err != nil {
		metrics.PlatformErrors.WithLabelValues("getChatMember").Inc()
		return "", err
	}
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		metrics.PlatformErrors.WithLabelValues("getChatMember").Inc()
		return "", fmt.Errorf("getChatMember: %w", err)
	}
	return member.Status, nil
}

func IsAdminStatus(status string) bool {
	return status == StatusCreator || status == StatusAdministrator
}
