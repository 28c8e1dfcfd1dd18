// Package telegramtest provides an in-memory stand-in for the Telegram client.
package telegramtest

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrFake = errors.New("telegramtest: injected failure")

type Sent struct {
	ID       int
	ChatID   int64
	ReplyTo  int
	Text     string
	Markdown bool
}

type Deleted struct {
	ChatID    int64
	MessageID int
}

type Restricted struct {
	ChatID int64
	UserID int64
	Until  time.Time
}

type Banned struct {
	ChatID int64
	UserID int64
}

// Client records every call. Set the Fail* fields to make an operation return ErrFake.
type Client struct {
	mu     sync.Mutex
	nextID int

	Sent       []Sent
	Deleted    []Deleted
	Restricted []Restricted
	Banned     []Banned
	// Statuses maps user id to Telegram member status; unknown users are "member".
	Statuses map[int64]string
	// StatusCalls counts MemberStatus lookups.
	StatusCalls int

	FailSend     bool
	FailDelete   bool
	FailRestrict bool
	FailBan      bool
	FailStatus   bool
}

func New() *Client {
	return &Client{Statuses: make(map[int64]string)}
}

func (c *Client) SetStatus(userID int64, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[userID] = status
}

// SendText assigns sent messages ids starting at 1000.
func (c *Client) SendText(_ context.Context, chatID int64, replyTo int, text string, markdown bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailSend {
		return 0, ErrFake
	}
	c.nextID++
	id := 1000 + c.nextID
	c.Sent = append(c.Sent, Sent{ID: id, ChatID: chatID, ReplyTo: replyTo, Text: text, Markdown: markdown})
	return id, nil
}

// DeleteMessage records the attempt even when it fails.
func (c *Client) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deleted = append(c.Deleted, Deleted{ChatID: chatID, MessageID: messageID})
	if c.FailDelete {
		return ErrFake
	}
	return nil
}

func (c *Client) RestrictMember(_ context.Context, chatID, userID int64, until time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailRestrict {
		return ErrFake
	}
	c.Restricted = append(c.Restricted, Restricted{ChatID: chatID, UserID: userID, Until: until})
	return nil
}

func (c *Client) BanMember(_ context.Context, chatID, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailBan {
		return ErrFake
	}
	c.Banned = append(c.Banned, Banned{ChatID: chatID, UserID: userID})
	return nil
}

func (c *Client) MemberStatus(_ context.Context, _ int64, userID int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StatusCalls++
	if c.FailStatus {
		return "", ErrFake
	}
	if status, ok := c.Statuses[userID]; ok {
		return status, nil
	}
	return "member", nil
}

func (c *Client) SentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	texts := make([]string, 0, len(c.Sent))
	for _, s := range c.Sent {
		texts = append(texts, s.Text)
	}
	return texts
}

func (c *Client) DeletedMessages() []Deleted {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Deleted(nil), c.Deleted...)
}

func (c *Client) LastText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Sent) == 0 {
		return ""
	}
	return c.Sent[len(c.Sent)-1].Text
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = nil
	c.Deleted = nil
	c.Restricted = nil
	c.Banned = nil
	c.StatusCalls = 0
}
