package structs

import (
	"strings"
	"time"
)

type User struct {
	ID        int64
	IsBot     bool
	UserName  string
	FirstName string
	LastName  string
}

// FullName mirrors how Telegram clients render a member: first and last name joined by a space.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Message struct {
	ChatID    int64
	MessageID int
	From      User
	// Text of the message
	Text string
	// Message this one replies to, nil when it is not a reply
	ReplyTo *Message
}

func (m *Message) HasText() bool {
	return m.Text != ""
}

func (m *Message) IsReply() bool {
	return m.ReplyTo != nil
}

func (m *Message) LowerText() string {
	return strings.ToLower(m.Text)
}

// EphemeralMessage is a chat message scheduled for removal once it is older than the janitor TTL.
type EphemeralMessage struct {
	ChatID    int64     `json:"chat_id"`
	MessageID int       `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (e EphemeralMessage) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}
