package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ailabhub/tres-guard/internal/structs"
)

func FromUser(u *tgbotapi.User) structs.User {
	if u == nil {
		return structs.User{}
	}
	return structs.User{
		ID:        u.ID,
		IsBot:     u.IsBot,
		UserName:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// FromMessage converts a Bot API message, including the message it replies to.
func FromMessage(m *tgbotapi.Message) *structs.Message {
	if m == nil {
		return nil
	}
	msg := &structs.Message{
		MessageID: m.MessageID,
		From:      FromUser(m.From),
		Text:      m.Text,
		ReplyTo:   FromMessage(m.ReplyToMessage),
	}
	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
	}
	return msg
}

func FromUsers(users []tgbotapi.User) []structs.User {
	out := make([]structs.User, 0, len(users))
	for i := range users {
		out = append(out, FromUser(&users[i]))
	}
	return out
}
