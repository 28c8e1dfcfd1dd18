package welcome

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ailabhub/tres-guard/internal/structs"
	"github.com/ailabhub/tres-guard/internal/telegram/telegramtest"
)

const selfID int64 = 999

func newGate(client *telegramtest.Client) *Gate {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), client, selfID)
}

func TestSuspicious(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		user structs.User
		want bool
	}{
		{"clean", structs.User{ID: 1, UserName: "alice"}, false},
		{"bot", structs.User{ID: 2, UserName: "helper_bot", IsBot: true}, true},
		{"no username", structs.User{ID: 3, FirstName: "Carol"}, true},
		{"digit", structs.User{ID: 4, UserName: "dave1987"}, true},
		{"leading digit", structs.User{ID: 5, UserName: "0xerin"}, true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Suspicious(tc.user))
		})
	}
}

func TestDigitUsernameIsRemovedWithoutWelcome(t *testing.T) {
	t.Parallel()
	client := telegramtest.New()
	g := newGate(client)

	evicted := g.Handle(context.Background(), -100, []structs.User{{ID: 4, UserName: "dave1987", FirstName: "Dave"}})
	assert.Equal(t, 1, evicted)
	assert.Equal(t, []telegramtest.Banned{{ChatID: -100, UserID: 4}}, client.Banned)
	assert.Empty(t, client.Sent)
}

func TestCleanMemberIsWelcomedOnce(t *testing.T) {
	t.Parallel()
	client := telegramtest.New()
	g := newGate(client)

	evicted := g.Handle(context.Background(), -100, []structs.User{{ID: 1, UserName: "alice", FirstName: "Alice", LastName: "Liddell"}})
	assert.Equal(t, 0, evicted)
	assert.Empty(t, client.Banned)
	assert.Equal(t, []string{"Welcome, Alice Liddell!\nPlease read the group rules."}, client.SentTexts())
}

func TestMixedJoinAndFailures(t *testing.T) {
	t.Parallel()
	client := telegramtest.New()
	client.FailBan = true
	g := newGate(client)

	members := []structs.User{
		{ID: 1, UserName: "alice", FirstName: "Alice"},
		{ID: 2, UserName: "spam_bot", IsBot: true},
		{ID: selfID, UserName: "tres_guard_bot", IsBot: true},
		{ID: 3, UserName: "bob", FirstName: "Bob"},
	}
	evicted := g.Handle(context.Background(), -100, members)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, []string{
		"Welcome, Alice!\nPlease read the group rules.",
		"Welcome, Bob!\nPlease read the group rules.",
	}, client.SentTexts())
}
