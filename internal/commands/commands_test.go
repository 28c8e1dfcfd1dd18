package commands

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ailabhub/tres-guard/internal/cache"
	"github.com/ailabhub/tres-guard/internal/consts"
	"github.com/ailabhub/tres-guard/internal/filter"
	"github.com/ailabhub/tres-guard/internal/store"
	"github.com/ailabhub/tres-guard/internal/structs"
	"github.com/ailabhub/tres-guard/internal/telegram/telegramtest"
)

const (
	chatID  int64 = -1001
	adminID int64 = 1
	userID  int64 = 2
	spamID  int64 = 3
)

type fixture struct {
	store   *store.MemStore
	client  *telegramtest.Client
	handler *Handler
	now     time.Time
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.NewMemStore()
	client := telegramtest.New()
	client.SetStatus(adminID, "creator")
	roles := cache.NewRoleCache(logger, client, 16, 0)
	return &fixture{
		store:   s,
		client:  client,
		handler: New(logger, s, filter.New(consts.BannedKeywords, s), roles, client),
		now:     time.Now(),
	}
}

// run sends "/name args" from the given user, optionally replying to a message by spamID.
func (f *fixture) run(from int64, name, args string, replyTo bool) string {
	msg := &structs.Message{
		ChatID:    chatID,
		MessageID: 100,
		From:      structs.User{ID: from, FirstName: "Sender"},
		Text:      "/" + name + " " + args,
	}
	if replyTo {
		msg.ReplyTo = &structs.Message{
			ChatID:    chatID,
			MessageID: 50,
			From:      structs.User{ID: spamID, FirstName: "Spammer"},
			Text:      "buy my coin",
		}
	}
	f.client.Reset()
	f.handler.Handle(context.Background(), NewRequest(msg, name, args, f.now))
	return f.client.LastText()
}

func TestNewRequest(t *testing.T) {
	t.Parallel()

	r := NewRequest(&structs.Message{}, "SetRules", "  1. be nice\n2. no spam ", time.Now())
	assert.Equal(t, consts.CommandSetRules, r.Command)
	assert.Equal(t, []string{"1.", "be", "nice", "2.", "no", "spam"}, r.Args)
	assert.Equal(t, "1. be nice\n2. no spam", r.Text())
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	t.Parallel()
	f := newFixture()

	handled := f.handler.Handle(context.Background(), NewRequest(&structs.Message{ChatID: chatID}, "nope", "", f.now))
	assert.False(t, handled)
	assert.Empty(t, f.client.Sent)
	assert.False(t, f.handler.Known("nope"))
	assert.True(t, f.handler.Known("Filters"))
}

func TestInfoCommands(t *testing.T) {
	t.Parallel()
	f := newFixture()

	assert.Equal(t, "Tres Guard is active and watching your group.", f.run(userID, "start", "", false))
	assert.Contains(t, f.run(userID, "help", "", false), "/adminmode on/off")
	require.Len(t, f.client.Sent, 1)
	assert.True(t, f.client.Sent[0].Markdown)
	assert.Equal(t, 100, f.client.Sent[0].ReplyTo)
	assert.Contains(t, f.run(userID, "commands", "", false), "/removefilter")
}

func TestGatedCommandsRejectNonAdmins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()

	assert.Equal(t, "Only admins can add filters.", f.run(userID, "filter", "spam", false))
	assert.Equal(t, "Only admins can remove filters.", f.run(userID, "removefilter", "spam", false))
	assert.Equal(t, "Only admins can toggle admin mode.", f.run(userID, "adminmode", "on", false))
	assert.Equal(t, "Only admins can mute users.", f.run(userID, "mute", "60", true))
	assert.Equal(t, "Only admins can ban users.", f.run(userID, "ban", "", true))
	assert.Equal(t, "Only admins can set the chart link.", f.run(userID, "setchart", "x", false))
	assert.Equal(t, "Only admins can set the rules.", f.run(userID, "setrules", "x", false))

	keywords, err := f.store.CustomKeywords(ctx)
	require.NoError(t, err)
	assert.Empty(t, keywords)
	on, err := f.store.AdminOnly(ctx, chatID)
	require.NoError(t, err)
	assert.False(t, on)
	_, ok, err := f.store.MuteUntil(ctx, spamID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.client.Restricted)
	assert.Empty(t, f.client.Banned)
	rules, err := f.store.Rules(ctx, chatID)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestAdminCheckFailureRejects(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.client.FailStatus = true

	assert.Equal(t, "Only admins can add filters.", f.run(adminID, "filter", "spam", false))
}

func TestFilterCommands(t *testing.T) {
	t.Parallel()
	f := newFixture()

	assert.Equal(t, "Usage: /filter <word>", f.run(adminID, "filter", "", false))
	assert.Equal(t, "Added 'airdrop2' to filters.", f.run(adminID, "filter", "AirDrop2", false))
	assert.Equal(t, "'airdrop2' is already filtered.", f.run(adminID, "filter", "airdrop2", false))
	assert.Equal(t, "Added 'free money' to filters.", f.run(adminID, "filter", "free   money", false))

	assert.Equal(t, "Current filters:\nairdrop\ngiveaway\nhttp\nt.me/\nclaim now\nairdrop2\nfree money", f.run(userID, "filters", "", false))

	assert.Equal(t, "Usage: /removefilter <word>", f.run(adminID, "removefilter", "", false))
	assert.Equal(t, "'nothing' is not in custom filters.", f.run(adminID, "removefilter", "nothing", false))
	assert.Equal(t, "Removed 'airdrop2' from filters.", f.run(adminID, "removefilter", "AIRDROP2", false))
	assert.Equal(t, "Current filters:\nairdrop\ngiveaway\nhttp\nt.me/\nclaim now\nfree money", f.run(userID, "filters", "", false))
}

func TestAdminModeCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()

	assert.Equal(t, "Admin-only mode is now ON.", f.run(adminID, "adminmode", "ON", false))
	on, err := f.store.AdminOnly(ctx, chatID)
	require.NoError(t, err)
	assert.True(t, on)

	assert.Equal(t, "Admin-only mode is now OFF.", f.run(adminID, "adminmode", "maybe", false))
	on, err = f.store.AdminOnly(ctx, chatID)
	require.NoError(t, err)
	assert.False(t, on)

	f.run(adminID, "adminmode", "on", false)
	assert.Equal(t, "Admin-only mode is now OFF.", f.run(adminID, "adminmode", "", false))
}

func TestMuteCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()

	assert.Equal(t, "Muted Spammer for 60 seconds.", f.run(adminID, "mute", "60", true))
	until, ok, err := f.store.MuteUntil(ctx, spamID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, f.now.Add(60*time.Second).Equal(until))
	assert.Equal(t, []telegramtest.Restricted{{ChatID: chatID, UserID: spamID, Until: until}}, f.client.Restricted)

	// legacy form with a mention before the duration
	assert.Equal(t, "Muted Spammer for 30 seconds.", f.run(adminID, "mute", "@spammer 30", true))
}

func TestMuteValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()

	assert.Equal(t, "Usage: reply to a message with /mute <seconds>", f.run(adminID, "mute", "", true))
	assert.Equal(t, "Usage: reply to a message with /mute <seconds>", f.run(adminID, "mute", "60", false))
	assert.Equal(t, "Could not mute user.", f.run(adminID, "mute", "soon", true))
	assert.Equal(t, "Could not mute user.", f.run(adminID, "mute", "-5", true))
	assert.Equal(t, "Could not mute user.", f.run(adminID, "mute", "0", true))
	assert.Equal(t, "Could not mute user.", f.run(adminID, "mute", "10000000000", true))
	assert.Equal(t, "Could not mute user.", f.run(adminID, "mute", "31622401", true))

	_, ok, err := f.store.MuteUntil(ctx, spamID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.client.Restricted)
}

func TestMuteLongestDuration(t *testing.T) {
	t.Parallel()
	f := newFixture()

	assert.Equal(t, "Muted Spammer for 31622400 seconds.", f.run(adminID, "mute", "31622400", true))
	require.Len(t, f.client.Restricted, 1)
	assert.True(t, f.client.Restricted[0].Until.After(time.Now()))
}

func TestMutePlatformFailure(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.client.FailRestrict = true

	assert.Equal(t, "Could not mute user.", f.run(adminID, "mute", "60", true))
}

func TestBanCommand(t *testing.T) {
	t.Parallel()
	f := newFixture()

	assert.Equal(t, "Usage: reply to a message with /ban", f.run(adminID, "ban", "", false))
	assert.Empty(t, f.client.Banned)

	assert.Equal(t, "Banned Spammer.", f.run(adminID, "ban", "", true))
	assert.Equal(t, []telegramtest.Banned{{ChatID: chatID, UserID: spamID}}, f.client.Banned)

	f.client.FailBan = true
	assert.Equal(t, "Could not ban user.", f.run(adminID, "ban", "", true))
}

func TestReportCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()

	assert.Equal(t, "Reported. Admins will review this.", f.run(userID, "report", "", true))
	f.run(userID, "report", "", true)
	n, err := f.store.IncrementReport(ctx, chatID, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// without a reply the command message itself is counted
	f.run(userID, "report", "", false)
	n, err = f.store.IncrementReport(ctx, chatID, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRulesAndChart(t *testing.T) {
	t.Parallel()
	f := newFixture()

	assert.Equal(t, "No rules have been set yet.", f.run(userID, "rules", "", false))
	assert.Equal(t, "Usage: /setrules <text>", f.run(adminID, "setrules", "", false))
	assert.Equal(t, "Rules updated.", f.run(adminID, "setrules", "1. be nice\n2. no spam", false))
	assert.Equal(t, "1. be nice\n2. no spam", f.run(userID, "rules", "", false))

	assert.Equal(t, "No chart link has been set yet.", f.run(userID, "chart", "", false))
	assert.Equal(t, "Usage: /setchart <link>", f.run(adminID, "setchart", "  ", false))
	assert.Equal(t, "Chart link updated.", f.run(adminID, "setchart", "https://dexscreener.com/solana/abc", false))
	assert.Equal(t, "https://dexscreener.com/solana/abc", f.run(userID, "chart", "", false))

	// the /chart command and its answer are both cleaned up later
	tracked, err := f.store.EphemeralMessages(context.Background())
	require.NoError(t, err)
	ids := make([]int, 0, len(tracked))
	for _, m := range tracked {
		ids = append(ids, m.MessageID)
		assert.True(t, f.now.Equal(m.CreatedAt))
	}
	assert.ElementsMatch(t, []int{100, f.client.Sent[0].ID}, ids)
}

func TestReplyFailureStillHandled(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.client.FailSend = true

	msg := &structs.Message{ChatID: chatID, MessageID: 1, From: structs.User{ID: adminID}}
	assert.True(t, f.handler.Handle(context.Background(), NewRequest(msg, "adminmode", "on", f.now)))
	on, err := f.store.AdminOnly(context.Background(), chatID)
	require.NoError(t, err)
	assert.True(t, on)
}
