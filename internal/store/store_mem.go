package store

import (
	"context"
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/ailabhub/tres-guard/internal/structs"
)

// MemStore is the process-local Store. Nothing survives a restart.
type MemStore struct {
	adminOnly *xsync.MapOf[int64, bool]
	rules     *xsync.MapOf[int64, string]
	charts    *xsync.MapOf[int64, string]
	mutes     *xsync.MapOf[int64, time.Time]
	reports   *xsync.MapOf[messageKey, int]
	keywords  *xsync.MapOf[string, struct{}]
	ephemeral *xsync.MapOf[messageKey, structs.EphemeralMessage]
}

func NewMemStore() *MemStore {
	return &MemStore{
		adminOnly: xsync.NewMapOf[int64, bool](),
		rules:     xsync.NewMapOf[int64, string](),
		charts:    xsync.NewMapOf[int64, string](),
		mutes:     xsync.NewMapOf[int64, time.Time](),
		reports:   xsync.NewMapOf[messageKey, int](),
		keywords:  xsync.NewMapOf[string, struct{}](),
		ephemeral: xsync.NewMapOf[messageKey, structs.EphemeralMessage](),
	}
}

func (s *MemStore) AdminOnly(_ context.Context, chatID int64) (bool, error) {
	on, _ := s.adminOnly.Load(chatID)
	return on, nil
}

func (s *MemStore) SetAdminOnly(_ context.Context, chatID int64, on bool) error {
	s.adminOnly.Store(chatID, on)
	return nil
}

func (s *MemStore) Rules(_ context.Context, chatID int64) (string, error) {
	rules, _ := s.rules.Load(chatID)
	return rules, nil
}

func (s *MemStore) SetRules(_ context.Context, chatID int64, rules string) error {
	s.rules.Store(chatID, rules)
	return nil
}

func (s *MemStore) ChartLink(_ context.Context, chatID int64) (string, error) {
	link, _ := s.charts.Load(chatID)
	return link, nil
}

func (s *MemStore) SetChartLink(_ context.Context, chatID int64, link string) error {
	s.charts.Store(chatID, link)
	return nil
}

func (s *MemStore) MuteUntil(_ context.Context, userID int64) (time.Time, bool, error) {
	until, ok := s.mutes.Load(userID)
	return until, ok, nil
}

func (s *MemStore) SetMute(_ context.Context, userID int64, until time.Time) error {
	s.mutes.Store(userID, until)
	return nil
}

func (s *MemStore) IncrementReport(_ context.Context, chatID int64, messageID int) (int, error) {
	count, _ := s.reports.Compute(messageKey{chatID, messageID}, func(old int, _ bool) (int, bool) {
		return old + 1, false
	})
	return count, nil
}

func (s *MemStore) AddKeyword(_ context.Context, keyword string) (bool, error) {
	_, loaded := s.keywords.LoadOrStore(keyword, struct{}{})
	return !loaded, nil
}

func (s *MemStore) RemoveKeyword(_ context.Context, keyword string) (bool, error) {
	_, ok := s.keywords.LoadAndDelete(keyword)
	return ok, nil
}

func (s *MemStore) CustomKeywords(_ context.Context) ([]string, error) {
	keywords := make([]string, 0, s.keywords.Size())
	s.keywords.Range(func(k string, _ struct{}) bool {
		keywords = append(keywords, k)
		return true
	})
	sort.Strings(keywords)
	return keywords, nil
}

func (s *MemStore) TrackEphemeral(_ context.Context, msg structs.EphemeralMessage) error {
	s.ephemeral.Store(messageKey{msg.ChatID, msg.MessageID}, msg)
	return nil
}

func (s *MemStore) EphemeralMessages(_ context.Context) ([]structs.EphemeralMessage, error) {
	msgs := make([]structs.EphemeralMessage, 0, s.ephemeral.Size())
	s.ephemeral.Range(func(_ messageKey, msg structs.EphemeralMessage) bool {
		msgs = append(msgs, msg)
		return true
	})
	return msgs, nil
}

func (s *MemStore) ForgetEphemeral(_ context.Context, chatID int64, messageID int) error {
	s.ephemeral.Delete(messageKey{chatID, messageID})
	return nil
}

func (s *MemStore) Close() error {
	return nil
}
