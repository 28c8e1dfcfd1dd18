package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/redis/go-redis/v9"

	"github.com/ailabhub/tres-guard/internal/consts"
	"github.com/ailabhub/tres-guard/internal/structs"
)

// RedisStore keeps the same state as MemStore in Redis so it survives restarts
// and can be shared by several bot replicas.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	rdb := redis.NewClient(opt)

	err = retry.Do(
		func() error {
			return rdb.Ping(ctx).Err()
		},
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Redis ping failed, retrying", "attempt", n+1, "error", err)
		}),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
	)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis.Ping: %w", err)
	}

	return &RedisStore{Client: rdb}, nil
}

func idKey(k consts.StoreKey, id int64) string {
	return consts.RedisKeys[k] + strconv.FormatInt(id, 10)
}

func messageField(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

func (s *RedisStore) getString(ctx context.Context, key string) (string, error) {
	v, err := s.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("redis.Get: %w", err)
	}
	return v, nil
}

func (s *RedisStore) AdminOnly(ctx context.Context, chatID int64) (bool, error) {
	v, err := s.getString(ctx, idKey(consts.StoreKeyAdminOnly, chatID))
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (s *RedisStore) SetAdminOnly(ctx context.Context, chatID int64, on bool) error {
	key := idKey(consts.StoreKeyAdminOnly, chatID)
	if !on {
		if err := s.Client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis.Del: %w", err)
		}
		return nil
	}
	if err := s.Client.Set(ctx, key, "1", 0).Err(); err != nil {
		return fmt.Errorf("redis.Set: %w", err)
	}
	return nil
}

func (s *RedisStore) Rules(ctx context.Context, chatID int64) (string, error) {
	return s.getString(ctx, idKey(consts.StoreKeyRules, chatID))
}

func (s *RedisStore) SetRules(ctx context.Context, chatID int64, rules string) error {
	if err := s.Client.Set(ctx, idKey(consts.StoreKeyRules, chatID), rules, 0).Err(); err != nil {
		return fmt.Errorf("redis.Set: %w", err)
	}
	return nil
}

func (s *RedisStore) ChartLink(ctx context.Context, chatID int64) (string, error) {
	return s.getString(ctx, idKey(consts.StoreKeyChart, chatID))
}

func (s *RedisStore) SetChartLink(ctx context.Context, chatID int64, link string) error {
	if err := s.Client.Set(ctx, idKey(consts.StoreKeyChart, chatID), link, 0).Err(); err != nil {
		return fmt.Errorf("redis.Set: %w", err)
	}
	return nil
}

func (s *RedisStore) MuteUntil(ctx context.Context, userID int64) (time.Time, bool, error) {
	ms, err := s.Client.Get(ctx, idKey(consts.StoreKeyMute, userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	} else if err != nil {
		return time.Time{}, false, fmt.Errorf("redis.Get: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}

func (s *RedisStore) SetMute(ctx context.Context, userID int64, until time.Time) error {
	// expired records only need to linger long enough for readers to see them as inactive
	ttl := time.Until(until) + consts.MuteGrace
	if ttl < consts.MuteGrace {
		ttl = consts.MuteGrace
	}
	err := s.Client.Set(ctx, idKey(consts.StoreKeyMute, userID), until.UnixMilli(), ttl).Err()
	if err != nil {
		return fmt.Errorf("redis.Set: %w", err)
	}
	return nil
}

func (s *RedisStore) IncrementReport(ctx context.Context, chatID int64, messageID int) (int, error) {
	key := consts.RedisKeys[consts.StoreKeyReport] + messageField(chatID, messageID)
	n, err := s.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis.Incr: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) AddKeyword(ctx context.Context, keyword string) (bool, error) {
	n, err := s.Client.SAdd(ctx, consts.RedisKeys[consts.StoreKeyKeywords], keyword).Result()
	if err != nil {
		return false, fmt.Errorf("redis.SAdd: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) RemoveKeyword(ctx context.Context, keyword string) (bool, error) {
	n, err := s.Client.SRem(ctx, consts.RedisKeys[consts.StoreKeyKeywords], keyword).Result()
	if err != nil {
		return false, fmt.Errorf("redis.SRem: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) CustomKeywords(ctx context.Context) ([]string, error) {
	keywords, err := s.Client.SMembers(ctx, consts.RedisKeys[consts.StoreKeyKeywords]).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.SMembers: %w", err)
	}
	sort.Strings(keywords)
	return keywords, nil
}

func (s *RedisStore) TrackEphemeral(ctx context.Context, msg structs.EphemeralMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}
	field := messageField(msg.ChatID, msg.MessageID)
	if err := s.Client.HSet(ctx, consts.RedisKeys[consts.StoreKeyEphemeral], field, data).Err(); err != nil {
		return fmt.Errorf("redis.HSet: %w", err)
	}
	return nil
}

func (s *RedisStore) EphemeralMessages(ctx context.Context) ([]structs.EphemeralMessage, error) {
	raw, err := s.Client.HGetAll(ctx, consts.RedisKeys[consts.StoreKeyEphemeral]).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.HGetAll: %w", err)
	}
	msgs := make([]structs.EphemeralMessage, 0, len(raw))
	for field, data := range raw {
		var msg structs.EphemeralMessage
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			slog.Warn("Skipping malformed ephemeral record", "field", field, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) ForgetEphemeral(ctx context.Context, chatID int64, messageID int) error {
	err := s.Client.HDel(ctx, consts.RedisKeys[consts.StoreKeyEphemeral], messageField(chatID, messageID)).Err()
	if err != nil {
		return fmt.Errorf("redis.HDel: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}
