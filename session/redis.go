package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ============================================================================
// REDIS STORE — shared backend for multi-instance deployments
// ============================================================================
// Context lives in one hash per session, history in one list. Both
// expire after the idle TTL so abandoned sessions clean themselves up.
// ============================================================================

const (
	redisContextPrefix = "floodline:ctx:"
	redisHistoryPrefix = "floodline:log:"
	redisSessionTTL    = 24 * time.Hour
	redisHistoryCap    = 100
)

// RedisStore keeps session state in redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the server at addr.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (Context, error) {
	vals, err := r.client.HGetAll(ctx, redisContextPrefix+sessionID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load context: %w", err)
	}
	c := make(Context, len(vals))
	for k, v := range vals {
		c[k] = v
	}
	return c, nil
}

func (r *RedisStore) Merge(ctx context.Context, sessionID string, updates Context) error {
	if len(updates) == 0 {
		return nil
	}
	key := redisContextPrefix + sessionID
	fields := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		fields[k] = v
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, redisSessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Clear(ctx context.Context, sessionID string, keys ...string) error {
	key := redisContextPrefix + sessionID
	if len(keys) == 0 {
		return r.client.Del(ctx, key).Err()
	}
	return r.client.HDel(ctx, key, keys...).Err()
}

func (r *RedisStore) LogTurn(ctx context.Context, sessionID string, turn Turn) error {
	at := turn.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	entry := fmt.Sprintf("%s\x1f%s\x1f%s\x1f%s",
		at.Format(time.RFC3339), turn.Action, turn.Question, turn.Answer)

	key := redisHistoryPrefix + sessionID
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, entry)
	pipe.LTrim(ctx, key, 0, redisHistoryCap-1)
	pipe.Expire(ctx, key, redisSessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) History(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 || limit > redisHistoryCap {
		limit = redisHistoryCap
	}
	entries, err := r.client.LRange(ctx, redisHistoryPrefix+sessionID, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	out := make([]Turn, 0, len(entries))
	for _, e := range entries {
		out = append(out, parseHistoryEntry(e))
	}
	return out, nil
}

func parseHistoryEntry(e string) Turn {
	var t Turn
	parts := strings.SplitN(e, "\x1f", 4)
	if len(parts) == 4 {
		if at, err := time.Parse(time.RFC3339, parts[0]); err == nil {
			t.At = at
		}
		t.Action = parts[1]
		t.Question = parts[2]
		t.Answer = parts[3]
		return t
	}
	t.Answer = e
	return t
}

func (r *RedisStore) Close() error { return r.client.Close() }
