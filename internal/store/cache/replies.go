// internal/store/cache/replies.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkin-service/internal/models"

	"github.com/redis/go-redis/v9"
)

// generationTTL outlives any read so a generation never resets under a reader.
const generationTTL = 24 * time.Hour

var errStaleView = errors.New("reply view built before the last invalidation")

// ReplyCache stores aggregated reply views as JSON in Redis. Each request also
// has a generation counter that InvalidateReplies bumps; a view is only
// stored if the generation it was read at is still current.
type ReplyCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewReplyCache(client redis.UniversalClient, prefix string, ttl time.Duration) *ReplyCache {
	if prefix == "" {
		prefix = "checkin"
	}
	return &ReplyCache{client: client, prefix: prefix, ttl: ttl}
}

// Key returns the Redis key of the reply view of a request.
func (c *ReplyCache) Key(requestID int64) string {
	return fmt.Sprintf("%s:request:%d:replies", c.prefix, requestID)
}

// GenerationKey returns the Redis key of the request's invalidation counter.
func (c *ReplyCache) GenerationKey(requestID int64) string {
	return fmt.Sprintf("%s:request:%d:gen", c.prefix, requestID)
}

// GetReplies reports ok=false on a miss. An entry that no longer decodes is
// evicted and treated as a miss.
func (c *ReplyCache) GetReplies(ctx context.Context, requestID int64) ([]models.MemberReplyGroup, bool, error) {
	key := c.Key(requestID)
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var groups []models.MemberReplyGroup
	if err := json.Unmarshal(val, &groups); err != nil {
		if delErr := c.client.Del(ctx, key).Err(); delErr != nil {
			return nil, false, fmt.Errorf("evict corrupt entry %s: %w", key, delErr)
		}
		return nil, false, nil
	}
	if groups == nil {
		groups = []models.MemberReplyGroup{}
	}
	return groups, true, nil
}

// Generation returns the request's current generation, 0 if never invalidated.
func (c *ReplyCache) Generation(ctx context.Context, requestID int64) (int64, error) {
	key := c.GenerationKey(requestID)
	gen, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	return gen, nil
}

// SetReplies stores groups unless the request was invalidated after
// generation was read. A skipped write is not an error.
func (c *ReplyCache) SetReplies(ctx context.Context, requestID int64, generation int64, groups []models.MemberReplyGroup) error {
	data, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("encode reply view: %w", err)
	}
	key, genKey := c.Key(requestID), c.GenerationKey(requestID)

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleView
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	if errors.Is(err, errStaleView) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// InvalidateReplies drops the cached view and bumps the generation so that
// reads already in flight do not store their view.
func (c *ReplyCache) InvalidateReplies(ctx context.Context, requestID int64) error {
	key, genKey := c.Key(requestID), c.GenerationKey(requestID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}
