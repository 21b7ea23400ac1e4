package watermark

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	fieldLastProcessedID = "lastProcessedId"
	fieldStartedAt       = "startedAt"
)

// luaAdvance writes startedAt and moves lastProcessedId forward only.
// Snowflakes exceed Lua's double precision, so ordering is by length then
// lexically, which equals numeric order for digit strings without leading zeros.
// KEYS[1]=key; ARGV[1]=id ("" for none); ARGV[2]=startedAt
// Returns 1 when lastProcessedId moved, 0 otherwise.
var luaAdvance = redis.NewScript(`
local k = KEYS[1]
redis.call('HSET', k, 'startedAt', ARGV[2])
local id = ARGV[1]
if id == '' then
  return 0
end
local cur = redis.call('HGET', k, 'lastProcessedId')
if (not cur) or #id > #cur or (#id == #cur and id > cur) then
  redis.call('HSET', k, 'lastProcessedId', id)
  return 1
end
return 0
`)

// ErrNoRecord is returned by RedisStore.Load when the key does not exist
var ErrNoRecord = errors.New("no watermark record stored")

// RedisStore keeps the record in a Redis hash, for deployments without a
// durable local disk
type RedisStore struct {
	rdb redis.UniversalClient
	key string
}

// NewRedisStore creates a store on key
func NewRedisStore(rdb redis.UniversalClient, key string) *RedisStore {
	return &RedisStore{rdb: rdb, key: key}
}

// Load reads the hash
func (s *RedisStore) Load(ctx context.Context) (Record, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Record{}, fmt.Errorf("hgetall %s: %w", s.key, err)
	}
	if len(vals) == 0 {
		return Record{}, ErrNoRecord
	}

	var rec Record
	if raw, ok := vals[fieldStartedAt]; ok && raw != "" {
		started, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("parse %s.%s: %w", s.key, fieldStartedAt, err)
		}
		rec.StartedAt = started
	}
	if id, ok := vals[fieldLastProcessedID]; ok && id != "" {
		rec.LastProcessedID = &id
	}
	return rec, nil
}

// Save writes the record. The script refuses to move the stored watermark
// backwards even if two relays share a key by mistake.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	err := luaAdvance.Run(ctx, s.rdb, []string{s.key}, rec.Last(), rec.StartedAt).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("advance %s: %w", s.key, err)
	}
	return nil
}
