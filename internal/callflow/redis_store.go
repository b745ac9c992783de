package callflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	callStateKeyPrefix = "call:state:"
	callEndedKeyPrefix = "call:ended:"
)

// saveIfLive writes the state only when no tombstone exists for the call, so
// a turn racing the call-end event cannot resurrect the state.
var saveIfLive = redis.NewScript(`
if redis.call("exists", KEYS[2]) == 1 then
	return 0
end
redis.call("set", KEYS[1], ARGV[1], "px", ARGV[2])
return 1
`)

// RedisStore keeps call state in Redis so multiple instances can share a
// call. Idle calls expire via key TTL instead of a reaper.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore creates a redis-backed call state store.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if rdb == nil {
		panic("callflow: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func callStateKey(callID string) string {
	return callStateKeyPrefix + callID
}

func callEndedKey(callID string) string {
	return callEndedKeyPrefix + callID
}

func (s *RedisStore) Get(ctx context.Context, callID string) (*CallState, error) {
	data, err := s.rdb.Get(ctx, callStateKey(callID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("callflow: get call state: %w", err)
	}
	var state CallState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("callflow: unmarshal call state: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, state *CallState) error {
	if state == nil || state.CallID == "" {
		return fmt.Errorf("callflow: call state requires a call id")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("callflow: marshal call state: %w", err)
	}
	stored, err := saveIfLive.Run(ctx, s.rdb,
		[]string{callStateKey(state.CallID), callEndedKey(state.CallID)},
		string(data), s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("callflow: save call state: %w", err)
	}
	if stored == 0 {
		return ErrCallEnded
	}
	return nil
}

func (s *RedisStore) End(ctx context.Context, callID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, callEndedKey(callID), "1", s.ttl)
	pipe.Del(ctx, callStateKey(callID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("callflow: end call: %w", err)
	}
	return nil
}
