package token

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no active record exists for the token hash.
var ErrNotFound = errors.New("refresh record not found")

// ErrReuseDetected is returned when the record was already consumed once.
var ErrReuseDetected = errors.New("refresh record already consumed")

// ErrRecordCorrupt is returned when a stored record fails to decode.
var ErrRecordCorrupt = errors.New("refresh record corrupt")

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

const recordVersion = 1

const (
	consumeStatusNotFound int64 = 0
	consumeStatusReuse    int64 = 1
	consumeStatusConsumed int64 = 2
	consumeStatusCorrupt  int64 = 3
)

// consumeScript deletes the record, drops it from the user index, and leaves
// a short-lived reuse marker — all in one atomic step, so a concurrent second
// consume of the same token observes either the record or the marker, never
// both a success. The user ID is parsed out of the record blob so the index
// key can be derived inside the script.
const consumeScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  if redis.call("EXISTS", KEYS[2]) == 1 then
    return {1}
  end
  return {0}
end

local uid_len = string.byte(data, 2)
if not uid_len or #data < 2 + uid_len then
  return {3}
end
local uid = string.sub(data, 3, 2 + uid_len)

redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. uid, ARGV[2])
redis.call("SET", KEYS[2], "1", "PX", ARGV[3])
return {2, data}
`

var consumeLua = redis.NewScript(consumeScript)

// revokeAllScript deletes every record listed in the user index plus the
// index itself. Revoked records leave no reuse marker: presenting a revoked
// token is indistinguishable from presenting an expired one.
const revokeAllScript = `
local hashes = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for i = 1, #hashes do
  removed = removed + redis.call("DEL", ARGV[1] .. hashes[i])
end
redis.call("DEL", KEYS[1])
return removed
`

var revokeAllLua = redis.NewScript(revokeAllScript)

// Record is one issued refresh token: keyed by the SHA-256 of the opaque
// token string, holding the user it was issued to and the expiry mirrored
// from the signed claim. A record is active exactly while its key exists.
type Record struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

// Store persists refresh-token records in Redis. Record TTL equals the
// remaining token lifetime, so expired records self-collect.
type Store struct {
	redis        redis.UniversalClient
	prefix       string
	reuseMarkTTL time.Duration
}

// NewStore creates a record [Store]. prefix namespaces all keys;
// reuseMarkTTL bounds how long a consumed token keeps being reported as
// reused rather than unknown.
func NewStore(redisClient redis.UniversalClient, prefix string, reuseMarkTTL time.Duration) *Store {
	if prefix == "" {
		prefix = "art"
	}
	if reuseMarkTTL <= 0 {
		reuseMarkTTL = time.Hour
	}

	return &Store{
		redis:        redisClient,
		prefix:       prefix,
		reuseMarkTTL: reuseMarkTTL,
	}
}

func (s *Store) key(tokenHash string) string {
	return s.prefix + ":" + tokenHash
}

func (s *Store) usedKey(tokenHash string) string {
	return s.prefix + ":used:" + tokenHash
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":user:" + userID
}

// Save persists an active record. The key expires when the token does.
func (s *Store) Save(ctx context.Context, rec Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%w: record already expired", ErrRecordCorrupt)
	}

	data := encodeRecord(rec)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(rec.TokenHash), data, ttl)
		pipe.SAdd(ctx, s.userKey(rec.UserID), rec.TokenHash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Consume atomically deactivates the record and returns it. At most one
// caller ever succeeds per token: concurrent consumers of the same hash
// observe ErrReuseDetected (or ErrNotFound once the reuse marker lapses).
func (s *Store) Consume(ctx context.Context, tokenHash string) (Record, error) {
	result, err := consumeLua.Run(
		ctx,
		s.redis,
		[]string{s.key(tokenHash), s.usedKey(tokenHash)},
		s.prefix+":user:",
		tokenHash,
		s.reuseMarkTTL.Milliseconds(),
	).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return Record{}, fmt.Errorf("%w: invalid consume script response", ErrRedisUnavailable)
	}

	code, ok := parts[0].(int64)
	if !ok {
		return Record{}, fmt.Errorf("%w: invalid consume script status", ErrRedisUnavailable)
	}

	switch code {
	case consumeStatusNotFound:
		return Record{}, ErrNotFound
	case consumeStatusReuse:
		return Record{}, ErrReuseDetected
	case consumeStatusCorrupt:
		return Record{}, ErrRecordCorrupt
	case consumeStatusConsumed:
		if len(parts) < 2 {
			return Record{}, fmt.Errorf("%w: missing record payload", ErrRedisUnavailable)
		}

		var blob []byte
		switch v := parts[1].(type) {
		case string:
			blob = []byte(v)
		case []byte:
			blob = v
		default:
			return Record{}, fmt.Errorf("%w: invalid record payload", ErrRedisUnavailable)
		}

		rec, decErr := decodeRecord(blob)
		if decErr != nil {
			return Record{}, decErr
		}
		rec.TokenHash = tokenHash
		return rec, nil
	default:
		return Record{}, fmt.Errorf("%w: unknown consume script status", ErrRedisUnavailable)
	}
}

// RevokeAllForUser deletes every active record for the user and returns how
// many were removed. Used for session containment after a password reset.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	removed, err := revokeAllLua.Run(
		ctx,
		s.redis,
		[]string{s.userKey(userID)},
		s.prefix+":",
	).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return removed, nil
}

// ActiveCount returns the number of tracked record hashes for a user. The
// index may briefly overcount records that expired but were never consumed.
func (s *Store) ActiveCount(ctx context.Context, userID string) (int, error) {
	count, err := s.redis.SCard(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

// Record blob layout: version(1) | uid_len(1) | uid | expires_at be64.
// The uid length prefix sits at a fixed offset so the consume script can
// derive the user index key without a round trip.
func encodeRecord(rec Record) []byte {
	uid := []byte(rec.UserID)
	if len(uid) > 255 {
		uid = uid[:255]
	}

	data := make([]byte, 0, 2+len(uid)+8)
	data = append(data, recordVersion, byte(len(uid)))
	data = append(data, uid...)
	data = binary.BigEndian.AppendUint64(data, uint64(rec.ExpiresAt.Unix()))

	return data
}

func decodeRecord(data []byte) (Record, error) {
	if len(data) < 2 || data[0] != recordVersion {
		return Record{}, ErrRecordCorrupt
	}

	uidLen := int(data[1])
	if len(data) < 2+uidLen+8 {
		return Record{}, ErrRecordCorrupt
	}

	uid := string(data[2 : 2+uidLen])
	expires := binary.BigEndian.Uint64(data[2+uidLen : 2+uidLen+8])

	return Record{
		UserID:    uid,
		ExpiresAt: time.Unix(int64(expires), 0),
	}, nil
}
