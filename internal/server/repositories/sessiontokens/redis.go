package sessiontokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps token records as two keys per (user, purpose):
// the token value pointing at the record, and the user pointing at the
// current token value. Both expire with the token.
type RedisRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRepository constructs a Redis-backed token store. Keys are
// namespaced under prefix (e.g. "auth").
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	return &RedisRepository{client: client, prefix: prefix, now: time.Now}
}

type redisRecord struct {
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (r *RedisRepository) tokenKey(purpose models.TokenPurpose, value string) string {
	return fmt.Sprintf("%s:%s:token:%s", r.prefix, purpose, value)
}

func (r *RedisRepository) userKey(purpose models.TokenPurpose, userID string) string {
	return fmt.Sprintf("%s:%s:user:%s", r.prefix, purpose, userID)
}

// upsertScript swaps the user's current token for a new one in a single
// step, so concurrent writers cannot leave two live tokens behind.
// KEYS: user key, new token key. ARGV: token, record, ttl ms, token key prefix.
var upsertScript = redis.NewScript(`
local prev = redis.call('GET', KEYS[1])
if prev and prev ~= ARGV[1] then
  redis.call('DEL', ARGV[4] .. prev)
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// deleteScript drops the user key and whatever token it points at.
// KEYS: user key. ARGV: token key prefix.
var deleteScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  redis.call('DEL', ARGV[1] .. cur, KEYS[1])
end
return 1
`)

// expireScript removes a stale token key, and the user key only while it
// still points at that token.
// KEYS: token key, user key. ARGV: token.
var expireScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
if redis.call('GET', KEYS[2]) == ARGV[1] then
  redis.call('DEL', KEYS[2])
end
return 1
`)

func (r *RedisRepository) tokenKeyPrefix(purpose models.TokenPurpose) string {
	return r.tokenKey(purpose, "")
}

func (r *RedisRepository) Upsert(ctx context.Context, token *models.SessionToken) error {
	ttl := token.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.DeleteByUser(ctx, token.UserID, token.Purpose)
	}

	payload, err := json.Marshal(redisRecord{UserID: token.UserID, ExpiresAt: token.ExpiresAt})
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	ttlMs := ttl.Milliseconds()
	if ttlMs < 1 {
		ttlMs = 1
	}

	keys := []string{r.userKey(token.Purpose, token.UserID), r.tokenKey(token.Purpose, token.Token)}
	err = upsertScript.Run(ctx, r.client, keys, token.Token, string(payload), ttlMs, r.tokenKeyPrefix(token.Purpose)).Err()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) FindByToken(ctx context.Context, purpose models.TokenPurpose, value string) (*models.SessionToken, error) {
	key := r.tokenKey(purpose, value)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}

	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	t := &models.SessionToken{UserID: rec.UserID, Purpose: purpose, Token: value, ExpiresAt: rec.ExpiresAt}
	if t.Expired(r.now()) {
		keys := []string{key, r.userKey(purpose, rec.UserID)}
		if err := expireScript.Run(ctx, r.client, keys, value).Err(); err != nil {
			return nil, fmt.Errorf("redis error: %w", err)
		}
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (r *RedisRepository) DeleteByUser(ctx context.Context, userID string, purpose models.TokenPurpose) error {
	keys := []string{r.userKey(purpose, userID)}
	if err := deleteScript.Run(ctx, r.client, keys, r.tokenKeyPrefix(purpose)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
