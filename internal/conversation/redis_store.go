package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/neorisk-server/internal/domain"
)

const defaultKeyPrefix = "neorisk:session:"

// RedisSessionStore shares sessions between server replicas. Every call goes
// through a circuit breaker so a dead redis fails turns fast.
type RedisSessionStore struct {
	redis   *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	prefix  string
	logger  *logrus.Logger
}

// NewRedisSessionStore connects to redis and verifies the connection
func NewRedisSessionStore(redisConfig domain.RedisConfig, sessionConfig domain.SessionConfig, logger *logrus.Logger) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(redisConfig.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if redisConfig.PoolSize > 0 {
		opts.PoolSize = redisConfig.PoolSize
	}
	if redisConfig.PoolTimeout > 0 {
		opts.PoolTimeout = redisConfig.PoolTimeout
	}
	if redisConfig.DialTimeout > 0 {
		opts.DialTimeout = redisConfig.DialTimeout
	}
	opts.MaxRetries = redisConfig.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisSessionStore(client, redisConfig, sessionConfig, logger), nil
}

func newRedisSessionStore(client *redis.Client, redisConfig domain.RedisConfig, sessionConfig domain.SessionConfig, logger *logrus.Logger) *RedisSessionStore {
	ttl := sessionConfig.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	prefix := sessionConfig.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	trips := redisConfig.BreakerTrips
	if trips == 0 {
		trips = 3
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-sessions",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= trips && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &RedisSessionStore{
		redis:   client,
		breaker: breaker,
		ttl:     ttl,
		prefix:  prefix,
		logger:  logger,
	}
}

// Load fetches and decodes the chat's session
func (r *RedisSessionStore) Load(ctx context.Context, chatID string) (*Session, error) {
	raw, err := r.breaker.Execute(func() (interface{}, error) {
		val, err := r.redis.Get(ctx, r.key(chatID)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return val, err
	})
	if err != nil {
		return nil, r.wrap("load", err)
	}
	if raw == nil {
		return nil, nil
	}

	var session Session
	if err := json.Unmarshal(raw.([]byte), &session); err != nil {
		// drop corrupted entries and start over
		r.logger.WithError(err).WithField("chat_id", chatID).Warn("Discarding undecodable session")
		_ = r.Delete(ctx, chatID)
		return nil, nil
	}
	if session.Values == nil {
		session.Values = make(map[domain.ParameterKey]float64)
	}
	return &session, nil
}

// Save writes the session with the configured TTL. The key is watched
// so a write from another replica between the revision check and the SET
// aborts the transaction.
func (r *RedisSessionStore) Save(ctx context.Context, session *Session) error {
	next := session.Clone()
	next.Revision++
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := r.key(session.ChatID)
	conflict, err := r.breaker.Execute(func() (interface{}, error) {
		err := r.redis.Watch(ctx, func(tx *redis.Tx) error {
			current, err := storedRevision(ctx, tx, key)
			if err != nil {
				return err
			}
			if current != session.Revision {
				return ErrSessionConflict
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, r.ttl)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, ErrSessionConflict) || errors.Is(err, redis.TxFailedErr) {
			return true, nil
		}
		return false, err
	})
	if err != nil {
		return r.wrap("save", err)
	}
	if conflict.(bool) {
		return ErrSessionConflict
	}

	session.Revision = next.Revision
	return nil
}

// storedRevision reads the revision currently held under key. Missing and
// undecodable entries count as revision 0.
func storedRevision(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var stored struct {
		Revision int64 `json:"revision"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return 0, nil
	}
	return stored.Revision, nil
}

// Delete removes the chat's session
func (r *RedisSessionStore) Delete(ctx context.Context, chatID string) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.redis.Del(ctx, r.key(chatID)).Err()
	})
	return r.wrap("delete", err)
}

// Ping checks that redis answers
func (r *RedisSessionStore) Ping(ctx context.Context) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.redis.Ping(ctx).Err()
	})
	return r.wrap("ping", err)
}

// Close releases the redis connection pool
func (r *RedisSessionStore) Close() error {
	return r.redis.Close()
}

func (r *RedisSessionStore) key(chatID string) string {
	return r.prefix + chatID
}

func (r *RedisSessionStore) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrSessionStoreUnavailable, op, err)
	}
	return fmt.Errorf("session %s failed: %w", op, err)
}
