package session

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// sessionKeyPrefix — пространство ключей бота в Redis. Значение — JSON сессии.
const sessionKeyPrefix = "apexid:session:"

// RedisStore — хранилище сессий в Redis. Рекомендуемый бэкенд, когда бот
// работает в нескольких экземплярах: SET даёт атомарную перезапись, чтение
// после записи гарантируется самим Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore подключается по redis-URL (redis://host:port/db) и проверяет
// соединение пингом: недоступный Redis — ошибка старта, не рантайма.
func NewRedisStore(ctx context.Context, rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis URL")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return &RedisStore{client: client}, nil
}

// sessionKey строит ключ записи пользователя.
func sessionKey(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}

// Exists проверяет наличие записи командой EXISTS.
func (r *RedisStore) Exists(ctx context.Context, userID int64) (bool, error) {
	n, err := r.client.Exists(ctx, sessionKey(userID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis exists")
	}
	return n > 0, nil
}

// Get читает и декодирует сессию; redis.Nil транслируется в ErrNotFound.
func (r *RedisStore) Get(ctx context.Context, userID int64) (Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, errors.Wrap(err, "redis get")
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, errors.Wrap(err, "decode session")
	}
	return s, nil
}

// Put сериализует сессию и записывает её одной командой SET без TTL:
// сессия живёт до явного logout.
func (r *RedisStore) Put(ctx context.Context, s Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	if err := r.client.Set(ctx, sessionKey(s.UserID), raw, 0).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// Delete удаляет запись; DEL по отсутствующему ключу — не ошибка.
func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}

// Close закрывает соединение с Redis.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
