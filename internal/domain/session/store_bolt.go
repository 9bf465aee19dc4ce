package session

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"go.etcd.io/bbolt"

	"apexid-bot/internal/infra/storage"
)

const (
	sessionsBucketName             = "sessions"
	dbOpenTimeout                  = time.Second
	dbFileMode         os.FileMode = 0o600
)

var sessionsBucket = []byte(sessionsBucketName)

// BoltStore — встраиваемое хранилище сессий на bbolt. Выбирается, когда
// REDIS_URL не задан: один файл на диске, транзакции дают атомарную
// перезапись и переживание рестартов без внешних сервисов.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore открывает (или создаёт) файл базы по пути path и готовит
// бакет сессий. Каталог файла создаётся при необходимости.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := storage.EnsureDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, dbFileMode, &bbolt.Options{Timeout: dbOpenTimeout})
	if err != nil {
		return nil, errors.Wrap(err, "open sessions db")
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, errBkt := tx.CreateBucketIfNotExists(sessionsBucket)
		return errBkt
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "prepare sessions bucket")
	}
	return &BoltStore{db: db}, nil
}

// boltKey строит ключ записи: десятичный chat-идентификатор.
func boltKey(userID int64) []byte {
	return []byte(strconv.FormatInt(userID, 10))
}

// Exists проверяет наличие записи в read-транзакции.
func (b *BoltStore) Exists(_ context.Context, userID int64) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(sessionsBucket).Get(boltKey(userID)) != nil
		return nil
	})
	return found, err
}

// Get читает и декодирует сессию или возвращает ErrNotFound.
func (b *BoltStore) Get(_ context.Context, userID int64) (Session, error) {
	var raw []byte
	if err := b.db.View(func(tx *bbolt.Tx) error {
		// Срез валиден только внутри транзакции — копируем.
		if v := tx.Bucket(sessionsBucket).Get(boltKey(userID)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return Session{}, errors.Wrap(err, "read session")
	}
	if raw == nil {
		return Session{}, ErrNotFound
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, errors.Wrap(err, "decode session")
	}
	return s, nil
}

// Put записывает сессию в одной write-транзакции: замена всегда целиком.
func (b *BoltStore) Put(_ context.Context, s Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	if err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put(boltKey(s.UserID), raw)
	}); err != nil {
		return errors.Wrap(err, "write session")
	}
	return nil
}

// Delete удаляет запись; bbolt.Delete по отсутствующему ключу — no-op.
func (b *BoltStore) Delete(_ context.Context, userID int64) error {
	if err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete(boltKey(userID))
	}); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// Close закрывает файл базы.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
