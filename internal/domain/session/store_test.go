package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"apexid-bot/internal/domain/session"
)

// storeContract прогоняет контракт Store против конкретного бэкенда.
// Redis-реализацию контрактом не покрываем: ей нужен живой сервер.
func storeContract(t *testing.T, store session.Store) {
	t.Helper()
	ctx := context.Background()

	const userID int64 = 100500
	sess := session.Session{
		UserID:      userID,
		ProfileID:   "65ce28267e6a49005d3f5c5d",
		Email:       "a@b.com",
		DisplayName: "Ann",
		AuthToken:   "T",
	}

	ok, err := store.Exists(ctx, userID)
	if err != nil || ok {
		t.Fatalf("Exists() before put = (%v, %v), want (false, nil)", ok, err)
	}
	if _, err := store.Get(ctx, userID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Get() before put error = %v, want ErrNotFound", err)
	}

	// Read-your-writes: Get после Put возвращает записанное.
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get() after put error = %v", err)
	}
	if got != sess {
		t.Fatalf("Get() = %+v, want %+v", got, sess)
	}

	// Повторный Put перезаписывает целиком.
	updated := sess
	updated.AuthToken = "T2"
	updated.DisplayName = "Anna"
	if err := store.Put(ctx, updated); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}
	if got, _ = store.Get(ctx, userID); got != updated {
		t.Fatalf("Get() after overwrite = %+v, want %+v", got, updated)
	}

	// Delete идемпотентен.
	if err := store.Delete(ctx, userID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, userID); err != nil {
		t.Fatalf("Delete() twice error = %v", err)
	}
	if ok, _ = store.Exists(ctx, userID); ok {
		t.Fatal("Exists() after delete = true")
	}
}

func TestMemoryStoreContract(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	defer store.Close()
	storeContract(t, store)
}

func TestBoltStoreContract(t *testing.T) {
	t.Parallel()

	store, err := session.NewBoltStore(filepath.Join(t.TempDir(), "data", "sessions.bbolt"))
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	defer store.Close()
	storeContract(t, store)
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.bbolt")
	ctx := context.Background()
	sess := session.Session{UserID: 7, ProfileID: "p", Email: "e", AuthToken: "t"}

	store, err := session.NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := session.NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got != sess {
		t.Fatalf("Get() after reopen = %+v, want %+v", got, sess)
	}
}
