package concurrency_test

import (
	"sync"
	"testing"

	"apexid-bot/internal/infra/concurrency"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	t.Parallel()

	km := concurrency.NewKeyedMutex()

	const iterations = 200
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				unlock := km.Lock(42)
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counter != 4*iterations {
		t.Fatalf("counter = %d, want %d", counter, 4*iterations)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	t.Parallel()

	km := concurrency.NewKeyedMutex()

	unlockA := km.Lock(1)
	done := make(chan struct{})
	go func() {
		// Другой ключ не должен ждать освобождения первого.
		unlockB := km.Lock(2)
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

func TestKeyedMutexUnlockAllowsNextHolder(t *testing.T) {
	t.Parallel()

	km := concurrency.NewKeyedMutex()

	unlock := km.Lock(7)
	acquired := make(chan struct{})
	go func() {
		u := km.Lock(7)
		u()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the key while it was held")
	default:
	}

	unlock()
	<-acquired
}
