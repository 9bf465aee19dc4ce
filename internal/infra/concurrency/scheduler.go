// В этом файле реализован Scheduler — реестр отложенных одноразовых действий.
// Применение: автоудаление сообщений с результатом верификации через фиксированное
// окно. Действие не занимает воркера на всё время ожидания: до срабатывания
// живёт только таймер. Гарантий исполнения при останове процесса нет — отложенные
// действия сбрасываются, это осознанное ограничение, а не дефект.

package concurrency

import (
	"context"
	"sync"
	"time"
)

// Scheduler планирует отложенные функции и позволяет отменять их по одной
// (через возвращённый cancel) или все разом (Stop). Структура потокобезопасна.
type Scheduler struct {
	mu      sync.Mutex            // mu защищает pending, nextID и active
	pending map[int64]*time.Timer // активные таймеры по внутреннему id
	nextID  int64
	active  bool // false до Start и после Stop: After становится no-op

	runMu  sync.Mutex         // runMu сериализует Start/Stop
	cancel context.CancelFunc // cancel завершает привязку к внешнему контексту
	wg     sync.WaitGroup
}

// NewScheduler создаёт пустой планировщик. До вызова Start все After — no-op.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[int64]*time.Timer)}
}

// Start привязывает планировщик к контексту: при отмене ctx все отложенные
// действия сбрасываются без исполнения. Повторные вызовы безопасно игнорируются.
func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		return
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.mu.Lock()
	s.active = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-runCtx.Done()
		s.dropAll()
	}()
}

// Stop отменяет привязку к контексту и сбрасывает все отложенные действия.
// После возврата ни одна запланированная функция не будет вызвана.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

// After планирует однократный вызов fn через delay и возвращает функцию отмены.
// Отмена идемпотентна; после срабатывания она ничего не делает. Если планировщик
// не запущен или уже остановлен, fn не будет вызвана никогда (best effort).
func (s *Scheduler) After(delay time.Duration, fn func()) (cancel func()) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return func() {}
	}

	s.nextID++
	id := s.nextID
	timer := time.AfterFunc(delay, func() {
		// Сначала снимаем регистрацию: если Stop уже дренировал карту,
		// запись отсутствует и действие не исполняется.
		if _, ok := s.take(id); ok {
			fn()
		}
	})
	s.pending[id] = timer
	s.mu.Unlock()

	return func() {
		if t, ok := s.take(id); ok {
			t.Stop()
		}
	}
}

// Pending возвращает число ещё не сработавших действий (для статуса и тестов).
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// take извлекает таймер записи id, если она ещё активна.
func (s *Scheduler) take(id int64) (*time.Timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	return t, ok
}

// dropAll останавливает и удаляет все активные таймеры без исполнения действий
// и переводит планировщик в неактивное состояние.
func (s *Scheduler) dropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	s.active = false
}
