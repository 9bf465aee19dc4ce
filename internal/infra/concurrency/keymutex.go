// Package concurrency — вспомогательная инфраструктура конкурентного исполнения.
// В этом файле реализован KeyedMutex — семейство мьютексов по ключу. Применяется
// для сериализации обработки событий одного пользователя: два апдейта разных
// пользователей идут параллельно, два апдейта одного — строго по очереди,
// иначе возможна потеря обновления состояния диалога.
package concurrency

import "sync"

// KeyedMutex выдаёт мьютекс для произвольного int64-ключа. Записи создаются
// лениво и удаляются, когда последний владелец отпускает ключ, поэтому карта
// не растёт с числом когда-либо виденных ключей. Структура потокобезопасна.
type KeyedMutex struct {
	mu      sync.Mutex // mu защищает карту entries
	entries map[int64]*keyEntry
}

// keyEntry — мьютекс одного ключа со счётчиком ожидающих. refs учитывает и
// держателя, и очередь: запись можно удалить только при refs == 0.
type keyEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex создаёт пустое семейство мьютексов.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[int64]*keyEntry)}
}

// Lock захватывает мьютекс ключа key и возвращает функцию освобождения.
// Возвращённый unlock обязателен к вызову ровно один раз; удобно через defer.
func (k *KeyedMutex) Lock(key int64) (unlock func()) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
