// Package future предоставляет потокобезопасный слот однократного
// присваивания для передачи значения между контекстами исполнения.
package future

import (
	"context"
	"sync"
)

// Value — слот однократного присваивания. Одна сторона ожидает значение
// через Await, другая поставляет его через Fulfill. Повторное Fulfill —
// безопасный no-op, а не ошибка.
type Value[T any] struct {
	mu   sync.Mutex
	ch   chan T
	done bool
}

// New создает пустой слот.
func New[T any]() *Value[T] {
	return &Value[T]{ch: make(chan T, 1)}
}

// Fulfill разрешает слот значением. Возвращает false, если слот уже был
// разрешен; значение в этом случае отбрасывается.
func (v *Value[T]) Fulfill(val T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.done {
		return false
	}
	v.done = true
	v.ch <- val
	return true
}

// Await блокирует вызывающего до разрешения слота или отмены контекста.
// Таймаута нет: ожидание ограничено только временем жизни контекста.
func (v *Value[T]) Await(ctx context.Context) (T, error) {
	select {
	case val := <-v.ch:
		return val, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
