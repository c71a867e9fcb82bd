// Package runtime holds small concurrency primitives shared by the root
// package.
package runtime

import "sync"

// Queue is a mutex-protected FIFO. Producers append from listener
// goroutines; the single consumer pops from the control thread, so pops
// never block: TryPop reports emptiness instead of waiting.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

func (queue *Queue[T]) Push(item T) {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	queue.items = append(queue.items, item)
}

// PushFront puts an item back at the head of the queue. Used when the
// consumer pops one item too many while merging.
func (queue *Queue[T]) PushFront(item T) {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	if queue.head > 0 {
		queue.head--
		queue.items[queue.head] = item
		return
	}
	queue.items = append([]T{item}, queue.items...)
}

func (queue *Queue[T]) TryPop() (T, bool) {
	queue.mu.Lock()
	defer queue.mu.Unlock()

	if queue.head >= len(queue.items) {
		var zero T
		return zero, false
	}

	item := queue.items[queue.head]
	var zero T
	queue.items[queue.head] = zero
	queue.head++
	queue.compact()
	return item, true
}

func (queue *Queue[T]) Len() int {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	return len(queue.items) - queue.head
}

func (queue *Queue[T]) compact() {
	if queue.head == 0 {
		return
	}
	if queue.head < 1024 && queue.head*2 < len(queue.items) {
		return
	}
	remaining := len(queue.items) - queue.head
	copy(queue.items[:remaining], queue.items[queue.head:])
	queue.items = queue.items[:remaining]
	queue.head = 0
}
