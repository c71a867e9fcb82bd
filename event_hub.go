package pedal

import "sync"

// eventHub fans pump output out to UI subscribers. Publishing never blocks
// the control thread unless a subscriber explicitly asked for Block mode.
type eventHub struct {
	mu          sync.Mutex
	subscribers map[*subscription]struct{}
	closed      bool
}

func newEventHub() *eventHub {
	return &eventHub{subscribers: map[*subscription]struct{}{}}
}

func (hub *eventHub) subscribe(policy SubscriptionPolicy) (<-chan Event, func(), error) {
	sub, err := newSubscription(policy)
	if err != nil {
		return nil, nil, err
	}

	hub.mu.Lock()
	if hub.closed {
		hub.mu.Unlock()
		return nil, nil, ErrRunnerClosed
	}
	hub.subscribers[sub] = struct{}{}
	hub.mu.Unlock()

	go sub.run()

	var cancelOnce sync.Once
	cancel := func() {
		cancelOnce.Do(func() {
			hub.mu.Lock()
			delete(hub.subscribers, sub)
			hub.mu.Unlock()
			sub.close()
		})
	}
	return sub.out, cancel, nil
}

func (hub *eventHub) publish(event Event) {
	for sub := range hub.snapshot() {
		sub.enqueue(event)
	}
}

func (hub *eventHub) close() {
	hub.mu.Lock()
	if hub.closed {
		hub.mu.Unlock()
		return
	}
	hub.closed = true
	subscribers := hub.subscribers
	hub.subscribers = map[*subscription]struct{}{}
	hub.mu.Unlock()

	for sub := range subscribers {
		sub.close()
	}
}

func (hub *eventHub) snapshot() map[*subscription]struct{} {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	copied := make(map[*subscription]struct{}, len(hub.subscribers))
	for sub := range hub.subscribers {
		copied[sub] = struct{}{}
	}
	return copied
}
