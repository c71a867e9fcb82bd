package pedal

import (
	"fmt"
	"sync"
)

// SubscriptionMode controls what happens when a subscriber falls behind.
type SubscriptionMode string

const (
	// SubscriptionModeDrop discards events once the buffer is full.
	SubscriptionModeDrop SubscriptionMode = "drop"
	// SubscriptionModeBlock makes the pump wait for the subscriber.
	SubscriptionModeBlock SubscriptionMode = "block"
)

// SubscriptionPolicy configures one subscriber's channel.
type SubscriptionPolicy struct {
	Buffer int
	Mode   SubscriptionMode
}

// DefaultSubscriptionPolicy suits UI consumers: buffered, lossy under
// pressure (output events are already coalesced upstream).
func DefaultSubscriptionPolicy() SubscriptionPolicy {
	return SubscriptionPolicy{Buffer: 128, Mode: SubscriptionModeDrop}
}

func validateSubscriptionPolicy(policy SubscriptionPolicy) error {
	if policy.Buffer <= 0 {
		return fmt.Errorf("%w: buffer must be > 0", ErrInvalidSubscriptionPolicy)
	}
	switch policy.Mode {
	case SubscriptionModeDrop, SubscriptionModeBlock:
		return nil
	default:
		return fmt.Errorf("%w: unsupported mode %q", ErrInvalidSubscriptionPolicy, policy.Mode)
	}
}

type subscription struct {
	out    chan Event
	in     chan Event
	done   chan struct{}
	once   sync.Once
	policy SubscriptionPolicy
}

func newSubscription(policy SubscriptionPolicy) (*subscription, error) {
	if err := validateSubscriptionPolicy(policy); err != nil {
		return nil, err
	}
	return &subscription{
		out:    make(chan Event, policy.Buffer),
		in:     make(chan Event, policy.Buffer),
		done:   make(chan struct{}),
		policy: policy,
	}, nil
}

// run shuttles events from in to out so close never races a send on out.
func (sub *subscription) run() {
	defer close(sub.out)
	for {
		select {
		case event := <-sub.in:
			select {
			case sub.out <- event:
			case <-sub.done:
				return
			}
		case <-sub.done:
			return
		}
	}
}

func (sub *subscription) enqueue(event Event) {
	switch sub.policy.Mode {
	case SubscriptionModeBlock:
		select {
		case sub.in <- event:
		case <-sub.done:
		}
	default:
		select {
		case sub.in <- event:
		case <-sub.done:
		default:
		}
	}
}

func (sub *subscription) close() {
	sub.once.Do(func() { close(sub.done) })
}
