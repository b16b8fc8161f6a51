// Package notify is the in-process change-signal channel between sibling
// components: a mutator announces that battle state probably changed, and
// any view that cares schedules a refresh. Signals carry no payload; the
// refresh itself re-reads authoritative state.
package notify

import "sync"

type Topic string

const (
	TopicInviteSent      Topic = "invite_sent"
	TopicPreBattleOpened Topic = "prebattle_opened"
	TopicStatusUpdated   Topic = "status_updated"
)

type Subscription struct {
	// C delivers at-least-one signal per burst of publishes. A signal is one
	// bit; if the subscriber is still processing, further publishes coalesce.
	C      chan Topic
	topics map[Topic]bool
	bus    *Bus
}

type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers interest in the given topics; no topics means all.
func (b *Bus) Subscribe(topics ...Topic) *Subscription {
	s := &Subscription{
		C:   make(chan Topic, 1),
		bus: b,
	}
	if len(topics) > 0 {
		s.topics = make(map[Topic]bool, len(topics))
		for _, t := range topics {
			s.topics[t] = true
		}
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *Bus) Unsubscribe(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Publish never blocks: a subscriber with a signal already pending simply
// keeps the pending one.
func (b *Bus) Publish(topic Topic) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		if s.topics != nil && !s.topics[topic] {
			continue
		}
		select {
		case s.C <- topic:
		default:
		}
	}
}
