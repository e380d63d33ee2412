// Package feed fans out change notices for individual entities to live
// subscribers.
package feed

import "sync"

// subscriberBufferSize is the channel buffer for each subscriber.
// Notices are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// Broker manages per-entity change streams. It is safe for concurrent use.
//
// Closed topics are retained as markers so that subscribers arriving after
// an entity is closed or removed receive a closed channel instead of waiting
// forever.
type Broker struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	subs   map[int]chan []byte
	nextID int
	closed bool
}

// NewBroker creates a new broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]*topic),
	}
}

// Subscribe returns a channel that receives notices for entityID and an
// unsubscribe function. If the topic is already closed the returned channel
// is closed immediately.
func (b *Broker) Subscribe(entityID string) (<-chan []byte, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[entityID]
	if !ok {
		t = &topic{subs: make(map[int]chan []byte)}
		b.topics[entityID] = t
	}

	ch := make(chan []byte, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(ch)
		}
		if len(t.subs) == 0 && !t.closed {
			delete(b.topics, entityID)
		}
	}
}

// Publish sends a notice to every subscriber of entityID. Notices are
// dropped for subscribers whose buffers are full.
func (b *Broker) Publish(entityID string, notice []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[entityID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- notice:
		default:
		}
	}
}

// Close ends the stream for entityID. Subscriber channels are closed and
// future Subscribe calls return a closed channel.
func (b *Broker) Close(entityID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[entityID]
	if !ok {
		b.topics[entityID] = &topic{subs: make(map[int]chan []byte), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}

// Subscribers returns the number of live subscribers for entityID.
func (b *Broker) Subscribers(entityID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.topics[entityID]; ok {
		return len(t.subs)
	}
	return 0
}
