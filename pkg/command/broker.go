package command

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Notification is delivered to subscribers after a command commits.
type Notification struct {
	Command     Command
	CommittedAt time.Time
}

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

type subscriber struct {
	pattern string
	ch      chan Notification
}

// Broker fans committed commands out to pattern subscribers. Patterns use
// doublestar glob syntax against document paths, e.g. "/sessions/**".
// Dispatch never blocks: a subscriber that cannot keep up drops
// notifications (logged), it does not stall the command pipeline.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	buffer int
	logger *slog.Logger
	closed bool
}

// NewBroker creates a broker with the given per-subscriber buffer size.
func NewBroker(buffer int, logger *slog.Logger) *Broker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Broker{
		subs:   make(map[int]*subscriber),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers interest in commands whose path (or, for moves,
// target) matches the glob pattern. The returned cancel function removes
// the subscription and closes the channel.
func (b *Broker) Subscribe(pattern string) (<-chan Notification, func(), error) {
	if _, err := doublestar.Match(pattern, "/"); err != nil {
		return nil, nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan Notification)
		close(ch)
		return ch, func() {}, nil
	}
	id := b.nextID
	b.nextID++
	sub := &subscriber{pattern: pattern, ch: make(chan Notification, b.buffer)}
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel, nil
}

// Publish delivers a committed command to every matching subscriber.
func (b *Broker) Publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if !b.matches(sub.pattern, n.Command) {
			continue
		}
		select {
		case sub.ch <- n:
		default:
			b.logger.Warn("subscriber buffer full, dropping notification",
				"pattern", sub.pattern, "command", n.Command.Type, "path", n.Command.Path)
		}
	}
}

func (b *Broker) matches(pattern string, cmd Command) bool {
	if ok, _ := doublestar.Match(pattern, cmd.Path); ok {
		return true
	}
	if cmd.Target != "" {
		if ok, _ := doublestar.Match(pattern, cmd.Target); ok {
			return true
		}
	}
	return false
}

// Close removes all subscribers and closes their channels. Further
// publishes are silently dropped.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
	b.closed = true
}

// SubscriberCount reports the number of live subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
