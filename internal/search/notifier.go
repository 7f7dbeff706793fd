package search

import (
	"sync"
	"time"
)

// NoticeKind classifies a notice.
type NoticeKind string

const (
	NoticeQueryFailed   NoticeKind = "query_failed"
	NoticeItemsFailed   NoticeKind = "items_failed"
	NoticeRankingFailed NoticeKind = "ranking_failed"
)

// Notice is a human-readable failure report for a host to display. Messages never carry
// raw error text.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	Time    time.Time  `json:"time"`
}

// Notifier keeps the most recent notice and fans new ones out to subscribers.
// Slow subscribers miss notices rather than block publishers.
type Notifier struct {
	mu   sync.Mutex
	last *Notice
	subs map[uint64]chan Notice
	next uint64
	now  func() time.Time
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[uint64]chan Notice), now: time.Now}
}

// Publish records a notice and delivers it to every subscriber with buffer space.
func (n *Notifier) Publish(kind NoticeKind, message string) Notice {
	notice := Notice{Kind: kind, Message: message, Time: n.now()}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = &notice
	for _, ch := range n.subs {
		select {
		case ch <- notice:
		default:
		}
	}
	return notice
}

// Last returns the most recent notice, if any.
func (n *Notifier) Last() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last == nil {
		return Notice{}, false
	}
	return *n.last, true
}

// Subscribe returns a channel receiving notices published from now on, and a function
// that unsubscribes and closes the channel. The cancel function is safe to call twice.
func (n *Notifier) Subscribe(buffer int) (<-chan Notice, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Notice, buffer)

	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = ch
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
