package service

import (
	"sync"

	"mppt_sweep/internal/models"
)

// Sink receives the live output of a sweep. OnSample fires once per
// successfully measured point, in setpoint order; OnComplete fires exactly
// once when the run reaches a terminal status.
type Sink interface {
	OnSample(s models.Sample)
	OnComplete(r models.SweepResult)
}

// StreamMsg is one frame on a subscriber channel.
type StreamMsg struct {
	Type   string              `json:"type"` // "sample" | "result"
	Sample *models.Sample      `json:"sample,omitempty"`
	Result *models.SweepResult `json:"result,omitempty"`
}

// Broadcaster fans sweep output out to any number of subscribers, typically
// websocket connections. Delivery is best effort: a subscriber that cannot
// keep up has frames dropped rather than stalling the sweep loop.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan StreamMsg
}

const subscriberBuffer = 64

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan StreamMsg)}
}

// Subscribe registers a new listener and returns its id and channel. The
// channel is closed on Unsubscribe.
func (b *Broadcaster) Subscribe() (int, <-chan StreamMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	ch := make(chan StreamMsg, subscriberBuffer)
	b.subs[b.nextID] = ch
	return b.nextID, ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *Broadcaster) OnSample(s models.Sample) {
	b.publish(StreamMsg{Type: "sample", Sample: &s})
}

func (b *Broadcaster) OnComplete(r models.SweepResult) {
	b.publish(StreamMsg{Type: "result", Result: &r})
}

func (b *Broadcaster) publish(msg StreamMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default: // slow subscriber, drop the frame
		}
	}
}
