// Package events carries runner progress to whoever is watching
// (the dashboard websocket, the CLI, tests). Publishing never blocks:
// a slow subscriber drops events instead of stalling the run.
package events

import (
	"sync"
	"time"
)

type Type string

const (
	TypeLog             Type = "log"
	TypeRunStarted      Type = "run_started"
	TypeProfileStarted  Type = "profile_started"
	TypeStepFinished    Type = "step_finished"
	TypeProfileFinished Type = "profile_finished"
	TypeRunFinished     Type = "run_finished"
)

type Event struct {
	Type        Type      `json:"type"`
	RunID       string    `json:"run_id,omitempty"`
	ProfileID   string    `json:"profile_id,omitempty"`
	ProfileName string    `json:"profile_name,omitempty"`
	Round       int       `json:"round,omitempty"`
	Step        string    `json:"step,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

const subscriberBuffer = 256

type Feed struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan Event)}
}

// Publish delivers ev to every subscriber. Full subscriber buffers are
// skipped, so the runner never waits on a consumer.
func (f *Feed) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel of future events and a cancel func.
// The channel is closed on cancel or when the feed shuts down.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close shuts the feed down and closes all subscriber channels.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
