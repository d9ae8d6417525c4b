package orchestrator

import (
	"io"
	"strings"
	"sync"
	"time"

	"digestbot/types"
)

// Run status values carried by the terminal status event
const (
	StatusDone  = "done"
	StatusError = "error"
)

// EventBus fans run events out to every subscriber. It keeps the current
// run's events (up to capacity) so a subscriber that connects late sees the
// run from the start. Publish never blocks: a full subscriber loses its
// oldest event.
type EventBus struct {
	mu       sync.Mutex
	capacity int
	history  []types.Event
	subs     map[chan types.Event]struct{}
}

// NewEventBus creates a bus holding up to capacity events per subscriber
func NewEventBus(capacity int) *EventBus {
	if capacity < 1 {
		capacity = 1
	}
	return &EventBus{capacity: capacity, subs: make(map[chan types.Event]struct{})}
}

// Publish records e and delivers it to every subscriber
func (b *EventBus) Publish(e types.Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, e)
	if len(b.history) > b.capacity {
		b.history = b.history[len(b.history)-b.capacity:]
	}
	for ch := range b.subs {
		offer(ch, e)
	}
}

// offer sends e on ch, evicting the oldest queued event when full. Callers
// hold the bus lock, so no other sender competes for the freed slot.
func offer(ch chan types.Event, e types.Event) {
	for {
		select {
		case ch <- e:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Log publishes one log line
func (b *EventBus) Log(text string) {
	b.Publish(types.Event{Type: types.EventLog, Text: text})
}

// Status publishes the terminal event of a run
func (b *EventBus) Status(status string, code int) {
	b.Publish(types.Event{Type: types.EventStatus, Status: status, Code: code})
}

// Subscribe returns a channel primed with the current run's events and
// then fed every new one. The cancel func unregisters and closes it.
func (b *EventBus) Subscribe() (<-chan types.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan types.Event, b.capacity)
	for _, e := range b.history {
		ch <- e
	}
	b.subs[ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, ch)
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers reports how many consumers are attached
func (b *EventBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Drain forgets the recorded events of the previous run
func (b *EventBus) Drain() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.history)
	b.history = nil
	return n
}

// logTee forwards each rendered log line to the bus and the guard's ring
type logTee struct {
	bus   *EventBus
	guard *RunGuard
}

// LogWriter returns a writer for logging.New tees. Each non-empty line
// becomes a log event and a status log entry.
func LogWriter(bus *EventBus, guard *RunGuard) io.Writer {
	return &logTee{bus: bus, guard: guard}
}

func (t *logTee) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimRight(line, "\r ")
		if line == "" {
			continue
		}
		if t.bus != nil {
			t.bus.Log(line)
		}
		if t.guard != nil {
			t.guard.AddLog(line)
		}
	}
	return len(p), nil
}
