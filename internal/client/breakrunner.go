package client

import (
	"sync"

	"focusflow/backend/internal/timer"
)

// QueuedSession is a focus session waiting behind the current break.
type QueuedSession struct {
	Label           string
	DurationMinutes int
}

// BreakRunner drives the rest countdown between focus sessions. It is
// entirely local and non-durable: a process restart simply loses the break.
// It never mutates a session record; on expiry it only reports whether a
// queued session should start next.
type BreakRunner struct {
	countdown *timer.Countdown
	onTick    func(remaining int)
	onNext    func(next QueuedSession)
	onIdle    func()

	mu      sync.Mutex
	queue   []QueuedSession
	current string
}

func NewBreakRunner(onTick func(remaining int), onNext func(next QueuedSession), onIdle func()) *BreakRunner {
	return &BreakRunner{
		countdown: timer.NewCountdown(),
		onTick:    onTick,
		onNext:    onNext,
		onIdle:    onIdle,
	}
}

// Enqueue registers a session to start once the current break expires.
func (r *BreakRunner) Enqueue(label string, durationMinutes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, QueuedSession{Label: label, DurationMinutes: durationMinutes})
}

// Run starts counting down the given break, cancelling any break already in
// progress.
func (r *BreakRunner) Run(b Break) {
	r.mu.Lock()
	r.current = b.Kind
	r.mu.Unlock()
	r.countdown.Start(b.DurationSeconds, r.onTick, r.expire)
}

// Skip abandons the current break without dequeuing anything.
func (r *BreakRunner) Skip() {
	r.countdown.Stop()
	r.mu.Lock()
	r.current = ""
	r.mu.Unlock()
}

func (r *BreakRunner) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *BreakRunner) Remaining() int {
	return r.countdown.Remaining()
}

func (r *BreakRunner) expire() {
	r.mu.Lock()
	r.current = ""
	var next *QueuedSession
	if len(r.queue) > 0 {
		session := r.queue[0]
		r.queue = r.queue[1:]
		next = &session
	}
	r.mu.Unlock()

	if next != nil {
		if r.onNext != nil {
			r.onNext(*next)
		}
		return
	}
	if r.onIdle != nil {
		r.onIdle()
	}
}
