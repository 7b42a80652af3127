package timer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/moiskillnadne/work-time-tracker/internal/store"
)

// Persister is the slice of the store the machine needs.
type Persister interface {
	LoadTimer(ctx context.Context) (*store.TimerRecord, bool)
	SaveTimer(ctx context.Context, rec store.TimerRecord)
	ClearTimer(ctx context.Context)
}

// Tick is a read-only projection published to watchers.
type Tick struct {
	Status  Status
	Elapsed time.Duration
	At      time.Time
}

// Machine owns the timer state, persists every transition, and republishes
// the elapsed time while running.
type Machine struct {
	mu       sync.Mutex
	state    State
	persist  Persister
	now      func() time.Time
	interval time.Duration

	ticker   *ticker
	watchers map[int]chan Tick
	nextID   int
	closed   bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithTickInterval sets the live-update period (default one second).
func WithTickInterval(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.interval = d
		}
	}
}

// New rehydrates a Machine from p. Absent or invalid records yield an idle
// timer; a persisted running timer resumes ticking immediately.
func New(ctx context.Context, p Persister, opts ...Option) *Machine {
	m := &Machine{
		state:    Idle(),
		persist:  p,
		now:      time.Now,
		interval: time.Second,
		watchers: make(map[int]chan Tick),
	}
	for _, opt := range opts {
		opt(m)
	}

	if rec, ok := p.LoadTimer(ctx); ok {
		s, err := FromRecord(*rec)
		if err != nil {
			log.Printf("timer: ignoring invalid persisted state: %v", err)
		} else {
			m.state = s
		}
	}
	if m.state.Status == StatusRunning {
		m.startTickerLocked()
	}
	return m
}

// clock returns now at the persisted millisecond resolution.
func (m *Machine) clock() time.Time {
	return time.UnixMilli(m.now().UnixMilli())
}

// Start moves idle or paused to running. No-op when already running.
func (m *Machine) Start(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Status == StatusRunning {
		return m.state
	}
	m.state = m.state.Start(m.clock())
	m.persist.SaveTimer(ctx, ToRecord(m.state))
	m.startTickerLocked()
	m.publishLocked()
	return m.state
}

// Pause moves running to paused. No-op otherwise.
func (m *Machine) Pause(ctx context.Context) State {
	m.mu.Lock()
	if m.state.Status != StatusRunning {
		s := m.state
		m.mu.Unlock()
		return s
	}
	m.state = m.state.Pause(m.clock())
	m.persist.SaveTimer(ctx, ToRecord(m.state))
	t := m.detachTickerLocked()
	m.publishLocked()
	s := m.state
	m.mu.Unlock()

	t.wait()
	return s
}

// Reset discards all segments from any state and clears the persisted record.
func (m *Machine) Reset(ctx context.Context) State {
	m.mu.Lock()
	m.state = m.state.Reset()
	m.persist.ClearTimer(ctx)
	t := m.detachTickerLocked()
	m.publishLocked()
	s := m.state
	m.mu.Unlock()

	t.wait()
	return s
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Status: m.state.Status, Segments: append([]Segment(nil), m.state.Segments...)}
}

// Snapshot computes the current status and elapsed time.
func (m *Machine) Snapshot() Tick {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Status returns the current lifecycle state.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Status
}

// Active reports whether the timer holds tracked time (running or paused).
func (m *Machine) Active() bool {
	return m.Status() != StatusIdle
}

// Resync recomputes elapsed time and republishes it immediately. Call it when
// the process regains the foreground after its schedulers may have been suspended.
func (m *Machine) Resync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishLocked()
}

// Watch subscribes to ticks. The channel holds at most the latest tick; the
// returned func unsubscribes and closes it.
func (m *Machine) Watch() (<-chan Tick, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Tick, 1)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextID
	m.nextID++
	m.watchers[id] = ch
	ch <- m.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if w, ok := m.watchers[id]; ok {
				delete(m.watchers, id)
				close(w)
			}
		})
	}
}

// Close stops the ticker, waits for it to exit, and closes every watcher.
// State transitions still work afterwards but no longer tick.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	t := m.detachTickerLocked()
	for id, ch := range m.watchers {
		delete(m.watchers, id)
		close(ch)
	}
	m.mu.Unlock()

	t.wait()
}

// ticking reports whether a ticker goroutine is attached.
func (m *Machine) ticking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticker != nil
}

func (m *Machine) snapshotLocked() Tick {
	now := m.clock()
	return Tick{Status: m.state.Status, Elapsed: m.state.Elapsed(now), At: now}
}

func (m *Machine) publishLocked() {
	if len(m.watchers) == 0 {
		return
	}
	t := m.snapshotLocked()
	for _, ch := range m.watchers {
		select {
		case ch <- t:
		default:
			// Replace the stale tick the watcher has not read yet
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- t:
			default:
			}
		}
	}
}

// ticker is a running tick goroutine. stop is closed to cancel it; done is
// closed when the goroutine has returned.
type ticker struct {
	stop chan struct{}
	done chan struct{}
}

func (t *ticker) wait() {
	if t != nil {
		<-t.done
	}
}

func (m *Machine) startTickerLocked() {
	if m.ticker != nil || m.closed {
		return
	}
	t := &ticker{stop: make(chan struct{}), done: make(chan struct{})}
	m.ticker = t
	go m.runTicker(t)
}

// detachTickerLocked cancels the ticker and returns it so the caller can
// wait for it after releasing the lock.
func (m *Machine) detachTickerLocked() *ticker {
	t := m.ticker
	if t == nil {
		return nil
	}
	m.ticker = nil
	close(t.stop)
	return t
}

func (m *Machine) runTicker(t *ticker) {
	defer close(t.done)
	tk := time.NewTicker(m.interval)
	defer tk.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-tk.C:
			m.mu.Lock()
			if m.ticker == t {
				m.publishLocked()
			}
			m.mu.Unlock()
		}
	}
}
