// Package livesync keeps visualization consumers supplied with a consistent,
// versioned view of the live project set. It polls the aggregation façade on
// a fixed interval (a change notification can wake it early), diffs against
// the previous snapshot, and fans out version-distinct emissions in order.
// On fetch failure it degrades to the last known-good snapshot rather than
// emitting nothing.
package livesync

import (
	"context"
	"sync"
	"time"

	"verdant-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// State of the synchronizer's lifecycle machine.
type State int32

const (
	StateInitializing State = iota
	StateSynced
	StateDegraded
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateSynced:
		return "SYNCED"
	case StateDegraded:
		return "DEGRADED"
	case StateStopped:
		return "STOPPED"
	}
	return "UNKNOWN"
}

// Fetcher supplies the live project set. Production wiring uses the
// aggregation façade.
type Fetcher interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
}

// Options tunes the tick loop.
type Options struct {
	Interval       time.Duration // poll interval in SYNCED
	BackoffCeiling time.Duration // retry-interval cap in DEGRADED
	Buffer         int           // per-consumer channel buffer
	Wakeups        <-chan struct{} // optional change-notification channel
}

// Subscription is one consumer's ordered snapshot feed. The channel is
// closed on Unsubscribe and on synchronizer stop.
type Subscription struct {
	C    <-chan Snapshot
	id   int64
	ch   chan Snapshot
	sync *Synchronizer
}

// Unsubscribe removes the consumer. Safe to call once.
func (sub *Subscription) Unsubscribe() {
	sub.sync.unsubscribe(sub.id)
}

// Synchronizer reconciles the live project set and republishes snapshots.
type Synchronizer struct {
	fetcher Fetcher
	opts    Options

	mu      sync.Mutex
	state   State
	current *Snapshot
	subs    []*Subscription
	nextID  int64
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(fetcher Fetcher, opts Options) *Synchronizer {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Second
	}
	if opts.BackoffCeiling < opts.Interval {
		opts.BackoffCeiling = opts.Interval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 16
	}
	return &Synchronizer{fetcher: fetcher, opts: opts, state: StateInitializing}
}

// State returns the current lifecycle state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the last emitted snapshot, or false before the first
// emission.
func (s *Synchronizer) Current() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Snapshot{}, false
	}
	return *s.current, true
}

// Subscribe registers a consumer. The current snapshot, if any, is replayed
// immediately so new consumers never start empty.
func (s *Synchronizer) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub := &Subscription{id: s.nextID, ch: make(chan Snapshot, s.opts.Buffer), sync: s}
	sub.C = sub.ch
	if s.state != StateStopped {
		s.subs = append(s.subs, sub)
		if s.current != nil {
			sub.ch <- *s.current
		}
	} else {
		close(sub.ch)
	}
	return sub
}

func (s *Synchronizer) unsubscribe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

// Resync replays the current snapshot to one consumer without advancing the
// version counter. Consumers call this after detecting a version gap.
func (s *Synchronizer) Resync(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped || s.current == nil {
		return
	}
	for _, registered := range s.subs {
		if registered.id == sub.id {
			s.send(registered, *s.current)
			return
		}
	}
}

// Start launches the fetch loop. Cancelling ctx or calling Stop reaches the
// terminal STOPPED state; an in-flight fetch result is then discarded.
func (s *Synchronizer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()
	go s.run(ctx)
}

// Stop transitions to STOPPED, closes all subscriptions and waits for the
// loop to exit. No further ticks or emissions happen afterwards.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	if s.cancel != nil {
		s.cancel()
	}
	for _, sub := range s.subs {
		close(sub.ch)
	}
	s.subs = nil
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	log.Info().Msg("Synchronizer stopped")
}

func (s *Synchronizer) run(ctx context.Context) {
	defer close(s.done)

	s.tick(ctx)
	wait := s.nextWait(s.opts.Interval)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	backoff := s.opts.Interval
	wake := s.opts.Wakeups
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.state = StateStopped
			for _, sub := range s.subs {
				close(sub.ch)
			}
			s.subs = nil
			s.mu.Unlock()
			return
		case <-timer.C:
		case _, ok := <-wake:
			if !ok {
				// Notification source gone; polling continues.
				wake = nil
				continue
			}
			if !timer.Stop() {
				<-timer.C
			}
		}

		s.tick(ctx)

		if s.State() == StateDegraded {
			backoff *= 2
			if backoff > s.opts.BackoffCeiling {
				backoff = s.opts.BackoffCeiling
			}
		} else {
			backoff = s.opts.Interval
		}
		timer.Reset(s.nextWait(backoff))
	}
}

func (s *Synchronizer) nextWait(d time.Duration) time.Duration {
	if s.State() == StateDegraded && d > s.opts.BackoffCeiling {
		return s.opts.BackoffCeiling
	}
	return d
}

// tick performs one fetch-diff-emit cycle.
func (s *Synchronizer) tick(ctx context.Context) {
	projects, err := s.fetcher.ListProjects(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return // in-flight result arriving after shutdown is discarded
	}

	if err != nil {
		s.onFetchFailure(err)
		return
	}
	s.onFetchSuccess(toEntries(projects))
}

// onFetchSuccess runs under s.mu.
func (s *Synchronizer) onFetchSuccess(entries []ProjectEntry) {
	recovered := s.state != StateSynced
	prev := s.state
	s.state = StateSynced

	switch {
	case s.current == nil:
		// First successful fetch: version 1.
		s.emit(Snapshot{Version: 1, Projects: entries})
	case recovered:
		// Back from DEGRADED (or sample fallback): always a fresh version.
		s.emit(Snapshot{Version: s.current.Version + 1, Projects: entries})
		log.Info().Str("from", prev.String()).Msg("Synchronizer recovered to SYNCED")
	case !sameIDSet(s.current.Projects, entries):
		s.emit(Snapshot{Version: s.current.Version + 1, Projects: entries})
	default:
		// Unchanged set: no emission, no redundant downstream work.
	}
}

// onFetchFailure runs under s.mu. Prefer a stale-but-valid snapshot over no
// snapshot: re-serve the last known good, or the built-in sample if nothing
// was ever fetched.
func (s *Synchronizer) onFetchFailure(err error) {
	alreadyDegraded := s.state == StateDegraded
	s.state = StateDegraded

	if s.current == nil {
		snap := sampleSnapshot()
		log.Warn().Err(err).Msg("Initial fetch failed; serving built-in sample snapshot")
		s.emit(snap)
		return
	}
	if alreadyDegraded {
		// Consumers already hold the degraded snapshot; keep retrying quietly.
		return
	}
	degraded := *s.current
	degraded.Degraded = true
	log.Warn().Err(err).Int64("version", degraded.Version).Msg("Fetch failed; re-serving last known-good snapshot")
	s.emit(degraded)
}

// emit stores snap as current and fans it out. Runs under s.mu; per-consumer
// ordering follows from sequential sends.
func (s *Synchronizer) emit(snap Snapshot) {
	s.current = &snap
	for _, sub := range s.subs {
		s.send(sub, snap)
	}
}

// send never blocks the loop: a consumer whose buffer is full misses the
// emission and is expected to Resync after spotting the version gap.
func (s *Synchronizer) send(sub *Subscription, snap Snapshot) {
	select {
	case sub.ch <- snap:
	default:
		log.Warn().Int64("subscriber", sub.id).Int64("version", snap.Version).Msg("Slow consumer; snapshot dropped")
	}
}
