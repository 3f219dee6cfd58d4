package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/api/metrics"
	"github.com/atomm/taskpilot/internal/core/session"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64

	TriggerAutosave = "autosave"
	TriggerShutdown = "shutdown"
)

// SessionSource enumerates the live sessions (session.Registry).
type SessionSource interface {
	Each(fn func(s *session.Session))
	Len() int
	Prune(ctx context.Context) int
}

// Autosaver periodically flushes the dirty collections of every live session.
// Sessions are routed to a fixed set of workers by hashing the session id, so
// one session is never flushed by two workers at once.
type Autosaver struct {
	workers  []chan *session.Session
	sessions SessionSource
	interval time.Duration
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewAutosaver creates an Autosaver with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewAutosaver(numWorkers int, interval time.Duration, sessions SessionSource, log zerolog.Logger) *Autosaver {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	a := &Autosaver{
		workers:  make([]chan *session.Session, numWorkers),
		sessions: sessions,
		interval: interval,
		log:      log.With().Str("component", "autosave").Logger(),
	}
	for i := range a.workers {
		a.workers[i] = make(chan *session.Session, channelBuffer)
	}
	return a
}

// Start launches the workers and the ticker. They stop when ctx is
// cancelled; call Wait to block until they have. A non-positive interval
// disables periodic saving.
func (a *Autosaver) Start(ctx context.Context) {
	if a.interval <= 0 {
		a.log.Info().Msg("autosave disabled")
		return
	}
	for i, ch := range a.workers {
		a.wg.Add(1)
		go a.runWorker(ctx, i, ch)
	}
	a.wg.Add(1)
	go a.runTicker(ctx)
}

// Wait blocks until every goroutine started by Start has returned.
func (a *Autosaver) Wait() {
	a.wg.Wait()
}

// Sweep queues every session with unsaved changes. A session whose worker
// is backed up is skipped until the next tick.
func (a *Autosaver) Sweep() int {
	metrics.ActiveSessions.Set(float64(a.sessions.Len()))

	queued := 0
	a.sessions.Each(func(s *session.Session) {
		if len(s.Dirty()) == 0 {
			return
		}
		idx := a.shardIndex(s.ID)
		select {
		case a.workers[idx] <- s:
			queued++
			metrics.AutosaveQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(a.workers[idx])))
		default:
			a.log.Debug().Str("session_id", s.ID).Int("worker_id", idx).Msg("autosave worker busy, skipping")
		}
	})
	return queued
}

// FlushAll synchronously flushes every session, e.g. on shutdown.
func (a *Autosaver) FlushAll(ctx context.Context) error {
	var errs []error
	a.sessions.Each(func(s *session.Session) {
		if err := Flush(ctx, s, TriggerShutdown, a.log); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// Flush writes the dirty collections of s and records the outcome.
func Flush(ctx context.Context, s *session.Session, trigger string, log zerolog.Logger) error {
	dirty := s.Dirty()
	if len(dirty) == 0 {
		return nil
	}

	start := time.Now()
	err := s.Flush(ctx, dirty...)
	metrics.FlushDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FlushesTotal.WithLabelValues(trigger, "error").Inc()
		log.Warn().Err(err).Str("session_id", s.ID).Str("trigger", trigger).Msg("flush failed")
		return err
	}
	metrics.FlushesTotal.WithLabelValues(trigger, "ok").Inc()
	log.Debug().Str("session_id", s.ID).Int("collections", len(dirty)).Str("trigger", trigger).Msg("flushed")
	return nil
}

// shardIndex maps a session id deterministically to a worker index.
func (a *Autosaver) shardIndex(sid string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sid))
	return int(h.Sum32() % uint32(len(a.workers)))
}

func (a *Autosaver) runTicker(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.Prune(ctx); n > 0 {
				a.log.Info().Int("sessions", n).Msg("expired sessions pruned")
			}
			if n := a.Sweep(); n > 0 {
				a.log.Debug().Int("sessions", n).Msg("autosave sweep")
			}
		}
	}
}

func (a *Autosaver) runWorker(ctx context.Context, id int, ch <-chan *session.Session) {
	defer a.wg.Done()
	depth := metrics.AutosaveQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-ch:
			depth.Set(float64(len(ch)))
			_ = Flush(ctx, s, TriggerAutosave, a.log)
		}
	}
}
