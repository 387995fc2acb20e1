package search

import (
	"context"
	"sync"
	"time"
)

// PipelineFactory builds the pipeline for a new session.
type PipelineFactory func(sessionId string) *Pipeline

type sessionEntry struct {
	pipeline *Pipeline
	lastSeen time.Time
}

// Sessions owns one pipeline per session and drops the ones idle for longer
// than the TTL.
type Sessions struct {
	factory PipelineFactory
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	items map[string]*sessionEntry
	done  chan struct{}
	once  sync.Once
}

func NewSessions(factory PipelineFactory, ttl time.Duration) *Sessions {
	s := &Sessions{
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[string]*sessionEntry),
		done:    make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor(max(ttl/4, time.Second))
	}
	return s
}

func (s *Sessions) Get(sessionId string) *Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[sessionId]
	if !ok {
		e = &sessionEntry{pipeline: s.factory(sessionId)}
		s.items[sessionId] = e
		activeSessions.Inc()
	}
	e.lastSeen = s.now()
	return e.pipeline
}

// Drop ends the session and clears its cache.
func (s *Sessions) Drop(ctx context.Context, sessionId string) {
	s.mu.Lock()
	e, ok := s.items[sessionId]
	delete(s.items, sessionId)
	s.mu.Unlock()
	if ok {
		activeSessions.Dec()
		e.pipeline.Reset(ctx)
	}
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Sessions) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit := s.now().Add(-s.ttl)
	removed := 0
	for id, e := range s.items {
		if e.lastSeen.Before(limit) {
			delete(s.items, id)
			removed++
		}
	}
	activeSessions.Sub(float64(removed))
	return removed
}

func (s *Sessions) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *Sessions) Close() {
	s.once.Do(func() { close(s.done) })
}
