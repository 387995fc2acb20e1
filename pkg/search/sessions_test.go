package search

import (
	"context"
	"testing"
	"time"

	"github.com/matst80/killu-finder/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_PipelinePerSession(t *testing.T) {
	created := 0
	s := NewSessions(func(string) *Pipeline {
		created++
		return NewPipeline(&mockPhoneQuery{}, nil)
	}, 0)
	defer s.Close()

	a := s.Get("a")
	assert.Same(t, a, s.Get("a"))
	assert.NotSame(t, a, s.Get("b"))
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, s.Len())
}

func TestSessions_DropClearsCache(t *testing.T) {
	m := &mockPhoneQuery{records: phones(1)}
	s := NewSessions(func(string) *Pipeline { return NewPipeline(m, nil) }, 0)
	defer s.Close()
	ctx := context.Background()

	p := s.Get("a")
	_, err := p.Search(ctx, types.FacetSelection{OS: types.OSiOS})
	require.NoError(t, err)

	s.Drop(ctx, "a")
	assert.Zero(t, p.Cache.Len())
	assert.Zero(t, s.Len())
	assert.NotSame(t, p, s.Get("a"))

	s.Drop(ctx, "unknown")
}

func TestSessions_SweepIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessions(func(string) *Pipeline { return NewPipeline(&mockPhoneQuery{}, nil) }, 0)
	defer s.Close()
	s.ttl = time.Hour
	s.now = func() time.Time { return now }

	s.Get("old")
	now = now.Add(45 * time.Minute)
	s.Get("fresh")
	now = now.Add(30 * time.Minute)

	assert.Equal(t, 1, s.sweep())
	assert.Equal(t, 1, s.Len())
	s.mu.Lock()
	_, ok := s.items["fresh"]
	s.mu.Unlock()
	assert.True(t, ok)
}

func TestSessions_CloseTwice(t *testing.T) {
	s := NewSessions(func(string) *Pipeline { return nil }, time.Minute)
	s.Close()
	assert.NotPanics(t, s.Close)
}
