package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matst80/killu-finder/pkg/logger"
	"github.com/matst80/killu-finder/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrSearchFailed = errors.New("search failed")
	// ErrSuperseded is returned with valid results when a newer search was
	// started before this one completed.
	ErrSuperseded = errors.New("search superseded by a newer request")
)

type Status string

const (
	Idle       Status = "idle"
	Searching  Status = "searching"
	Displaying Status = "displaying"
	Failed     Status = "failed"
)

// State is what a caller observes of the pipeline. Results keep the last
// displayed set while searching and after a failure.
type State struct {
	Status     Status               `json:"status"`
	Selection  types.FacetSelection `json:"selection"`
	Results    types.ResultSet      `json:"results"`
	Error      string               `json:"error,omitempty"`
	Generation uint64               `json:"generation"`
}

type SearchResult struct {
	Selection  types.FacetSelection `json:"selection"`
	Query      types.QuerySpec      `json:"query"`
	Results    types.ResultSet      `json:"results"`
	Cached     bool                 `json:"cached"`
	Generation uint64               `json:"generation"`
}

// Pipeline turns facet selections into ranked phones for one session.
type Pipeline struct {
	Phones types.PhoneQuery
	Cache  ResultCache
	// QueryTimeout bounds the phone query, zero waits forever.
	QueryTimeout time.Duration

	group      singleflight.Group
	mu         sync.RWMutex
	generation uint64
	state      State
}

func NewPipeline(phones types.PhoneQuery, cache ResultCache) *Pipeline {
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	return &Pipeline{
		Phones: phones,
		Cache:  cache,
		state:  State{Status: Idle},
	}
}

// Search returns the phones for the selection, from the cache when the same
// query was answered before. It has no side effects outside the pipeline.
func (p *Pipeline) Search(ctx context.Context, selection types.FacetSelection) (*SearchResult, error) {
	p.mu.Lock()
	gen := p.begin(selection)
	p.mu.Unlock()
	return p.run(ctx, gen, selection)
}

// Toggle flips one facet of the current selection and searches with the
// result. Unknown facets or values leave the pipeline untouched.
func (p *Pipeline) Toggle(ctx context.Context, facet types.Facet, value string) (*SearchResult, error) {
	p.mu.Lock()
	selection, err := p.state.Selection.Toggle(facet, value)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	gen := p.begin(selection)
	p.mu.Unlock()
	return p.run(ctx, gen, selection)
}

func (p *Pipeline) run(ctx context.Context, gen uint64, selection types.FacetSelection) (*SearchResult, error) {
	go noSearches.Inc()
	q := types.BuildQuery(selection)
	key := q.Key()
	result := &SearchResult{Selection: selection, Query: q, Generation: gen}

	if rs, ok := p.Cache.Get(ctx, key); ok {
		go cacheHits.Inc()
		logger.Log.Debug("search cache hit", zap.String("key", key))
		result.Results = rs
		result.Cached = true
		return p.complete(gen, result)
	}
	go cacheMisses.Inc()

	// the fetch is shared by every caller of the key, so it must outlive
	// the caller that started it
	shared := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		if rs, ok := p.Cache.Get(shared, key); ok {
			return rs, nil
		}
		rs, err := p.fetch(shared, q)
		if err != nil {
			return nil, err
		}
		p.Cache.Set(shared, key, rs)
		return rs, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, p.fail(gen, res.Err)
		}
		result.Results = res.Val.(types.ResultSet)
		return p.complete(gen, result)
	case <-ctx.Done():
		return nil, p.fail(gen, ctx.Err())
	}
}

func (p *Pipeline) fetch(ctx context.Context, q types.QuerySpec) (types.ResultSet, error) {
	if p.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.QueryTimeout)
		defer cancel()
	}
	start := time.Now()
	records, err := p.Phones.GetPhones(ctx, q)
	queryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	n := min(len(records), types.ResultLimit)
	rs := make(types.ResultSet, n)
	for i, record := range records[:n] {
		rs[i] = types.Project(record)
	}
	return rs, nil
}

// begin starts a new generation, p.mu must be held.
func (p *Pipeline) begin(selection types.FacetSelection) uint64 {
	p.generation++
	p.state.Status = Searching
	p.state.Selection = selection
	p.state.Error = ""
	p.state.Generation = p.generation
	return p.generation
}

func (p *Pipeline) complete(gen uint64, result *SearchResult) (*SearchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		go supersededResults.Inc()
		return result, ErrSuperseded
	}
	p.state.Status = Displaying
	p.state.Results = result.Results
	return result, nil
}

func (p *Pipeline) fail(gen uint64, err error) error {
	go queryFailures.Inc()
	logger.Log.Warn("phone query failed", zap.Uint64("generation", gen), zap.Error(err))
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen == p.generation {
		p.state.Status = Failed
		p.state.Error = err.Error()
	}
	return fmt.Errorf("%w: %w", ErrSearchFailed, err)
}

func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Reset clears the cache and the displayed results. Searches still in flight
// complete as superseded.
func (p *Pipeline) Reset(ctx context.Context) {
	p.mu.Lock()
	p.generation++
	p.state = State{Status: Idle, Generation: p.generation}
	p.mu.Unlock()
	p.Cache.Clear(ctx)
}
