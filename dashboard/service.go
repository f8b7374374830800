package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/marcus-crane/scrapeboard/models"
)

const recordsKey = "requests"

type Fetcher interface {
	FetchRecords(ctx context.Context) ([]models.ScrapeRecord, error)
}

type Options struct {
	// CacheTTL is how long a successful fetch is reused. Zero disables caching.
	CacheTTL time.Duration
	// RenderTimeout bounds how long a render waits before showing the pending state.
	// Zero waits for as long as the request is alive.
	RenderTimeout time.Duration
	// FetchTimeout bounds each upstream fetch, independent of any single request.
	FetchTimeout time.Duration
	// OnFetched is called after every successful upstream fetch.
	OnFetched func([]models.ScrapeRecord)
	Now       func() time.Time
}

type cachedRecords struct {
	records   []models.ScrapeRecord
	fetchedAt time.Time
}

// Service sits between renders and the backend. Concurrent renders share a
// single in-flight fetch and successful results are reused for CacheTTL.
type Service struct {
	fetcher Fetcher
	opts    Options
	cache   *cache.Cache
	group   singleflight.Group

	// generation is bumped by Invalidate so fetches that started earlier
	// don't write their snapshot back into the cache.
	mu         sync.Mutex
	generation uint64
}

func NewService(fetcher Fetcher, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	cleanup := opts.CacheTTL * 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Service{
		fetcher: fetcher,
		opts:    opts,
		cache:   cache.New(opts.CacheTTL, cleanup),
	}
}

// Load returns the fetch outcome for one render. It never blocks longer than
// RenderTimeout; a fetch that is still running at that point keeps going in the
// background and its records are picked up by a later render.
func (s *Service) Load(ctx context.Context) Result {
	if cached, ok := s.cached(); ok {
		return SuccessResult(cached.records, cached.fetchedAt)
	}

	ch := s.group.DoChan(recordsKey, s.fetch)

	var deadline <-chan time.Time
	if s.opts.RenderTimeout > 0 {
		timer := time.NewTimer(s.opts.RenderTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return FailureResult(res.Err)
		}
		fetched := res.Val.(cachedRecords)
		return SuccessResult(fetched.records, fetched.fetchedAt)
	case <-deadline:
		slog.Debug("Feed fetch outlived render deadline", slog.Duration("timeout", s.opts.RenderTimeout))
		return PendingResult()
	case <-ctx.Done():
		return PendingResult()
	}
}

// Refresh fetches from the backend regardless of what is cached.
func (s *Service) Refresh() ([]models.ScrapeRecord, error) {
	v, err, _ := s.group.Do(recordsKey, s.fetch)
	if err != nil {
		return nil, err
	}
	return v.(cachedRecords).records, nil
}

func (s *Service) Invalidate() {
	s.mu.Lock()
	s.generation++
	s.cache.Delete(recordsKey)
	s.mu.Unlock()
	s.group.Forget(recordsKey)
}

func (s *Service) cached() (cachedRecords, bool) {
	if s.opts.CacheTTL <= 0 {
		return cachedRecords{}, false
	}
	v, ok := s.cache.Get(recordsKey)
	if !ok {
		return cachedRecords{}, false
	}
	return v.(cachedRecords), true
}

// fetch is detached from any request context so an abandoned render doesn't
// cancel work other renders are waiting on.
func (s *Service) fetch() (interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.FetchTimeout)
	defer cancel()

	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	started := s.opts.Now()
	records, err := s.fetcher.FetchRecords(ctx)
	if err != nil {
		slog.Error("Failed to fetch records from feed", slog.String("error", err.Error()))
		return nil, err
	}
	slog.Debug("Fetched records from feed",
		slog.Int("count", len(records)),
		slog.Duration("took", s.opts.Now().Sub(started)))

	fetched := cachedRecords{records: records, fetchedAt: s.opts.Now()}
	if s.opts.CacheTTL > 0 {
		s.mu.Lock()
		if s.generation == generation {
			s.cache.SetDefault(recordsKey, fetched)
		} else {
			slog.Debug("Discarding records fetched before invalidation")
		}
		s.mu.Unlock()
	}
	if s.opts.OnFetched != nil {
		s.opts.OnFetched(records)
	}
	return fetched, nil
}
