// Package loader orchestrates cache-first data loading: render last-known
// data immediately, revalidate over the network when reachable, and refresh
// once per reconnect.
package loader

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/shelfhaven/shelfsync/pkg/cache"
	"github.com/shelfhaven/shelfsync/pkg/netmon"
)

// Prometheus metrics for loader operations.
var (
	staleRendersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelf_loader_stale_renders_total",
		Help: "Total number of renders served from cache before revalidation",
	})

	suppressedErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelf_loader_suppressed_errors_total",
		Help: "Total fetch failures suppressed because stale data was already rendered",
	})

	refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelf_loader_refreshes_total",
		Help: "Total query refreshes by trigger",
	}, []string{"trigger"}) // "load", "manual", "reconnect"

	droppedCompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelf_loader_dropped_completions_total",
		Help: "Total asynchronous completions discarded for belonging to a stale generation",
	})
)

// Fetcher is the network side of the loader. *client.Client satisfies it.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, params url.Values) (json.RawMessage, error)
}

// Config holds loader configuration.
type Config struct {
	// FetchTimeout bounds each network fetch so a hung request cannot
	// block the fallback logic.
	FetchTimeout time.Duration

	// SettleDelay is how long to wait after a reconnect before
	// refreshing, so flapping connectivity doesn't trigger bursts.
	SettleDelay time.Duration

	// RecoveryPollInterval is how often the reconnect watcher consults
	// the network monitor.
	RecoveryPollInterval time.Duration

	// OnUpdate, when set, is invoked after every slice change. Called
	// from loader goroutines; implementations must be cheap or hand off.
	OnUpdate func(query string, slice Slice)
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{
		FetchTimeout:         5 * time.Second,
		SettleDelay:          500 * time.Millisecond,
		RecoveryPollInterval: 250 * time.Millisecond,
	}
}

// query is one tracked endpoint with its state slice.
type query struct {
	name string
	key  cache.Key

	mu         sync.Mutex
	generation uint64
	slice      Slice
	rendered   bool
	surfaced   bool
}

// Loader coordinates the cache, the network monitor, and the API client
// for a set of named queries.
type Loader struct {
	store   cache.Store
	monitor *netmon.Monitor
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger

	mu      sync.Mutex
	queries map[string]*query
	order   []string
	closed  bool
}

// New creates a loader.
func New(store cache.Store, monitor *netmon.Monitor, fetcher Fetcher, cfg Config, logger zerolog.Logger) *Loader {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 500 * time.Millisecond
	}
	if cfg.RecoveryPollInterval <= 0 {
		cfg.RecoveryPollInterval = 250 * time.Millisecond
	}

	return &Loader{
		store:   store,
		monitor: monitor,
		fetcher: fetcher,
		config:  cfg,
		logger:  logger,
		queries: make(map[string]*query),
	}
}

// Register adds a named query. Registering an existing name replaces its
// key and resets its state.
func (l *Loader) Register(name string, key cache.Key) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.queries[name]; !exists {
		l.order = append(l.order, name)
	}
	l.queries[name] = &query{name: name, key: key}
}

// Slice returns a snapshot of one query's state.
func (l *Loader) Slice(name string) (Slice, bool) {
	l.mu.Lock()
	q, ok := l.queries[name]
	l.mu.Unlock()
	if !ok {
		return Slice{}, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return q.slice, true
}

// Load runs the full sequence for every registered query in parallel:
// cache lookup for immediate paint, then a network fetch when online.
// It returns once every query has settled.
func (l *Loader) Load(ctx context.Context) {
	refreshesTotal.WithLabelValues("load").Inc()
	l.forEach(func(q *query) {
		l.loadQuery(ctx, q)
	})
}

// Refresh re-fetches every query over the network, bypassing the cache
// read. Cache entries are still refreshed on success.
func (l *Loader) Refresh(ctx context.Context) {
	refreshesTotal.WithLabelValues("manual").Inc()
	l.forEach(func(q *query) {
		l.fetchQuery(ctx, q, q.nextGeneration())
	})
}

// WatchReconnect polls the monitor's recovery flag until ctx is done.
// On recovery it waits the settle delay, then refreshes all queries.
func (l *Loader) WatchReconnect(ctx context.Context) {
	ticker := time.NewTicker(l.config.RecoveryPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !l.monitor.JustRecovered() {
				continue
			}

			l.logger.Info().Msg("Network recovered, scheduling refresh")

			// Let flapping connectivity settle before refetching
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.config.SettleDelay):
			}

			refreshesTotal.WithLabelValues("reconnect").Inc()
			l.forEach(func(q *query) {
				l.fetchQuery(ctx, q, q.nextGeneration())
			})
		}
	}
}

// Close invalidates all in-flight generations so late completions are
// dropped instead of mutating state for a consumer that navigated away.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	for _, q := range l.queries {
		q.nextGeneration()
	}
}

// forEach runs fn for every query in parallel and waits for completion.
func (l *Loader) forEach(fn func(q *query)) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	queries := make([]*query, 0, len(l.order))
	for _, name := range l.order {
		queries = append(queries, l.queries[name])
	}
	l.mu.Unlock()

	var wg sync.WaitGroup
	for _, q := range queries {
		wg.Add(1)
		go func(q *query) {
			defer wg.Done()
			fn(q)
		}(q)
	}
	wg.Wait()
}

// loadQuery runs one query through the state machine: cache read, then
// network fetch gated on reachability.
func (l *Loader) loadQuery(ctx context.Context, q *query) {
	gen := q.nextGeneration()

	l.applyPhase(q, gen, PhaseCacheLoad)

	entry, err := l.store.Get(ctx, q.key)
	if err != nil && err != cache.ErrCacheMiss {
		// Cache failures never surface; proceed as a miss
		l.logger.Warn().Err(err).Str("query", q.name).Msg("Cache read failed")
	}

	if entry != nil {
		l.applyCacheHit(q, gen, entry)
	} else {
		l.applyPhase(q, gen, PhaseCacheMiss)
	}

	if !l.monitor.IsOnline() {
		// Offline: settle without attempting the network and without
		// an error. A cold cache settles Empty, not Error.
		l.settleOffline(q, gen)
		return
	}

	l.fetchQuery(ctx, q, gen)
}

// fetchQuery performs the network fetch for one query under a generation.
func (l *Loader) fetchQuery(ctx context.Context, q *query, gen uint64) {
	if !l.applyPhase(q, gen, PhaseFetching) {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, l.config.FetchTimeout)
	payload, err := l.fetcher.GetJSON(fetchCtx, q.key.Path, q.key.Params)
	cancel()

	if err != nil {
		l.applyFetchFailure(q, gen, err)
		return
	}

	if !l.applyFetchSuccess(q, gen, payload) {
		return
	}

	// Write path is symmetric to read: every successful fetch refreshes
	// the cache. Failures are logged and swallowed.
	if err := l.store.Set(ctx, q.key, cache.NewEntry(payload)); err != nil {
		l.logger.Warn().Err(err).Str("query", q.name).Msg("Cache write failed")
	}
}

// applyPhase advances the phase if gen is still current.
func (l *Loader) applyPhase(q *query, gen uint64, phase Phase) bool {
	q.mu.Lock()
	if q.generation != gen {
		q.mu.Unlock()
		droppedCompletionsTotal.Inc()
		return false
	}
	q.slice.Phase = phase
	slice := q.slice
	q.mu.Unlock()

	l.notify(q.name, slice)
	return true
}

// applyCacheHit renders a cached payload immediately.
func (l *Loader) applyCacheHit(q *query, gen uint64, entry *cache.Entry) {
	q.mu.Lock()
	if q.generation != gen {
		q.mu.Unlock()
		droppedCompletionsTotal.Inc()
		return
	}
	q.slice.Phase = PhaseCacheHit
	q.slice.Outcome = OutcomeData
	q.slice.Payload = entry.Payload
	q.slice.FromCache = true
	q.slice.StoredAt = entry.StoredAt
	q.slice.Err = nil
	q.rendered = true
	slice := q.slice
	q.mu.Unlock()

	staleRendersTotal.Inc()
	l.logger.Debug().
		Str("query", q.name).
		Dur("age", entry.Age()).
		Msg("Rendered cached payload")

	l.notify(q.name, slice)
}

// applyFetchSuccess replaces the slice with fresh network data.
func (l *Loader) applyFetchSuccess(q *query, gen uint64, payload json.RawMessage) bool {
	q.mu.Lock()
	if q.generation != gen {
		q.mu.Unlock()
		droppedCompletionsTotal.Inc()
		return false
	}
	q.slice.Phase = PhaseSettled
	q.slice.Outcome = OutcomeData
	q.slice.Payload = payload
	q.slice.FromCache = false
	q.slice.StoredAt = time.Time{}
	q.slice.Err = nil
	q.rendered = true
	q.surfaced = false
	slice := q.slice
	q.mu.Unlock()

	l.notify(q.name, slice)
	return true
}

// applyFetchFailure settles a failed fetch: suppressed when stale data is
// already rendered, surfaced exactly once otherwise.
func (l *Loader) applyFetchFailure(q *query, gen uint64, err error) {
	q.mu.Lock()
	if q.generation != gen {
		q.mu.Unlock()
		droppedCompletionsTotal.Inc()
		return
	}

	q.slice.Phase = PhaseSettled

	if q.rendered {
		// Good stale data is on screen; don't flash an error over it
		q.slice.Outcome = OutcomeData
		q.slice.Err = nil
		slice := q.slice
		q.mu.Unlock()

		suppressedErrorsTotal.Inc()
		l.logger.Warn().
			Err(err).
			Str("query", q.name).
			Msg("Fetch failed, keeping stale render")

		l.notify(q.name, slice)
		return
	}

	q.slice.Outcome = OutcomeError
	if !q.surfaced {
		q.slice.Err = err
		q.surfaced = true
	}
	slice := q.slice
	q.mu.Unlock()

	l.logger.Error().
		Err(err).
		Str("query", q.name).
		Msg("Fetch failed with no cached fallback")

	l.notify(q.name, slice)
}

// settleOffline finishes a query without a network attempt.
func (l *Loader) settleOffline(q *query, gen uint64) {
	q.mu.Lock()
	if q.generation != gen {
		q.mu.Unlock()
		droppedCompletionsTotal.Inc()
		return
	}

	q.slice.Phase = PhaseSettled
	if q.rendered {
		q.slice.Outcome = OutcomeData
	} else {
		q.slice.Outcome = OutcomeEmpty
	}
	q.slice.Err = nil
	slice := q.slice
	q.mu.Unlock()

	l.logger.Debug().
		Str("query", q.name).
		Str("outcome", slice.Outcome.String()).
		Msg("Settled offline")

	l.notify(q.name, slice)
}

// notify invokes the update callback if configured.
func (l *Loader) notify(name string, slice Slice) {
	if l.config.OnUpdate != nil {
		l.config.OnUpdate(name, slice)
	}
}

// nextGeneration invalidates all earlier completions for this query.
func (q *query) nextGeneration() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.generation++
	return q.generation
}
