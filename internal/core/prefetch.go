package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/Digital-Shane/moviedb/internal/logging"
	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/mhmtszr/concurrent-swiss-map"
	"github.com/sourcegraph/conc/pool"
)

// PrefetchItem is one entity whose documents should be warmed.
type PrefetchItem struct {
	Key  string
	Info provider.LookupInfo
}

// NewPrefetchItem keys info for deduplication.
func NewPrefetchItem(info provider.LookupInfo) PrefetchItem {
	return PrefetchItem{Key: provider.GenerateMetadataKey(info), Info: info}
}

// Phase orders items so series are resolved before their seasons and
// episodes.
func (i PrefetchItem) Phase() int {
	switch i.Info.Kind {
	case provider.KindSeason:
		return 1
	case provider.KindEpisode:
		return 2
	}
	return 0
}

// PrefetchResult is the outcome of warming one item.
type PrefetchResult struct {
	Item   PrefetchItem
	Meta   *provider.Metadata
	Images []provider.RemoteImage
	Err    error
}

// PrefetchFailure captures an item that could not be warmed so callers can
// retry it, optionally under a different search name.
type PrefetchFailure struct {
	Item     PrefetchItem
	Query    string
	Err      error
	Attempts int
}

// PrefetchSummary captures the state of a prefetch run at a point in time.
type PrefetchSummary struct {
	TotalItems     int
	ProcessedItems int
	ActiveWorkers  int
	WorkerLimit    int
	PhaseIndex     int
	PhaseName      string
	ImageCount     int
	ErrorCount     int
	LastItem       string
	Done           bool
	Canceled       bool
}

// PrefetchEvent represents an update emitted by the engine.
type PrefetchEvent struct {
	Summary PrefetchSummary
	Err     error
}

// PrefetchConfig configures a PrefetchEngine.
type PrefetchConfig struct {
	Registry    *provider.Registry
	WorkerCount int

	// Images also warms image lists after metadata.
	Images bool

	Logger *slog.Logger
}

// PrefetchEngine warms documents for many entities through a bounded worker
// pool. A failing item never aborts the batch.
type PrefetchEngine struct {
	registry    *provider.Registry
	workerCount int
	images      bool
	logger      *slog.Logger

	metadata  *csmap.CsMap[string, *provider.Metadata]
	imageSets *csmap.CsMap[string, []provider.RemoteImage]
	failures  *csmap.CsMap[string, PrefetchFailure]

	summaryMu sync.RWMutex
	summary   PrefetchSummary
}

// NewPrefetchEngine constructs an engine with defaults applied.
func NewPrefetchEngine(cfg PrefetchConfig) *PrefetchEngine {
	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 4
	}

	return &PrefetchEngine{
		registry:    cfg.Registry,
		workerCount: workerCount,
		images:      cfg.Images,
		logger:      logging.Component(cfg.Logger, "prefetch"),
		metadata:    csmap.Create[string, *provider.Metadata](),
		imageSets:   csmap.Create[string, []provider.RemoteImage](),
		failures:    csmap.Create[string, PrefetchFailure](),
		summary: PrefetchSummary{
			WorkerLimit: workerCount,
		},
	}
}

// Start begins prefetching items and returns a stream of progress events.
// The stream is closed when the run ends.
func (e *PrefetchEngine) Start(ctx context.Context, items []PrefetchItem) <-chan PrefetchEvent {
	events := make(chan PrefetchEvent, 128)
	go e.run(ctx, events, items)
	return events
}

// Run prefetches items and blocks until done, discarding progress events.
func (e *PrefetchEngine) Run(ctx context.Context, items []PrefetchItem) (PrefetchSummary, error) {
	for range e.Start(ctx, items) {
	}
	return e.SummarySnapshot(), ctx.Err()
}

// Metadata returns the gathered metadata keyed by item key. The map is safe
// to read once the engine has completed.
func (e *PrefetchEngine) Metadata() map[string]*provider.Metadata {
	result := make(map[string]*provider.Metadata, e.metadata.Count())
	e.metadata.Range(func(key string, value *provider.Metadata) bool {
		result[key] = value
		return false
	})
	return result
}

// Images returns the image list warmed for key.
func (e *PrefetchEngine) Images(key string) ([]provider.RemoteImage, bool) {
	return e.imageSets.Load(key)
}

// Failures returns a snapshot of failed items ordered by key.
func (e *PrefetchEngine) Failures() []PrefetchFailure {
	var out []PrefetchFailure
	e.failures.Range(func(_ string, value PrefetchFailure) bool {
		out = append(out, value)
		return false
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Item.Key < out[j].Item.Key })
	return out
}

// SummarySnapshot returns the latest progress summary.
func (e *PrefetchEngine) SummarySnapshot() PrefetchSummary {
	e.summaryMu.RLock()
	defer e.summaryMu.RUnlock()
	return e.summary
}

func (e *PrefetchEngine) run(ctx context.Context, events chan<- PrefetchEvent, items []PrefetchItem) {
	defer close(events)

	if e.registry == nil {
		e.summaryMu.Lock()
		e.summary.Done = true
		e.summaryMu.Unlock()
		e.emit(ctx, events, errors.New("no provider registry configured"))
		return
	}

	items = dedupe(items)
	phaseGroups := groupByPhase(items)

	e.summaryMu.Lock()
	e.summary.TotalItems = len(items)
	e.summaryMu.Unlock()
	e.emit(ctx, events, nil)

	for phase := 0; phase <= 2; phase++ {
		phaseItems := phaseGroups[phase]
		if len(phaseItems) == 0 {
			continue
		}

		e.summaryMu.Lock()
		e.summary.PhaseIndex = phase
		e.summary.PhaseName = phaseName(phase)
		e.summaryMu.Unlock()

		e.runPhase(ctx, events, phaseItems)
		if ctx.Err() != nil {
			e.summaryMu.Lock()
			e.summary.Canceled = true
			e.summary.ActiveWorkers = 0
			e.summaryMu.Unlock()
			e.emit(ctx, events, ctx.Err())
			return
		}
	}

	e.summaryMu.Lock()
	e.summary.Done = true
	e.summaryMu.Unlock()

	summary := e.SummarySnapshot()
	e.logger.Info("prefetch complete",
		slog.Int("items", summary.TotalItems),
		slog.Int("images", summary.ImageCount),
		slog.Int("failures", summary.ErrorCount),
	)
	e.emit(ctx, events, nil)
}

func (e *PrefetchEngine) runPhase(ctx context.Context, events chan<- PrefetchEvent, items []PrefetchItem) {
	workerCount := min(e.workerCount, len(items))
	p := pool.New().WithMaxGoroutines(workerCount)

	// announce worker pool size
	e.summaryMu.Lock()
	e.summary.ActiveWorkers = workerCount
	e.summaryMu.Unlock()
	e.emit(ctx, events, nil)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		if _, exists := e.metadata.Load(item.Key); exists {
			e.incrementProcessed(item)
			e.emit(ctx, events, nil)
			continue
		}

		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			res := e.process(ctx, item)
			if ctx.Err() != nil {
				return
			}
			e.processResult(res)
			e.emit(ctx, events, nil)
		})
	}
	p.Wait()

	e.summaryMu.Lock()
	e.summary.ActiveWorkers = 0
	e.summaryMu.Unlock()
	e.emit(ctx, events, nil)
}

// process warms one item: metadata first, then images addressed by any IDs
// the metadata lookup resolved.
func (e *PrefetchEngine) process(ctx context.Context, item PrefetchItem) PrefetchResult {
	res := PrefetchResult{Item: item}

	meta, err := provider.FetchMetadataWithDependencies(ctx, e.registry, item.Info, e.metadataCache())
	if err != nil {
		res.Err = err
		return res
	}
	if meta == nil {
		res.Err = fmt.Errorf("%s %q: %w", item.Info.Kind, describe(item), provider.ErrNotFound)
		return res
	}
	res.Meta = meta

	if !e.images {
		return res
	}

	info := withResolvedIDs(item.Info, meta)
	var errs []error
	for _, p := range e.registry.For(info) {
		images, err := p.FetchImages(ctx, info)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s images: %w", p.Name(), err))
			continue
		}
		res.Images = append(res.Images, images...)
	}
	res.Err = errors.Join(errs...)
	return res
}

func (e *PrefetchEngine) processResult(res PrefetchResult) {
	if res.Meta != nil {
		e.metadata.Store(res.Item.Key, res.Meta)
	}
	if res.Images != nil {
		e.imageSets.Store(res.Item.Key, res.Images)
	}

	e.updateFailure(res.Item, res.Item.Info.Name, res.Err)
	if res.Err != nil && !isCancellation(res.Err) {
		e.logger.Warn("prefetch item failed",
			slog.String("item", describe(res.Item)),
			logging.Error(res.Err),
		)
	}

	e.summaryMu.Lock()
	e.summary.ProcessedItems++
	e.summary.ImageCount += len(res.Images)
	e.summary.ErrorCount = e.failures.Count()
	e.summary.LastItem = describe(res.Item)
	e.summaryMu.Unlock()
}

func (e *PrefetchEngine) incrementProcessed(item PrefetchItem) {
	e.summaryMu.Lock()
	e.summary.ProcessedItems++
	e.summary.LastItem = describe(item)
	e.summaryMu.Unlock()
}

func (e *PrefetchEngine) updateFailure(item PrefetchItem, query string, err error) {
	if err == nil || isCancellation(err) {
		e.failures.Delete(item.Key)
		return
	}

	if query == "" {
		query = item.Info.Name
	}

	attempts := 1
	if existing, ok := e.failures.Load(item.Key); ok {
		attempts = existing.Attempts + 1
	}
	e.failures.Store(item.Key, PrefetchFailure{
		Item:     item,
		Query:    query,
		Err:      err,
		Attempts: attempts,
	})
}

// Retry re-runs a failed item, optionally searching under nameOverride. It
// returns nil when the failure has been resolved and the updated failure when
// the item still fails. A non-nil error indicates an unknown key.
func (e *PrefetchEngine) Retry(ctx context.Context, key, nameOverride string) (*PrefetchFailure, error) {
	failure, ok := e.failures.Load(key)
	if !ok {
		return nil, fmt.Errorf("prefetch failure for %s not found", key)
	}

	query := strings.TrimSpace(nameOverride)
	if query == "" {
		query = strings.TrimSpace(failure.Query)
	}

	item := failure.Item
	if query != "" {
		switch item.Info.Kind {
		case provider.KindSeason, provider.KindEpisode:
			item.Info.SeriesName = query
		default:
			item.Info.Name = query
		}
	}

	res := e.process(ctx, item)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// results stay under the original key
	res.Item.Key = key
	if res.Meta != nil {
		e.metadata.Store(key, res.Meta)
	}
	if res.Images != nil {
		e.imageSets.Store(key, res.Images)
	}
	e.updateFailure(res.Item, query, res.Err)

	e.summaryMu.Lock()
	e.summary.ErrorCount = e.failures.Count()
	e.summary.LastItem = describe(res.Item)
	e.summaryMu.Unlock()

	if updated, ok := e.failures.Load(key); ok {
		return &updated, nil
	}
	return nil, nil
}

func (e *PrefetchEngine) emit(ctx context.Context, events chan<- PrefetchEvent, err error) {
	summary := e.SummarySnapshot()
	select {
	case events <- PrefetchEvent{Summary: summary, Err: err}:
	case <-ctx.Done():
	}
}

func (e *PrefetchEngine) metadataCache() provider.MetadataCache {
	return metadataCacheAdapter{engine: e}
}

type metadataCacheAdapter struct {
	engine *PrefetchEngine
}

func (c metadataCacheAdapter) Get(key string) (*provider.Metadata, bool) {
	if c.engine == nil || c.engine.metadata == nil {
		return nil, false
	}
	return c.engine.metadata.Load(key)
}

func (c metadataCacheAdapter) Set(key string, meta *provider.Metadata) {
	if c.engine == nil || c.engine.metadata == nil || meta == nil {
		return
	}
	c.engine.metadata.Store(key, meta)
}

// withResolvedIDs copies identifiers found by a metadata lookup onto info so
// image lookups can address the document directly.
func withResolvedIDs(info provider.LookupInfo, meta *provider.Metadata) provider.LookupInfo {
	switch info.Kind {
	case provider.KindSeason, provider.KindEpisode:
		return info
	}
	ids := maps.Clone(info.ProviderIDs)
	if ids == nil {
		ids = map[string]string{}
	}
	for k, v := range meta.ProviderIDs {
		if _, exists := ids[k]; !exists {
			ids[k] = v
		}
	}
	info.ProviderIDs = ids
	return info
}

func dedupe(items []PrefetchItem) []PrefetchItem {
	seen := make(map[string]bool, len(items))
	out := make([]PrefetchItem, 0, len(items))
	for _, item := range items {
		if item.Key == "" {
			item.Key = provider.GenerateMetadataKey(item.Info)
		}
		if seen[item.Key] {
			continue
		}
		seen[item.Key] = true
		out = append(out, item)
	}
	return out
}

func groupByPhase(items []PrefetchItem) map[int][]PrefetchItem {
	groups := make(map[int][]PrefetchItem, 3)
	for _, item := range items {
		groups[item.Phase()] = append(groups[item.Phase()], item)
	}
	return groups
}

func phaseName(phase int) string {
	switch phase {
	case 0:
		return "Movies/Series"
	case 1:
		return "Seasons"
	case 2:
		return "Episodes"
	default:
		return "Unknown"
	}
}

func describe(item PrefetchItem) string {
	info := item.Info
	switch info.Kind {
	case provider.KindSeason:
		return fmt.Sprintf("%s S%02d", seriesLabel(info), info.SeasonNumber)
	case provider.KindEpisode:
		return fmt.Sprintf("%s S%02dE%02d", seriesLabel(info), info.SeasonNumber, info.EpisodeNumber)
	}
	if info.Name != "" {
		if info.Year > 0 {
			return fmt.Sprintf("%s (%d)", info.Name, info.Year)
		}
		return info.Name
	}
	return item.Key
}

func seriesLabel(info provider.LookupInfo) string {
	if info.SeriesName != "" {
		return info.SeriesName
	}
	if id := info.SeriesProviderID(provider.IDTmdb); id != "" {
		return "tmdb:" + id
	}
	return "series"
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
