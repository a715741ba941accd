package engine

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/core"
	"github.com/platelog/platelog/internal/core/items"
	"github.com/platelog/platelog/internal/core/nutrition"
	"github.com/platelog/platelog/internal/metrics"
)

// DefaultPortionGrams is the portion assumed when nothing better is known.
const DefaultPortionGrams = 100.0

// DefaultWorkers bounds concurrent lookups for one meal.
const DefaultWorkers = 4

// Searcher returns nutrient candidates for a food name. Implementations never
// fail; an unusable response is an empty result.
type Searcher interface {
	Search(ctx context.Context, query string) []core.ProductCandidate
}

// Resolver turns a meal description into per-item nutrients and totals.
type Resolver struct {
	Searcher         Searcher
	Portions         *items.PortionTable
	EstimatePortions bool
	DefaultGrams     float64
	Workers          int
	Logger           *logging.Logger
}

// PlannedItem is a split item with the portion the resolver would use.
type PlannedItem struct {
	core.ParsedItem
	Grams float64 `json:"grams"`
}

// Plan splits text and assigns each item its portion without any lookup.
func (r *Resolver) Plan(text string) []PlannedItem {
	parsed := items.Parse(text)
	planned := make([]PlannedItem, len(parsed))
	for i, item := range parsed {
		planned[i] = PlannedItem{ParsedItem: item, Grams: r.portion(item)}
	}
	return planned
}

// Resolve splits text, looks up each item and scales the best match to its
// portion. The result always holds one item per split piece, in input order.
//
// overrides maps item index to grams. An index outside the item list or a
// non-positive value fails with *core.PortionError before any lookup runs.
func (r *Resolver) Resolve(ctx context.Context, text string, overrides map[int]float64) (*core.MealAnalysis, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	planned := r.Plan(text)
	if err := validateOverrides(overrides, len(planned)); err != nil {
		return nil, err
	}
	for index, grams := range overrides {
		planned[index].Grams = grams
	}

	resolved, err := r.resolveAll(ctx, planned)
	if err != nil {
		return nil, err
	}

	matched := make([]bool, len(resolved))
	for i, item := range resolved {
		matched[i] = item.MatchedProductName != nil || item.MatchedProductCode != nil
	}
	metrics.RecordMealAnalysis(matched)

	return &core.MealAnalysis{
		Items:  resolved,
		Totals: core.SumNutrients(resolved),
	}, nil
}

type resolveJob struct {
	index int
	item  PlannedItem
}

func (r *Resolver) resolveAll(ctx context.Context, planned []PlannedItem) ([]core.ResolvedItem, error) {
	results := make([]core.ResolvedItem, len(planned))
	if len(planned) == 0 {
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan resolveJob)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for job := range jobs {
			if ctx.Err() != nil {
				return
			}
			results[job.index] = r.resolveItem(ctx, job.item)
		}
	}

	concurrency := r.workers()
	if concurrency > len(planned) {
		concurrency = len(planned)
	}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}

sendLoop:
	for i, item := range planned {
		select {
		case <-ctx.Done():
			break sendLoop
		case jobs <- resolveJob{index: i, item: item}:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Resolver) resolveItem(ctx context.Context, item PlannedItem) core.ResolvedItem {
	resolved := core.ResolvedItem{Name: item.Name, Grams: item.Grams}
	if r.Searcher == nil {
		return resolved
	}

	best, ok := nutrition.Rank(r.Searcher.Search(ctx, item.Name))
	if !ok {
		if r.Logger != nil {
			r.Logger.Debug("No nutrient match", zap.String("item", item.Name))
		}
		return resolved
	}

	if best.DisplayName != "" {
		name := best.DisplayName
		resolved.MatchedProductName = &name
	}
	if best.ProductCode != "" {
		code := best.ProductCode
		resolved.MatchedProductCode = &code
	}
	resolved.Nutrients = nutrition.Scale(&best, item.Grams)
	return resolved
}

func (r *Resolver) portion(item core.ParsedItem) float64 {
	if r.EstimatePortions {
		if grams, ok := r.Portions.Estimate(item); ok {
			return grams
		}
	}
	if r.DefaultGrams > 0 && !math.IsInf(r.DefaultGrams, 0) {
		return r.DefaultGrams
	}
	return DefaultPortionGrams
}

func (r *Resolver) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return DefaultWorkers
}

func validateOverrides(overrides map[int]float64, count int) error {
	indexes := make([]int, 0, len(overrides))
	for index := range overrides {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)

	for _, index := range indexes {
		grams := overrides[index]
		if index < 0 || index >= count {
			return &core.PortionError{Index: index, Grams: grams, Reason: "no item at this position"}
		}
		if err := core.CheckPortion(index, grams); err != nil {
			return err
		}
	}
	return nil
}
