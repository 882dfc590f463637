// Package workers runs the data section of a plan on a bounded pool of
// workers, honouring the dependencies between data entries.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/resolver"
	"golang.org/x/sync/errgroup"
)

// Func loads one data entry. worker is the 1-based slot running it.
type Func func(ctx context.Context, worker int, e resolver.Entry) error

// Assignment records which worker ran an entry.
type Assignment struct {
	Worker   int            `json:"worker" yaml:"worker"`
	Entry    resolver.Entry `json:"entry" yaml:"entry"`
	Duration time.Duration  `json:"duration" yaml:"duration"`
}

// Schedule runs every data entry of plan through fn, at most jobs at a
// time, in plan order. An entry starts only once the data entries in its
// final dependency list have completed. The first error cancels the
// remaining work; assignments of completed entries are returned with it,
// ordered by plan position.
func Schedule(ctx context.Context, plan *resolver.Plan, jobs int, fn Func, logger *slog.Logger) ([]Assignment, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if jobs < 1 {
		jobs = 1
	}

	entries := plan.DataEntries()
	done := make(map[catalog.SequenceID]chan struct{}, len(entries))
	for _, e := range entries {
		done[e.ID] = make(chan struct{})
	}

	slots := make(chan int, jobs)
	for i := 1; i <= jobs; i++ {
		slots <- i
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	var mu sync.Mutex
	var out []Assignment

	launched := make(map[catalog.SequenceID]bool, len(entries))
	for _, e := range entries {
		if gctx.Err() != nil {
			break
		}

		// Only entries launched earlier are waited on, so a dependency that
		// is not ahead in the plan can never stall the pool.
		var waits []chan struct{}
		for _, d := range e.Deps {
			if launched[d] {
				waits = append(waits, done[d])
			}
		}
		launched[e.ID] = true

		g.Go(func() error {
			for _, ch := range waits {
				select {
				case <-ch:
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			worker := <-slots
			defer func() { slots <- worker }()

			logger.Debug("loading data", slog.Int("worker", worker), slog.String("schema", e.Schema), slog.String("name", e.Name))
			start := time.Now()
			if err := fn(gctx, worker, e); err != nil {
				return fmt.Errorf("%s %s.%s: %w", e.Kind, e.Schema, e.Name, err)
			}
			close(done[e.ID])

			mu.Lock()
			out = append(out, Assignment{Worker: worker, Entry: e, Duration: time.Since(start)})
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	sort.Slice(out, func(i, j int) bool { return out[i].Entry.Position < out[j].Entry.Position })
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return out, err
	}

	logger.Info("data section complete", slog.Int("entries", len(out)), slog.Int("workers", jobs))
	return out, nil
}

// Waves groups the data entries into levels: every entry of a level only
// depends on entries of earlier levels.
func Waves(plan *resolver.Plan) ([][]resolver.Entry, error) {
	levels, err := plan.Graph(resolver.Entry.IsData).GetExecutionLevels()
	if err != nil {
		return nil, err
	}

	byID := make(map[catalog.SequenceID]resolver.Entry)
	for _, e := range plan.DataEntries() {
		byID[e.ID] = e
	}

	waves := make([][]resolver.Entry, len(levels))
	for i, ids := range levels {
		for _, id := range ids {
			waves[i] = append(waves[i], byID[id])
		}
	}
	return waves, nil
}
