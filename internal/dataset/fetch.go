package dataset

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/ironsheep/fovea-tools-mcp/internal/heatmap"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent item construction.
const DefaultWorkers = 8

// ItemError records a single item that could not be produced.
type ItemError struct {
	Index     int
	ImageName string
	Err       error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (%s): %v", e.Index, e.ImageName, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Batch holds the samples produced for a list of indices, in index-list
// order, and the items that failed.
type Batch struct {
	Samples []*Sample
	Failed  []*ItemError
}

// Targets returns the target heatmaps of the batch samples.
func (b *Batch) Targets() []*heatmap.Heatmap {
	out := make([]*heatmap.Heatmap, len(b.Samples))
	for i, s := range b.Samples {
		out[i] = s.Target
	}
	return out
}

// Fetch produces the items at indices using at most workers goroutines.
// Per-item failures are collected in Batch.Failed; only cancellation of ctx
// aborts the fetch.
func Fetch(ctx context.Context, ds *Dataset, indices []int, workers int) (*Batch, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	samples := make([]*Sample, len(indices))
	errs := make([]error, len(indices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, idx := range indices {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := ds.Item(idx)
			if err != nil {
				errs[i] = err
				return nil
			}
			samples[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := &Batch{Samples: make([]*Sample, 0, len(indices))}
	for i, idx := range indices {
		if errs[i] != nil {
			name := ""
			if idx >= 0 && idx < ds.Len() {
				name = ds.Annotation(idx).ImageName
			}
			b.Failed = append(b.Failed, &ItemError{Index: idx, ImageName: name, Err: errs[i]})
			continue
		}
		b.Samples = append(b.Samples, samples[i])
	}
	return b, nil
}

// Plan splits [0, n) into batches of batchSize. With shuffle set the order is
// permuted by a generator seeded with seed. A trailing partial batch is
// dropped when dropLast is set.
func Plan(n, batchSize int, shuffle bool, seed uint64, dropLast bool) [][]int {
	if n <= 0 || batchSize <= 0 {
		return nil
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if shuffle {
		rng := rand.New(rand.NewPCG(seed, seed))
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	var plan [][]int
	for start := 0; start < n; start += batchSize {
		end := min(start+batchSize, n)
		if end-start < batchSize && dropLast {
			break
		}
		plan = append(plan, order[start:end])
	}
	return plan
}
