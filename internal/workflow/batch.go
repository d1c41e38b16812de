package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// Executor runs a single workflow. *Orchestrator satisfies it.
type Executor interface {
	Execute(ctx context.Context, req Request) *Result
}

// RunBatch runs independent workflows with at most concurrency in flight.
// Results are returned in request order.
func RunBatch(ctx context.Context, exec Executor, reqs []Request, concurrency int) []*Result {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*Result, len(reqs))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = exec.Execute(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Summary counts batch outcomes.
type Summary struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	GatePassed int `json:"gatePassed"`
}

func Summarize(results []*Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r == nil || r.Status == StatusFailed:
			s.Failed++
		default:
			s.Completed++
			if r.GatePassed {
				s.GatePassed++
			}
		}
	}
	return s
}
