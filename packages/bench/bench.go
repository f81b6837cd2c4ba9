// Package bench repeatedly executes a testset to measure request
// latency under load. Each worker drives its own Runner and Context, so
// iterations are isolated from one another; the sequential semantics
// inside one testset iteration are unchanged.
package bench

import (
	"context"
	"fmt"
	"sync"
	"time"

	enginectx "github.com/abdul-hamid-achik/restflow/packages/core/context"
	"github.com/abdul-hamid-achik/restflow/packages/core/model"
	"github.com/abdul-hamid-achik/restflow/packages/core/runner"
	"github.com/abdul-hamid-achik/restflow/packages/http"
	"golang.org/x/time/rate"
)

const (
	// DefaultConcurrency is the default number of concurrent workers
	DefaultConcurrency = 5
	// DefaultIterations is the default iteration budget when neither
	// iterations nor duration is configured
	DefaultIterations = 100
)

// Config controls one bench run.
type Config struct {
	// Iterations is the total number of testset executions; 0 means
	// run until Duration elapses.
	Iterations int
	// Duration bounds the run in time; 0 means run until Iterations.
	Duration time.Duration
	// Rate caps testset executions per second across all workers;
	// 0 means unlimited.
	Rate float64
	// Concurrency is the number of workers.
	Concurrency int
	// Runner configures the per-worker Runners.
	Runner runner.Config
}

// Bench executes one testset repeatedly and aggregates metrics.
type Bench struct {
	config  *Config
	metrics *Metrics
}

func New(cfg *Config) *Bench {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Iterations <= 0 && cfg.Duration <= 0 {
		cfg.Iterations = DefaultIterations
	}
	return &Bench{
		config:  cfg,
		metrics: NewMetrics(),
	}
}

// Run executes the testset until the iteration or time budget is spent
// and returns the aggregated summary.
func (b *Bench) Run(ctx context.Context, ts model.TestSet) (*Summary, error) {
	if len(ts.TestCases) == 0 {
		return nil, fmt.Errorf("testset %q has no testcases", ts.Name)
	}

	if b.config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.Duration)
		defer cancel()
	}

	var limiter *rate.Limiter
	if b.config.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(b.config.Rate), 1)
	}

	iterations := make(chan struct{})
	go func() {
		defer close(iterations)
		if b.config.Iterations > 0 {
			for i := 0; i < b.config.Iterations; i++ {
				select {
				case iterations <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
			return
		}
		for {
			select {
			case iterations <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	b.metrics.Start()

	var wg sync.WaitGroup
	for i := 0; i < b.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// one client per worker so iterations share a connection pool
			client := runner.NewHTTPClient(&b.config.Runner)
			for range iterations {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				b.runOnce(ts, client)
			}
		}()
	}
	wg.Wait()

	b.metrics.Stop()
	return b.metrics.Summarize(), nil
}

// runOnce executes the whole testset with a fresh Context so variable
// state never leaks between iterations; the worker's client is reused.
func (b *Bench) runOnce(ts model.TestSet, client *http.Client) {
	cfg := b.config.Runner
	r := runner.NewRunner(enginectx.New(), &cfg, runner.WithClient(client))

	results, err := r.RunTestSet(ts)
	if err != nil && len(results) == 0 {
		b.metrics.Record(ts.Name, 0, false, true)
		return
	}
	for _, result := range results {
		b.metrics.Record(result.Name, result.Duration, result.Success, result.Err != nil)
	}
}
