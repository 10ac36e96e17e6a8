package branchdb

import (
	"context"
	"sync"
	"time"

	"github.com/mmdatafocus/maintcost_backend/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxRetries  = 2
	DefaultBaseBackoff = 500 * time.Millisecond
)

// Query is the statement sent to every branch.
type Query struct {
	SQL    string
	Params []string
}

// Orchestrator fans one query out to every branch and retries the failed ones.
type Orchestrator struct {
	Branches    []models.BranchConfig
	Executor    *Executor
	MaxRetries  int
	BaseBackoff time.Duration
	Sleep       func(time.Duration)
	Logger      *logrus.Logger
}

func NewOrchestrator(branches []models.BranchConfig, executor *Executor, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		Branches:    branches,
		Executor:    executor,
		MaxRetries:  DefaultMaxRetries,
		BaseBackoff: DefaultBaseBackoff,
		Sleep:       time.Sleep,
		Logger:      logger,
	}
}

// QueryAll returns one result per configured branch, in configuration order.
// A branch that never succeeds keeps the error of its last attempt.
func (o *Orchestrator) QueryAll(ctx context.Context, sqlTemplate string, params []string) []models.QueryResult {
	q := Query{SQL: sqlTemplate, Params: params}

	results := make([]models.QueryResult, len(o.Branches))
	var wg sync.WaitGroup
	for i, branch := range o.Branches {
		wg.Add(1)
		go func(i int, branch models.BranchConfig) {
			defer wg.Done()
			results[i] = o.execute(ctx, branch, q, 1)
		}(i, branch)
	}
	wg.Wait()

	for round := 1; round <= o.MaxRetries; round++ {
		if models.CountSucceeded(results) == len(results) {
			break
		}
		results = o.RetryFailed(ctx, q, results, round)
	}
	return results
}

// Backoff is the sleep before retry round (1-based).
func (o *Orchestrator) Backoff(round int) time.Duration {
	if round < 1 {
		round = 1
	}
	return o.BaseBackoff * time.Duration(1<<(round-1))
}

// RetryFailed sleeps for the round's backoff and re-runs only the failed
// entries. It returns a new slice; results is not modified.
func (o *Orchestrator) RetryFailed(ctx context.Context, q Query, results []models.QueryResult, round int) []models.QueryResult {
	next := make([]models.QueryResult, len(results))
	copy(next, results)

	failed := []int{}
	for i, r := range results {
		if !r.Success {
			failed = append(failed, i)
		}
	}
	if len(failed) == 0 {
		return next
	}

	wait := o.Backoff(round)
	o.Logger.WithFields(logrus.Fields{
		"round":    round,
		"failed":   len(failed),
		"backoff":  wait.String(),
		"branches": len(results),
	}).Info("retrying failed branches")
	o.sleep(wait)

	var wg sync.WaitGroup
	for _, i := range failed {
		branch, ok := o.branchAt(i, results[i].Branch)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(i int, branch models.BranchConfig, previous int) {
			defer wg.Done()
			next[i] = o.execute(ctx, branch, q, previous+1)
		}(i, branch, results[i].Attempts)
	}
	wg.Wait()
	return next
}

func (o *Orchestrator) execute(ctx context.Context, branch models.BranchConfig, q Query, attempt int) models.QueryResult {
	var result models.QueryResult
	if o.Executor == nil {
		result = models.NewFailureResult(branch.Code, ErrNoFactory, 0)
	} else {
		result = o.Executor.Execute(ctx, branch, q.SQL, q.Params)
	}
	result.Attempts = attempt
	if !result.Success {
		o.Logger.WithFields(logrus.Fields{
			"branch":      branch.Code,
			"attempt":     attempt,
			"duration_ms": result.Duration.Milliseconds(),
		}).Warn(result.Error)
	}
	return result
}

// branchAt returns the config that produced results[i]. results from QueryAll
// are index-aligned with Branches; anything else is matched by code.
func (o *Orchestrator) branchAt(i int, code models.BranchCode) (models.BranchConfig, bool) {
	if i < len(o.Branches) && o.Branches[i].Code == code {
		return o.Branches[i], true
	}
	for _, b := range o.Branches {
		if b.Code == code {
			return b, true
		}
	}
	return models.BranchConfig{}, false
}

func (o *Orchestrator) sleep(d time.Duration) {
	if o.Sleep == nil {
		time.Sleep(d)
		return
	}
	o.Sleep(d)
}
