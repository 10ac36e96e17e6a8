package costreport

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/maintcost_backend/cache"
	"github.com/mmdatafocus/maintcost_backend/models"
	"github.com/mmdatafocus/maintcost_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	WarningStale       = "showing cached data, retrying"
	WarningUnavailable = "all branches are unavailable"
	warningPartial     = "some branches are unavailable: "

	DefaultDegradedTTL = 60 * time.Second
)

// BranchQuerier runs one query on every branch. *branchdb.Orchestrator implements it.
type BranchQuerier interface {
	QueryAll(ctx context.Context, sqlTemplate string, params []string) []models.QueryResult
}

// Options tune caching and slow-report logging.
type Options struct {
	CacheEnabled  bool
	TTL           time.Duration
	DegradedTTL   time.Duration
	StaleTTL      time.Duration
	SlowThreshold time.Duration
}

// Report is the merged record set plus how it was obtained.
type Report struct {
	Records     []models.PurchaseRecord `json:"data"`
	Branches    []models.BranchStatus   `json:"branches"`
	GeneratedAt time.Time               `json:"generatedAt"`
	Warning     string                  `json:"warning,omitempty"`
	Stale       bool                    `json:"stale"`
	Cached      bool                    `json:"cached"`
}

type Service struct {
	querier   BranchQuerier
	synthetic *Synthetic
	store     cache.Store
	logger    *logrus.Logger
	opts      Options
	now       func() time.Time
}

func NewService(querier BranchQuerier, store cache.Store, logger *logrus.Logger, opts Options) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if store == nil {
		opts.CacheEnabled = false
	}
	if opts.DegradedTTL <= 0 {
		opts.DegradedTTL = DefaultDegradedTTL
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.StaleTTL <= 0 {
		opts.StaleTTL = 24 * time.Hour
	}
	return &Service{
		querier: querier,
		store:   store,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// WithSynthetic serves generated rows instead of querying branches.
func (s *Service) WithSynthetic(g *Synthetic) *Service {
	s.synthetic = g
	return s
}

// Store is the cache the service reads and fills; nil when caching is off.
func (s *Service) Store() cache.Store {
	if !s.opts.CacheEnabled {
		return nil
	}
	return s.store
}

// Records returns every branch's records for f, unscoped.
//
// A fresh cache entry is returned as is. On total branch failure the
// last-known-good copy is returned marked stale; without one the report is
// empty with a warning. Only template errors are returned.
func (s *Service) Records(ctx context.Context, f Filter) (Report, error) {
	started := s.now()
	key := f.CacheKey()

	if s.opts.CacheEnabled {
		var cached Report
		if s.store.Get(ctx, key, &cached) {
			cached.Cached = true
			return cached, nil
		}
	}

	results, err := s.fetch(ctx, f)
	if err != nil {
		return Report{}, err
	}
	defer s.logSlowReport(ctx, "records", started, map[string]any{"startDate": f.StartDate, "endDate": f.EndDate})

	statuses := models.StatusOf(results)
	succeeded := models.CountSucceeded(results)

	if len(results) > 0 && succeeded == 0 {
		s.logger.WithFields(logrus.Fields{
			"module":   "costreport",
			"branches": len(results),
		}).Warn("every branch failed")
		if s.opts.CacheEnabled {
			var lastGood Report
			if s.store.Get(ctx, f.lastGoodKey(), &lastGood) {
				lastGood.Branches = statuses
				lastGood.Stale = true
				lastGood.Cached = true
				lastGood.Warning = WarningStale
				return lastGood, nil
			}
		}
		return Report{
			Records:     []models.PurchaseRecord{},
			Branches:    statuses,
			GeneratedAt: s.now(),
			Warning:     WarningUnavailable,
		}, nil
	}

	report := Report{
		Records:     models.MergeResults(results),
		Branches:    statuses,
		GeneratedAt: s.now(),
	}
	ttl := s.opts.TTL
	if succeeded < len(results) {
		report.Warning = warningPartial + strings.Join(failedBranches(results), ", ")
		ttl = s.opts.DegradedTTL
	}
	if s.opts.CacheEnabled {
		s.store.Set(ctx, key, report, ttl)
		s.store.Set(ctx, f.lastGoodKey(), report, s.opts.StaleTTL)
	}
	return report, nil
}

// RecordsFor returns the records user may see.
func (s *Service) RecordsFor(ctx context.Context, user models.CurrentUser, f Filter) (Report, error) {
	report, err := s.Records(ctx, f)
	if err != nil {
		return Report{}, err
	}
	report.Records = models.FilterRecords(report.Records, user)
	return report, nil
}

// ProbeBranches runs a trivial query on every branch, bypassing the cache.
func (s *Service) ProbeBranches(ctx context.Context) []models.BranchStatus {
	if s.synthetic != nil {
		return models.StatusOf(s.synthetic.Results(Filter{}))
	}
	return models.StatusOf(s.querier.QueryAll(ctx, "SELECT 1", nil))
}

// Invalidate evicts keys starting with prefix; "*" evicts everything.
func (s *Service) Invalidate(ctx context.Context, prefix string) int {
	if !s.opts.CacheEnabled {
		return 0
	}
	if prefix == "*" {
		return s.store.EvictAll(ctx)
	}
	return s.store.EvictByPrefix(ctx, prefix)
}

func (s *Service) fetch(ctx context.Context, f Filter) ([]models.QueryResult, error) {
	if s.synthetic != nil {
		return s.synthetic.Results(f), nil
	}
	sql, params, err := BuildQuery(f)
	if err != nil {
		return nil, err
	}
	return s.querier.QueryAll(ctx, sql, params), nil
}

func (s *Service) logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]any) {
	d := s.now().Sub(started)
	if s.opts.SlowThreshold <= 0 || d < s.opts.SlowThreshold {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	s.logger.WithFields(logrus.Fields{
		"module":         "costreport",
		"name":           name,
		"ms":             d.Milliseconds(),
		"correlation_id": cid,
		"extra":          extra,
	}).Warn("slow_report")
}

func failedBranches(results []models.QueryResult) []string {
	out := []string{}
	for _, r := range results {
		if !r.Success {
			out = append(out, string(r.Branch))
		}
	}
	return out
}
