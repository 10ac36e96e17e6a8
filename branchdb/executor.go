package branchdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/maintcost_backend/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultConnectTimeout = 15 * time.Second
	DefaultQueryTimeout   = 30 * time.Second
)

var ErrNoFactory = errors.New("no connection factory configured")

// Executor runs one query against one branch and folds every failure into the result.
type Executor struct {
	factory ConnectionFactory
	logger  *logrus.Logger
	tracer  trace.Tracer
}

func NewExecutor(factory ConnectionFactory, logger *logrus.Logger) *Executor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Executor{
		factory: factory,
		logger:  logger,
		tracer:  otel.Tracer("maintcost/branchdb"),
	}
}

// Execute never returns an error and never panics. The caller's cancellation
// is not propagated; the branch timeouts bound the call instead.
func (e *Executor) Execute(ctx context.Context, branch models.BranchConfig, sqlTemplate string, params []string) (result models.QueryResult) {
	ctx, span := e.tracer.Start(context.WithoutCancel(ctx), "branchdb.Execute",
		trace.WithAttributes(attribute.String("branch", string(branch.Code))))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = models.NewFailureResult(branch.Code, fmt.Errorf("panic while querying %s: %v", branch.Code, r), time.Since(start))
		}
		result.Attempts = 1
		span.SetAttributes(
			attribute.Bool("success", result.Success),
			attribute.Int("rows", result.RowCount),
		)
		if !result.Success {
			span.SetStatus(codes.Error, result.Error)
			e.logger.WithFields(logrus.Fields{
				"branch":      branch.Code,
				"duration_ms": result.Duration.Milliseconds(),
			}).Debug("branch query failed: " + result.Error)
		}
		span.End()
	}()

	rows, err := e.run(ctx, branch, sqlTemplate, params)
	if err != nil {
		return models.NewFailureResult(branch.Code, err, time.Since(start))
	}
	return models.NewSuccessResult(branch.Code, rows, time.Since(start))
}

func (e *Executor) run(ctx context.Context, branch models.BranchConfig, sqlTemplate string, params []string) ([]models.Row, error) {
	if e.factory == nil {
		return nil, ErrNoFactory
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, timeoutOr(branch.ConnectTimeout, DefaultConnectTimeout))
	conn, err := e.factory.Open(connectCtx, branch)
	cancelConnect()
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", branch.Code, err)
	}
	if conn == nil {
		return nil, ErrNilConnection
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			e.logger.WithField("branch", branch.Code).Warn("close branch connection: " + cerr.Error())
		}
	}()

	queryCtx, cancelQuery := context.WithTimeout(ctx, timeoutOr(branch.QueryTimeout, DefaultQueryTimeout))
	defer cancelQuery()

	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p
	}
	rows, err := conn.Query(queryCtx, sqlTemplate, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", branch.Code, err)
	}
	return rows, nil
}

func timeoutOr(d time.Duration, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
