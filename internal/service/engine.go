package service

import (
	"context"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/engine"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Stateless engine operations: /v1/engine
// ============================================================

// Catalog lists every service type definition.
func (s *Maintenance) Catalog() []domain.ServiceTypeDefinition {
	return s.catalog.All()
}

// ComputeTask evaluates one service type for caller-supplied facts.
func (s *Maintenance) ComputeTask(ctx context.Context, req *domain.ComputeTaskRequest) (*domain.MaintenanceTask, error) {
	_, span := tracer.Start(ctx, "Engine.ComputeTask")
	defer span.End()
	span.SetAttributes(attribute.String("service_type.id", req.ServiceTypeID))

	def, ok := s.catalog.Get(req.ServiceTypeID)
	if !ok {
		err := &domain.ErrInvalidInput{Field: "serviceTypeId", Message: "unknown service type " + req.ServiceTypeID}
		s.countValidation(err)
		return nil, err
	}

	now := s.clock.Now()
	if req.Now != nil {
		now = *req.Now
	}
	task, err := engine.ComputeTask(req.Vehicle, def, req.LastRecord, now, s.policy)
	if err != nil {
		s.countValidation(err)
		return nil, err
	}
	s.metrics.RecordTasks([]domain.MaintenanceTask{task})
	return &task, nil
}

// AssessRisk scores caller-supplied onboarding answers and overdue tasks.
func (s *Maintenance) AssessRisk(ctx context.Context, req *domain.RiskRequest) (*domain.RiskAssessment, error) {
	_, span := tracer.Start(ctx, "Engine.AssessRisk")
	defer span.End()

	risk, err := s.assess(req.Profile, req.OverdueTasks)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("risk.level", string(risk.Level)))
	return &risk, nil
}

// ResolveVisibility gates a list of content items for one tier. Items are
// grouped by section for the free-item allowance.
func (s *Maintenance) ResolveVisibility(ctx context.Context, tier domain.Tier, items []domain.ContentItem) []domain.ItemVisibility {
	_, span := tracer.Start(ctx, "Engine.ResolveVisibility")
	defer span.End()
	span.SetAttributes(
		attribute.String("tier", tier.String()),
		attribute.Int("items.count", len(items)),
	)

	out := engine.ResolveSection(tier, items, s.policy)
	s.metrics.RecordVisibility(out)
	return out
}

// EvaluateQuote checks one quote against the catalog fair prices.
func (s *Maintenance) EvaluateQuote(ctx context.Context, req *domain.QuoteRequest) (*domain.QuoteEvaluation, error) {
	ctx, span := tracer.Start(ctx, "Engine.EvaluateQuote")
	defer span.End()
	span.SetAttributes(attribute.Int("quote.lines", len(req.Lines)))

	qc := engine.QuoteContext{LaborRate: s.laborRate, Region: req.Region}
	if req.LaborRate != nil {
		qc.LaborRate = *req.LaborRate
	}

	eval, err := engine.EvaluateQuote(req.Lines, s.catalog, qc, s.policy)
	if err != nil {
		s.countValidation(err)
		return nil, err
	}
	s.metrics.RecordQuote(eval.Verdict)
	s.publishQuote(ctx, eval)

	span.SetAttributes(attribute.String("quote.verdict", string(eval.Verdict)))
	return &eval, nil
}

// EvaluateQuotes evaluates a batch concurrently, bounded by the configured
// worker count. The first invalid quote fails the batch.
func (s *Maintenance) EvaluateQuotes(ctx context.Context, reqs []domain.QuoteRequest) ([]domain.QuoteEvaluation, error) {
	ctx, span := tracer.Start(ctx, "Engine.EvaluateQuotes")
	defer span.End()
	span.SetAttributes(attribute.Int("quotes.count", len(reqs)))

	out := make([]domain.QuoteEvaluation, len(reqs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range reqs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			eval, err := s.EvaluateQuote(gCtx, &reqs[i])
			if err != nil {
				return err
			}
			out[i] = *eval
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MetricsSnapshot returns the engine counters.
func (s *Maintenance) MetricsSnapshot() *domain.EngineMetrics {
	return s.metrics.Snapshot()
}
