package service

import (
	"context"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/engine"

	"go.uber.org/zap"
)

func notifiedKey(vehicleID, serviceTypeID string) string {
	return "overdue:" + vehicleID + "/" + serviceTypeID
}

// publishOverdue emits one reminder per overdue task. With a Notified cache
// a task is announced once per cache TTL or until it is serviced. Publish
// failures are logged and never fail the request.
func (s *Maintenance) publishOverdue(ctx context.Context, tasks []domain.MaintenanceTask, now time.Time) {
	if s.publisher == nil {
		return
	}
	for _, t := range engine.OverdueTasks(tasks) {
		key := notifiedKey(t.VehicleID, t.ServiceTypeID)
		if s.notified != nil {
			if _, ok := s.notified.Get(key); ok {
				continue
			}
		}

		evt := domain.TaskOverdueEvent{
			VehicleID:     t.VehicleID,
			ServiceTypeID: t.ServiceTypeID,
			ServiceName:   t.ServiceName,
			Priority:      t.Priority,
			Progress:      t.Progress,
			DetectedAt:    now.UTC(),
		}
		if err := s.publisher.Publish(ctx, domain.SubjectTaskOverdue, evt); err != nil {
			s.logger.Warn("overdue event not published",
				zap.String("vehicle_id", t.VehicleID),
				zap.String("service_type_id", t.ServiceTypeID),
				zap.Error(err),
			)
			continue
		}
		s.metrics.IncrEventPublished(domain.SubjectTaskOverdue)
		if s.notified != nil {
			s.notified.Set(key, true)
		}
	}
}

func (s *Maintenance) clearNotified(vehicleID, serviceTypeID string) {
	if s.notified != nil {
		s.notified.Delete(notifiedKey(vehicleID, serviceTypeID))
	}
}

func (s *Maintenance) publishQuote(ctx context.Context, eval domain.QuoteEvaluation) {
	if s.publisher == nil {
		return
	}
	unmatched := 0
	for _, l := range eval.Lines {
		if l.Issue == domain.IssueUnresolvableMatch {
			unmatched++
		}
	}
	evt := domain.QuoteEvaluatedEvent{
		Verdict:     eval.Verdict,
		TotalCost:   eval.TotalCost,
		Lines:       len(eval.Lines),
		Unmatched:   unmatched,
		Region:      eval.Region,
		EvaluatedAt: s.clock.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, domain.SubjectQuoteEvaluated, evt); err != nil {
		s.logger.Warn("quote event not published", zap.Error(err))
		return
	}
	s.metrics.IncrEventPublished(domain.SubjectQuoteEvaluated)
}
