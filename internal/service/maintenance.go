// Package service orchestrates the pure maintenance engine over stored
// vehicle facts: it loads inputs through ports, applies the rules with the
// configured policy and publishes the resulting events.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/engine"
	"github.com/boddenberg/carcare-engine/internal/infra/observability"
	"github.com/boddenberg/carcare-engine/internal/port"

	"github.com/samber/lo"
	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/maintenance")

// dashboardSection groups task cards for the free-item allowance.
const dashboardSection = "maintenance"

// Deps are the collaborators of Maintenance. Odometer and Notified are
// optional.
type Deps struct {
	Store            port.Store
	Catalog          *engine.Catalog
	Policy           engine.Policy
	Clock            clockz.Clock
	Vehicles         port.Cache[*domain.Vehicle]
	Notified         port.Cache[bool]
	Publisher        port.EventPublisher
	Odometer         port.OdometerSource
	DefaultLaborRate float64
	QuoteWorkers     int
	Metrics          *observability.Metrics
	Logger           *zap.Logger
}

// Maintenance serves derived maintenance state for stored vehicles.
type Maintenance struct {
	store     port.Store
	catalog   *engine.Catalog
	policy    engine.Policy
	clock     clockz.Clock
	vehicles  port.Cache[*domain.Vehicle]
	notified  port.Cache[bool]
	publisher port.EventPublisher
	odometer  port.OdometerSource
	laborRate float64
	workers   int
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewMaintenance validates the policy and wires the service.
func NewMaintenance(d Deps) (*Maintenance, error) {
	if err := d.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	if d.Catalog == nil {
		d.Catalog = engine.DefaultCatalog()
	}
	if d.Clock == nil {
		d.Clock = clockz.RealClock
	}
	if d.QuoteWorkers < 1 {
		d.QuoteWorkers = 4
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewMetrics()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Maintenance{
		store:     d.Store,
		catalog:   d.Catalog,
		policy:    d.Policy,
		clock:     d.Clock,
		vehicles:  d.Vehicles,
		notified:  d.Notified,
		publisher: d.Publisher,
		odometer:  d.Odometer,
		laborRate: d.DefaultLaborRate,
		workers:   d.QuoteWorkers,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}, nil
}

// facts is everything the engine needs about one vehicle.
type facts struct {
	vehicle *domain.Vehicle
	records []domain.ServiceRecord
	profile *domain.OnboardingProfile
}

// loadFacts fetches vehicle, service log and (optionally) the onboarding
// profile concurrently.
func (s *Maintenance) loadFacts(ctx context.Context, vehicleID string, withProfile bool) (*facts, error) {
	var f facts
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := s.getVehicle(gCtx, vehicleID)
		if err != nil {
			return err
		}
		f.vehicle = v
		return nil
	})

	g.Go(func() error {
		records, err := s.store.ListServiceRecords(gCtx, vehicleID)
		if err != nil {
			s.metrics.IncrExternalError("store")
			return fmt.Errorf("service records: %w", err)
		}
		f.records = records
		return nil
	})

	if withProfile {
		g.Go(func() error {
			p, err := s.store.GetProfile(gCtx, vehicleID)
			if err != nil {
				s.metrics.IncrExternalError("store")
				return fmt.Errorf("onboarding profile: %w", err)
			}
			f.profile = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &f, nil
}

// getVehicle reads through the vehicle cache. The returned value is a copy.
func (s *Maintenance) getVehicle(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	key := "vehicle:" + vehicleID
	if s.vehicles != nil {
		if cached, ok := s.vehicles.Get(key); ok {
			s.metrics.IncrCacheHit("vehicle")
			v := *cached
			return &v, nil
		}
		s.metrics.IncrCacheMiss("vehicle")
	}

	v, err := s.store.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("vehicle: %w", err)
	}
	if s.vehicles != nil {
		stored := *v
		s.vehicles.Set(key, &stored)
	}
	return v, nil
}

func (s *Maintenance) invalidateVehicle(vehicleID string) {
	if s.vehicles != nil {
		s.vehicles.Delete("vehicle:" + vehicleID)
	}
}

func (s *Maintenance) tasksFor(ctx context.Context, f *facts, now time.Time) ([]domain.MaintenanceTask, error) {
	tasks, err := engine.ComputeTasks(*f.vehicle, s.catalog, f.records, now, s.policy)
	if err != nil {
		s.countValidation(err)
		return nil, err
	}
	s.metrics.RecordTasks(tasks)
	s.publishOverdue(ctx, tasks, now)
	return tasks, nil
}

// GetTasks returns every tracked task for a stored vehicle, most urgent first.
func (s *Maintenance) GetTasks(ctx context.Context, vehicleID string) ([]domain.MaintenanceTask, error) {
	ctx, span := tracer.Start(ctx, "Maintenance.GetTasks")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	start := s.clock.Now()
	defer func() { s.metrics.RecordRequestDuration("tasks", s.clock.Since(start)) }()

	f, err := s.loadFacts(ctx, vehicleID, false)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasksFor(ctx, f, s.clock.Now())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("tasks.count", len(tasks)))
	return tasks, nil
}

// GetRisk assesses a stored vehicle from its onboarding answers and the
// currently overdue tasks.
func (s *Maintenance) GetRisk(ctx context.Context, vehicleID string) (*domain.RiskAssessment, error) {
	ctx, span := tracer.Start(ctx, "Maintenance.GetRisk")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))

	start := s.clock.Now()
	defer func() { s.metrics.RecordRequestDuration("risk", s.clock.Since(start)) }()

	f, err := s.loadFacts(ctx, vehicleID, true)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasksFor(ctx, f, s.clock.Now())
	if err != nil {
		return nil, err
	}
	risk, err := s.assess(f.profile, engine.OverdueTasks(tasks))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("risk.level", string(risk.Level)))
	return &risk, nil
}

// GetDashboard aggregates tasks, the risk badge and the visibility of every
// task card for the caller's tier.
func (s *Maintenance) GetDashboard(ctx context.Context, vehicleID string, tier domain.Tier) (*domain.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "Maintenance.GetDashboard")
	defer span.End()
	span.SetAttributes(
		attribute.String("vehicle.id", vehicleID),
		attribute.String("tier", tier.String()),
	)

	start := s.clock.Now()
	defer func() { s.metrics.RecordRequestDuration("dashboard", s.clock.Since(start)) }()

	f, err := s.loadFacts(ctx, vehicleID, true)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	tasks, err := s.tasksFor(ctx, f, now)
	if err != nil {
		return nil, err
	}
	risk, err := s.assess(f.profile, engine.OverdueTasks(tasks))
	if err != nil {
		return nil, err
	}

	items := lo.Map(tasks, func(t domain.MaintenanceTask, _ int) domain.ContentItem {
		return taskCard(t)
	})
	verdicts := engine.ResolveSection(tier, items, s.policy)
	s.metrics.RecordVisibility(verdicts)

	cards := make([]domain.DashboardTask, len(tasks))
	for i, t := range tasks {
		cards[i] = gateCard(t, verdicts[i].Visibility)
	}

	return &domain.Dashboard{
		Vehicle: *f.vehicle,
		Tier:    tier,
		Risk:    risk,
		Tasks:   cards,
		Counts: lo.CountValuesBy(tasks, func(t domain.MaintenanceTask) domain.TaskState {
			return t.State
		}),
		ComputedAt: now.UTC().Format(time.RFC3339),
	}, nil
}

// taskCard describes a task as gated content. Each card is unlocked by the
// matching pay-per-service purchase or any tier at or above its rung.
// Safety tasks are alerts and stay visible.
func taskCard(t domain.MaintenanceTask) domain.ContentItem {
	item := domain.ContentItem{
		ID:           t.ServiceTypeID,
		Section:      dashboardSection,
		RequiredTier: domain.PayPerService(t.ServiceTypeID),
	}
	if t.Category == domain.CategorySafety {
		item.Category = domain.SafetyAlertCategory
	}
	return item
}

func gateCard(t domain.MaintenanceTask, v domain.Visibility) domain.DashboardTask {
	card := domain.DashboardTask{ID: t.ServiceTypeID, Visibility: v}
	switch v {
	case domain.Visible:
		task := t
		card.Task = &task
	case domain.BlurredPreview:
		card.Preview = &domain.TaskPreview{ServiceName: t.ServiceName, Category: t.Category}
	}
	return card
}

func (s *Maintenance) assess(profile *domain.OnboardingProfile, overdue []domain.MaintenanceTask) (domain.RiskAssessment, error) {
	risk, err := engine.AssessRisk(profile, overdue, s.policy)
	if err != nil {
		s.countValidation(err)
		return domain.RiskAssessment{}, err
	}
	s.metrics.RecordRisk(risk.Level)
	return risk, nil
}

// Health pings the store.
func (s *Maintenance) Health(ctx context.Context) domain.ServiceHealth {
	start := s.clock.Now()
	status := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("store ping failed", zap.Error(err))
		status = "unhealthy"
	}
	return domain.ServiceHealth{
		Name:        "store",
		Status:      status,
		LatencyMs:   s.clock.Since(start).Milliseconds(),
		LastChecked: s.clock.Now().UTC().Format(time.RFC3339),
	}
}
