package engine

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"github.com/samber/lo"
)

// ============================================================
// Maintenance State Tracker
// ============================================================

// ComputeTask derives the lifecycle state of one service type for a vehicle.
// last is the most recent record for (vehicle, service type), or nil when the
// vehicle has no known history for it.
//
// When both a distance and a time interval are configured, progress is the
// maximum of the two: whichever axis is consumed first drives urgency.
func ComputeTask(vehicle domain.Vehicle, def domain.ServiceTypeDefinition, last *domain.ServiceRecord, now time.Time, p Policy) (domain.MaintenanceTask, error) {
	basis, err := dueBasis(def)
	if err != nil {
		return domain.MaintenanceTask{}, err
	}
	if now.IsZero() {
		return domain.MaintenanceTask{}, &domain.ErrInvalidInput{Field: "now", Message: "evaluation time is required"}
	}
	if vehicle.Odometer < 0 || math.IsNaN(vehicle.Odometer) || math.IsInf(vehicle.Odometer, 0) {
		return domain.MaintenanceTask{}, &domain.ErrInvalidInput{Field: "vehicle.odometer", Message: "must be a non-negative number"}
	}

	task := domain.MaintenanceTask{
		VehicleID:     vehicle.ID,
		ServiceTypeID: def.ID,
		ServiceName:   def.Name,
		Category:      def.Category,
		DueBasis:      basis,
	}

	if last == nil {
		task.State = domain.StateScheduled
		if def.SafetyCriticalWhenUnknown {
			task.State = domain.StateDueSoon
		}
		task.Priority = PriorityFor(def.BasePriorityWeight, task.State, p)
		return task, nil
	}

	if err := validateRecord(vehicle, def, *last, now); err != nil {
		return domain.MaintenanceTask{}, err
	}

	var raw float64
	if def.Interval.HasDistance() {
		if vehicle.Odometer < last.Odometer {
			return domain.MaintenanceTask{}, &domain.ErrInvalidInput{
				Field:   "vehicle.odometer",
				Message: "current reading is below the last service reading",
			}
		}
		raw = (vehicle.Odometer - last.Odometer) * 100 / *def.Interval.DistanceMiles
	}
	if def.Interval.HasTime() {
		elapsed := DaysBetween(last.PerformedAt, now) * 100 / IntervalDays(last.PerformedAt, *def.Interval.Months)
		raw = math.Max(raw, elapsed)
	}

	task.State = StateFor(raw, p)
	task.Progress = clampPercent(raw)
	task.Priority = PriorityFor(def.BasePriorityWeight, task.State, p)

	servicedAt := last.PerformedAt
	odometer := last.Odometer
	task.LastServicedAt = &servicedAt
	task.LastOdometer = &odometer
	return task, nil
}

func dueBasis(def domain.ServiceTypeDefinition) (domain.DueBasis, error) {
	switch {
	case def.Interval.HasDistance() && def.Interval.HasTime():
		return domain.DueBasisBoth, nil
	case def.Interval.HasDistance():
		return domain.DueBasisDistance, nil
	case def.Interval.HasTime():
		return domain.DueBasisTime, nil
	}
	return "", &domain.ErrInvalidInterval{ServiceTypeID: def.ID}
}

func validateRecord(vehicle domain.Vehicle, def domain.ServiceTypeDefinition, rec domain.ServiceRecord, now time.Time) error {
	if rec.ServiceTypeID != "" && rec.ServiceTypeID != def.ID {
		return &domain.ErrInvalidInput{Field: "lastRecord.serviceTypeId", Message: "record belongs to " + rec.ServiceTypeID}
	}
	if rec.VehicleID != "" && vehicle.ID != "" && rec.VehicleID != vehicle.ID {
		return &domain.ErrInvalidInput{Field: "lastRecord.vehicleId", Message: "record belongs to vehicle " + rec.VehicleID}
	}
	if rec.Odometer < 0 || math.IsNaN(rec.Odometer) || math.IsInf(rec.Odometer, 0) {
		return &domain.ErrInvalidInput{Field: "lastRecord.odometer", Message: "must be a non-negative number"}
	}
	if rec.PerformedAt.IsZero() {
		return &domain.ErrInvalidInput{Field: "lastRecord.performedAt", Message: "date is required"}
	}
	if rec.PerformedAt.After(now) {
		return &domain.ErrInvalidInput{Field: "lastRecord.performedAt", Message: "date is in the future"}
	}
	return nil
}

// StateFor maps a raw (unclamped) progress value onto a lifecycle state.
func StateFor(progress float64, p Policy) domain.TaskState {
	switch {
	case progress >= p.OverdueThreshold:
		return domain.StateOverdue
	case progress >= p.DueSoonThreshold:
		return domain.StateDueSoon
	default:
		return domain.StateScheduled
	}
}

// BasePriority maps a catalog weight onto a priority before escalation.
func BasePriority(weight int, p Policy) domain.Priority {
	switch {
	case weight >= p.HighWeight:
		return domain.PriorityHigh
	case weight >= p.MediumWeight:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// PriorityFor escalates the base priority by the state's step, capped at high.
func PriorityFor(weight int, state domain.TaskState, p Policy) domain.Priority {
	return domain.PriorityFromRank(BasePriority(weight, p).Rank() + p.Escalation[state])
}

// ============================================================
// Whole-vehicle helpers
// ============================================================

type recordKey struct {
	vehicleID     string
	serviceTypeID string
}

// LatestRecords picks the last record per (vehicle, service type). Later
// dates win, then higher odometer, then later position in the log.
func LatestRecords(records []domain.ServiceRecord) map[string]domain.ServiceRecord {
	latest := make(map[recordKey]domain.ServiceRecord)
	for _, r := range records {
		k := recordKey{vehicleID: r.VehicleID, serviceTypeID: r.ServiceTypeID}
		cur, ok := latest[k]
		if !ok || supersedes(r, cur) {
			latest[k] = r
		}
	}

	out := make(map[string]domain.ServiceRecord, len(latest))
	for k, r := range latest {
		out[k.vehicleID+"/"+k.serviceTypeID] = r
	}
	return out
}

func supersedes(r, cur domain.ServiceRecord) bool {
	if !r.PerformedAt.Equal(cur.PerformedAt) {
		return r.PerformedAt.After(cur.PerformedAt)
	}
	return r.Odometer >= cur.Odometer
}

// ComputeTasks evaluates every tracked catalog entry for one vehicle. Records
// of other vehicles are ignored. Tasks are ordered by priority, then
// progress, then service type id.
func ComputeTasks(vehicle domain.Vehicle, catalog *Catalog, records []domain.ServiceRecord, now time.Time, p Policy) ([]domain.MaintenanceTask, error) {
	own := lo.Filter(records, func(r domain.ServiceRecord, _ int) bool {
		return r.VehicleID == vehicle.ID
	})
	latest := LatestRecords(own)

	tasks := make([]domain.MaintenanceTask, 0, catalog.Len())
	for _, def := range catalog.Tracked() {
		var last *domain.ServiceRecord
		if r, ok := latest[vehicle.ID+"/"+def.ID]; ok {
			last = &r
		}
		task, err := ComputeTask(vehicle, def, last, now, p)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	SortTasks(tasks)
	return tasks, nil
}

// SortTasks orders tasks most urgent first.
func SortTasks(tasks []domain.MaintenanceTask) {
	slices.SortStableFunc(tasks, func(a, b domain.MaintenanceTask) int {
		if n := cmp.Compare(b.Priority.Rank(), a.Priority.Rank()); n != 0 {
			return n
		}
		if n := cmp.Compare(b.Progress, a.Progress); n != 0 {
			return n
		}
		return cmp.Compare(a.ServiceTypeID, b.ServiceTypeID)
	})
}

// OverdueTasks returns the overdue subset, preserving order.
func OverdueTasks(tasks []domain.MaintenanceTask) []domain.MaintenanceTask {
	return lo.Filter(tasks, func(t domain.MaintenanceTask, _ int) bool {
		return t.State == domain.StateOverdue
	})
}
