package handler

import (
	"net/http"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// vehicleID reads the path parameter.
func vehicleID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "vehicleId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "vehicleId is required")
		return "", false
	}
	return id, true
}

// ============================================================
// GET /v1/vehicles/{vehicleId}/tasks
// ============================================================

func vehicleTasksHandler(svc *service.Maintenance, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/vehicles/{vehicleId}/tasks")
		defer span.End()

		id, ok := vehicleID(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("vehicle.id", id))

		tasks, err := svc.GetTasks(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.MaintenanceTask]{Data: tasks, Total: len(tasks)})
	}
}

// ============================================================
// GET /v1/vehicles/{vehicleId}/risk
// ============================================================

func vehicleRiskHandler(svc *service.Maintenance, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/vehicles/{vehicleId}/risk")
		defer span.End()

		id, ok := vehicleID(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("vehicle.id", id))

		risk, err := svc.GetRisk(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, risk)
	}
}

// ============================================================
// GET /v1/vehicles/{vehicleId}/dashboard[?tier=basic]
// ============================================================

func vehicleDashboardHandler(svc *service.Maintenance, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/vehicles/{vehicleId}/dashboard")
		defer span.End()

		id, ok := vehicleID(w, r)
		if !ok {
			return
		}

		var declared *domain.Tier
		if q := r.URL.Query().Get("tier"); q != "" {
			t := domain.ParseTier(q)
			declared = &t
		}
		tier := TierFromRequest(r, declared)
		span.SetAttributes(
			attribute.String("vehicle.id", id),
			attribute.String("tier", tier.String()),
		)

		dash, err := svc.GetDashboard(ctx, id, tier)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}

// ============================================================
// POST /v1/vehicles/{vehicleId}/service-records
// ============================================================

func recordServiceHandler(svc *service.Maintenance, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/vehicles/{vehicleId}/service-records")
		defer span.End()

		id, ok := vehicleID(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("vehicle.id", id))

		var req domain.ServiceRecordRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		rec, err := svc.RecordService(ctx, id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

// ============================================================
// PUT /v1/vehicles/{vehicleId}/onboarding
// ============================================================

func saveOnboardingHandler(svc *service.Maintenance, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/vehicles/{vehicleId}/onboarding")
		defer span.End()

		id, ok := vehicleID(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("vehicle.id", id))

		var req domain.OnboardingProfile
		if !decodeJSON(w, r, &req) {
			return
		}

		saved, err := svc.SaveOnboardingProfile(ctx, id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

// ============================================================
// PUT /v1/vehicles/{vehicleId}/odometer
// ============================================================

func updateOdometerHandler(svc *service.Maintenance, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/vehicles/{vehicleId}/odometer")
		defer span.End()

		id, ok := vehicleID(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("vehicle.id", id))

		var req domain.OdometerUpdateRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		v, err := svc.UpdateOdometer(ctx, id, req.Miles)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// ============================================================
// POST /v1/vehicles/{vehicleId}/odometer/sync
// ============================================================

func syncOdometerHandler(svc *service.Maintenance, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/vehicles/{vehicleId}/odometer/sync")
		defer span.End()

		id, ok := vehicleID(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("vehicle.id", id))

		v, err := svc.SyncOdometer(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}
