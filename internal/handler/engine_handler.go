package handler

import (
	"net/http"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxBatchQuotes bounds POST /v1/engine/quotes/batch.
const maxBatchQuotes = 50

// ============================================================
// GET /v1/engine/catalog
// ============================================================

func catalogHandler(svc *service.Maintenance) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		defs := svc.Catalog()
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.ServiceTypeDefinition]{Data: defs, Total: len(defs)})
	}
}

// ============================================================
// POST /v1/engine/tasks/compute
// ============================================================

func computeTaskHandler(svc *service.Maintenance, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/engine/tasks/compute")
		defer span.End()

		var req domain.ComputeTaskRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.ServiceTypeID == "" {
			writeError(w, http.StatusBadRequest, "serviceTypeId is required")
			return
		}
		span.SetAttributes(attribute.String("service_type.id", req.ServiceTypeID))

		task, err := svc.ComputeTask(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

// ============================================================
// POST /v1/engine/risk/assess
// ============================================================

func assessRiskHandler(svc *service.Maintenance, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/engine/risk/assess")
		defer span.End()

		var req domain.RiskRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		risk, err := svc.AssessRisk(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, risk)
	}
}

// ============================================================
// POST /v1/engine/visibility/resolve
// ============================================================

func resolveVisibilityHandler(svc *service.Maintenance) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/engine/visibility/resolve")
		defer span.End()

		var req domain.VisibilityRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		tier := TierFromRequest(r, req.Tier)
		span.SetAttributes(attribute.String("tier", tier.String()))

		writeJSON(w, http.StatusOK, domain.VisibilityResponse{
			Tier:  tier,
			Items: svc.ResolveVisibility(ctx, tier, req.Items),
		})
	}
}

// ============================================================
// POST /v1/engine/quotes/evaluate
// ============================================================

func evaluateQuoteHandler(svc *service.Maintenance, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/engine/quotes/evaluate")
		defer span.End()

		var req domain.QuoteRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		eval, err := svc.EvaluateQuote(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, eval)
	}
}

// ============================================================
// POST /v1/engine/quotes/batch
// ============================================================

func evaluateQuotesHandler(svc *service.Maintenance, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/engine/quotes/batch")
		defer span.End()

		var req domain.QuoteBatchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if len(req.Quotes) > maxBatchQuotes {
			writeError(w, http.StatusBadRequest, "too many quotes in one batch")
			return
		}
		span.SetAttributes(attribute.Int("quotes.count", len(req.Quotes)))

		evals, err := svc.EvaluateQuotes(ctx, req.Quotes)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.QuoteBatchResponse{Evaluations: evals})
	}
}

// ============================================================
// GET /v1/engine/metrics/snapshot
// ============================================================

func metricsSnapshotHandler(svc *service.Maintenance) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, svc.MetricsSnapshot())
	}
}
