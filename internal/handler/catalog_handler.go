package handler

import (
	"net/http"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// 6. Service catalogue
// ============================================================

func listServicesHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/service/services")
		defer span.End()

		services, err := catalog.List(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, services)
	}
}

func getServiceHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/service/services/{serviceId}")
		defer span.End()

		svc, err := catalog.Get(ctx, chi.URLParam(r, "serviceId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, svc)
	}
}

func createServiceHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/service/services")
		defer span.End()

		var in domain.ServiceInput
		if !decodeJSON(w, r, &in) {
			return
		}

		svc, err := catalog.Create(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, svc)
	}
}

func updateServiceHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/service/services/{serviceId}")
		defer span.End()

		var in domain.ServiceInput
		if !decodeJSON(w, r, &in) {
			return
		}

		svc, err := catalog.Update(ctx, chi.URLParam(r, "serviceId"), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, svc)
	}
}

func deleteServiceHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/service/services/{serviceId}")
		defer span.End()

		id := chi.URLParam(r, "serviceId")
		if err := catalog.Delete(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Service deleted successfully", ID: id})
	}
}

func engageServiceHandler(catalog *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/service/services/engage/{serviceId}")
		defer span.End()

		ac := AuthFromContext(ctx)
		resp, err := catalog.Engage(ctx, ac.Caller.ClientID, ac.Tenant, chi.URLParam(r, "serviceId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
