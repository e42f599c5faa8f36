package handler

import (
	"net/http"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// 5. Secretaries & Shareholders
// ============================================================

// memberHandlers serves one member kind. The route group decides which.
type memberHandlers struct {
	svc    *service.MemberService
	logger *zap.Logger
}

func (h memberHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "POST "+string(h.svc.Kind()))
	defer span.End()

	var in domain.MemberInput
	if !decodeJSON(w, r, &in) {
		return
	}

	ac := AuthFromContext(ctx)
	member, err := h.svc.Create(ctx, ac.Tenant, &in)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h memberHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "LIST "+string(h.svc.Kind()))
	defer span.End()

	ac := AuthFromContext(ctx)
	members, err := h.svc.List(ctx, ac.Tenant)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// get needs no store call: the guard already loaded the member.
func (h memberHandlers) get(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromContext(r.Context())
	writeJSON(w, http.StatusOK, ac.Resource)
}

func (h memberHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "PUT "+string(h.svc.Kind()))
	defer span.End()

	var in domain.MemberInput
	if !decodeJSON(w, r, &in) {
		return
	}

	ac := AuthFromContext(ctx)
	member, err := h.svc.Update(ctx, ac.Resource, &in)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h memberHandlers) delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "DELETE "+string(h.svc.Kind()))
	defer span.End()

	ac := AuthFromContext(ctx)
	if err := h.svc.Delete(ctx, ac.Resource); err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Deleted successfully", ID: ac.Resource.ID})
}
