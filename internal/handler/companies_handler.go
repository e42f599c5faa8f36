package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 2. Companies
// ============================================================

func createCompanyHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/companies/companies")
		defer span.End()

		var in domain.CompanyInput
		if !decodeJSON(w, r, &in) {
			return
		}

		ac := AuthFromContext(ctx)
		company, err := companies.Create(ctx, ac.Caller.ClientID, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, company)
	}
}

func listCompaniesHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/companies/companies")
		defer span.End()

		ac := AuthFromContext(ctx)
		list, err := companies.List(ctx, ac.Caller.ClientID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getCompanyHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/companies/companies/{id}")
		defer span.End()

		ac := AuthFromContext(ctx)
		span.SetAttributes(attribute.String("company.id", ac.Tenant.ID))

		detail, err := companies.Detail(ctx, ac.Tenant)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func updateCompanyHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/companies/companies/{id}")
		defer span.End()

		var in domain.CompanyInput
		if !decodeJSON(w, r, &in) {
			return
		}

		ac := AuthFromContext(ctx)
		company, err := companies.Update(ctx, ac.Tenant, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, company)
	}
}

func deleteCompanyHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/companies/companies/{id}")
		defer span.End()

		ac := AuthFromContext(ctx)
		if err := companies.Delete(ctx, ac.Tenant); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Company deleted successfully", ID: ac.Tenant.ID})
	}
}

// ============================================================
// 3. Documents
// ============================================================

func uploadDocumentHandler(companies *service.CompanyService, maxBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/companies/upload")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeError(w, http.StatusRequestEntityTooLarge, "file too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		if header.Size > maxBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read file")
			return
		}
		if int64(len(data)) > maxBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}

		ac := AuthFromContext(ctx)
		doc, err := companies.UploadDocument(ctx, ac.Tenant, header.Filename, header.Header.Get("Content-Type"), data)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func downloadDocumentHandler(companies *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/companies/documents/{documentId}")
		defer span.End()

		ac := AuthFromContext(ctx)
		doc, err := companies.GetDocument(ctx, ac.Tenant, chi.URLParam(r, "documentId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		contentType := doc.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(doc.Content); err != nil {
			logger.Warn("document download interrupted", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
}

// ============================================================
// 4. Billing
// ============================================================

func addBillingHandler(billing *service.BillingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/companies/billing")
		defer span.End()

		var req domain.BillingRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		ac := AuthFromContext(ctx)
		entry, err := billing.AddEntry(ctx, ac.Tenant, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

func payBillingHandler(billing *service.BillingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/companies/billing/{billingId}/pay")
		defer span.End()

		ac := AuthFromContext(ctx)
		billingID := chi.URLParam(r, "billingId")
		if err := billing.MarkPaid(ctx, ac.Tenant, billingID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: fmt.Sprintf("Billing %s marked as paid", billingID), ID: billingID})
	}
}
