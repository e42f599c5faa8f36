package handler

import (
	"net/http"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// 7. Transactions
// ============================================================

func createTransactionHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/transactions/transactions")
		defer span.End()

		var req domain.TransactionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		ac := AuthFromContext(ctx)
		txn, err := ledger.Create(ctx, ac.Caller.ClientID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, txn)
	}
}

func listTransactionsHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/transactions/transactions")
		defer span.End()

		ac := AuthFromContext(ctx)
		txns, err := ledger.List(ctx, ac.Caller.ClientID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txns)
	}
}

func getTransactionHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/transactions/transactions/{id}")
		defer span.End()

		ac := AuthFromContext(ctx)
		txn, err := ledger.Get(ctx, ac.Caller.ClientID, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txn)
	}
}

func updateTransactionHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/transactions/transactions/{id}")
		defer span.End()

		var req domain.TransactionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		ac := AuthFromContext(ctx)
		txn, err := ledger.Update(ctx, ac.Caller.ClientID, chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txn)
	}
}

func deleteTransactionHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/transactions/transactions/{id}")
		defer span.End()

		ac := AuthFromContext(ctx)
		id := chi.URLParam(r, "id")
		if err := ledger.Delete(ctx, ac.Caller.ClientID, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Transaction deleted successfully", ID: id})
	}
}
