package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/observability"
	"github.com/boddenberg/client-portal-go/internal/webhook"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 8. Payment gateway callback
// ============================================================

const headerMAC = "hmac"

// gatewayCallbackHandler authenticates a server-to-server payment result.
// The MAC covers the compact JSON form of the body. Nothing in the payload
// is read before the MAC checks out.
func gatewayCallbackHandler(verifier *webhook.Verifier, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /s2sTxnEnd")
		defer span.End()

		if verifier == nil {
			writeError(w, http.StatusServiceUnavailable, "webhook not configured")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		canonical, err := webhook.Canonicalize(body)
		if err != nil || !verifier.Verify(canonical, r.Header.Get(headerMAC)) {
			metrics.IncrWebhook("rejected")
			span.SetAttributes(attribute.Bool("webhook.verified", false))
			handleServiceError(w, &domain.ErrInvalidSignature{}, logger)
			return
		}
		metrics.IncrWebhook("verified")
		span.SetAttributes(attribute.Bool("webhook.verified", true))

		var env domain.WebhookEnvelope
		if err := json.Unmarshal(canonical, &env); err != nil {
			logger.Warn("webhook: verified payload has unexpected shape", zap.Error(err))
		} else {
			logger.Info("webhook: gateway transaction result",
				zap.String("merchant_txn_ref", env.Msg.MerchantTxnRef),
				zap.String("nets_txn_ref", env.Msg.NetsTxnRef),
				zap.String("status", env.Msg.NetsTxnStatus),
				zap.String("stage_resp_code", env.Msg.StageRespCode),
			)
		}

		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Transaction verified"})
	}
}
