package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/client-portal-go/internal/authz"
)

type contextKey string

const authContextKey contextKey = "authContext"

// Header names the front end sends.
const (
	headerToken           = "token"
	headerSelectedCompany = "selectedCompany"
)

// authorize runs policy against the request and stores the resulting
// AuthContext for the handler. Any denial ends the request.
func authorize(pipeline *authz.Pipeline, policy authz.Policy, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := pipeline.Authorize(r.Context(), policy, requestFrom(r))
			if err != nil {
				logger.Debug("auth: denied",
					zap.String("policy", policy.Name),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				handleServiceError(w, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), authContextKey, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestFrom collects the inputs the pipeline steps read. The {id} URL
// parameter doubles as the company id on company routes and the member id
// on member routes; each policy reads only the one it needs.
func requestFrom(r *http.Request) authz.Request {
	credential := r.Header.Get(headerToken)
	if strings.TrimSpace(credential) == "" {
		credential = r.Header.Get("Authorization")
	}
	id := chi.URLParam(r, "id")
	return authz.Request{
		Credential:      credential,
		SelectedCompany: r.Header.Get(headerSelectedCompany),
		PathCompanyID:   id,
		ResourceID:      id,
	}
}

// AuthFromContext returns the AuthContext set by the authorize middleware.
func AuthFromContext(ctx context.Context) *authz.AuthContext {
	ac, _ := ctx.Value(authContextKey).(*authz.AuthContext)
	return ac
}
