package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

// client registers and logs in over HTTP and returns the bearer value.
func (e *testEnv) client(t *testing.T, email string) (id, bearer string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/clients/register", domain.RegisterRequest{Email: email, Password: "secret1"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg domain.RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))

	rec = e.do(t, http.MethodPost, "/api/clients/login", domain.LoginRequest{Email: email, Password: "secret1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login domain.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	return reg.ID, login.BearerToken
}

func (e *testEnv) company(t *testing.T, bearer, name string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/companies/companies", domain.CompanyInput{
		Name: name, Description: "trading", SSIC: "46900", Address: "1 Raffles Place", PaidUpShareCapital: 1000,
	}, map[string]string{"token": bearer})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c domain.Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestMissingToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/companies/companies", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "missing token", decode[map[string]string](t, rec)["error"])
}

func TestInvalidToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/clients/clients", nil, map[string]string{"Authorization": "Bearer not.a.jwt"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileAcceptsAuthorizationHeader(t *testing.T) {
	env := newTestEnv(t)
	id, bearer := env.client(t, "alice@example.com")

	rec := env.do(t, http.MethodGet, "/api/clients/clients", nil, map[string]string{"Authorization": bearer})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, id, decode[domain.ClientProfile](t, rec).ID)
}

func TestTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.client(t, "alice@example.com")
	_, bob := env.client(t, "bob@example.com")
	companyA := env.company(t, alice, "Acme")
	companyB := env.company(t, bob, "Globex")

	// Alice selects Bob's company.
	rec := env.do(t, http.MethodGet, "/api/secretaries/secretaries", nil,
		map[string]string{"token": alice, "selectedCompany": companyB})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/companies/companies/"+companyB, nil, map[string]string{"token": alice})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/companies/companies/"+companyB, nil, map[string]string{"token": alice})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Header and path naming different companies is rejected outright.
	rec = env.do(t, http.MethodPut, "/api/companies/companies/"+companyB, nil,
		map[string]string{"token": alice, "selectedCompany": companyA})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Bob's company is untouched and alice only lists her own.
	rec = env.do(t, http.MethodGet, "/api/companies/companies", nil, map[string]string{"token": alice})
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]domain.Company](t, rec)
	require.Len(t, list, 1)
	require.Equal(t, companyA, list[0].ID)

	require.Greater(t, env.metrics.AuthzDecisionCount("resolve-tenant", "tenant_forbidden"), float64(0))
}

func TestSecretaryGuard(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.client(t, "alice@example.com")
	companyA := env.company(t, alice, "Acme")
	companyA2 := env.company(t, alice, "Acme Two")
	headers := map[string]string{"token": alice, "selectedCompany": companyA}

	rec := env.do(t, http.MethodPost, "/api/secretaries/secretaries", domain.MemberInput{Name: "Sam"}, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sec := decode[domain.Member](t, rec)

	rec = env.do(t, http.MethodGet, "/api/secretaries/secretaries/"+sec.ID, nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	// Same owner, other company: the secretary is not listed there.
	rec = env.do(t, http.MethodGet, "/api/secretaries/secretaries/"+sec.ID, nil,
		map[string]string{"token": alice, "selectedCompany": companyA2})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// The shareholder guard does not accept a secretary id.
	rec = env.do(t, http.MethodGet, "/api/shareholders/shareholders/"+sec.ID, nil, headers)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/secretaries/secretaries/"+sec.ID, nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/secretaries/secretaries/"+sec.ID, nil, headers)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/secretaries/secretaries", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, m := range decode[[]domain.Member](t, rec) {
		require.NotEqual(t, sec.ID, m.ID)
	}
}

func TestCompanyDeletedTwice(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.client(t, "alice@example.com")
	companyA := env.company(t, alice, "Acme")

	rec := env.do(t, http.MethodDelete, "/api/companies/companies/"+companyA, nil, map[string]string{"token": alice})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/companies/companies/"+companyA, nil, map[string]string{"token": alice})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/clients/clients", nil, map[string]string{"token": alice})
	require.Empty(t, decode[domain.ClientProfile](t, rec).Companies)
}

func TestTransactionsOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.client(t, "alice@example.com")
	_, bob := env.client(t, "bob@example.com")
	auth := map[string]string{"token": alice}

	rec := env.do(t, http.MethodPost, "/api/clients/credits/purchase", domain.PurchaseCreditsRequest{Amount: 100}, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.EqualValues(t, 100, decode[domain.PurchaseCreditsResponse](t, rec).Credits)

	rec = env.do(t, http.MethodPost, "/api/transactions/transactions", domain.TransactionRequest{Amount: 30, Type: domain.TransactionDebit}, auth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	debit := decode[domain.Transaction](t, rec)
	require.EqualValues(t, 70, debit.CreditAfterTransaction)

	rec = env.do(t, http.MethodPost, "/api/transactions/transactions", domain.TransactionRequest{Amount: 1_000_000, Type: domain.TransactionCredit}, auth)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.EqualValues(t, 1_000_070, decode[domain.Transaction](t, rec).CreditAfterTransaction)

	rec = env.do(t, http.MethodGet, "/api/transactions/transactions/"+debit.ID, nil, map[string]string{"token": bob})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/transactions/transactions", domain.TransactionRequest{Amount: 5, Type: "refund"}, auth)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEngageOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.client(t, "alice@example.com")
	companyA := env.company(t, alice, "Acme")
	auth := map[string]string{"token": alice}

	rec := env.do(t, http.MethodPost, "/api/service/services", domain.ServiceInput{
		Name: "Incorporation", Description: "new entity", Cost: 300, Category: "corporate",
	}, auth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	offering := decode[domain.Service](t, rec)

	rec = env.do(t, http.MethodGet, "/api/service/services", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]domain.Service](t, rec), 1)

	tenant := map[string]string{"token": alice, "selectedCompany": companyA}
	rec = env.do(t, http.MethodPost, "/api/service/services/engage/"+offering.ID, nil, tenant)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env.do(t, http.MethodPost, "/api/clients/credits/purchase", domain.PurchaseCreditsRequest{Amount: 500}, auth)
	rec = env.do(t, http.MethodPost, "/api/service/services/engage/"+offering.ID, nil, tenant)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.EqualValues(t, 200, decode[domain.EngageResponse](t, rec).Credits)

	rec = env.do(t, http.MethodGet, "/api/companies/companies/"+companyA, nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[map[string]json.RawMessage](t, rec)
	require.Contains(t, string(detail["engagedServices"]), offering.ID)
}

func TestBillingOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.client(t, "alice@example.com")
	companyA := env.company(t, alice, "Acme")
	tenant := map[string]string{"token": alice, "selectedCompany": companyA}

	rec := env.do(t, http.MethodPost, "/api/companies/billing", domain.BillingRequest{Description: "Annual filing", Amount: 120}, tenant)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[domain.BillingEntry](t, rec)

	rec = env.do(t, http.MethodPost, "/api/companies/billing/"+entry.ID+"/pay", nil, tenant)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/clients/billing", nil, map[string]string{"token": alice})
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[[]domain.CompanyBilling](t, rec)
	require.Len(t, summary, 1)
	require.True(t, summary[0].Billing[0].Paid)
}

func TestDocumentUploadAndDownload(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.client(t, "alice@example.com")
	companyA := env.company(t, alice, "Acme")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "constitution.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("articles of association"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/companies/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("token", alice)
	req.Header.Set("selectedCompany", companyA)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := decode[domain.Document](t, rec)

	rec = env.do(t, http.MethodGet, "/api/companies/documents/"+doc.ID, nil,
		map[string]string{"token": alice, "selectedCompany": companyA})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "articles of association", rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Disposition"), "constitution.txt")
}

func TestGatewayCallback(t *testing.T) {
	env := newTestEnv(t)
	payload := []byte(`{"msg": {"merchantTxnRef": "M-1", "netsTxnStatus": "0", "txnAmount": "1000"}}`)
	compact := []byte(`{"msg":{"merchantTxnRef":"M-1","netsTxnStatus":"0","txnAmount":"1000"}}`)
	mac := env.verifier.Sign(compact)

	rec := env.do(t, http.MethodPost, "/s2sTxnEnd", payload, map[string]string{"hmac": mac})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Transaction verified", decode[map[string]string](t, rec)["message"])

	tampered := []byte(`{"msg":{"merchantTxnRef":"M-1","netsTxnStatus":"0","txnAmount":"9000"}}`)
	rec = env.do(t, http.MethodPost, "/s2sTxnEnd", tampered, map[string]string{"hmac": mac})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid MAC value", decode[map[string]string](t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/s2sTxnEnd", compact, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	snap := env.metrics.GetAuthzSnapshot()
	require.EqualValues(t, 1, snap.WebhookVerified)
	require.EqualValues(t, 2, snap.WebhookRejected)
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.client(t, "alice@example.com")

	rec := env.do(t, http.MethodPost, "/api/clients/login", domain.LoginRequest{Email: "alice@example.com", Password: "nope"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid credentials", decode[map[string]string](t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/clients/register", domain.RegisterRequest{Email: "alice@example.com", Password: "secret1"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}
