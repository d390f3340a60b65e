package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/usecase"
)

const testAPIKey = "svc-key"

type stubPaymentUC struct {
	createResult *usecase.CreatePaymentIntentResult
	createErr    error
	confirmed    *model.Payment
	confirmErr   error
	history      *usecase.PaymentHistory
}

func (s *stubPaymentUC) CreatePaymentIntent(_ context.Context, _ usecase.CreatePaymentIntentRequest) (*usecase.CreatePaymentIntentResult, error) {
	return s.createResult, s.createErr
}

func (s *stubPaymentUC) ConfirmPayment(_ context.Context, _ string) (*model.Payment, error) {
	return s.confirmed, s.confirmErr
}

func (s *stubPaymentUC) MarkSucceeded(_ context.Context, _, _ string) (*model.Payment, error) {
	return s.confirmed, nil
}

func (s *stubPaymentUC) MarkFailed(_ context.Context, _ string) (*model.Payment, error) {
	return s.confirmed, nil
}

func (s *stubPaymentUC) GetPaymentHistory(_ context.Context, _ string, _, _ int) (*usecase.PaymentHistory, error) {
	return s.history, nil
}

type stubSubscriptionUC struct {
	created   *usecase.CreateSubscriptionResult
	createErr error
	sub       *model.Subscription
	subErr    error
}

func (s *stubSubscriptionUC) CreateSubscription(_ context.Context, _ string, _ model.SubscriptionPlan, _ model.Currency, _ string) (*usecase.CreateSubscriptionResult, error) {
	return s.created, s.createErr
}

func (s *stubSubscriptionUC) CancelSubscription(_ context.Context, _ string, _ bool) (*model.Subscription, error) {
	return s.sub, s.subErr
}

func (s *stubSubscriptionUC) UpdatePlan(_ context.Context, _ string, _ model.SubscriptionPlan) (*model.Subscription, error) {
	return nil, domain.ErrNotImplemented
}

func (s *stubSubscriptionUC) GetSubscription(_ context.Context, _ string) (*model.Subscription, error) {
	return s.sub, s.subErr
}

type stubRefundUC struct {
	refund *model.Refund
	err    error
}

func (s *stubRefundUC) ProcessRefund(_ context.Context, _ usecase.ProcessRefundRequest) (*model.Refund, error) {
	return s.refund, s.err
}

type stubWebhookUC struct {
	err       error
	gotBody   []byte
	gotHeader string
}

func (s *stubWebhookUC) ProcessWebhook(_ context.Context, payload []byte, signature string) error {
	s.gotBody = payload
	s.gotHeader = signature
	return s.err
}

type fixture struct {
	pay     *stubPaymentUC
	sub     *stubSubscriptionUC
	refund  *stubRefundUC
	webhook *stubWebhookUC
	handler http.Handler
}

func newFixture() *fixture {
	l := zerolog.Nop()
	f := &fixture{
		pay:     &stubPaymentUC{},
		sub:     &stubSubscriptionUC{},
		refund:  &stubRefundUC{},
		webhook: &stubWebhookUC{},
	}
	f.handler = NewServer(f.pay, f.sub, f.refund, f.webhook, nil, testAPIKey, 10, &l).Router()
	return f
}

func doRequest(h http.Handler, method, path, body string, authorized bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("bad response body %q: %v", rr.Body.String(), err)
	}
	return env
}

func TestAuthGuard(t *testing.T) {
	f := newFixture()

	t.Run("missing token", func(t *testing.T) {
		rr := doRequest(f.handler, http.MethodGet, "/api/v1/payments/history?userId=u", "", false)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/history?userId=u", nil)
		req.Header.Set("Authorization", "Token abc")
		rr := httptest.NewRecorder()
		f.handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/history?userId=u", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rr := httptest.NewRecorder()
		f.handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rr.Code)
		}
	})

	t.Run("pricing is public", func(t *testing.T) {
		rr := doRequest(f.handler, http.MethodGet, "/api/v1/payments/pricing", "", false)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		env := decodeEnvelope(t, rr)
		if env["success"] != true {
			t.Fatalf("envelope = %v", env)
		}
	})

	t.Run("health is public", func(t *testing.T) {
		rr := doRequest(f.handler, http.MethodGet, "/health", "", false)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
	})
}

func TestCreatePaymentIntentEndpoint(t *testing.T) {
	t.Run("success envelope", func(t *testing.T) {
		f := newFixture()
		f.pay.createResult = &usecase.CreatePaymentIntentResult{
			PaymentID:    "pay-1",
			ClientSecret: "pi_1_secret",
			Amount:       5000,
			Currency:     model.CurrencyUSD,
		}
		body := `{"userId":"user-1","amount":5000,"currency":"USD","paymentType":"JOB_POSTING"}`
		rr := doRequest(f.handler, http.MethodPost, "/api/v1/payments/create-payment-intent", body, true)
		if rr.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rr.Code, rr.Body.String())
		}
		env := decodeEnvelope(t, rr)
		data := env["data"].(map[string]interface{})
		if data["paymentId"] != "pay-1" || data["clientSecret"] != "pi_1_secret" {
			t.Fatalf("data = %v", data)
		}
	})

	t.Run("validation error maps to 400", func(t *testing.T) {
		f := newFixture()
		f.pay.createErr = domain.ErrInvalidArgument
		rr := doRequest(f.handler, http.MethodPost, "/api/v1/payments/create-payment-intent", `{}`, true)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rr.Code)
		}
		env := decodeEnvelope(t, rr)
		if env["success"] != false || env["message"] == "" {
			t.Fatalf("envelope = %v", env)
		}
	})

	t.Run("provider outage maps to 502", func(t *testing.T) {
		f := newFixture()
		f.pay.createErr = domain.ErrProviderUnavailable
		rr := doRequest(f.handler, http.MethodPost, "/api/v1/payments/create-payment-intent", `{}`, true)
		if rr.Code != http.StatusBadGateway {
			t.Fatalf("status = %d, want 502", rr.Code)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		f := newFixture()
		rr := doRequest(f.handler, http.MethodPost, "/api/v1/payments/create-payment-intent", `{broken`, true)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rr.Code)
		}
	})
}

func TestRefundEndpoint(t *testing.T) {
	t.Run("conflict for non-succeeded payment", func(t *testing.T) {
		f := newFixture()
		f.refund.err = domain.ErrInvalidState
		rr := doRequest(f.handler, http.MethodPost, "/api/v1/payments/refund", `{"paymentId":"pay-1"}`, true)
		if rr.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rr.Code)
		}
	})

	t.Run("created on success", func(t *testing.T) {
		f := newFixture()
		f.refund.refund = &model.Refund{ID: "ref-1", PaymentID: "pay-1", Amount: 1000}
		rr := doRequest(f.handler, http.MethodPost, "/api/v1/payments/refund", `{"paymentId":"pay-1","amount":1000}`, true)
		if rr.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rr.Code)
		}
	})
}

func TestSubscriptionEndpoints(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		f := newFixture()
		f.sub.created = &usecase.CreateSubscriptionResult{
			SubscriptionID: "sub-local-1",
			ClientSecret:   "sub_1_secret",
			Status:         model.SubscriptionStatusIncomplete,
		}
		body := `{"userId":"user-1","plan":"BASIC","currency":"USD"}`
		rr := doRequest(f.handler, http.MethodPost, "/api/v1/subscriptions", body, true)
		if rr.Code != http.StatusCreated {
			t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
		}
		env := decodeEnvelope(t, rr)
		data := env["data"].(map[string]interface{})
		if data["subscriptionId"] != "sub-local-1" || data["status"] != "INCOMPLETE" {
			t.Fatalf("data = %v", data)
		}
	})

	t.Run("get not found", func(t *testing.T) {
		f := newFixture()
		f.sub.subErr = domain.ErrNotFound
		rr := doRequest(f.handler, http.MethodGet, "/api/v1/subscriptions/sub-ghost", "", true)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rr.Code)
		}
	})

	t.Run("plan update is not implemented", func(t *testing.T) {
		f := newFixture()
		rr := doRequest(f.handler, http.MethodPut, "/api/v1/subscriptions/sub-1/plan", `{"plan":"PREMIUM"}`, true)
		if rr.Code != http.StatusNotImplemented {
			t.Fatalf("status = %d, want 501", rr.Code)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		f := newFixture()
		f.sub.sub = &model.Subscription{ID: "sub-1", Status: model.SubscriptionStatusCanceled}
		rr := doRequest(f.handler, http.MethodDelete, "/api/v1/subscriptions/sub-1", "", true)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
	})
}

func TestWebhookEndpoint(t *testing.T) {
	payload := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`

	t.Run("passes raw body and signature through", func(t *testing.T) {
		f := newFixture()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(payload))
		req.Header.Set("Stripe-Signature", "t=1,v1=abc")
		rr := httptest.NewRecorder()
		f.handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
		}
		if string(f.webhook.gotBody) != payload {
			t.Fatalf("body was rewritten: %q", f.webhook.gotBody)
		}
		if f.webhook.gotHeader != "t=1,v1=abc" {
			t.Fatalf("signature = %q", f.webhook.gotHeader)
		}
		env := decodeEnvelope(t, rr)
		data := env["data"].(map[string]interface{})
		if data["received"] != true {
			t.Fatalf("data = %v", data)
		}
	})

	t.Run("bad signature is not acknowledged", func(t *testing.T) {
		f := newFixture()
		f.webhook.err = domain.ErrSignatureInvalid
		rr := doRequest(f.handler, http.MethodPost, "/api/v1/webhooks/stripe", payload, false)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("processing failure is not acknowledged", func(t *testing.T) {
		f := newFixture()
		f.webhook.err = domain.ErrOperationFailed
		rr := doRequest(f.handler, http.MethodPost, "/api/v1/webhooks/stripe", payload, false)
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rr.Code)
		}
	})
}

func TestPaymentHistoryEndpoint(t *testing.T) {
	f := newFixture()
	f.pay.history = &usecase.PaymentHistory{
		Payments:   []*usecase.PaymentWithRefunds{},
		Pagination: usecase.Pagination{Page: 1, Limit: 10, Total: 0, Pages: 0},
	}

	rr := doRequest(f.handler, http.MethodGet, "/api/v1/payments/history?userId=user-1&page=1&limit=10", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	data := env["data"].(map[string]interface{})
	if _, ok := data["pagination"]; !ok {
		t.Fatalf("pagination missing: %v", data)
	}

	rr = doRequest(f.handler, http.MethodGet, "/api/v1/payments/history", "", true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing userId: status = %d, want 400", rr.Code)
	}
}
