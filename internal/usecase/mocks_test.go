package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/adapter"
	"jobboard-billing/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memTxManager runs fn directly; the in-memory repositories have no
// transactional semantics to manage.
type memTxManager struct {
	failNext bool
}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.failNext {
		m.failNext = false
		return domain.ErrOperationFailed
	}
	return fn(ctx, nil)
}

type memPaymentRepo struct {
	mu       sync.Mutex
	byID     map[string]*model.Payment
	saveErr  error
	findHook func(p *model.Payment)
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{byID: map[string]*model.Payment{}}
}

func (r *memPaymentRepo) put(p *model.Payment) {
	cp := *p
	r.byID[p.ID] = &cp
}

func (r *memPaymentRepo) Save(_ context.Context, _ repository.Tx, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	for _, existing := range r.byID {
		if existing.ExternalPaymentID == p.ExternalPaymentID {
			return domain.ErrAlreadyExists
		}
	}
	r.put(p)
	return nil
}

func (r *memPaymentRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	if r.findHook != nil {
		r.findHook(&cp)
	}
	return &cp, nil
}

func (r *memPaymentRepo) FindByExternalID(_ context.Context, _ repository.Tx, externalID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.ExternalPaymentID == externalID {
			cp := *p
			if r.findHook != nil {
				r.findHook(&cp)
			}
			return &cp, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *memPaymentRepo) UpdateStatusIfPending(_ context.Context, _ repository.Tx, id string, status model.PaymentStatus, receiptURL *string, processedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	if receiptURL != nil {
		p.ReceiptURL = receiptURL
	}
	t := processedAt
	p.ProcessedAt = &t
	return true, nil
}

func (r *memPaymentRepo) MarkRefunded(_ context.Context, _ repository.Tx, id string, amount int64, full bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.RefundedAmount+amount > p.Amount {
		return domain.ErrInvalidState
	}
	p.RefundedAmount += amount
	if full && p.Status == model.PaymentStatusSucceeded {
		p.Status = model.PaymentStatusRefunded
	}
	return nil
}

func (r *memPaymentRepo) ListByUser(_ context.Context, _ repository.Tx, userID string, offset, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.byID {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memPaymentRepo) CountByUser(_ context.Context, _ repository.Tx, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.byID {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

type memRefundRepo struct {
	mu      sync.Mutex
	refunds []*model.Refund
	saveErr error
}

func (r *memRefundRepo) Save(_ context.Context, _ repository.Tx, rf *model.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *rf
	r.refunds = append(r.refunds, &cp)
	return nil
}

func (r *memRefundRepo) ListByPayment(_ context.Context, _ repository.Tx, paymentID string) ([]*model.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Refund
	for _, rf := range r.refunds {
		if rf.PaymentID == paymentID {
			cp := *rf
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memSubscriptionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Subscription
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{byID: map[string]*model.Subscription{}}
}

func (r *memSubscriptionRepo) put(s *model.Subscription) {
	cp := *s
	r.byID[s.ID] = &cp
}

func (r *memSubscriptionRepo) Save(_ context.Context, _ repository.Tx, s *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.byID {
		if ex.ExternalSubscriptionID == s.ExternalSubscriptionID {
			return domain.ErrAlreadyExists
		}
	}
	r.put(s)
	return nil
}

func (r *memSubscriptionRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSubscriptionRepo) FindByExternalID(_ context.Context, _ repository.Tx, externalID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.ExternalSubscriptionID == externalID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrSubscriptionNotFound
}

func (r *memSubscriptionRepo) UpdateFromProvider(_ context.Context, _ repository.Tx, id string, status model.SubscriptionStatus, periodStart, periodEnd time.Time, cancelAtPeriodEnd bool, canceledAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	s.CurrentPeriodStart = periodStart
	s.CurrentPeriodEnd = periodEnd
	s.CancelAtPeriodEnd = cancelAtPeriodEnd
	s.CanceledAt = canceledAt
	s.UpdatedAt = time.Now()
	return nil
}

func (r *memSubscriptionRepo) UpdateStatus(_ context.Context, _ repository.Tx, id string, status model.SubscriptionStatus, canceledAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	if canceledAt != nil {
		s.CanceledAt = canceledAt
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (r *memSubscriptionRepo) SetCancelAtPeriodEnd(_ context.Context, _ repository.Tx, id string, cancel bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.CancelAtPeriodEnd = cancel
	s.UpdatedAt = time.Now()
	return nil
}

type memInvoiceRepo struct {
	mu         sync.Mutex
	byExternal map[string]*model.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{byExternal: map[string]*model.Invoice{}}
}

func (r *memInvoiceRepo) Upsert(_ context.Context, _ repository.Tx, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	if prior, ok := r.byExternal[inv.ExternalInvoiceID]; ok {
		cp.ID = prior.ID
	}
	r.byExternal[inv.ExternalInvoiceID] = &cp
	return nil
}

func (r *memInvoiceRepo) FindByExternalID(_ context.Context, _ repository.Tx, externalID string) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byExternal[externalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

type memRevenueShareRepo struct {
	mu    sync.Mutex
	byKey map[string]*model.RevenueShare
}

func newMemRevenueShareRepo() *memRevenueShareRepo {
	return &memRevenueShareRepo{byKey: map[string]*model.RevenueShare{}}
}

func (r *memRevenueShareRepo) CreateIfAbsent(_ context.Context, _ repository.Tx, rs *model.RevenueShare) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[rs.SourceKey]; ok {
		return false, nil
	}
	cp := *rs
	r.byKey[rs.SourceKey] = &cp
	return true, nil
}

func (r *memRevenueShareRepo) FindBySourceKey(_ context.Context, _ repository.Tx, sourceKey string) (*model.RevenueShare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.byKey[sourceKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rs
	return &cp, nil
}

func (r *memRevenueShareRepo) SumByMonth(_ context.Context, _ repository.Tx, reportingMonth string) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var heart, platform int64
	for _, rs := range r.byKey {
		if rs.ReportingMonth == reportingMonth {
			heart += rs.HeartShare
			platform += rs.PlatformShare
		}
	}
	return heart, platform, nil
}

type memWebhookEventRepo struct {
	mu         sync.Mutex
	byExternal map[string]*model.WebhookEvent
}

func newMemWebhookEventRepo() *memWebhookEventRepo {
	return &memWebhookEventRepo{byExternal: map[string]*model.WebhookEvent{}}
}

func (r *memWebhookEventRepo) InsertIfAbsent(_ context.Context, _ repository.Tx, e *model.WebhookEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byExternal[e.ExternalEventID]; ok {
		return false, nil
	}
	cp := *e
	r.byExternal[e.ExternalEventID] = &cp
	return true, nil
}

func (r *memWebhookEventRepo) FindByExternalID(_ context.Context, _ repository.Tx, externalID string) (*model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byExternal[externalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memWebhookEventRepo) MarkProcessed(_ context.Context, _ repository.Tx, externalID string, processedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byExternal[externalID]
	if !ok {
		return domain.ErrNotFound
	}
	e.Processed = true
	t := processedAt
	e.ProcessedAt = &t
	e.ProcessingError = nil
	return nil
}

func (r *memWebhookEventRepo) MarkFailed(_ context.Context, _ repository.Tx, externalID string, processingError string, processedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byExternal[externalID]
	if !ok {
		return domain.ErrNotFound
	}
	e.Processed = false
	t := processedAt
	e.ProcessedAt = &t
	msg := processingError
	e.ProcessingError = &msg
	return nil
}

type memUserRepo struct {
	mu   sync.Mutex
	byID map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*model.User{}}
}

func (r *memUserRepo) put(u *model.User) {
	cp := *u
	r.byID[u.ID] = &cp
}

func (r *memUserRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) SetExternalCustomerID(_ context.Context, _ repository.Tx, userID, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if u.ExternalCustomerID == nil || *u.ExternalCustomerID == "" {
		cp := customerID
		u.ExternalCustomerID = &cp
	}
	return nil
}

type memJobRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Job
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{byID: map[string]*model.Job{}}
}

func (r *memJobRepo) put(j *model.Job) {
	cp := *j
	r.byID[j.ID] = &cp
}

func (r *memJobRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *memJobRepo) Activate(_ context.Context, _ repository.Tx, jobID string, featured bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = model.JobStatusActive
	j.Featured = j.Featured || featured
	return nil
}

// mockGateway scripts provider behavior per call site.
type mockGateway struct {
	mu sync.Mutex

	createIntentErr error
	intentSeq       int
	retrieveStatus  adapter.IntentStatus
	retrieveReceipt string
	retrieveErr     error

	createCustomerErr   error
	createdCustomers    int
	createSubErr        error
	subSeq              int
	createSubStatus     string
	updateSubCalls      int
	cancelSubCalls      int
	createRefundErr     error
	refundSeq           int
	constructSignature  string
	constructEventCalls int
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) CreatePaymentIntent(_ context.Context, req adapter.CreateIntentRequest) (*adapter.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createIntentErr != nil {
		return nil, g.createIntentErr
	}
	g.intentSeq++
	id := fmt.Sprintf("pi_%d", g.intentSeq)
	return &adapter.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       adapter.IntentStatusPending,
		Amount:       req.Amount,
		Currency:     string(req.Currency),
	}, nil
}

func (g *mockGateway) RetrievePaymentIntent(_ context.Context, externalID string) (*adapter.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	status := g.retrieveStatus
	if status == "" {
		status = adapter.IntentStatusPending
	}
	return &adapter.PaymentIntent{ID: externalID, Status: status, ReceiptURL: g.retrieveReceipt}, nil
}

func (g *mockGateway) CreateCustomer(_ context.Context, _, _ string, _ map[string]string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createCustomerErr != nil {
		return "", g.createCustomerErr
	}
	g.createdCustomers++
	return fmt.Sprintf("cus_%d", g.createdCustomers), nil
}

func (g *mockGateway) CreateSubscription(_ context.Context, _ adapter.CreateSubscriptionRequest) (*adapter.ProviderSubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createSubErr != nil {
		return nil, g.createSubErr
	}
	g.subSeq++
	status := g.createSubStatus
	if status == "" {
		status = "incomplete"
	}
	id := fmt.Sprintf("sub_%d", g.subSeq)
	now := time.Now()
	return &adapter.ProviderSubscription{
		ID:                 id,
		Status:             status,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		ClientSecret:       id + "_secret",
	}, nil
}

func (g *mockGateway) UpdateSubscription(_ context.Context, externalID string, cancelAtPeriodEnd bool) (*adapter.ProviderSubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateSubCalls++
	return &adapter.ProviderSubscription{ID: externalID, Status: "active", CancelAtPeriodEnd: cancelAtPeriodEnd}, nil
}

func (g *mockGateway) CancelSubscription(_ context.Context, externalID string) (*adapter.ProviderSubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelSubCalls++
	now := time.Now()
	return &adapter.ProviderSubscription{ID: externalID, Status: "canceled", CanceledAt: &now}, nil
}

func (g *mockGateway) CreateRefund(_ context.Context, req adapter.RefundRequest) (*adapter.ProviderRefund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createRefundErr != nil {
		return nil, g.createRefundErr
	}
	g.refundSeq++
	return &adapter.ProviderRefund{ID: fmt.Sprintf("re_%d", g.refundSeq), Status: "succeeded", Amount: req.Amount}, nil
}

// ConstructEvent accepts payloads signed with constructSignature and parses
// the envelope directly, standing in for real signature verification.
func (g *mockGateway) ConstructEvent(payload []byte, signature string) (*adapter.Event, error) {
	g.mu.Lock()
	g.constructEventCalls++
	want := g.constructSignature
	g.mu.Unlock()
	if want != "" && signature != want {
		return nil, domain.ErrSignatureInvalid
	}
	var env struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil || env.ID == "" {
		return nil, domain.ErrSignatureInvalid
	}
	return &adapter.Event{ID: env.ID, Type: env.Type, Raw: env.Data.Object, Full: payload}, nil
}

type sentNotification struct {
	UserID  string
	Kind    string
	Payload map[string]interface{}
}

type memNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *memNotifier) Notify(_ context.Context, userID, kind string, payload map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind, Payload: payload})
	return nil
}

func (n *memNotifier) byKind(kind string) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}
