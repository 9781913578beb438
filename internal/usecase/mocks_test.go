//go:build !integration

package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/domain/ports/adapter"
	"fitness-coaching-platform/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// --- transaction manager ---

type mockTxManager struct {
	WithTxFunc func(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func (m *mockTxManager) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, opts, fn)
	}
	return fn(ctx, nil)
}

// --- user repository ---

type mockUserRepo struct {
	mu    sync.RWMutex
	users map[string]*model.User

	SaveFunc func(ctx context.Context, tx repository.Tx, u *model.User) error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email && existing.ID != u.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// --- trainer link repository ---

type mockLinkRepo struct {
	mu    sync.RWMutex
	links map[string]map[string]bool // trainerID -> clientID set
	users *mockUserRepo

	ExistsFunc func(ctx context.Context, tx repository.Tx, trainerID, clientID string) (bool, error)
}

func newMockLinkRepo(users *mockUserRepo) *mockLinkRepo {
	return &mockLinkRepo{links: make(map[string]map[string]bool), users: users}
}

func (m *mockLinkRepo) SaveLink(ctx context.Context, tx repository.Tx, link *model.TrainerLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links[link.TrainerID] == nil {
		m.links[link.TrainerID] = make(map[string]bool)
	}
	m.links[link.TrainerID][link.ClientID] = true
	return nil
}

func (m *mockLinkRepo) Exists(ctx context.Context, tx repository.Tx, trainerID, clientID string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, tx, trainerID, clientID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.links[trainerID][clientID], nil
}

func (m *mockLinkRepo) ListClients(ctx context.Context, tx repository.Tx, trainerID string) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.User
	for clientID := range m.links[trainerID] {
		if u, err := m.users.FindByID(ctx, tx, clientID); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

// --- package repository ---

type mockPackageRepo struct {
	mu       sync.RWMutex
	packages map[string]*model.Package

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Package, error)
}

func newMockPackageRepo() *mockPackageRepo {
	return &mockPackageRepo{packages: make(map[string]*model.Package)}
}

func (m *mockPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.packages[p.ID] = &cp
	return nil
}

func (m *mockPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.packages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPackageRepo) List(ctx context.Context, tx repository.Tx, activeOnly bool) ([]*model.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Package
	for _, p := range m.packages {
		if activeOnly && !p.Active {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// --- purchase repository ---

type mockPurchaseRepo struct {
	mu        sync.RWMutex
	purchases map[string]*model.PackagePurchase

	SaveFunc            func(ctx context.Context, tx repository.Tx, p *model.PackagePurchase) error
	AcquireUserLockFunc func(ctx context.Context, tx repository.Tx, userID string) error
}

func newMockPurchaseRepo() *mockPurchaseRepo {
	return &mockPurchaseRepo{purchases: make(map[string]*model.PackagePurchase)}
}

func (m *mockPurchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.PackagePurchase) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.purchases[p.ID] = &cp
	return nil
}

func (m *mockPurchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PackagePurchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPurchaseRepo) FindGranting(ctx context.Context, tx repository.Tx, userID string, now time.Time) (*model.PackagePurchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *model.PackagePurchase
	for _, p := range m.purchases {
		if p.UserID != userID || !p.GrantsAccess(now) {
			continue
		}
		if best == nil || p.ExpiresAt.After(best.ExpiresAt) {
			cp := *p
			best = &cp
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

func (m *mockPurchaseRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PackagePurchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PackagePurchase
	for _, p := range m.purchases {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockPurchaseRepo) ExpireValidByUser(ctx context.Context, tx repository.Tx, userID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.purchases {
		if p.UserID != userID {
			continue
		}
		if (p.Status == model.PurchaseStatusActive || p.Status == model.PurchaseStatusPending) && p.ExpiresAt.After(now) {
			t := now
			p.Status = model.PurchaseStatusExpired
			p.CancelledAt = &t
			n++
		}
	}
	return n, nil
}

func (m *mockPurchaseRepo) AcquireUserLock(ctx context.Context, tx repository.Tx, userID string) error {
	if m.AcquireUserLockFunc != nil {
		return m.AcquireUserLockFunc(ctx, tx, userID)
	}
	return nil
}

func (m *mockPurchaseRepo) FinishExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.purchases {
		if (p.Status == model.PurchaseStatusActive || p.Status == model.PurchaseStatusPending) && !p.ExpiresAt.After(now) {
			p.Status = model.PurchaseStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *mockPurchaseRepo) StartDue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.purchases {
		if p.Status == model.PurchaseStatusPending && !p.StartsAt.After(now) && p.ExpiresAt.After(now) {
			p.Status = model.PurchaseStatusActive
			n++
		}
	}
	return n, nil
}

func (m *mockPurchaseRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for _, p := range m.purchases {
		out[string(p.Status)]++
	}
	return out, nil
}

func (m *mockPurchaseRepo) CountGrantingByPackage(ctx context.Context, tx repository.Tx, now time.Time) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for _, p := range m.purchases {
		if p.GrantsAccess(now) {
			out[p.PackageID]++
		}
	}
	return out, nil
}

// --- payment attempt repository ---

type mockAttemptRepo struct {
	mu       sync.RWMutex
	attempts map[string]*model.PaymentAttempt

	ClaimFunc func(ctx context.Context, tx repository.Tx, id string) (bool, error)
}

func newMockAttemptRepo() *mockAttemptRepo {
	return &mockAttemptRepo{attempts: make(map[string]*model.PaymentAttempt)}
}

func (m *mockAttemptRepo) Save(ctx context.Context, tx repository.Tx, a *model.PaymentAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	if a.Payload != nil {
		cp.Payload = make(map[string]interface{}, len(a.Payload))
		for k, v := range a.Payload {
			cp.Payload[k] = v
		}
	}
	m.attempts[a.ID] = &cp
	return nil
}

func (m *mockAttemptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAttemptRepo) FindLatestInitiated(ctx context.Context, tx repository.Tx, merchantOid, userID string) (*model.PaymentAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *model.PaymentAttempt
	for _, a := range m.attempts {
		if a.Action != model.ActionPaymentInitiated || a.MerchantOid != merchantOid || a.UserID != userID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			cp := *a
			latest = &cp
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (m *mockAttemptRepo) Claim(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if a.Status == model.AttemptStatusCompleted {
		return false, nil
	}
	a.Status = model.AttemptStatusCompleted
	return true, nil
}

func (m *mockAttemptRepo) AttachPurchase(ctx context.Context, tx repository.Tx, id, purchaseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.Payload == nil {
		a.Payload = make(map[string]interface{})
	}
	a.Payload["purchase_id"] = purchaseID
	return nil
}

func (m *mockAttemptRepo) SweepStaleInitiated(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.attempts {
		if n >= limit {
			break
		}
		if a.Action != model.ActionPaymentInitiated || !a.CreatedAt.Before(olderThan) {
			continue
		}
		if a.Status == model.AttemptStatusSuccess {
			a.Status = model.AttemptStatusError
			n++
		}
	}
	return n, nil
}

func (m *mockAttemptRepo) SumCompletedAmountSince(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, a := range m.attempts {
		if a.Action != model.ActionPaymentCompleted {
			continue
		}
		if amt, ok := a.Payload["amount"].(int64); ok {
			sum += amt
		}
	}
	return sum, nil
}

// --- adapters ---

type mockGateway struct {
	RequestTokenFunc func(ctx context.Context, creds adapter.MerchantCredentials, req adapter.CheckoutRequest) (string, string, error)
}

func (m *mockGateway) Name() string { return "mock" }

func (m *mockGateway) RequestToken(ctx context.Context, creds adapter.MerchantCredentials, req adapter.CheckoutRequest) (string, string, error) {
	if m.RequestTokenFunc != nil {
		return m.RequestTokenFunc(ctx, creds, req)
	}
	return "tok-123", "https://example.com/pay/tok-123", nil
}

type mockMailer struct {
	mu   sync.Mutex
	sent []adapter.MailMessage

	SendFunc func(ctx context.Context, msg adapter.MailMessage) error
}

func (m *mockMailer) Send(ctx context.Context, msg adapter.MailMessage) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type mockNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (m *mockNotifier) Notify(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}
