//go:build !integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fitness-coaching-platform/internal/config"
	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/domain/ports/adapter"
	"fitness-coaching-platform/internal/domain/ports/repository"
	"fitness-coaching-platform/internal/usecase"
)

// --- use case stubs ---

type stubUserUC struct {
	RegisterFunc     func(ctx context.Context, email, password, name, phone string) (*model.User, error)
	AuthenticateFunc func(ctx context.Context, email, password string) (*model.User, error)
	ListClientsFunc  func(ctx context.Context, trainerID string) ([]*model.User, error)
	LinkClientFunc   func(ctx context.Context, trainerID, clientID string) error
}

func (s *stubUserUC) Register(ctx context.Context, email, password, name, phone string) (*model.User, error) {
	return s.RegisterFunc(ctx, email, password, name, phone)
}
func (s *stubUserUC) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	return s.AuthenticateFunc(ctx, email, password)
}
func (s *stubUserUC) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, domain.ErrNotFound
}
func (s *stubUserUC) LinkClient(ctx context.Context, trainerID, clientID string) error {
	if s.LinkClientFunc != nil {
		return s.LinkClientFunc(ctx, trainerID, clientID)
	}
	return nil
}
func (s *stubUserUC) ListClients(ctx context.Context, trainerID string) ([]*model.User, error) {
	if s.ListClientsFunc != nil {
		return s.ListClientsFunc(ctx, trainerID)
	}
	return nil, nil
}
func (s *stubUserUC) CountUsers(ctx context.Context) (int, error) { return 0, nil }

type stubCatalogUC struct {
	ListFunc func(ctx context.Context, includeInactive bool) ([]*model.Package, error)
	GetFunc  func(ctx context.Context, id string) (*model.Package, error)
}

func (s *stubCatalogUC) List(ctx context.Context, includeInactive bool) ([]*model.Package, error) {
	return s.ListFunc(ctx, includeInactive)
}
func (s *stubCatalogUC) Get(ctx context.Context, id string) (*model.Package, error) {
	return s.GetFunc(ctx, id)
}
func (s *stubCatalogUC) Create(ctx context.Context, in usecase.PackageInput) (*model.Package, error) {
	return nil, domain.ErrOperationFailed
}
func (s *stubCatalogUC) Update(ctx context.Context, id string, in usecase.PackageInput) (*model.Package, error) {
	return nil, domain.ErrOperationFailed
}
func (s *stubCatalogUC) Deactivate(ctx context.Context, id string) error { return nil }

type stubSubsUC struct {
	GetActiveFunc func(ctx context.Context, userID string) (*model.PackagePurchase, error)
	CancelFunc    func(ctx context.Context, actor *model.User, purchaseID string) error
	AssignFunc    func(ctx context.Context, actor *model.User, clientID, packageID string, startAt *time.Time) (*model.PackagePurchase, error)
}

func (s *stubSubsUC) GetActivePurchase(ctx context.Context, userID string) (*model.PackagePurchase, error) {
	return s.GetActiveFunc(ctx, userID)
}
func (s *stubSubsUC) ListPurchases(ctx context.Context, userID string) ([]*model.PackagePurchase, error) {
	return nil, nil
}
func (s *stubSubsUC) CreatePurchase(ctx context.Context, userID string, pkg *model.Package, paymentRef *string) (*model.PackagePurchase, error) {
	return model.NewPackagePurchase("p-direct", userID, pkg, time.Now(), paymentRef)
}
func (s *stubSubsUC) CreatePurchaseTx(ctx context.Context, tx repository.Tx, userID string, pkg *model.Package, paymentRef *string) (*model.PackagePurchase, error) {
	return nil, domain.ErrOperationFailed
}
func (s *stubSubsUC) AssignManual(ctx context.Context, actor *model.User, clientID, packageID string, startAt *time.Time) (*model.PackagePurchase, error) {
	return s.AssignFunc(ctx, actor, clientID, packageID, startAt)
}
func (s *stubSubsUC) Cancel(ctx context.Context, actor *model.User, purchaseID string) error {
	return s.CancelFunc(ctx, actor, purchaseID)
}
func (s *stubSubsUC) FinishExpired(ctx context.Context) (int, error) { return 0, nil }
func (s *stubSubsUC) StartDue(ctx context.Context) (int, error)      { return 0, nil }

type stubPaymentUC struct {
	CheckoutFunc func(ctx context.Context, userID, packageID, clientIP string, installments int) (*usecase.CheckoutResult, error)
	CompleteFunc func(ctx context.Context, userID, merchantOid string) (*model.PackagePurchase, error)
}

func (s *stubPaymentUC) Checkout(ctx context.Context, userID, packageID, clientIP string, installments int) (*usecase.CheckoutResult, error) {
	return s.CheckoutFunc(ctx, userID, packageID, clientIP, installments)
}
func (s *stubPaymentUC) Complete(ctx context.Context, userID, merchantOid string) (*model.PackagePurchase, error) {
	return s.CompleteFunc(ctx, userID, merchantOid)
}
func (s *stubPaymentUC) TestConnection(ctx context.Context, creds adapter.MerchantCredentials) (string, error) {
	return "probe", nil
}

type stubStatsUC struct{}

func (stubStatsUC) Snapshot(ctx context.Context) (*usecase.PlatformStats, error) {
	return &usecase.PlatformStats{TotalUsers: 42}, nil
}

// --- fixture ---

type apiFixture struct {
	router   http.Handler
	issuer   *TokenIssuer
	users    *stubUserUC
	catalog  *stubCatalogUC
	subs     *stubSubsUC
	payments *stubPaymentUC
}

func newAPIFixture() *apiFixture {
	log := zerolog.Nop()
	issuer := NewTokenIssuer("test-secret", time.Hour)
	users := &stubUserUC{}
	catalog := &stubCatalogUC{}
	subs := &stubSubsUC{}
	payments := &stubPaymentUC{}
	h := NewHandler(users, catalog, subs, payments, stubStatsUC{}, issuer, nil, config.RateLimitConfig{}, &log)
	return &apiFixture{
		router: NewRouter(h, &log), issuer: issuer,
		users: users, catalog: catalog, subs: subs, payments: payments,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) tokenFor(t *testing.T, id string, role model.Role) string {
	t.Helper()
	tok, err := f.issuer.Issue(&model.User{ID: id, Email: id + "@x.com", Role: role})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return out["error"]
}

// --- tests ---

func TestPublicRoutes(t *testing.T) {
	t.Run("package list needs no session", func(t *testing.T) {
		f := newAPIFixture()
		pkg, _ := model.NewPackage("pkg-1", "Premium", 599, "TRY", 30, []string{"Program"}, nil)
		f.catalog.ListFunc = func(ctx context.Context, includeInactive bool) ([]*model.Package, error) {
			if includeInactive {
				t.Error("public list must be active-only")
			}
			return []*model.Package{pkg}, nil
		}

		rec := f.do(t, http.MethodGet, "/api/v1/packages", nil, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var out struct {
			Packages []packageView `json:"packages"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(out.Packages) != 1 || out.Packages[0].Name != "Premium" {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("health", func(t *testing.T) {
		f := newAPIFixture()
		rec := f.do(t, http.MethodGet, "/health", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestAuthRoutes(t *testing.T) {
	t.Run("register returns a usable token", func(t *testing.T) {
		f := newAPIFixture()
		f.users.RegisterFunc = func(ctx context.Context, email, password, name, phone string) (*model.User, error) {
			return &model.User{ID: "u-1", Email: email, Name: name, Role: model.RoleClient}, nil
		}

		rec := f.do(t, http.MethodPost, "/api/v1/auth/register",
			map[string]string{"email": "a@b.com", "password": "password-1", "name": "Ali"}, "")

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var out struct {
			Token string   `json:"token"`
			User  userView `json:"user"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		claims, err := f.issuer.Parse(out.Token)
		if err != nil {
			t.Fatalf("returned token does not parse: %v", err)
		}
		if claims.Subject != "u-1" || claims.Role != "client" {
			t.Fatalf("unexpected claims: %+v", claims)
		}
	})

	t.Run("bad credentials", func(t *testing.T) {
		f := newAPIFixture()
		f.users.AuthenticateFunc = func(ctx context.Context, email, password string) (*model.User, error) {
			return nil, domain.ErrInvalidCredentials
		}

		rec := f.do(t, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"email": "a@b.com", "password": "nope"}, "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if errorMessage(t, rec) != "E-posta veya şifre hatalı" {
			t.Fatalf("unexpected message %q", errorMessage(t, rec))
		}
	})

	t.Run("duplicate email registration", func(t *testing.T) {
		f := newAPIFixture()
		f.users.RegisterFunc = func(ctx context.Context, email, password, name, phone string) (*model.User, error) {
			return nil, domain.ErrAlreadyExists
		}
		rec := f.do(t, http.MethodPost, "/api/v1/auth/register",
			map[string]string{"email": "a@b.com", "password": "password-1"}, "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestSessionGuard(t *testing.T) {
	t.Run("checkout without a token", func(t *testing.T) {
		f := newAPIFixture()
		rec := f.do(t, http.MethodPost, "/api/v1/paytr/checkout", map[string]string{"packageId": "p"}, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newAPIFixture()
		rec := f.do(t, http.MethodPost, "/api/v1/paytr/checkout", map[string]string{"packageId": "p"}, "not-a-jwt")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("client role cannot reach admin routes", func(t *testing.T) {
		f := newAPIFixture()
		rec := f.do(t, http.MethodGet, "/api/v1/admin/stats", nil, f.tokenFor(t, "u-1", model.RoleClient))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("admin reaches stats", func(t *testing.T) {
		f := newAPIFixture()
		rec := f.do(t, http.MethodGet, "/api/v1/admin/stats", nil, f.tokenFor(t, "a-1", model.RoleAdmin))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestPaymentRoutes(t *testing.T) {
	t.Run("checkout forwards the caller identity and client IP", func(t *testing.T) {
		f := newAPIFixture()
		pkg, _ := model.NewPackage("pkg-1", "Premium", 599, "TRY", 30, nil, nil)
		var gotUser, gotIP string
		f.payments.CheckoutFunc = func(ctx context.Context, userID, packageID, ip string, installments int) (*usecase.CheckoutResult, error) {
			gotUser, gotIP = userID, ip
			return &usecase.CheckoutResult{Token: "tok", IframeURL: "https://pay/tok", MerchantOid: "oid-1", Package: pkg}, nil
		}

		rec := f.do(t, http.MethodPost, "/api/v1/paytr/checkout",
			map[string]interface{}{"packageId": "pkg-1", "installmentCount": 1},
			f.tokenFor(t, "u-7", model.RoleClient))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotUser != "u-7" {
			t.Fatalf("expected the token subject as user, got %q", gotUser)
		}
		if gotIP == "" {
			t.Fatal("client IP must be forwarded to the gateway signature")
		}
	})

	t.Run("checkout without configured gateway degrades to 503", func(t *testing.T) {
		f := newAPIFixture()
		f.payments.CheckoutFunc = func(ctx context.Context, userID, packageID, ip string, installments int) (*usecase.CheckoutResult, error) {
			return nil, domain.ErrPaymentNotConfigured
		}
		rec := f.do(t, http.MethodPost, "/api/v1/paytr/checkout",
			map[string]string{"packageId": "pkg-1"}, f.tokenFor(t, "u-1", model.RoleClient))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		if errorMessage(t, rec) != "Ödeme altyapısı yapılandırılmamış" {
			t.Fatalf("unexpected message %q", errorMessage(t, rec))
		}
	})

	t.Run("complete with unknown oid", func(t *testing.T) {
		f := newAPIFixture()
		f.payments.CompleteFunc = func(ctx context.Context, userID, merchantOid string) (*model.PackagePurchase, error) {
			return nil, domain.ErrNotFound
		}
		rec := f.do(t, http.MethodPost, "/api/v1/paytr/complete",
			map[string]string{"merchantOid": "ghost"}, f.tokenFor(t, "u-1", model.RoleClient))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if errorMessage(t, rec) != "Ödeme kaydı bulunamadı" {
			t.Fatalf("unexpected message %q", errorMessage(t, rec))
		}
	})
}

func TestSubscriptionRoute(t *testing.T) {
	t.Run("no purchase yields a null active package", func(t *testing.T) {
		f := newAPIFixture()
		f.subs.GetActiveFunc = func(ctx context.Context, userID string) (*model.PackagePurchase, error) {
			return nil, domain.ErrNotFound
		}

		rec := f.do(t, http.MethodGet, "/api/v1/user/subscription", nil, f.tokenFor(t, "u-1", model.RoleClient))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var out map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if v, ok := out["activePackage"]; !ok || v != nil {
			t.Fatalf("expected explicit null activePackage, got %v", out)
		}
	})
}

func TestTrainerRoutes(t *testing.T) {
	t.Run("assignment passes the actor from the session", func(t *testing.T) {
		f := newAPIFixture()
		pkg, _ := model.NewPackage("pkg-1", "Premium", 599, "TRY", 30, nil, nil)
		var actor *model.User
		f.subs.AssignFunc = func(ctx context.Context, a *model.User, clientID, packageID string, startAt *time.Time) (*model.PackagePurchase, error) {
			actor = a
			return model.NewPackagePurchase("p-1", clientID, pkg, time.Now(), nil)
		}

		rec := f.do(t, http.MethodPost, "/api/v1/trainer/clients/c-9/package",
			map[string]string{"packageId": "pkg-1"}, f.tokenFor(t, "t-1", model.RoleTrainer))

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if actor == nil || actor.ID != "t-1" || actor.Role != model.RoleTrainer {
			t.Fatalf("actor not propagated: %+v", actor)
		}
	})

	t.Run("unlinked trainer assignment", func(t *testing.T) {
		f := newAPIFixture()
		f.subs.AssignFunc = func(ctx context.Context, a *model.User, clientID, packageID string, startAt *time.Time) (*model.PackagePurchase, error) {
			return nil, domain.ErrNotLinked
		}
		rec := f.do(t, http.MethodPost, "/api/v1/trainer/clients/c-9/package",
			map[string]string{"packageId": "pkg-1"}, f.tokenFor(t, "t-1", model.RoleTrainer))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("cancel purchase", func(t *testing.T) {
		f := newAPIFixture()
		var cancelled string
		f.subs.CancelFunc = func(ctx context.Context, a *model.User, purchaseID string) error {
			cancelled = purchaseID
			return nil
		}
		rec := f.do(t, http.MethodDelete, "/api/v1/purchases/p-5", nil, f.tokenFor(t, "a-1", model.RoleAdmin))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if cancelled != "p-5" {
			t.Fatalf("expected purchase p-5 cancelled, got %q", cancelled)
		}
	})

	t.Run("invalid start date", func(t *testing.T) {
		f := newAPIFixture()
		rec := f.do(t, http.MethodPost, "/api/v1/trainer/clients/c-9/package",
			map[string]string{"packageId": "pkg-1", "startDate": "yarın"}, f.tokenFor(t, "t-1", model.RoleTrainer))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestDirectPurchaseRoute(t *testing.T) {
	t.Run("paid package cannot bypass the gateway", func(t *testing.T) {
		f := newAPIFixture()
		pkg, _ := model.NewPackage("pkg-1", "Premium", 599, "TRY", 30, nil, nil)
		f.catalog.GetFunc = func(ctx context.Context, id string) (*model.Package, error) { return pkg, nil }

		rec := f.do(t, http.MethodPost, "/api/v1/packages/purchase",
			map[string]string{"packageId": "pkg-1"}, f.tokenFor(t, "u-1", model.RoleClient))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("free package is granted directly", func(t *testing.T) {
		f := newAPIFixture()
		pkg, _ := model.NewPackage("pkg-free", "Deneme", 0, "TRY", 7, nil, nil)
		f.catalog.GetFunc = func(ctx context.Context, id string) (*model.Package, error) { return pkg, nil }

		rec := f.do(t, http.MethodPost, "/api/v1/packages/purchase",
			map[string]string{"packageId": "pkg-free"}, f.tokenFor(t, "u-1", model.RoleClient))

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}
