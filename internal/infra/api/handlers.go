package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"fitness-coaching-platform/internal/config"
	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/domain/ports/adapter"
	"fitness-coaching-platform/internal/infra/logging"
	"fitness-coaching-platform/internal/infra/metrics"
	"fitness-coaching-platform/internal/infra/redis"
	"fitness-coaching-platform/internal/usecase"
)

// Handler bundles the use cases behind the HTTP surface.
type Handler struct {
	users    usecase.UserUseCase
	catalog  usecase.CatalogUseCase
	subs     usecase.SubscriptionUseCase
	payments usecase.PaymentUseCase
	stats    usecase.StatsUseCase

	issuer  *TokenIssuer
	limiter *redis.RateLimiter
	limits  config.RateLimitConfig

	log *zerolog.Logger
}

func NewHandler(
	users usecase.UserUseCase,
	catalog usecase.CatalogUseCase,
	subs usecase.SubscriptionUseCase,
	payments usecase.PaymentUseCase,
	stats usecase.StatsUseCase,
	issuer *TokenIssuer,
	limiter *redis.RateLimiter,
	limits config.RateLimitConfig,
	logger *zerolog.Logger,
) *Handler {
	l := logger.With().Str("component", "API").Logger()
	return &Handler{
		users: users, catalog: catalog, subs: subs, payments: payments, stats: stats,
		issuer: issuer, limiter: limiter, limits: limits, log: &l,
	}
}

// clientIP prefers the first X-Forwarded-For hop; the gateway signature
// includes it, so it has to match what the payment provider sees.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// allow applies the shared limiter; a Redis outage fails open so payments do
// not stop when the cache is down.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, route, id string, limit int, window time.Duration) bool {
	if h.limiter == nil {
		return true
	}
	ok, err := h.limiter.Allow(r.Context(), redis.RouteKey(route, id), limit, window)
	if err != nil {
		logging.With(r.Context(), h.log).Warn().Err(err).Str("route", route).Msg("rate limiter unavailable")
		return true
	}
	if !ok {
		writeDomainError(w, h.log, domain.ErrRateLimited)
		return false
	}
	return true
}

// --- views ---

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func toUserView(u *model.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role)}
}

type packageView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Price        int64    `json:"price"`
	Currency     string   `json:"currency"`
	DurationDays int      `json:"durationDays"`
	Active       bool     `json:"active"`
	Features     []string `json:"features"`
	NotIncluded  []string `json:"notIncluded"`
}

func toPackageView(p *model.Package) packageView {
	return packageView{
		ID: p.ID, Name: p.Name, Price: p.Price, Currency: p.Currency,
		DurationDays: p.DurationDays, Active: p.Active,
		Features: p.Features, NotIncluded: p.NotIncluded,
	}
}

type purchaseView struct {
	ID          string     `json:"id"`
	PackageID   string     `json:"packageId"`
	Status      string     `json:"status"`
	PurchasedAt time.Time  `json:"purchasedAt"`
	StartsAt    time.Time  `json:"startsAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	PaymentRef  *string    `json:"paymentRef,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

func toPurchaseView(p *model.PackagePurchase) purchaseView {
	return purchaseView{
		ID: p.ID, PackageID: p.PackageID, Status: string(p.Status),
		PurchasedAt: p.PurchasedAt, StartsAt: p.StartsAt, ExpiresAt: p.ExpiresAt,
		PaymentRef: p.PaymentRef, CancelledAt: p.CancelledAt,
	}
}

// --- auth ---

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, "register", clientIP(r), h.limits.RegisterPerHour, time.Hour) {
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Phone    string `json:"phone"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	user, err := h.users.Register(r.Context(), body.Email, body.Password, body.Name, body.Phone)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	token, err := h.issuer.Issue(user)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"token": token, "user": toUserView(user)})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if !h.allow(w, r, "login", strings.ToLower(body.Email), h.limits.LoginPerMinute, time.Minute) {
		return
	}
	user, err := h.users.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	token, err := h.issuer.Issue(user)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token, "user": toUserView(user)})
}

// --- catalog ---

func (h *Handler) listPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.catalog.List(r.Context(), false)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	views := make([]packageView, 0, len(pkgs))
	for _, p := range pkgs {
		views = append(views, toPackageView(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"packages": views})
}

// --- purchases & payments ---

// purchaseDirect is the non-gateway path: only free packages can be taken
// without paying.
func (h *Handler) purchaseDirect(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	var body struct {
		PackageID string `json:"packageId"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	pkg, err := h.catalog.Get(r.Context(), body.PackageID)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	if !pkg.Active {
		writeDomainError(w, h.log, domain.ErrPackageInactive)
		return
	}
	if pkg.Price > 0 {
		writeError(w, http.StatusBadRequest, "Bu paket yalnızca ödeme ile satın alınabilir")
		return
	}
	p, err := h.subs.CreatePurchase(r.Context(), actor.ID, pkg, nil)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	metrics.IncPurchaseCreated("direct")
	writeJSON(w, http.StatusCreated, toPurchaseView(p))
}

func (h *Handler) paytrCheckout(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if !h.allow(w, r, "checkout", actor.ID, h.limits.CheckoutPerMinute, time.Minute) {
		return
	}
	var body struct {
		PackageID        string `json:"packageId"`
		InstallmentCount int    `json:"installmentCount"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := h.payments.Checkout(r.Context(), actor.ID, body.PackageID, clientIP(r), body.InstallmentCount)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":       res.Token,
		"iframeUrl":   res.IframeURL,
		"merchantOid": res.MerchantOid,
		"package":     toPackageView(res.Package),
	})
}

func (h *Handler) paytrComplete(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	var body struct {
		MerchantOid string `json:"merchantOid"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	p, err := h.payments.Complete(r.Context(), actor.ID, body.MerchantOid)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "Ödeme kaydı bulunamadı")
			return
		}
		writeDomainError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPurchaseView(p))
}

func (h *Handler) userSubscription(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	p, err := h.subs.GetActivePurchase(r.Context(), actor.ID)
	if err != nil {
		if err == domain.ErrNotFound {
			writeJSON(w, http.StatusOK, map[string]interface{}{"activePackage": nil})
			return
		}
		writeDomainError(w, h.log, err)
		return
	}
	out := map[string]interface{}{"purchase": toPurchaseView(p)}
	if pkg, err := h.catalog.Get(r.Context(), p.PackageID); err == nil {
		out["package"] = toPackageView(pkg)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activePackage": out})
}

// --- trainer ---

func (h *Handler) trainerAssign(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	clientID := chi.URLParam(r, "id")
	var body struct {
		PackageID string `json:"packageId"`
		StartDate string `json:"startDate"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	var startAt *time.Time
	if body.StartDate != "" {
		t, err := time.Parse(time.RFC3339, body.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Geçersiz başlangıç tarihi")
			return
		}
		startAt = &t
	}
	p, err := h.subs.AssignManual(r.Context(), actor, clientID, body.PackageID, startAt)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	metrics.IncPurchaseCreated("manual")
	writeJSON(w, http.StatusCreated, toPurchaseView(p))
}

func (h *Handler) trainerClients(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	clients, err := h.users.ListClients(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	views := make([]userView, 0, len(clients))
	for _, c := range clients {
		views = append(views, toUserView(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"clients": views})
}

func (h *Handler) cancelPurchase(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if err := h.subs.Cancel(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- admin ---

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.Snapshot(r.Context())
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) adminPayTRTest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MerchantID   string `json:"merchantId"`
		MerchantKey  string `json:"merchantKey"`
		MerchantSalt string `json:"merchantSalt"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	token, err := h.payments.TestConnection(r.Context(), adapter.MerchantCredentials{
		MerchantID:   body.MerchantID,
		MerchantKey:  body.MerchantKey,
		MerchantSalt: body.MerchantSalt,
	})
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "token": token})
}

func (h *Handler) adminListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.catalog.List(r.Context(), true)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	views := make([]packageView, 0, len(pkgs))
	for _, p := range pkgs {
		views = append(views, toPackageView(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"packages": views})
}

type packageBody struct {
	Name         string   `json:"name"`
	Price        int64    `json:"price"`
	Currency     string   `json:"currency"`
	DurationDays int      `json:"durationDays"`
	Features     []string `json:"features"`
	NotIncluded  []string `json:"notIncluded"`
}

func (b packageBody) toInput() usecase.PackageInput {
	return usecase.PackageInput{
		Name: b.Name, Price: b.Price, Currency: b.Currency,
		DurationDays: b.DurationDays, Features: b.Features, NotIncluded: b.NotIncluded,
	}
}

func (h *Handler) adminCreatePackage(w http.ResponseWriter, r *http.Request) {
	var body packageBody
	if !decodeBody(w, r, &body) {
		return
	}
	pkg, err := h.catalog.Create(r.Context(), body.toInput())
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPackageView(pkg))
}

func (h *Handler) adminUpdatePackage(w http.ResponseWriter, r *http.Request) {
	var body packageBody
	if !decodeBody(w, r, &body) {
		return
	}
	pkg, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), body.toInput())
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPackageView(pkg))
}

func (h *Handler) adminDeactivatePackage(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminLinkClient(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrainerID string `json:"trainerId"`
		ClientID  string `json:"clientId"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.users.LinkClient(r.Context(), body.TrainerID, body.ClientID); err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
