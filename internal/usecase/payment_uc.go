package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/domain/ports/adapter"
	"fitness-coaching-platform/internal/domain/ports/repository"
	"fitness-coaching-platform/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// CheckoutResult is what the client needs to render the hosted payment page.
type CheckoutResult struct {
	Token       string
	IframeURL   string
	MerchantOid string
	Package     *model.Package
}

type PaymentUseCase interface {
	// Checkout builds a signed token request, POSTs it to the gateway and
	// logs the attempt. Every outcome, including failures, leaves exactly one
	// payment.initiated row keyed by the merchant oid.
	Checkout(ctx context.Context, userID, packageID, clientIP string, installments int) (*CheckoutResult, error)
	// Complete reconciles the gateway's success redirect into a ledger entry
	// exactly once. Replays return the original purchase without side effects.
	Complete(ctx context.Context, userID, merchantOid string) (*model.PackagePurchase, error)
	// TestConnection performs an admin-facing dry run against the gateway
	// with candidate credentials and fixed test values.
	TestConnection(ctx context.Context, creds adapter.MerchantCredentials) (string, error)
}

type paymentUC struct {
	attempts  repository.PaymentAttemptRepository
	packages  repository.PackageRepository
	users     repository.UserRepository
	purchases repository.PurchaseRepository
	subUC     SubscriptionUseCase
	gateway   adapter.PaymentGateway
	tm        repository.TransactionManager
	mailer    adapter.Mailer
	notifier  adapter.AdminNotifier

	creds    adapter.MerchantCredentials
	testMode bool
	okURL    string
	failURL  string

	log *zerolog.Logger
}

func NewPaymentUseCase(
	attempts repository.PaymentAttemptRepository,
	packages repository.PackageRepository,
	users repository.UserRepository,
	purchases repository.PurchaseRepository,
	subUC SubscriptionUseCase,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	mailer adapter.Mailer,
	notifier adapter.AdminNotifier,
	creds adapter.MerchantCredentials,
	testMode bool,
	okURL, failURL string,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		attempts: attempts, packages: packages, users: users, purchases: purchases,
		subUC: subUC, gateway: gateway, tm: tm, mailer: mailer, notifier: notifier,
		creds: creds, testMode: testMode, okURL: okURL, failURL: failURL,
		log: &l,
	}
}

// newMerchantOid builds the correlation id the gateway echoes back on the
// redirect: package id + unix timestamp + short random suffix.
func newMerchantOid(packageID string) string {
	suffix := strings.ToLower(ulid.Make().String())
	return fmt.Sprintf("pkg_%s_%d_%s", packageID, time.Now().Unix(), suffix[len(suffix)-6:])
}

// logAttempt writes the audit row for one checkout interaction. Reconciliation
// relies on this row always existing, so a failed write is logged loudly but
// never escalated over the primary error.
func (u *paymentUC) logAttempt(ctx context.Context, oid, userID string, status model.AttemptStatus, payload map[string]interface{}, errDetail string) {
	a := &model.PaymentAttempt{
		ID:          uuid.NewString(),
		Action:      model.ActionPaymentInitiated,
		Status:      status,
		MerchantOid: oid,
		UserID:      userID,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}
	if errDetail != "" {
		a.ErrorDetail = &errDetail
	}
	if err := u.attempts.Save(ctx, nil, a); err != nil {
		u.log.Error().Err(err).Str("merchant_oid", oid).Msg("failed to write payment attempt log")
	}
	metrics.IncPaymentAttempt(string(status))
}

func (u *paymentUC) Checkout(ctx context.Context, userID, packageID, clientIP string, installments int) (*CheckoutResult, error) {
	pkg, err := u.packages.FindByID(ctx, nil, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.Active {
		return nil, domain.ErrPackageInactive
	}
	user, err := u.users.FindByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if installments <= 0 {
		installments = 1
	}

	oid := newMerchantOid(pkg.ID)
	payload := map[string]interface{}{
		"package_id": pkg.ID,
		"amount":     pkg.Price,
		"currency":   pkg.Currency,
	}

	if !u.creds.Complete() {
		u.logAttempt(ctx, oid, userID, model.AttemptStatusFailed, payload, "merchant credentials missing")
		return nil, domain.ErrPaymentNotConfigured
	}
	if user.Email == "" {
		u.logAttempt(ctx, oid, userID, model.AttemptStatusFailed, payload, "user has no email address")
		return nil, domain.ErrInvalidArgument
	}

	req := adapter.CheckoutRequest{
		MerchantOid:  oid,
		Email:        user.Email,
		UserName:     user.Name,
		UserPhone:    user.Phone,
		UserIP:       clientIP,
		Amount:       pkg.Price,
		Currency:     pkg.Currency,
		Installments: installments,
		TestMode:     u.testMode,
		OkURL:        u.okURL,
		FailURL:      u.failURL,
	}

	token, iframeURL, err := u.gateway.RequestToken(ctx, u.creds, req)
	if err != nil {
		status := model.AttemptStatusError
		if isRejection(err) {
			status = model.AttemptStatusFailed
		}
		u.logAttempt(ctx, oid, userID, status, payload, err.Error())
		u.log.Warn().Err(err).Str("merchant_oid", oid).Msg("checkout token request failed")
		return nil, err
	}

	payload["token"] = token
	u.logAttempt(ctx, oid, userID, model.AttemptStatusSuccess, payload, "")
	u.log.Info().Str("merchant_oid", oid).Str("package_id", pkg.ID).Msg("checkout initiated")

	return &CheckoutResult{Token: token, IframeURL: iframeURL, MerchantOid: oid, Package: pkg}, nil
}

func isRejection(err error) bool {
	return errors.Is(err, domain.ErrGatewayRejected)
}

func (u *paymentUC) Complete(ctx context.Context, userID, merchantOid string) (*model.PackagePurchase, error) {
	if userID == "" || merchantOid == "" {
		return nil, domain.ErrInvalidArgument
	}

	var (
		purchase *model.PackagePurchase
		pkg      *model.Package
		replay   bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		att, err := u.attempts.FindLatestInitiated(ctx, tx, merchantOid, userID)
		if err != nil {
			return err
		}

		// Replay protection: only the caller whose CAS flips the row away
		// from its prior status creates a purchase; everyone else returns
		// the already-linked one.
		if att.Status == model.AttemptStatusCompleted {
			replay = true
			return u.loadCompleted(ctx, tx, att, &purchase)
		}
		if att.Status != model.AttemptStatusSuccess {
			// initiation never produced a token; nothing to reconcile
			return domain.ErrNotFound
		}

		claimed, err := u.attempts.Claim(ctx, tx, att.ID)
		if err != nil {
			return err
		}
		if !claimed {
			replay = true
			fresh, err := u.attempts.FindByID(ctx, tx, att.ID)
			if err != nil {
				return err
			}
			return u.loadCompleted(ctx, tx, fresh, &purchase)
		}

		pkgID, _ := att.Payload["package_id"].(string)
		if pkgID == "" {
			return domain.ErrInvalidArgument
		}
		pkg, err = u.packages.FindByID(ctx, tx, pkgID)
		if err != nil {
			return err
		}
		if !pkg.Active {
			return domain.ErrPackageInactive
		}

		purchase, err = u.subUC.CreatePurchaseTx(ctx, tx, userID, pkg, &merchantOid)
		if err != nil {
			return err
		}
		if err := u.attempts.AttachPurchase(ctx, tx, att.ID, purchase.ID); err != nil {
			return err
		}

		// second row for the audit trail
		audit := &model.PaymentAttempt{
			ID:          uuid.NewString(),
			Action:      model.ActionPaymentCompleted,
			Status:      model.AttemptStatusCompleted,
			MerchantOid: merchantOid,
			UserID:      userID,
			Payload: map[string]interface{}{
				"package_id":  pkg.ID,
				"amount":      pkg.Price,
				"currency":    pkg.Currency,
				"purchase_id": purchase.ID,
			},
			CreatedAt: time.Now(),
		}
		return u.attempts.Save(ctx, tx, audit)
	})
	if err != nil {
		return nil, err
	}

	if !replay {
		metrics.IncPaymentAttempt("completed")
		metrics.AddPaymentRevenue(pkg.Currency, pkg.Price)
		metrics.IncPurchaseCreated("gateway")
		u.log.Info().Str("merchant_oid", merchantOid).Str("purchase_id", purchase.ID).Msg("payment reconciled")
		u.afterActivation(ctx, userID, pkg)
	}
	return purchase, nil
}

// loadCompleted resolves the purchase a completed attempt already points at.
func (u *paymentUC) loadCompleted(ctx context.Context, tx repository.Tx, att *model.PaymentAttempt, out **model.PackagePurchase) error {
	pid, _ := att.Payload["purchase_id"].(string)
	if pid == "" {
		return domain.ErrOperationFailed
	}
	p, err := u.purchases.FindByID(ctx, tx, pid)
	if err != nil {
		return err
	}
	*out = p
	return nil
}

// afterActivation sends the receipt mail and the operator notice. Both are
// best-effort: the purchase is already committed.
func (u *paymentUC) afterActivation(ctx context.Context, userID string, pkg *model.Package) {
	user, err := u.users.FindByID(ctx, nil, userID)
	if err != nil {
		u.log.Warn().Err(err).Msg("receipt mail skipped, user lookup failed")
		return
	}
	if u.mailer != nil {
		msg := adapter.MailMessage{
			To:      user.Email,
			Subject: fmt.Sprintf("%s paketiniz aktif edildi", pkg.Name),
			BodyHTML: fmt.Sprintf(
				"<p>Merhaba %s,</p><p><strong>%s</strong> paketiniz %d gün boyunca aktif. İyi antrenmanlar!</p>",
				user.Name, pkg.Name, pkg.DurationDays),
			Tag: "purchase-receipt",
		}
		if err := u.mailer.Send(ctx, msg); err != nil {
			u.log.Warn().Err(err).Str("to", user.Email).Msg("receipt mail failed")
		}
	}
	if u.notifier != nil {
		text := fmt.Sprintf("Yeni paket satışı: %s → %s (%d %s)", user.Email, pkg.Name, pkg.Price, pkg.Currency)
		if err := u.notifier.Notify(ctx, text); err != nil {
			u.log.Warn().Err(err).Msg("admin notification failed")
		}
	}
}

func (u *paymentUC) TestConnection(ctx context.Context, creds adapter.MerchantCredentials) (string, error) {
	if !creds.Complete() {
		return "", domain.ErrPaymentNotConfigured
	}
	req := adapter.CheckoutRequest{
		MerchantOid:  newMerchantOid("test"),
		Email:        "test@example.com",
		UserName:     "Connection Test",
		UserIP:       "127.0.0.1",
		Amount:       100,
		Currency:     "TRY",
		Installments: 1,
		TestMode:     true,
		OkURL:        u.okURL,
		FailURL:      u.failURL,
	}
	token, _, err := u.gateway.RequestToken(ctx, creds, req)
	if err != nil {
		return "", err
	}
	return token, nil
}
