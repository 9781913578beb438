package payment

import (
	"context"

	"fitness-coaching-platform/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway hands out fixed tokens; used in dev mode and tests where no
// merchant account exists.
type NoopGateway struct{}

func NewNoopGateway() *NoopGateway { return &NoopGateway{} }

func (n *NoopGateway) Name() string { return "noop" }

func (n *NoopGateway) RequestToken(ctx context.Context, creds adapter.MerchantCredentials, req adapter.CheckoutRequest) (string, string, error) {
	token := "noop-" + req.MerchantOid
	return token, iframeBaseURL + token, nil
}
