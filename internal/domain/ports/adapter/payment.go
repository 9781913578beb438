package adapter

import "context"

// MerchantCredentials identify the PayTR merchant account. Kept separate from
// the gateway so the admin connection test can probe candidate credentials
// without reconfiguring the running adapter.
type MerchantCredentials struct {
	MerchantID   string
	MerchantKey  string
	MerchantSalt string
}

func (c MerchantCredentials) Complete() bool {
	return c.MerchantID != "" && c.MerchantKey != "" && c.MerchantSalt != ""
}

// CheckoutRequest carries everything the hosted-payment-page token request
// needs. Amount is in minor-unit-free integer currency (599 == 599 TRY).
type CheckoutRequest struct {
	MerchantOid  string
	Email        string
	UserName     string
	UserPhone    string
	UserIP       string
	Amount       int64
	Currency     string
	Installments int
	TestMode     bool
	OkURL        string
	FailURL      string
}

// PaymentGateway talks to the external hosted-payment-page provider.
type PaymentGateway interface {
	Name() string
	// RequestToken asks the provider for a checkout token and returns the
	// token plus the iframe URL the client should load.
	RequestToken(ctx context.Context, creds MerchantCredentials, req CheckoutRequest) (token, iframeURL string, err error)
}
