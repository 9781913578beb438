package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*PayTRGateway)(nil)

const (
	defaultTokenEndpoint = "https://www.paytr.com/odeme/api/get-token"
	iframeBaseURL        = "https://www.paytr.com/odeme/guvenli/"

	// The platform only sells via card through the hosted page.
	paymentType = "card"
	non3DFlag   = "0"
)

// PayTRGateway requests checkout tokens from PayTR's hosted-payment-page API.
// Credentials are passed per call so the admin connection test can probe
// candidate merchant accounts without touching the running configuration.
type PayTRGateway struct {
	client   *http.Client
	endpoint string
}

func NewPayTRGateway() *PayTRGateway {
	return &PayTRGateway{
		client:   &http.Client{Timeout: 15 * time.Second},
		endpoint: defaultTokenEndpoint,
	}
}

// SetEndpoint overrides the token endpoint; used by tests.
func (g *PayTRGateway) SetEndpoint(u string) { g.endpoint = u }

func (g *PayTRGateway) Name() string { return "paytr" }

// signRequest builds the paytr_token: HMAC-SHA256 over the fixed-order field
// concatenation plus the merchant salt, keyed by the merchant key, base64.
func signRequest(creds adapter.MerchantCredentials, req adapter.CheckoutRequest) string {
	testMode := "0"
	if req.TestMode {
		testMode = "1"
	}
	raw := creds.MerchantID +
		req.UserIP +
		req.MerchantOid +
		req.Email +
		strconv.FormatInt(req.Amount, 10) +
		paymentType +
		strconv.Itoa(req.Installments) +
		req.Currency +
		testMode +
		non3DFlag +
		creds.MerchantSalt

	mac := hmac.New(sha256.New, []byte(creds.MerchantKey))
	mac.Write([]byte(raw))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// RequestToken POSTs the URL-encoded form to the get-token endpoint and
// returns the token plus the iframe URL on success.
func (g *PayTRGateway) RequestToken(ctx context.Context, creds adapter.MerchantCredentials, req adapter.CheckoutRequest) (string, string, error) {
	if !creds.Complete() {
		return "", "", domain.ErrPaymentNotConfigured
	}

	testMode := "0"
	if req.TestMode {
		testMode = "1"
	}
	form := url.Values{}
	form.Set("merchant_id", creds.MerchantID)
	form.Set("user_ip", req.UserIP)
	form.Set("merchant_oid", req.MerchantOid)
	form.Set("email", req.Email)
	form.Set("payment_amount", strconv.FormatInt(req.Amount, 10))
	form.Set("payment_type", paymentType)
	form.Set("installment_count", strconv.Itoa(req.Installments))
	form.Set("currency", req.Currency)
	form.Set("test_mode", testMode)
	form.Set("non_3d", non3DFlag)
	form.Set("user_name", req.UserName)
	form.Set("user_phone", req.UserPhone)
	form.Set("merchant_ok_url", req.OkURL)
	form.Set("merchant_fail_url", req.FailURL)
	form.Set("paytr_token", signRequest(creds, req))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var out struct {
		Status string `json:"status"`
		Token  string `json:"token"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", err
	}
	if out.Status != "success" || out.Token == "" {
		if out.Reason != "" {
			return "", "", fmt.Errorf("%w: %s", domain.ErrGatewayRejected, out.Reason)
		}
		return "", "", domain.ErrGatewayRejected
	}
	return out.Token, iframeBaseURL + out.Token, nil
}

// IsRejection reports whether the error came from the gateway declining the
// request (as opposed to transport/parse failure).
func IsRejection(err error) bool {
	return errors.Is(err, domain.ErrGatewayRejected)
}
