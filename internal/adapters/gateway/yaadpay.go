package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"eventspots/internal/domain"
)

// Config holds configuration for the YaadPay gateway.
type Config struct {
	Terminal  string
	APISecret string
	BaseURL   string
	// MockMode skips signature validation and is only for development.
	MockMode bool
}

type yaadPay struct {
	terminal string
	secret   []byte
	baseURL  string
	mock     bool
}

// NewYaadPay returns a PaymentGateway backed by YaadPay's hosted payment page.
func NewYaadPay(cfg Config) *yaadPay {
	return &yaadPay{
		terminal: cfg.Terminal,
		secret:   []byte(cfg.APISecret),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		mock:     cfg.MockMode,
	}
}

// CreatePaymentRequest builds the parameters for redirecting the customer to
// the hosted payment page. YaadPay expects the amount in shekels with two
// decimal places; amounts are stored in agorot.
func (y *yaadPay) CreatePaymentRequest(payment *domain.Payment, customerName, customerEmail, customerPhone, description string) (*domain.PaymentInstruction, error) {
	if payment.GatewayOrderID == "" {
		return nil, fmt.Errorf("payment has no gateway order id")
	}
	if payment.Amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	params := map[string]string{
		"action":     "pay",
		"Masof":      y.terminal,
		"Order":      payment.GatewayOrderID,
		"Amount":     formatAgorot(payment.Amount),
		"Info":       description,
		"ClientName": customerName,
		"email":      customerEmail,
		"cell":       customerPhone,
		"UTF8":       "True",
		"UTF8out":    "True",
		"MoreData":   "True",
		"Sign":       "True",
	}
	return &domain.PaymentInstruction{
		OrderID:     payment.GatewayOrderID,
		RedirectURL: y.baseURL,
		Params:      params,
	}, nil
}

// ParseCallback validates and parses a gateway callback delivered as query
// parameters. The signature covers Order, Amount, and CCode.
func (y *yaadPay) ParseCallback(values url.Values) (*domain.GatewayCallback, error) {
	order := values.Get("Order")
	if order == "" {
		return nil, fmt.Errorf("%w: callback missing order id", domain.ErrInvalidInput)
	}
	ccodeStr := values.Get("CCode")
	ccode, err := strconv.Atoi(ccodeStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid CCode %q", domain.ErrInvalidInput, ccodeStr)
	}
	amountStr := values.Get("Amount")
	amount, err := parseAgorot(amountStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount %q", domain.ErrInvalidInput, amountStr)
	}

	if !y.mock {
		expected := y.sign(order, amountStr, ccodeStr)
		sig := values.Get("Sign")
		if sig == "" || !hmac.Equal([]byte(expected), []byte(strings.ToLower(sig))) {
			return nil, fmt.Errorf("%w: bad callback signature", domain.ErrForbidden)
		}
	}

	return &domain.GatewayCallback{
		OrderID:          order,
		Success:          ccode == 0,
		Code:             ccode,
		TransactionID:    values.Get("Id"),
		ConfirmationCode: values.Get("ACode"),
		Amount:           amount,
	}, nil
}

func (y *yaadPay) sign(order, amount, ccode string) string {
	mac := hmac.New(sha256.New, y.secret)
	mac.Write([]byte(order + amount + ccode))
	return hex.EncodeToString(mac.Sum(nil))
}

// formatAgorot renders an agorot amount as shekels with two decimals.
func formatAgorot(agorot int64) string {
	return fmt.Sprintf("%d.%02d", agorot/100, agorot%100)
}

// parseAgorot converts a shekel string like "52.25" back to agorot.
func parseAgorot(s string) (int64, error) {
	whole, frac, found := strings.Cut(s, ".")
	shekels, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || shekels < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	var agorot int64
	if found {
		if len(frac) > 2 {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		for len(frac) < 2 {
			frac += "0"
		}
		agorot, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	return shekels*100 + agorot, nil
}
