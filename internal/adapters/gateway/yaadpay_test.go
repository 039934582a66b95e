package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"testing"

	"eventspots/internal/domain"

	"github.com/stretchr/testify/require"
)

func signFor(t *testing.T, secret, order, amount, ccode string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(order + amount + ccode))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestYaadPay_CreatePaymentRequest(t *testing.T) {
	y := NewYaadPay(Config{Terminal: "0010131918", APISecret: "secret", BaseURL: "https://yaadpay.test/p/"})

	instruction, err := y.CreatePaymentRequest(&domain.Payment{
		GatewayOrderID: "order-1",
		Amount:         5225,
	}, "Dana", "dana@example.com", "0501234567", "Spring Recital x1")
	require.NoError(t, err)
	require.Equal(t, "https://yaadpay.test/p", instruction.RedirectURL)
	require.Equal(t, "order-1", instruction.Params["Order"])
	require.Equal(t, "52.25", instruction.Params["Amount"])
	require.Equal(t, "0010131918", instruction.Params["Masof"])

	_, err = y.CreatePaymentRequest(&domain.Payment{GatewayOrderID: "order-2", Amount: 0}, "", "", "", "")
	require.Error(t, err)
}

func TestYaadPay_ParseCallback(t *testing.T) {
	y := NewYaadPay(Config{Terminal: "0010131918", APISecret: "secret", BaseURL: "https://yaadpay.test"})

	values := func(ccode string) url.Values {
		v := url.Values{}
		v.Set("Order", "order-1")
		v.Set("Amount", "52.25")
		v.Set("CCode", ccode)
		v.Set("Id", "12345678")
		v.Set("ACode", "0012345")
		v.Set("Sign", signFor(t, "secret", "order-1", "52.25", ccode))
		return v
	}

	t.Run("valid success callback", func(t *testing.T) {
		cb, err := y.ParseCallback(values("0"))
		require.NoError(t, err)
		require.True(t, cb.Success)
		require.Equal(t, "order-1", cb.OrderID)
		require.Equal(t, int64(5225), cb.Amount)
		require.Equal(t, "12345678", cb.TransactionID)
	})

	t.Run("non-zero code means failure", func(t *testing.T) {
		cb, err := y.ParseCallback(values("901"))
		require.NoError(t, err)
		require.False(t, cb.Success)
		require.Equal(t, 901, cb.Code)
	})

	t.Run("tampered amount is rejected", func(t *testing.T) {
		v := values("0")
		v.Set("Amount", "1.00")
		_, err := y.ParseCallback(v)
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("missing signature is rejected", func(t *testing.T) {
		v := values("0")
		v.Del("Sign")
		_, err := y.ParseCallback(v)
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("mock mode skips signature validation", func(t *testing.T) {
		mock := NewYaadPay(Config{Terminal: "t", APISecret: "s", BaseURL: "http://localhost", MockMode: true})
		v := values("0")
		v.Del("Sign")
		cb, err := mock.ParseCallback(v)
		require.NoError(t, err)
		require.True(t, cb.Success)
	})
}

func TestParseAgorot(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "52.25", want: 5225},
		{in: "52.2", want: 5220},
		{in: "52", want: 5200},
		{in: "0.99", want: 99},
		{in: "52.255", wantErr: true},
		{in: "-1.00", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseAgorot(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}
