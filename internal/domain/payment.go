package domain

import (
	"context"
	"fmt"
	"time"
)

// Payment statuses. Permitted transitions:
// PROCESSING -> COMPLETED, PROCESSING -> FAILED, COMPLETED -> REFUNDED.
const (
	PaymentProcessing = "PROCESSING"
	PaymentCompleted  = "COMPLETED"
	PaymentFailed     = "FAILED"
	PaymentRefunded   = "REFUNDED"
)

// Registration-level payment statuses (denormalized mirror of the linked
// payment, plus the no-payment cases).
const (
	PaymentStatusNone       = "NONE"
	PaymentStatusPending    = "PENDING"
	PaymentStatusProcessing = "PROCESSING"
	PaymentStatusCompleted  = "COMPLETED"
	PaymentStatusFailed     = "FAILED"
	PaymentStatusRefunded   = "REFUNDED"
)

// Processing fee: 2.5% of the subtotal plus a fixed 100 agorot (1 ILS).
const (
	processingFeePercent = 0.025
	processingFeeFixed   = 100
)

// Payment tracks a single gateway charge for a registration. At most one
// payment exists per registration (unique index on registration_id).
// All amounts are in agorot (cents).
// swagger:model Payment
type Payment struct {
	ID                   string     `json:"id"`
	RegistrationID       string     `json:"registration_id"`
	EventID              string     `json:"event_id"`
	SchoolID             string     `json:"school_id"`
	GatewayOrderID       string     `json:"gateway_order_id"`
	Status               string     `json:"status"`
	Amount               int64      `json:"amount"`
	GatewayCode          *int       `json:"gateway_code,omitempty"`
	GatewayTransactionID *string    `json:"gateway_transaction_id,omitempty"`
	GatewayConfirmCode   *string    `json:"gateway_confirm_code,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	RefundedAt           *time.Time `json:"refunded_at,omitempty"`
	RefundAmount         *int64     `json:"refund_amount,omitempty"`
	RefundReason         *string    `json:"refund_reason,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// CalculateAmount computes the total charge in agorot for a registration:
// basePrice*quantity, plus the processing fee when includeFee is set
// (round(subtotal*2.5%) + 100 agorot).
func CalculateAmount(basePrice int64, quantity int, includeFee bool) (int64, error) {
	if basePrice <= 0 {
		return 0, fmt.Errorf("%w: base price must be positive", ErrInvalidInput)
	}
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	subtotal := basePrice * int64(quantity)
	if !includeFee {
		return subtotal, nil
	}
	percentageFee := int64(float64(subtotal)*processingFeePercent + 0.5)
	return subtotal + percentageFee + processingFeeFixed, nil
}

// GatewayCallback is a parsed, signature-validated payment gateway callback.
// Amount is in agorot.
type GatewayCallback struct {
	OrderID          string
	Success          bool
	Code             int
	TransactionID    string
	ConfirmationCode string
	Amount           int64
}

// PaymentInstruction tells the caller how to send the customer to the
// payment page: an auto-submitted POST to RedirectURL with Params.
type PaymentInstruction struct {
	OrderID     string            `json:"order_id"`
	RedirectURL string            `json:"redirect_url"`
	Params      map[string]string `json:"params"`
}

// PaymentGateway is the outbound port to the payment provider.
type PaymentGateway interface {
	CreatePaymentRequest(payment *Payment, customerName, customerEmail, customerPhone, description string) (*PaymentInstruction, error)
}

// PaymentRepository defines storage for payments. The Mark* methods update
// the payment and the linked registration's denormalized payment status in
// one transaction, guarded by the payment's current status so concurrent
// callback deliveries cannot double-apply.
type PaymentRepository interface {
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByGatewayOrderID(ctx context.Context, orderID string) (*Payment, error)
	GetByRegistrationID(ctx context.Context, registrationID string) (*Payment, error)
	// MarkCompleted transitions PROCESSING -> COMPLETED, sets completed_at,
	// and sets the registration's payment status and amount paid. Returns
	// ErrInvalidPaymentTransition if the payment is not PROCESSING.
	MarkCompleted(ctx context.Context, paymentID string, gatewayCode int, transactionID, confirmCode string, amountPaid int64) (*Payment, error)
	// MarkFailed transitions PROCESSING -> FAILED.
	MarkFailed(ctx context.Context, paymentID string, gatewayCode int, transactionID string) (*Payment, error)
	// MarkRefunded transitions COMPLETED -> REFUNDED.
	MarkRefunded(ctx context.Context, paymentID string, amount int64, reason string) (*Payment, error)
}

// CallbackResult reports how a gateway callback was applied.
type CallbackResult struct {
	Payment          *Payment
	AlreadyProcessed bool
	Success          bool
}

// PaymentService drives the payment state machine from idempotent gateway
// callbacks and admin refunds.
type PaymentService interface {
	HandleCallback(ctx context.Context, cb *GatewayCallback) (*CallbackResult, error)
	Refund(ctx context.Context, tenant Tenant, paymentID string, amount int64, reason string) (*Payment, error)
	GetByRegistration(ctx context.Context, tenant Tenant, registrationID string) (*Payment, error)
}
