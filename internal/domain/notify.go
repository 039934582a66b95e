package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// RegistrationEmailData holds data for the confirmation and waitlist emails.
type RegistrationEmailData struct {
	Email            string
	EventTitle       string
	EventStartAt     string
	EventLocation    string
	SpotsCount       int
	ConfirmationCode string
	CancellationURL  string
}

// OverbookAlertData holds data for the overbooking alert sent to the
// event's admins when a promotion is refused.
type OverbookAlertData struct {
	EventTitle     string
	RegistrationID string
	SpotsRequested int
	SpotsAvailable int
}

// PaymentEmailData holds data for payment invoice and receipt emails.
type PaymentEmailData struct {
	Email            string
	EventTitle       string
	Amount           int64 // agorot
	ConfirmationCode string
	PaymentURL       string // invoice only
}

// Notifier defines the contract for sending domain-level notifications.
// Implementations are best effort: failures are logged by the caller and
// never fail the operation that triggered them.
type Notifier interface {
	RegistrationConfirmed(ctx context.Context, data *RegistrationEmailData) error
	RegistrationWaitlisted(ctx context.Context, data *RegistrationEmailData) error
	RegistrationPromoted(ctx context.Context, data *RegistrationEmailData) error
	OverbookBlocked(ctx context.Context, data *OverbookAlertData) error
	PaymentInvoice(ctx context.Context, data *PaymentEmailData) error
	PaymentCompleted(ctx context.Context, data *PaymentEmailData) error
}
