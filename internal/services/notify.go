package services

import (
	"context"
	"fmt"

	"eventspots/internal/domain"
)

type emailNotifier struct {
	mailer     domain.Mailer
	renderer   domain.EmailTemplateRenderer
	alertsAddr string
}

// NewEmailNotifier returns a Notifier backed by the given Mailer and template
// renderer. Operational alerts (overbooking) go to alertsAddr.
func NewEmailNotifier(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, alertsAddr string) domain.Notifier {
	return &emailNotifier{mailer: mailer, renderer: renderer, alertsAddr: alertsAddr}
}

func (n *emailNotifier) send(templateName, to string, data any) error {
	subject, htmlBody, textBody, err := n.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", templateName, err)
	}
	if err := n.mailer.Send(to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", templateName, err)
	}
	return nil
}

func (n *emailNotifier) RegistrationConfirmed(ctx context.Context, data *domain.RegistrationEmailData) error {
	if data == nil {
		return fmt.Errorf("registration email data is nil")
	}
	return n.send("registration_confirmed", data.Email, data)
}

func (n *emailNotifier) RegistrationWaitlisted(ctx context.Context, data *domain.RegistrationEmailData) error {
	if data == nil {
		return fmt.Errorf("registration email data is nil")
	}
	return n.send("registration_waitlisted", data.Email, data)
}

func (n *emailNotifier) RegistrationPromoted(ctx context.Context, data *domain.RegistrationEmailData) error {
	if data == nil {
		return fmt.Errorf("registration email data is nil")
	}
	return n.send("registration_promoted", data.Email, data)
}

func (n *emailNotifier) OverbookBlocked(ctx context.Context, data *domain.OverbookAlertData) error {
	if data == nil {
		return fmt.Errorf("overbook alert data is nil")
	}
	if n.alertsAddr == "" {
		return nil
	}
	return n.send("overbook_alert", n.alertsAddr, data)
}

func (n *emailNotifier) PaymentInvoice(ctx context.Context, data *domain.PaymentEmailData) error {
	if data == nil {
		return fmt.Errorf("payment email data is nil")
	}
	return n.send("payment_invoice", data.Email, data)
}

func (n *emailNotifier) PaymentCompleted(ctx context.Context, data *domain.PaymentEmailData) error {
	if data == nil {
		return fmt.Errorf("payment email data is nil")
	}
	return n.send("payment_completed", data.Email, data)
}
