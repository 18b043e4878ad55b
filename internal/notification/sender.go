package notification

import (
	"context"
	"fmt"
	"net"
	"time"

	"servicecert_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// Payload shapes stored in the outbox per notification kind.
type (
	PaymentSuccessPayload struct {
		Reference      string `json:"reference"`
		ClientName     string `json:"clientName"`
		Amount         string `json:"amount"`
		CertificateURL string `json:"certificateUrl"`
	}

	PaymentFailurePayload struct {
		Reference  string `json:"reference"`
		ClientName string `json:"clientName"`
		Reason     string `json:"reason"`
	}

	LeadStaffAlertPayload struct {
		Reference string `json:"reference"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	}

	CallbackReminderPayload struct {
		Reference string `json:"reference"`
		Name      string `json:"name"`
		Phone     string `json:"phone"`
	}

	LeadConvertedAlertPayload struct {
		LeadReference    string `json:"leadReference"`
		RequestReference string `json:"requestReference"`
	}

	PaymentFailedAlertPayload struct {
		Reference string `json:"reference"`
		PaymentID string `json:"paymentId"`
		Amount    string `json:"amount"`
	}
)

// SMTPSender delivers notification emails over a direct SMTP connection.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates an SMTP sender from configuration.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// SendPaymentSuccess delivers the payment confirmation email.
func (s *SMTPSender) SendPaymentSuccess(ctx context.Context, toEmail string, p PaymentSuccessPayload) error {
	content, err := renderEmail(emailData{
		Title:   subjectPaymentSuccess,
		Heading: "Payment confirmed",
		BodyLines: []string{
			fmt.Sprintf("Dear %s,", p.ClientName),
			fmt.Sprintf("We received your payment of %s for request %s.", p.Amount, p.Reference),
			"Your certificate is ready for download.",
		},
		CTALabel: "Download certificate",
		CTAURL:   p.CertificateURL,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectPaymentSuccess, content)
}

// SendPaymentFailure delivers the payment failure email.
func (s *SMTPSender) SendPaymentFailure(ctx context.Context, toEmail string, p PaymentFailurePayload) error {
	lines := []string{
		fmt.Sprintf("Dear %s,", p.ClientName),
		fmt.Sprintf("Your payment for request %s was not completed.", p.Reference),
	}
	if p.Reason != "" {
		lines = append(lines, fmt.Sprintf("Reason: %s.", p.Reason))
	}
	lines = append(lines, "You can retry the payment at any time; your request is kept on file.")

	content, err := renderEmail(emailData{
		Title:     subjectPaymentFailure,
		Heading:   "Payment not completed",
		BodyLines: lines,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectPaymentFailure, content)
}

// SendLeadStaffAlert notifies staff of a newly captured lead.
func (s *SMTPSender) SendLeadStaffAlert(ctx context.Context, toEmail string, p LeadStaffAlertPayload) error {
	content, err := renderEmail(emailData{
		Title:   subjectLeadStaffAlert,
		Heading: "New lead " + p.Reference,
		BodyLines: []string{
			fmt.Sprintf("Name: %s", p.Name),
			fmt.Sprintf("Email: %s", p.Email),
			fmt.Sprintf("Phone: %s", p.Phone),
		},
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadStaffAlert, content)
}

// SendCallbackReminder notifies staff of a due callback request.
func (s *SMTPSender) SendCallbackReminder(ctx context.Context, toEmail string, p CallbackReminderPayload) error {
	content, err := renderEmail(emailData{
		Title:   subjectCallbackReminder,
		Heading: "Callback due for " + p.Reference,
		BodyLines: []string{
			fmt.Sprintf("%s asked to be called back.", p.Name),
			fmt.Sprintf("Phone: %s", p.Phone),
		},
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectCallbackReminder, content)
}

// SendLeadConvertedAlert notifies staff that a lead became a service request.
func (s *SMTPSender) SendLeadConvertedAlert(ctx context.Context, toEmail string, p LeadConvertedAlertPayload) error {
	content, err := renderEmail(emailData{
		Title:   subjectLeadConvertedAlert,
		Heading: "Lead " + p.LeadReference + " converted",
		BodyLines: []string{
			fmt.Sprintf("Lead %s has been finalized into service request %s.", p.LeadReference, p.RequestReference),
		},
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadConvertedAlert, content)
}

// SendPaymentFailedAlert notifies staff of a failed payment attempt.
func (s *SMTPSender) SendPaymentFailedAlert(ctx context.Context, toEmail string, p PaymentFailedAlertPayload) error {
	content, err := renderEmail(emailData{
		Title:   subjectPaymentFailedAlert,
		Heading: "Payment failed for " + p.Reference,
		BodyLines: []string{
			fmt.Sprintf("Payment %s of %s did not complete.", p.PaymentID, p.Amount),
			"The customer has been informed and can retry; no action is required unless the attempt keeps failing.",
		},
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectPaymentFailedAlert, content)
}
