package notification

import (
	"bytes"
	"fmt"
	"html/template"
)

// Email subjects per notification kind.
const (
	subjectPaymentSuccess     = "Your payment is confirmed"
	subjectPaymentFailure     = "There was a problem with your payment"
	subjectLeadStaffAlert     = "New lead received"
	subjectCallbackReminder   = "Callback reminder"
	subjectLeadConvertedAlert = "Lead converted to service request"
	subjectPaymentFailedAlert = "Payment attempt failed"
)

type emailData struct {
	Title     string
	Heading   string
	BodyLines []string
	CTALabel  string
	CTAURL    string
}

var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
</head>
<body style="margin:0;padding:0;background:#f4f4f7;font-family:Arial,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding:32px 16px;">
      <table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px;">
        <tr><td>
          <h1 style="margin:0 0 16px;font-size:22px;color:#16324f;">{{ .Heading }}</h1>
          {{ range .BodyLines }}<p style="margin:0 0 12px;font-size:14px;color:#374151;line-height:1.6;">{{ . }}</p>{{ end }}
          {{ if .CTAURL }}
          <p style="margin:24px 0 0;">
            <a href="{{ .CTAURL }}" style="background:#16324f;color:#ffffff;padding:12px 24px;border-radius:6px;text-decoration:none;font-size:14px;">{{ .CTALabel }}</a>
          </p>
          {{ end }}
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

func renderEmail(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}
