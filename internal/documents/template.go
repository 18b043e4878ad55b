package documents

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// CertificateData is the render model for the certificate template.
type CertificateData struct {
	Reference   string
	ServiceType string
	ClientName  string
	Street      string
	HouseNumber string
	PostalCode  string
	City        string
	Amount      string
	IssuedAt    time.Time
}

var certificateTmpl = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<style>
  body { font-family: 'Helvetica Neue', Arial, sans-serif; color: #1a1a2e; margin: 0; }
  .header { border-bottom: 3px solid #16324f; padding-bottom: 16px; margin-bottom: 32px; }
  .header h1 { margin: 0; font-size: 26px; }
  .reference { color: #16324f; font-size: 14px; letter-spacing: 1px; }
  table { width: 100%; border-collapse: collapse; margin-top: 24px; }
  td { padding: 8px 0; font-size: 14px; vertical-align: top; }
  td.label { width: 180px; color: #6b7280; }
  .footer { margin-top: 48px; font-size: 11px; color: #9ca3af; }
</style>
</head>
<body>
  <div class="header">
    <h1>Service Certificate</h1>
    <div class="reference">{{ .Reference }}</div>
  </div>
  <table>
    <tr><td class="label">Service</td><td>{{ .ServiceType }}</td></tr>
    <tr><td class="label">Issued to</td><td>{{ .ClientName }}</td></tr>
    {{ if .Street }}<tr><td class="label">Address</td><td>{{ .Street }} {{ .HouseNumber }}<br>{{ .PostalCode }} {{ .City }}</td></tr>{{ end }}
    {{ if .Amount }}<tr><td class="label">Amount paid</td><td>{{ .Amount }}</td></tr>{{ end }}
    <tr><td class="label">Issue date</td><td>{{ .IssuedAt.Format "2 January 2006" }}</td></tr>
  </table>
  <div class="footer">
    This certificate was generated for reference {{ .Reference }}. Verify its
    authenticity by quoting the reference number.
  </div>
</body>
</html>`))

// RenderCertificate produces the certificate HTML for the given data.
func RenderCertificate(data CertificateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := certificateTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
