// Package documents generates and stores fulfillment certificates:
// HTML via html/template, converted to PDF by Gotenberg, stored in
// S3-compatible object storage keyed by request reference.
package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// GotenbergClient converts HTML to PDF via a Gotenberg instance.
type GotenbergClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewGotenbergClient creates a client pointing at the given Gotenberg URL.
// If username and password are non-empty, every request will include HTTP Basic Auth.
func NewGotenbergClient(baseURL, username, password string) *GotenbergClient {
	return &GotenbergClient{
		baseURL:  baseURL,
		username: username,
		password: password,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ConvertHTML sends index.html to Gotenberg and returns the resulting PDF bytes.
func (g *GotenbergClient) ConvertHTML(ctx context.Context, indexHTML []byte) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"paperWidth":        "8.27",
		"paperHeight":       "11.7",
		"marginTop":         "0.5",
		"marginBottom":      "0.7",
		"marginLeft":        "0.5",
		"marginRight":       "0.5",
		"printBackground":   "true",
		"preferCssPageSize": "false",
		// Delay capture so web fonts settle before rendering.
		"waitDelay":            "1s",
		"skipNetworkIdleEvent": "true",
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if err := addFilePart(writer, "index.html", "text/html", indexHTML); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	return g.doPost(ctx, "/forms/chromium/convert/html", body, writer.FormDataContentType())
}

// doPost sends a POST request and reads the response body.
func (g *GotenbergClient) doPost(ctx context.Context, path string, body *bytes.Buffer, contentType string) ([]byte, error) {
	url := g.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if g.username != "" && g.password != "" {
		req.SetBasicAuth(g.username, g.password)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gotenberg %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gotenberg %s returned %d: %s", path, resp.StatusCode, string(errBody))
	}

	result, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", path, err)
	}
	return result, nil
}

// addFilePart adds a file to the multipart form.
func addFilePart(w *multipart.Writer, filename, mimeType string, content []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, filename))
	h.Set("Content-Type", mimeType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", filename, err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("write part %s: %w", filename, err)
	}
	return nil
}
