// Package report talks to a Gotenberg instance to turn HTML into PDF.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 2
	errorBodyLimit = 512
)

// PageOptions are forwarded to the Chromium module as form fields. Sizes are in inches.
type PageOptions struct {
	PaperWidth      float64
	PaperHeight     float64
	Margin          float64
	PrintBackground bool
}

// A4 is the page layout used for folios.
var A4 = PageOptions{PaperWidth: 8.27, PaperHeight: 11.7, Margin: 0.4, PrintBackground: true}

// StatusError is a non-2xx reply from Gotenberg.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gotenberg: status %d: %s", e.Status, e.Body)
}

// Client renders HTML through Gotenberg. Transport errors and 5xx replies
// are retried with exponential backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    uint64
	interval   time.Duration
}

// NewClient constructs a client. A zero timeout falls back to 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retries:    defaultRetries,
		interval:   200 * time.Millisecond,
	}
}

// Ping checks the Gotenberg health endpoint once.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}
	return nil
}

// RenderHTML converts a complete HTML document to PDF on A4.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	return c.Render(ctx, html, A4)
}

// Render converts html to PDF with the given page layout.
func (c *Client) Render(ctx context.Context, html string, page PageOptions) ([]byte, error) {
	var pdf []byte
	attempt := func() error {
		body, contentType, err := chromiumForm(html, page)
		if err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			return statusError(resp)
		case resp.StatusCode >= http.StatusBadRequest:
			return backoff.Permanent(statusError(resp))
		}
		pdf, err = io.ReadAll(resp.Body)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.interval
	if err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, c.retries), ctx)); err != nil {
		return nil, err
	}
	return pdf, nil
}

// chromiumForm builds the multipart body. Gotenberg requires the entry file
// to be named index.html.
func chromiumForm(html string, page PageOptions) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, "", err
	}
	fields := map[string]string{
		"printBackground": strconv.FormatBool(page.PrintBackground),
	}
	if page.PaperWidth > 0 && page.PaperHeight > 0 {
		fields["paperWidth"] = inches(page.PaperWidth)
		fields["paperHeight"] = inches(page.PaperHeight)
	}
	for _, side := range []string{"marginTop", "marginBottom", "marginLeft", "marginRight"} {
		fields[side] = inches(page.Margin)
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func inches(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
