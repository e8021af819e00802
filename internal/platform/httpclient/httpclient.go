package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second

	maxResponseBody = 1 << 20
	// Los errores del proveedor de identidad pueden repetir el token: se recortan.
	maxErrorBody = 256
)

var ErrNoBaseURL = errors.New("httpclient: base url not set")

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client habla JSON con un único servicio upstream (p. ej. Odin).
type Client struct {
	http      *http.Client
	base      *url.URL
	userAgent string
}

// New acepta BaseURL vacío: el Client queda creado pero sin destino,
// y cada llamada devuelve ErrNoBaseURL.
func New(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: strings.TrimSpace(opts.UserAgent),
	}

	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return c, nil
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, fmt.Errorf("httpclient: invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("httpclient: unsupported scheme %q", u.Scheme)
	}
	c.base = u
	return c, nil
}

func (c *Client) HasBaseURL() bool {
	return c != nil && c.base != nil
}

// StatusError es una respuesta no-2xx. Body viene recortado.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// Rejected: el upstream respondió que las credenciales no sirven.
func (e *StatusError) Rejected() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// PostJSON envía in como JSON a path (relativo a BaseURL) y decodifica la respuesta en out.
// out puede ser nil. Una respuesta 2xx vacía deja out sin tocar.
func (c *Client) PostJSON(ctx context.Context, path string, headers map[string]string, in, out any) error {
	if !c.HasBaseURL() {
		return ErrNoBaseURL
	}

	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("httpclient: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath(path).String(), bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("httpclient: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		if strings.TrimSpace(k) != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(raw)), maxErrorBody)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("httpclient: unmarshal: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
