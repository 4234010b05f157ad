package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// DefaultTimeout bounds a single transport call.
const DefaultTimeout = 10 * time.Second

const maxResponseBytes = 1 << 20

// HTTPTransport posts lead payloads to a fixed endpoint.
type HTTPTransport struct {
	Endpoint string
	Client   *http.Client
	Timeout  time.Duration
}

// NewHTTPTransport creates a transport for endpoint with the default timeout.
func NewHTTPTransport(endpoint string) *HTTPTransport {
	return &HTTPTransport{
		Endpoint: endpoint,
		Client:   http.DefaultClient,
		Timeout:  DefaultTimeout,
	}
}

// Send posts payload as JSON. Any outcome other than a 2xx answer with
// {"success": true, "leadId": "..."} is a *domain.TransportError.
func (t *HTTPTransport) Send(ctx context.Context, payload []byte) (domain.LeadID, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &domain.TransportError{Message: "invalid request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &domain.TransportError{Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	var out Response
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &domain.TransportError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", &domain.TransportError{Status: resp.StatusCode, Message: "malformed response body", Err: decodeErr}
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "lead rejected"
		}
		return "", &domain.TransportError{Status: resp.StatusCode, Message: msg}
	}
	if out.LeadID == "" {
		return "", &domain.TransportError{Status: resp.StatusCode, Message: "malformed response body", Err: errors.New("missing leadId")}
	}
	return domain.LeadID(out.LeadID), nil
}

// String describes the transport for logs.
func (t *HTTPTransport) String() string {
	return fmt.Sprintf("http(%s)", t.Endpoint)
}
