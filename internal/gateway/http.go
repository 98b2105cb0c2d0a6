package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
)

// HTTPGateway talks to a real mobile-money rail over its JSON API. Error
// mapping: 5xx and transport errors are transient, 4xx is a terminal
// rejection, a context deadline is the ambiguous timeout case.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type initiateRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Amount  int64  `json:"amount"`
	Service string `json:"service"`
}

func (g *HTTPGateway) Initiate(ctx context.Context, from, to string, amount int64, service, idempotencyKey string) (*Result, error) {
	body, err := json.Marshal(initiateRequest{From: from, To: to, Amount: amount, Service: service})
	if err != nil {
		return nil, fmt.Errorf("marshal initiate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build initiate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	var res Result
	if err := g.do(req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (g *HTTPGateway) CheckBalance(ctx context.Context, account string) (*Balance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/accounts/"+account+"/balance", nil)
	if err != nil {
		return nil, fmt.Errorf("build balance request: %w", err)
	}

	var bal Balance
	if err := g.do(req, &bal); err != nil {
		return nil, err
	}
	return &bal, nil
}

func (g *HTTPGateway) Verify(ctx context.Context, ref string) (*Verification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/payments/"+ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}

	var v Verification
	if err := g.do(req, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (g *HTTPGateway) do(req *http.Request, out interface{}) error {
	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(req.Context().Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", pkgerrors.ErrGatewayTimeout, err)
		}
		return fmt.Errorf("%w: %v", pkgerrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		slog.Error("gateway returned server error", "status", resp.StatusCode, "url", req.URL.Path)
		return fmt.Errorf("%w: status %d", pkgerrors.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("%w: %s", pkgerrors.ErrGatewayRejected, body.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
