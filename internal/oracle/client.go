package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
)

// GatewayClient talks to the optimistic oracle gateway over HTTP. Resolved
// answers carry an on-chain attestation signature which must confirm on
// Solana before GetStatus reports the answer as final.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	confirmer  TxConfirmer
}

// NewGatewayClient creates a new oracle gateway client
func NewGatewayClient(baseURL string, timeout time.Duration, confirmer TxConfirmer) *GatewayClient {
	return &GatewayClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout:   timeout,
		confirmer: confirmer,
	}
}

type submitRequestBody struct {
	Question  string `json:"question"`
	MarketRef string `json:"market_ref"`
}

type submitRequestResponse struct {
	RequestID       string `json:"request_id"`
	LivenessSeconds int64  `json:"liveness_seconds"`
}

type requestStatusResponse struct {
	RequestID            string `json:"request_id"`
	Status               string `json:"status"` // pending, proposed, disputed, resolved
	Answer               string `json:"answer,omitempty"`
	ProposedAnswer       string `json:"proposed_answer,omitempty"`
	AttestationSignature string `json:"attestation_signature,omitempty"`
}

// SubmitRequest submits the question to the gateway. The gateway deduplicates
// on market_ref, so re-submitting for the same market returns the existing
// request rather than creating a duplicate.
func (c *GatewayClient) SubmitRequest(ctx context.Context, question, marketRef string) (string, time.Duration, error) {
	body, err := json.Marshal(submitRequestBody{Question: question, MarketRef: marketRef})
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/requests", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("oracle gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("oracle gateway returned %d: %s", resp.StatusCode, string(payload))
	}

	var out submitRequestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	// Request ids are base58; reject anything malformed before persisting it.
	if _, err := base58.Decode(out.RequestID); err != nil {
		return "", 0, fmt.Errorf("gateway returned malformed request id %q: %w", out.RequestID, err)
	}

	return out.RequestID, time.Duration(out.LivenessSeconds) * time.Second, nil
}

// GetStatus polls the gateway for the request state. A resolved answer is
// only reported as RESOLVED once its attestation transaction confirms on
// chain; before that the request stays PENDING. Transport failures map to
// UNKNOWN so the next scheduled scan retries.
func (c *GatewayClient) GetStatus(ctx context.Context, requestID string) (Result, error) {
	status, err := c.fetchStatus(ctx, requestID)
	if err != nil {
		return Result{Status: StatusUnknown}, err
	}

	switch status.Status {
	case "resolved":
		if status.AttestationSignature == "" {
			return Result{Status: StatusPending}, nil
		}
		confirmed, err := c.confirmer.Confirmed(ctx, status.AttestationSignature)
		if err != nil {
			log.Printf("[Oracle] Failed to confirm attestation for request %s: %v", requestID, err)
			return Result{Status: StatusUnknown}, err
		}
		if !confirmed {
			return Result{Status: StatusPending}, nil
		}
		return Result{Status: StatusResolved, Answer: status.Answer}, nil
	case "disputed":
		return Result{Status: StatusDisputed}, nil
	default:
		return Result{Status: StatusPending}, nil
	}
}

// ForceStatus returns the best answer the gateway currently holds, without
// waiting for on-chain confirmation. A proposed but unfinalized answer is
// acceptable here; this path is only reachable by administrative force-settle.
func (c *GatewayClient) ForceStatus(ctx context.Context, requestID string) (Result, error) {
	status, err := c.fetchStatus(ctx, requestID)
	if err != nil {
		return Result{Status: StatusUnknown}, err
	}

	switch status.Status {
	case "resolved":
		return Result{Status: StatusResolved, Answer: status.Answer}, nil
	case "proposed":
		return Result{Status: StatusResolved, Answer: status.ProposedAnswer}, nil
	case "disputed":
		return Result{Status: StatusDisputed}, nil
	default:
		return Result{Status: StatusPending}, nil
	}
}

func (c *GatewayClient) fetchStatus(ctx context.Context, requestID string) (*requestStatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/requests/"+requestID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("oracle gateway returned %d: %s", resp.StatusCode, string(payload))
	}

	var out requestStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &out, nil
}
