package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeConfirmer struct {
	confirmed bool
	err       error
	lastSig   string
}

func (f *fakeConfirmer) Confirmed(ctx context.Context, signature string) (bool, error) {
	f.lastSig = signature
	return f.confirmed, f.err
}

func newTestGateway(t *testing.T, handler http.HandlerFunc, confirmer TxConfirmer) (*GatewayClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGatewayClient(server.URL, 2*time.Second, confirmer), server
}

func TestSubmitRequest(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/requests" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["market_ref"] != "market:42" {
			t.Errorf("expected market_ref market:42, got %s", body["market_ref"])
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"request_id":       "3mJr7AoUXx2Wqd",
			"liveness_seconds": 7200,
		})
	}, &fakeConfirmer{})

	requestID, liveness, err := client.SubmitRequest(context.Background(), "Will it happen?", "market:42")
	if err != nil {
		t.Fatalf("SubmitRequest failed: %v", err)
	}
	if requestID != "3mJr7AoUXx2Wqd" {
		t.Errorf("unexpected request id %s", requestID)
	}
	if liveness != 2*time.Hour {
		t.Errorf("expected 2h liveness, got %v", liveness)
	}
}

func TestSubmitRequestRejectsMalformedID(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"request_id":       "not-base58-0OIl",
			"liveness_seconds": 3600,
		})
	}, &fakeConfirmer{})

	if _, _, err := client.SubmitRequest(context.Background(), "q", "market:1"); err == nil {
		t.Fatal("expected a malformed request id to be rejected")
	}
}

func TestGetStatusRequiresConfirmedAttestation(t *testing.T) {
	confirmer := &fakeConfirmer{confirmed: false}
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"request_id":            "3mJr7AoUXx2Wqd",
			"status":                "resolved",
			"answer":                "YES",
			"attestation_signature": "sig123",
		})
	}, confirmer)

	result, err := client.GetStatus(context.Background(), "3mJr7AoUXx2Wqd")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if result.Status != StatusPending {
		t.Errorf("unconfirmed attestation must report PENDING, got %s", result.Status)
	}
	if confirmer.lastSig != "sig123" {
		t.Errorf("expected attestation sig123 to be checked, got %s", confirmer.lastSig)
	}

	confirmer.confirmed = true
	result, err = client.GetStatus(context.Background(), "3mJr7AoUXx2Wqd")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if result.Status != StatusResolved || result.Answer != "YES" {
		t.Errorf("expected RESOLVED/YES, got %s/%s", result.Status, result.Answer)
	}
}

func TestGetStatusResolvedWithoutSignatureIsPending(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"request_id": "3mJr7AoUXx2Wqd",
			"status":     "resolved",
			"answer":     "YES",
		})
	}, &fakeConfirmer{confirmed: true})

	result, err := client.GetStatus(context.Background(), "3mJr7AoUXx2Wqd")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if result.Status != StatusPending {
		t.Errorf("resolved answer without attestation must stay PENDING, got %s", result.Status)
	}
}

func TestGetStatusMapsDisputed(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"request_id": "3mJr7AoUXx2Wqd",
			"status":     "disputed",
		})
	}, &fakeConfirmer{})

	result, err := client.GetStatus(context.Background(), "3mJr7AoUXx2Wqd")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if result.Status != StatusDisputed {
		t.Errorf("expected DISPUTED, got %s", result.Status)
	}
}

func TestGetStatusUnreachableGatewayIsUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // force connection failures
	client := NewGatewayClient(server.URL, time.Second, &fakeConfirmer{})

	result, err := client.GetStatus(context.Background(), "3mJr7AoUXx2Wqd")
	if err == nil {
		t.Fatal("expected an error from an unreachable gateway")
	}
	if result.Status != StatusUnknown {
		t.Errorf("transport failure must map to UNKNOWN, got %s", result.Status)
	}
}

func TestGetStatusConfirmerErrorIsUnknown(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"request_id":            "3mJr7AoUXx2Wqd",
			"status":                "resolved",
			"answer":                "NO",
			"attestation_signature": "sig456",
		})
	}, &fakeConfirmer{err: errors.New("rpc timeout")})

	result, err := client.GetStatus(context.Background(), "3mJr7AoUXx2Wqd")
	if err == nil {
		t.Fatal("expected the confirmer error to surface")
	}
	if result.Status != StatusUnknown {
		t.Errorf("confirmation failure must map to UNKNOWN, got %s", result.Status)
	}
}

func TestForceStatusAcceptsProposedAnswer(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"request_id":      "3mJr7AoUXx2Wqd",
			"status":          "proposed",
			"proposed_answer": "NO",
		})
	}, &fakeConfirmer{})

	result, err := client.ForceStatus(context.Background(), "3mJr7AoUXx2Wqd")
	if err != nil {
		t.Fatalf("ForceStatus failed: %v", err)
	}
	if result.Status != StatusResolved || result.Answer != "NO" {
		t.Errorf("expected forced RESOLVED/NO, got %s/%s", result.Status, result.Answer)
	}
}
