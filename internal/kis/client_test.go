package kis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func tokenHandler(t *testing.T, issued *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode token request: %v", err)
		}
		if req["grant_type"] != "client_credentials" {
			t.Errorf("expected grant_type client_credentials, got %s", req["grant_type"])
		}
		if issued != nil {
			issued.Add(1)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"expires_in":   86400,
		})
	}
}

func TestClient_Authorize(t *testing.T) {
	var issued atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/tokenP", tokenHandler(t, &issued))

	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")
	if err := client.Authorize(context.Background()); err != nil {
		t.Fatalf("Authorize: %v", err)
	}

	if issued.Load() != 1 {
		t.Errorf("expected 1 token issue, got %d", issued.Load())
	}

	// A valid cached token must not trigger another issue.
	if _, err := client.token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}
	if issued.Load() != 1 {
		t.Errorf("expected cached token reuse, got %d issues", issued.Load())
	}
}

func TestClient_CurrentPrice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/tokenP", tokenHandler(t, nil))
	mux.HandleFunc("/uapi/domestic-stock/v1/quotations/inquire-price", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("tr_id"); got != "FHKST01010100" {
			t.Errorf("expected tr_id FHKST01010100, got %s", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header: %s", got)
		}
		if got := r.URL.Query().Get("fid_input_iscd"); got != "005930" {
			t.Errorf("expected code 005930, got %s", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rt_cd": "0",
			"output": map[string]string{
				"stck_prpr": "71500",
				"stck_oprc": "71000",
				"stck_hgpr": "72000",
				"stck_lwpr": "70800",
				"acml_vol":  "12345678",
			},
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")
	quote, err := client.CurrentPrice(context.Background(), "005930")
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}

	if quote.Code != "005930" {
		t.Errorf("expected code 005930, got %s", quote.Code)
	}
	if quote.Close != 71500 {
		t.Errorf("expected close 71500, got %f", quote.Close)
	}
	if quote.Open != 71000 || quote.High != 72000 || quote.Low != 70800 {
		t.Errorf("unexpected OHL: %f %f %f", quote.Open, quote.High, quote.Low)
	}
	if quote.Volume != 12345678 {
		t.Errorf("expected volume 12345678, got %d", quote.Volume)
	}
}

func TestClient_DailyBars_OldestFirst(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/tokenP", tokenHandler(t, nil))
	mux.HandleFunc("/uapi/domestic-stock/v1/quotations/inquire-daily-price", func(w http.ResponseWriter, r *http.Request) {
		// Newest first, as the API returns them
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rt_cd": "0",
			"output": []map[string]string{
				{"stck_bsop_date": "20240103", "stck_oprc": "1020", "stck_hgpr": "1040", "stck_lwpr": "1010", "stck_clpr": "1030", "acml_vol": "300"},
				{"stck_bsop_date": "20240102", "stck_oprc": "1010", "stck_hgpr": "1030", "stck_lwpr": "1000", "stck_clpr": "1020", "acml_vol": "200"},
				{"stck_bsop_date": "20240101", "stck_oprc": "1000", "stck_hgpr": "1020", "stck_lwpr": "990", "stck_clpr": "1010", "acml_vol": "100"},
			},
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")
	series, err := client.DailyBars(context.Background(), "005930")
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}

	if len(series) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(series))
	}
	if series[0].Date != "20240101" || series[2].Date != "20240103" {
		t.Errorf("expected ascending dates, got %s .. %s", series[0].Date, series[2].Date)
	}
	if series[0].Close != 1010 {
		t.Errorf("expected first close 1010, got %f", series[0].Close)
	}
	if series[2].Volume != 300 {
		t.Errorf("expected last volume 300, got %d", series[2].Volume)
	}
}

func TestClient_APIErrorNotRetried(t *testing.T) {
	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/tokenP", tokenHandler(t, nil))
	mux.HandleFunc("/uapi/domestic-stock/v1/quotations/inquire-price", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rt_cd": "1",
			"msg1":  "invalid stock code",
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "key", "secret", WithRetryDelay(time.Millisecond))
	_, err := client.CurrentPrice(context.Background(), "XXXXXX")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("API error should not retry, got %d calls", calls.Load())
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/tokenP", tokenHandler(t, nil))
	mux.HandleFunc("/uapi/domestic-stock/v1/quotations/inquire-price", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rt_cd": "0",
			"output": map[string]string{
				"stck_prpr": "100", "stck_oprc": "100", "stck_hgpr": "100", "stck_lwpr": "100", "acml_vol": "1",
			},
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "key", "secret", WithRetryDelay(time.Millisecond))
	quote, err := client.CurrentPrice(context.Background(), "005930")
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if quote.Close != 100 {
		t.Errorf("expected close 100, got %f", quote.Close)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClient_ApprovalKey(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/Approval", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode approval request: %v", err)
		}
		if req["secretkey"] != "secret" {
			t.Errorf("expected secretkey field, got %q", req["secretkey"])
		}
		json.NewEncoder(w).Encode(map[string]string{"approval_key": "approval-123"})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")
	key, err := client.ApprovalKey(context.Background())
	if err != nil {
		t.Fatalf("ApprovalKey: %v", err)
	}
	if key != "approval-123" {
		t.Errorf("expected approval-123, got %s", key)
	}
}
