package turnstile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newSiteverify(t *testing.T, status int, success bool) (*Verifier, *verifyRequest) {
	t.Helper()
	var got verifyRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(verifyResponse{Success: success, ErrorCodes: []string{"invalid-input-response"}})
	}))
	t.Cleanup(ts.Close)

	v := New("secret")
	v.Endpoint = ts.URL
	return v, &got
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		success bool
		want    bool
		wantErr bool
	}{
		{name: "accepted", status: http.StatusOK, success: true, want: true},
		{name: "rejected", status: http.StatusOK, success: false, want: false},
		{name: "upstream error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, req := newSiteverify(t, tt.status, tt.success)

			ok, err := v.Verify(context.Background(), "widget-token", "10.0.0.1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tt.wantErr)
			}
			if ok != tt.want {
				t.Fatalf("ok=%v, want %v", ok, tt.want)
			}
			if req.Secret != "secret" || req.Response != "widget-token" || req.RemoteIP != "10.0.0.1" {
				t.Fatalf("request=%+v", *req)
			}
		})
	}
}

func TestVerifyTestSecretSkipsRequest(t *testing.T) {
	v := New(TestSecret)
	v.Endpoint = "http://127.0.0.1:1"

	ok, err := v.Verify(context.Background(), "anything", "")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v, want true", ok, err)
	}
}

func TestVerifyUnreachable(t *testing.T) {
	v := New("secret")
	v.Endpoint = "http://127.0.0.1:1"

	if ok, err := v.Verify(context.Background(), "token", ""); err == nil || ok {
		t.Fatalf("ok=%v err=%v, want error", ok, err)
	}
}
