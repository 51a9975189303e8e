package turnstile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

	// Cloudflare's published test keys. The secret always verifies.
	TestSiteKey = "1x00000000000000000000BB"
	TestSecret  = "1x0000000000000000000000000000000AA"
)

type Verifier struct {
	Secret   string
	Endpoint string
	Client   *http.Client
}

func New(secret string) *Verifier {
	return &Verifier{
		Secret:   secret,
		Endpoint: DefaultEndpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type verifyRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
	RemoteIP string `json:"remoteip,omitempty"`
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks a widget token. A false result with a nil error means the
// token was rejected; an error means the check itself could not be made.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if v.Secret == TestSecret {
		zap.L().Debug("turnstile test secret in use, skipping verification")
		return true, nil
	}

	body, err := json.Marshal(verifyRequest{Secret: v.Secret, Response: token, RemoteIP: remoteIP})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("siteverify request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("siteverify returned %s", resp.Status)
	}

	var res verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return false, fmt.Errorf("decode siteverify response: %w", err)
	}
	if !res.Success {
		zap.L().Debug("turnstile token rejected", zap.Strings("codes", res.ErrorCodes))
	}
	return res.Success, nil
}
