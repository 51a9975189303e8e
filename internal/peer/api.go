package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// RequestPassphrase asks the relay at server for a fresh room passphrase.
func RequestPassphrase(ctx context.Context, client *http.Client, server string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(server, "/")+"/api/passphrase", nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request passphrase: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Passphrase string `json:"passphrase"`
		Error      string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode passphrase response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request passphrase: %s: %s", resp.Status, body.Error)
	}
	return body.Passphrase, nil
}
