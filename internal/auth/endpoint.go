package auth

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxTokenBodyBytes bounds how much of a token endpoint response is read,
// both for parsing and for error reporting.
const maxTokenBodyBytes = 1 << 20

type endpointResponse struct {
	status int
	body   string
}

// postTokenEndpoint sends a form-encoded POST to the token endpoint with the
// client credentials carried as HTTP Basic auth. The returned time is taken
// before the request is sent so computed expiries stay conservative.
func postTokenEndpoint(ctx context.Context, client *http.Client, cfg Config, form url.Values) (endpointResponse, time.Time, error) {
	issuedAt := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return endpointResponse{}, issuedAt, err
	}
	req.SetBasicAuth(cfg.ClientID, cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return endpointResponse{}, issuedAt, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBodyBytes))
	if err != nil {
		return endpointResponse{}, issuedAt, err
	}
	return endpointResponse{status: resp.StatusCode, body: strings.TrimSpace(string(body))}, issuedAt, nil
}
