package auth

import (
	"context"
	"net/http"
)

type retryMarker struct{}

// retriedKey marks a request context that has already been through the
// refresh-and-retry path, so a second consecutive 401 is surfaced to the
// caller instead of looping against a server that is rejecting the
// credential outright.
var retriedKey retryMarker

// bearerTransport injects the current bearer token and retries exactly once
// after a forced refresh when a live response comes back 401.
type bearerTransport struct {
	base http.RoundTripper
	mgr  *CredentialManager
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec, err := t.mgr.GetValidToken(req.Context())
	if err != nil {
		return nil, err
	}

	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+rec.AccessToken)

	resp, err := t.base.RoundTrip(authed)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if req.Context().Value(retriedKey) != nil {
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		// Cannot replay the body; let the caller see the 401.
		return resp, nil
	}
	resp.Body.Close()

	rec, err = t.mgr.forceToken(req.Context())
	if err != nil {
		return nil, err
	}

	retry := req.Clone(contextWithRetry(req.Context()))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+rec.AccessToken)
	return t.base.RoundTrip(retry)
}

func contextWithRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey, true)
}
