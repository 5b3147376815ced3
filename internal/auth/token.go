package auth

import "time"

// skewMargin is subtracted from server-reported token lifetimes so a request
// started just before expiry is never rejected mid-flight.
const skewMargin = 60 * time.Second

// TokenRecord is the persisted credential for one client profile.
type TokenRecord struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`

	// ExpiresAt is absolute Unix seconds, already skew-adjusted at
	// acquisition time. Never copied verbatim from expires_in.
	ExpiresAt int64 `json:"expires_at"`
}

// Valid reports whether the access token can still be used at now,
// keeping a skew margin clear of the computed expiry.
func (r *TokenRecord) Valid(now time.Time) bool {
	if r == nil || r.AccessToken == "" {
		return false
	}
	return r.ExpiresAt-now.Unix() > int64(skewMargin/time.Second)
}

// tokenResponse is the token endpoint's JSON body for both the
// authorization_code exchange and the refresh_token grant.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// newTokenRecord converts a token endpoint response into a TokenRecord,
// carrying over fields the server chose to omit (a refresh token it did not
// rotate, the previously granted scope).
func newTokenRecord(resp tokenResponse, prev *TokenRecord, issuedAt time.Time) *TokenRecord {
	rec := &TokenRecord{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
		ExpiresAt:    issuedAt.Unix() + resp.ExpiresIn - int64(skewMargin/time.Second),
	}
	if rec.TokenType == "" {
		rec.TokenType = "bearer"
	}
	if prev != nil {
		if rec.RefreshToken == "" {
			rec.RefreshToken = prev.RefreshToken
		}
		if rec.Scope == "" {
			rec.Scope = prev.Scope
		}
	}
	return rec
}

// maskToken masks a token for safe logging, showing only a short prefix.
func maskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}
