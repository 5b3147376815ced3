package puckdump

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Yahoo Fantasy Sports v2 API root.
	DefaultBaseURL   = "https://fantasysports.yahooapis.com/fantasy/v2"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 3 // requests per second

	maxResponseBytes = 16 << 20
)

// APIError represents a non-2xx response from the fantasy API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Client issues rate-limited, authenticated GET requests against the fantasy
// API. The http.Client it is given carries the bearer token and the
// 401-refresh hook; this type only handles endpoints and throttling.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets the API root (tests point this at a local server).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the request rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a fantasy API client on top of an authenticated
// http.Client.
func NewClient(httpClient *http.Client, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: httpClient,
		logger:     zap.NewNop(),
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches an endpoint (path after the API root, no leading slash
// required) and returns the raw JSON body. format=json is always requested.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("format", "json")

	endpoint = strings.TrimPrefix(endpoint, "/")
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fantasy API request", zap.String("endpoint", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg, Endpoint: endpoint}
	}
	return body, nil
}

// Endpoint wrappers. League keys are "<game>.l.<id>", team keys
// "<game>.l.<id>.t.<n>".

func (c *Client) UserGames(ctx context.Context) ([]byte, error) {
	return c.Get(ctx, "users;use_login=1/games", nil)
}

func (c *Client) UserLeagues(ctx context.Context, gameKey string) ([]byte, error) {
	return c.Get(ctx, fmt.Sprintf("users;use_login=1/games;game_keys=%s/leagues", gameKey), nil)
}

func (c *Client) LeagueMeta(ctx context.Context, leagueKey string) ([]byte, error) {
	return c.Get(ctx, fmt.Sprintf("league/%s/metadata", leagueKey), nil)
}

func (c *Client) LeagueSettings(ctx context.Context, leagueKey string) ([]byte, error) {
	return c.Get(ctx, fmt.Sprintf("league/%s/settings", leagueKey), nil)
}

func (c *Client) LeagueTeams(ctx context.Context, leagueKey string) ([]byte, error) {
	return c.Get(ctx, fmt.Sprintf("league/%s/teams", leagueKey), nil)
}

func (c *Client) Scoreboard(ctx context.Context, leagueKey string, week int) ([]byte, error) {
	return c.Get(ctx, fmt.Sprintf("league/%s/scoreboard;week=%d", leagueKey, week), nil)
}

func (c *Client) DraftResults(ctx context.Context, leagueKey string) ([]byte, error) {
	return c.Get(ctx, fmt.Sprintf("league/%s/draftresults", leagueKey), nil)
}

// Transactions fetches a page of the transaction log. types is a
// comma-separated filter like "add,drop,trade" and may be empty.
func (c *Client) Transactions(ctx context.Context, leagueKey, types string, start, count int) ([]byte, error) {
	endpoint := fmt.Sprintf("league/%s/transactions", leagueKey)
	if types != "" {
		endpoint += ";types=" + types
	}
	endpoint += fmt.Sprintf(";start=%d;count=%d", start, count)
	return c.Get(ctx, endpoint, nil)
}

// LeaguePlayers fetches one 25-player page of the league player pool.
// status filters by availability (A, FA, W, T) and may be empty.
func (c *Client) LeaguePlayers(ctx context.Context, leagueKey, status string, start int) ([]byte, error) {
	endpoint := fmt.Sprintf("league/%s/players", leagueKey)
	if status != "" {
		endpoint += ";status=" + status
	}
	endpoint += fmt.Sprintf(";start=%d;count=%d/stats", start, playersPageSize)
	return c.Get(ctx, endpoint, nil)
}

// TeamRoster fetches a team's roster, optionally on a specific date
// (YYYY-MM-DD).
func (c *Client) TeamRoster(ctx context.Context, teamKey, date string) ([]byte, error) {
	endpoint := fmt.Sprintf("team/%s/roster", teamKey)
	if date != "" {
		endpoint += ";date=" + date
	}
	return c.Get(ctx, endpoint, nil)
}

// LeagueRaw fetches an arbitrary path under league/<key>/, for ad-hoc
// exploration of endpoints the typed wrappers do not cover.
func (c *Client) LeagueRaw(ctx context.Context, leagueKey, path string) ([]byte, error) {
	return c.Get(ctx, fmt.Sprintf("league/%s/%s", leagueKey, strings.TrimPrefix(path, "/")), nil)
}

const playersPageSize = 25
