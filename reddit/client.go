// Package reddit is a thin client for the subset of the Reddit API the bot
// needs: OAuth2 "script app" password-grant auth, moderation and content
// mutations, and polling streams over the listing endpoints.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rflying-tower/towerbot/util"
)

const (
	defaultHost      = "https://oauth.reddit.com"
	defaultTokenHost = "https://www.reddit.com"
)

type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string

	// Host and TokenHost override the API and token endpoints (for tests).
	Host      string
	TokenHost string

	// Requests per minute against the API host. Reddit allows 100/min for
	// OAuth clients; leave zero for the default of 60.
	RequestsPerMinute int

	Logger *slog.Logger

	// Client is an HTTP client to use. If not set, defaults to util.RobustHTTPClient().
	Client *http.Client
}

type Client struct {
	client    *http.Client
	host      string
	tokenHost string
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger

	clientID     string
	clientSecret string
	username     string
	password     string

	authMu      sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(config Config) *Client {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := config.Client
	if client == nil {
		client = util.RobustHTTPClient(logger)
	}
	host := config.Host
	if host == "" {
		host = defaultHost
	}
	tokenHost := config.TokenHost
	if tokenHost == "" {
		tokenHost = defaultTokenHost
	}
	rpm := config.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	return &Client{
		client:       client,
		host:         host,
		tokenHost:    tokenHost,
		userAgent:    config.UserAgent,
		limiter:      rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 5),
		logger:       logger.With("subsystem", "reddit"),
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		username:     config.Username,
		password:     config.Password,
	}
}

// A structured error from the Reddit API. ErrorType carries Reddit's
// upper-snake error code ("RATELIMIT", "TOO_LONG", ...) when the API
// returned one, otherwise it is empty and StatusCode is set.
type APIError struct {
	StatusCode int
	ErrorType  string
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("reddit api error: %s: %s", e.ErrorType, e.Message)
	}
	return fmt.Sprintf("reddit api error: HTTP %d: %s", e.StatusCode, e.Message)
}

// Reports whether err is a Reddit RATELIMIT error, the one error class the
// post watcher backs off and retries on.
func IsRateLimit(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.ErrorType == "RATELIMIT"
}

// Reports whether err is any in-band or HTTP-level Reddit API error.
func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// token returns a valid bearer token, fetching a fresh one via the password
// grant when the cached token is missing or close to expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenHost+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "access token request failed"}
	}
	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decoding access token response: %w", err)
	}
	if tok.Error != "" || tok.AccessToken == "" {
		return "", &APIError{StatusCode: resp.StatusCode, ErrorType: tok.Error, Message: "access token request rejected"}
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.logger.Debug("refreshed access token", "expires_in", tok.ExpiresIn)
	return c.accessToken, nil
}

// do performs an authenticated request against the API host. For GETs,
// params go in the query string; for POSTs they are form-encoded. The
// response body, if out is non-nil, is JSON-decoded into out.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	u := c.host + path
	var body io.Reader
	if params == nil {
		params = url.Values{}
	}
	params.Set("raw_json", "1")
	if method == http.MethodGet {
		u = u + "?" + params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}

// jsonEnvelope is the response shape of the older form endpoints when called
// with api_type=json: errors come back as triples inside a 200 response.
type jsonEnvelope struct {
	JSON struct {
		Errors [][]string `json:"errors"`
		Data   struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

func (e *jsonEnvelope) err() error {
	if len(e.JSON.Errors) == 0 {
		return nil
	}
	ae := &APIError{StatusCode: http.StatusOK}
	first := e.JSON.Errors[0]
	if len(first) > 0 {
		ae.ErrorType = first[0]
	}
	if len(first) > 1 {
		ae.Message = first[1]
	}
	if len(first) > 2 {
		ae.Field = first[2]
	}
	return ae
}

// postForm hits a form endpoint with api_type=json and surfaces in-band
// errors as *APIError.
func (c *Client) postForm(ctx context.Context, path string, params url.Values) (*jsonEnvelope, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_type", "json")
	var env jsonEnvelope
	if err := c.do(ctx, http.MethodPost, path, params, &env); err != nil {
		return nil, err
	}
	if err := env.err(); err != nil {
		return nil, err
	}
	return &env, nil
}

// thing is the generic kind/data envelope Reddit wraps everything in.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	Children []thing `json:"children"`
	After    string  `json:"after"`
	Before   string  `json:"before"`
}

type listing struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

func decodeChildren[T any](l *listing, kinds ...string) ([]*T, error) {
	out := make([]*T, 0, len(l.Data.Children))
	for _, ch := range l.Data.Children {
		if len(kinds) > 0 {
			match := false
			for _, k := range kinds {
				if ch.Kind == k {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		var item T
		if err := json.Unmarshal(ch.Data, &item); err != nil {
			return nil, fmt.Errorf("decoding listing child (%s): %w", ch.Kind, err)
		}
		out = append(out, &item)
	}
	return out, nil
}
