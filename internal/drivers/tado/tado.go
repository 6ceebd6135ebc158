package tado

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Defaults for the tado° cloud API
const (
	DefaultClientID     = "1bb50063-6b0c-4d11-bd99-387f4a91cc46"
	DefaultTokenURL     = "https://login.tado.com/oauth2/token"
	DefaultBaseURL      = "https://my.tado.com"
	DefaultAuthTimeout  = 10 * time.Second
	DefaultFetchTimeout = 10 * time.Second
)

// Config contains tado° API configuration
type Config struct {
	ClientID     string
	TokenURL     string
	BaseURL      string        // API base URL, without the /api/vN suffix
	AuthTimeout  time.Duration // bound on the token exchange
	FetchTimeout time.Duration // bound on each home/zone request
}

// Driver talks to the tado° cloud. It implements core.Authenticator and core.HomeFetcher.
type Driver struct {
	config     Config
	oauth      *oauth2.Config
	authClient *http.Client
	httpClient *http.Client
	location   *time.Location
	now        func() time.Time
}

// NewDriver creates a new tado° driver. Zero config fields fall back to the defaults.
func NewDriver(config Config) *Driver {
	if config.ClientID == "" {
		config.ClientID = DefaultClientID
	}
	if config.TokenURL == "" {
		config.TokenURL = DefaultTokenURL
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.AuthTimeout <= 0 {
		config.AuthTimeout = DefaultAuthTimeout
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}

	return &Driver{
		config: config,
		oauth: &oauth2.Config{
			ClientID: config.ClientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		authClient: &http.Client{
			Timeout: config.AuthTimeout,
		},
		httpClient: &http.Client{
			Timeout: config.FetchTimeout,
		},
		location: time.Local,
		now:      time.Now,
	}
}

// get performs an authenticated GET against the API and returns the decoded body
func (d *Driver) get(ctx context.Context, accessToken, path string) (node, error) {
	url := d.config.BaseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return node{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return node{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return node{}, fmt.Errorf("failed to read response: %w", err)
	}

	tree, parseErr := parseTree(respBody)
	if parseErr == nil && tree.hasError() {
		return node{}, fmt.Errorf("API returned an error for %s: %s", path, tree.errorMessage())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return node{}, fmt.Errorf("API request %s failed with status %d", path, resp.StatusCode)
	}

	if parseErr != nil {
		return node{}, fmt.Errorf("failed to parse response for %s: %w", path, parseErr)
	}

	return tree, nil
}
