// Package ahjo talks to the municipal case management system: OAuth token
// lifecycle, the authenticated endpoint family, and payload construction.
package ahjo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/config"
	stderrors "github.com/City-of-Helsinki/yjdh-sub002/internal/common/errors"
	commonhttp "github.com/City-of-Helsinki/yjdh-sub002/internal/common/http"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/metrics"
)

// tokenExpiryMargin is subtracted from the reported lifetime so a token is
// never presented to the upstream within seconds of expiring.
const tokenExpiryMargin = 60 * time.Second

// TokenResponse holds the response from the OAuth token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// TokenManager caches the case system access token and renews it via the
// refresh-token grant. The refresh token rotates on every renewal, so the
// manager holds the current one and a mutex keeps renewals serialized.
type TokenManager struct {
	mu           sync.Mutex
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string
	accessToken  string
	tokenExpiry  time.Time
	httpClient   *commonhttp.Client
	log          logger.Logger
}

func NewTokenManager(cfg config.AhjoConfig, log logger.Logger) *TokenManager {
	return &TokenManager{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		refreshToken: cfg.RefreshToken,
		httpClient:   commonhttp.NewClient(30 * time.Second),
		log:          log,
	}
}

// Acquire returns a valid access token, fetching a fresh one when the
// cached token is absent or expired. Callers treat an error here as a
// signal to skip the whole dispatch cycle.
func (m *TokenManager) Acquire(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && m.tokenExpiry.After(time.Now()) {
		return m.accessToken, nil
	}
	if err := m.renew(ctx); err != nil {
		return "", err
	}
	return m.accessToken, nil
}

// Refresh proactively renews the token regardless of remaining lifetime.
// The scheduler calls this hourly so the dispatch path almost never pays
// the renewal round trip.
func (m *TokenManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renew(ctx)
}

// renew performs the refresh-token grant. Caller holds the mutex.
func (m *TokenManager) renew(ctx context.Context) error {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", m.clientID)
	data.Set("client_secret", m.clientSecret)
	data.Set("refresh_token", m.refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return stderrors.NewTokenAcquisitionError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return stderrors.NewTokenAcquisitionError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return stderrors.NewTokenAcquisitionError(
			fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body)))
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return stderrors.NewTokenAcquisitionError(err)
	}
	if tr.AccessToken == "" {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return stderrors.NewTokenAcquisitionError(fmt.Errorf("token endpoint returned empty access token"))
	}

	m.accessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		m.refreshToken = tr.RefreshToken
	}
	// A non-positive effective lifetime means the token is already inside
	// the margin and the next Acquire renews again.
	lifetime := time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryMargin
	m.tokenExpiry = time.Now().Add(lifetime)

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	m.log.Debug("access token renewed", map[string]interface{}{
		"expires_at": m.tokenExpiry.Format(time.RFC3339),
	})
	return nil
}
