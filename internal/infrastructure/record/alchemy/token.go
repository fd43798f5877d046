package alchemy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// tokenManager caches the tenant bearer token and refreshes it through the
// refresh-token endpoint when it is within 5 minutes of expiry.
type tokenManager struct {
	baseURL      string
	tenant       string
	refreshToken string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	now         func() time.Time
}

func newTokenManager(baseURL, tenant, refreshToken string, httpClient *http.Client) *tokenManager {
	return &tokenManager{
		baseURL:      strings.TrimRight(baseURL, "/"),
		tenant:       tenant,
		refreshToken: refreshToken,
		httpClient:   httpClient,
		now:          time.Now,
	}
}

func (m *tokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && m.now().Add(5*time.Minute).Before(m.expiresAt) {
		return m.accessToken, nil
	}
	if m.refreshToken == "" {
		return "", fmt.Errorf("alchemy refresh token is not configured")
	}

	body, err := json.Marshal(map[string]string{"refreshToken": m.refreshToken})
	if err != nil {
		return "", fmt.Errorf("marshal refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, m.baseURL+"/refresh-token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("alchemy refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("alchemy refresh status: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var payload struct {
		Tokens []struct {
			Tenant      string `json:"tenant"`
			AccessToken string `json:"accessToken"`
			ExpiresIn   int    `json:"expiresIn"`
		} `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}

	for _, token := range payload.Tokens {
		if token.Tenant != m.tenant {
			continue
		}
		expiresIn := token.ExpiresIn
		if expiresIn <= 0 {
			expiresIn = 3600
		}
		m.accessToken = token.AccessToken
		m.expiresAt = m.now().Add(time.Duration(expiresIn) * time.Second)
		return m.accessToken, nil
	}
	return "", fmt.Errorf("tenant %q not present in refresh response", m.tenant)
}
