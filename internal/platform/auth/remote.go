package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultRemoteTimeout = 5 * time.Second

// RemoteVerifier asks the auth service to validate a token it could not verify locally.
type RemoteVerifier struct {
	baseURL string
	client  *http.Client
}

// NewRemoteVerifier returns nil when baseURL is empty.
func NewRemoteVerifier(baseURL string, timeout time.Duration, client *http.Client) *RemoteVerifier {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	copied := *client
	copied.Timeout = timeout
	return &RemoteVerifier{baseURL: baseURL, client: &copied}
}

type verifyResponse struct {
	Success bool `json:"success"`
	Data    struct {
		User struct {
			ID    string `json:"id"`
			Role  string `json:"role"`
			Email string `json:"email"`
		} `json:"user"`
	} `json:"data"`
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/auth/verify", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("auth: verify returned %d", resp.StatusCode)
	}

	var payload verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("auth: decode verify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !payload.Success || payload.Data.User.ID == "" {
		return nil, ErrTokenRejected
	}
	return &Identity{
		UserID: payload.Data.User.ID,
		Role:   strings.ToLower(strings.TrimSpace(payload.Data.User.Role)),
		Email:  strings.TrimSpace(payload.Data.User.Email),
	}, nil
}
