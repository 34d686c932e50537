// internal/common/auth/tokens.go

// Package auth checks the HR platform's OAuth authorization status for
// subjects going through the sign-in flow.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	stderrors "hireflow/internal/common/errors"
)

// TokenClient asks the HR platform whether a subject has completed the
// OAuth authorization flow and, once they have, retrieves the issued token.
type TokenClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

type tokenStatusResponse struct {
	Issued      bool   `json:"issued"`
	AccessToken string `json:"access_token,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

func NewTokenClient(baseURL, clientID, clientSecret string, timeout time.Duration) *TokenClient {
	return &TokenClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Status reports whether the subject has authorized the application. When no
// token has been issued yet, it returns issued=false with no error; callers
// poll on their own schedule.
func (c *TokenClient) Status(ctx context.Context, subjectID string) (string, string, bool, error) {
	statusURL := fmt.Sprintf("%s/oauth/status", c.baseURL)

	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("subject_id", subjectID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, statusURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", "", false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", false, stderrors.NewUnavailableError("auth endpoint", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", "", false, stderrors.NewUnavailableError("auth endpoint",
			fmt.Errorf("status request returned %d: %s", resp.StatusCode, string(body)))
	}

	var status tokenStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", "", false, stderrors.NewUnavailableError("auth endpoint", err)
	}

	if !status.Issued {
		return "", "", false, nil
	}

	expiresAt := time.Now().UTC().Add(time.Duration(status.ExpiresIn) * time.Second).Format(time.RFC3339)
	return status.AccessToken, expiresAt, true, nil
}

// AuthorizationURL builds the link a subject follows to grant access.
func (c *TokenClient) AuthorizationURL(subjectID string) string {
	query := url.Values{}
	query.Set("client_id", c.clientID)
	query.Set("state", subjectID)
	query.Set("response_type", "code")
	return fmt.Sprintf("%s/oauth/authorize?%s", c.baseURL, query.Encode())
}
