// internal/hrapi/client.go

// Package hrapi talks to the external HR platform: subject profiles, open
// targets, and candidate negotiations.
package hrapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	stderrors "hireflow/internal/common/errors"
	commonhttp "hireflow/internal/common/http"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/validation"
	"hireflow/internal/models"
)

const serviceName = "hr api"

type Client struct {
	baseURL    string
	httpClient *commonhttp.Client
	logger     logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: commonhttp.NewClient(timeout),
		logger:     log.WithFields(map[string]interface{}{"component": "hrapi"}),
	}
}

// Profile fetches the authenticated subject's own profile.
func (c *Client) Profile(ctx context.Context, token string) (map[string]interface{}, error) {
	var profile map[string]interface{}
	if err := c.getJSON(ctx, token, "/me", nil, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// OpenTargets returns the subject's targets that are still accepting
// applications. Closed and archived targets are filtered out here so callers
// only ever see selectable ones.
func (c *Client) OpenTargets(ctx context.Context, token string) ([]models.Target, error) {
	var payload struct {
		Items []struct {
			ID       string                 `json:"id"`
			Name     string                 `json:"name"`
			Archived bool                   `json:"archived"`
			Type     struct{ ID string }    `json:"type"`
			Raw      map[string]interface{} `json:"-"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, token, "/targets", url.Values{"manager": {"me"}}, &payload); err != nil {
		return nil, err
	}

	targets := make([]models.Target, 0, len(payload.Items))
	for _, item := range payload.Items {
		open := !item.Archived && item.Type.ID != "closed"
		if !open {
			continue
		}
		targets = append(targets, models.Target{
			ID:   item.ID,
			Name: item.Name,
			Open: true,
		})
	}
	return targets, nil
}

// TargetDescription fetches the full posting text for one target.
func (c *Client) TargetDescription(ctx context.Context, token, targetID string) (string, error) {
	var payload struct {
		Description string `json:"description"`
	}
	if err := c.getJSON(ctx, token, "/targets/"+targetID, nil, &payload); err != nil {
		return "", err
	}
	if payload.Description == "" {
		return "", stderrors.NewValidationFailedError(fmt.Sprintf("target %s has no description", targetID))
	}
	return payload.Description, nil
}

// negotiationSchema gates what a listed negotiation must carry before the
// pipeline accepts it.
var negotiationSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"id", "resume"},
	"properties": map[string]interface{}{
		"id": map[string]interface{}{"type": "string"},
		"resume": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"id"},
			"properties": map[string]interface{}{
				"id": map[string]interface{}{"type": "string"},
			},
		},
	},
}

// ListNegotiations returns the candidate responses for one target. Entries
// that fail schema validation are logged and dropped rather than poisoning
// the whole batch.
func (c *Client) ListNegotiations(ctx context.Context, token, targetID string) ([]models.Negotiation, error) {
	var payload struct {
		Items []map[string]interface{} `json:"items"`
	}
	if err := c.getJSON(ctx, token, "/negotiations", url.Values{"target_id": {targetID}}, &payload); err != nil {
		return nil, err
	}

	negotiations := make([]models.Negotiation, 0, len(payload.Items))
	for _, item := range payload.Items {
		result, err := validation.Validate(item, negotiationSchema)
		if err != nil {
			return nil, err
		}
		if !result.Valid {
			c.logger.Warn("dropping malformed negotiation", map[string]interface{}{
				"targetId": targetID,
				"errors":   result.ErrorSummary(),
			})
			continue
		}
		negotiations = append(negotiations, decodeNegotiation(item, targetID))
	}
	return negotiations, nil
}

// ChangeNegotiationState moves a negotiation to a new state on the HR
// platform.
func (c *Client) ChangeNegotiationState(ctx context.Context, token, negotiationID, state string) error {
	body, err := json.Marshal(map[string]string{"state": state})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/negotiations/%s/state", c.baseURL, negotiationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stderrors.NewUnavailableError(serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return stderrors.NewUnavailableError(serviceName,
			fmt.Errorf("state change returned %d: %s", resp.StatusCode, string(respBody)))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, token, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stderrors.NewUnavailableError(serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return stderrors.NewNotFoundError(path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return stderrors.NewUnavailableError(serviceName,
			fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return stderrors.NewUnavailableError(serviceName, fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

func decodeNegotiation(item map[string]interface{}, targetID string) models.Negotiation {
	neg := models.Negotiation{
		ID:       stringField(item, "id"),
		TargetID: targetID,
	}
	if resume, ok := item["resume"].(map[string]interface{}); ok {
		neg.ResumeID = stringField(resume, "id")
		neg.FirstName = stringField(resume, "first_name")
		neg.LastName = stringField(resume, "last_name")
		neg.Resume = resume
		if contact, ok := resume["contact"].(map[string]interface{}); ok {
			neg.Phone = stringField(contact, "phone")
			neg.Email = stringField(contact, "email")
		}
	}
	return neg
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
