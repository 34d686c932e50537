// internal/ai/client.go

// Package ai calls the screening model service: deriving selection criteria
// from a posting and scoring resumes against them.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hireflow/internal/common/logger"
	"hireflow/internal/models"
)

var (
	ErrModelTimeout = errors.New("MODEL_TIMEOUT")
	ErrModelFailed  = errors.New("MODEL_REQUEST_FAILED")
)

type Config struct {
	BaseURL    string
	APIKey     string
	MaxRetries int
}

type Client struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		// No client-level timeout: callers bound each request with context.
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{"component": "ai"}),
	}
}

// DeriveCriteria asks the model which selection criteria matter for a
// posting's description.
func (c *Client) DeriveCriteria(ctx context.Context, description string) ([]string, error) {
	request := map[string]interface{}{
		"description": description,
	}

	var response struct {
		Criteria []string `json:"criteria"`
	}
	if err := c.post(ctx, "/api/screening/criteria", request, &response); err != nil {
		return nil, err
	}
	if len(response.Criteria) == 0 {
		return nil, fmt.Errorf("%w: empty criteria response", ErrModelFailed)
	}

	c.logger.Info("criteria derived", map[string]interface{}{"count": len(response.Criteria)})
	return response.Criteria, nil
}

// ScoreApplication evaluates one resume against the posting and criteria.
func (c *Client) ScoreApplication(ctx context.Context, description string, criteria []string, resume map[string]interface{}) (*models.Analysis, error) {
	request := map[string]interface{}{
		"description": description,
		"criteria":    criteria,
		"resume":      resume,
	}

	var response struct {
		Score     float64  `json:"score"`
		Verdict   string   `json:"verdict"`
		Strengths []string `json:"strengths"`
		Concerns  []string `json:"concerns"`
	}
	if err := c.post(ctx, "/api/screening/score", request, &response); err != nil {
		return nil, err
	}

	return &models.Analysis{
		FinalScore:  response.Score,
		Verdict:     response.Verdict,
		Strengths:   response.Strengths,
		Concerns:    response.Concerns,
		EvaluatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, request interface{}, out interface{}) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelFailed, err)
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ErrModelTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewBuffer(body))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrModelFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return ErrModelTimeout
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ErrModelTimeout
		}
		return fmt.Errorf("%w: %v", ErrModelFailed, lastErr)
	}
	if resp == nil {
		return fmt.Errorf("%w: no successful response after retries", ErrModelFailed)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrModelFailed, err)
	}
	return nil
}
