// internal/search/indexer.go

// Package search publishes screened candidates to Elasticsearch so operators
// can query them outside the pipeline. Indexing is best effort.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"hireflow/internal/common/logger"
	"hireflow/internal/models"
)

var ErrIndexFailed = errors.New("CANDIDATE_INDEX_FAILED")

// candidateDocument is the flattened shape stored in the index.
type candidateDocument struct {
	SubjectID     string   `json:"subject_id"`
	ApplicationID string   `json:"application_id"`
	ResumeID      string   `json:"resume_id"`
	TargetID      string   `json:"target_id"`
	FirstName     string   `json:"first_name,omitempty"`
	LastName      string   `json:"last_name,omitempty"`
	Email         string   `json:"email,omitempty"`
	SortingStatus string   `json:"sorting_status"`
	Score         float64  `json:"score"`
	Verdict       string   `json:"verdict,omitempty"`
	Strengths     []string `json:"strengths,omitempty"`
	Concerns      []string `json:"concerns,omitempty"`
	EvaluatedAt   string   `json:"evaluated_at,omitempty"`
}

type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search"}),
	}
}

// IndexCandidate upserts one screened application, keyed by application ID
// so re-indexing after a retry overwrites rather than duplicates.
func (i *Indexer) IndexCandidate(ctx context.Context, subjectID string, app models.ApplicationRecord) error {
	doc := candidateDocument{
		SubjectID:     subjectID,
		ApplicationID: app.ID,
		ResumeID:      app.ResumeID,
		TargetID:      app.TargetID,
		FirstName:     app.FirstName,
		LastName:      app.LastName,
		Email:         app.Email,
		SortingStatus: string(app.SortingStatus),
	}
	if app.Analysis != nil {
		doc.Score = app.Analysis.FinalScore
		doc.Verdict = app.Analysis.Verdict
		doc.Strengths = app.Analysis.Strengths
		doc.Concerns = app.Analysis.Concerns
		doc.EvaluatedAt = app.Analysis.EvaluatedAt
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: app.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: index returned %s", ErrIndexFailed, res.Status())
	}

	i.logger.Debug("candidate indexed", map[string]interface{}{
		"applicationId": app.ID,
		"index":         i.index,
	})
	return nil
}
