// internal/jobs/score-application/handler.go
package scoreapplication

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hireflow/internal/common/logger"
	"hireflow/internal/models"
	"hireflow/internal/statestore"
	"hireflow/internal/taskqueue"
)

const (
	JobKind = "score-application"
)

var (
	ErrScoringFailed  = errors.New("APPLICATION_SCORING_FAILED")
	ErrTargetChanged  = errors.New("TARGET_CHANGED")
	ErrAlreadySorted  = errors.New("APPLICATION_ALREADY_SORTED")
	ErrUnknownApplica = errors.New("APPLICATION_NOT_FOUND")
)

// Scorer evaluates one resume against the derived screening criteria.
type Scorer interface {
	ScoreApplication(ctx context.Context, description string, criteria []string, resume map[string]interface{}) (*models.Analysis, error)
}

// Outreach delivers the video-question request to a passed candidate.
type Outreach interface {
	NotifyCandidate(ctx context.Context, email, phone, message string) error
}

// StateChanger moves the negotiation forward in the external HR system.
type StateChanger interface {
	ChangeNegotiationState(ctx context.Context, token, negotiationID, state string) error
}

// Indexer publishes the screened candidate for later search.
type Indexer interface {
	IndexCandidate(ctx context.Context, subjectID string, app models.ApplicationRecord) error
}

type Handler struct {
	config   *Config
	subjects *statestore.Subjects
	scorer   Scorer
	outreach Outreach
	hr       StateChanger
	indexer  Indexer
	logger   logger.Logger
}

func NewHandler(config *Config, subjects *statestore.Subjects, scorer Scorer, outreach Outreach, hr StateChanger, indexer Indexer, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		subjects: subjects,
		scorer:   scorer,
		outreach: outreach,
		hr:       hr,
		indexer:  indexer,
		logger:   log.WithFields(map[string]interface{}{"jobKind": JobKind}),
	}
}

// NewJob builds the queued unit of work for one application, snapshotting
// the inputs at enqueue time.
func (h *Handler) NewJob(rec *models.SubjectRecord, app models.ApplicationRecord) taskqueue.Job {
	input := &Input{
		SubjectID:     rec.ID,
		ApplicationID: app.ID,
		ResumeID:      app.ResumeID,
		TargetID:      rec.TargetID,
		Description:   rec.TargetDescription,
		Criteria:      append([]string(nil), rec.SourcingCriteria...),
		Email:         app.Email,
		Phone:         app.Phone,
		FirstName:     app.FirstName,
		Resume:        app.Resume,
		AccessToken:   rec.AccessToken,
	}
	return taskqueue.Job{
		ID:   fmt.Sprintf("%s_%s_%s", JobKind, input.SubjectID, input.ApplicationID),
		Kind: JobKind,
		Run: func(ctx context.Context) error {
			_, err := h.Execute(ctx, input)
			return err
		},
	}
}

// Execute scores the application and records the one-shot verdict. The
// verdict write happens before any follow-up delivery: a candidate is never
// contacted about an application the record does not show as passed. The
// follow-ups themselves (outreach, HR state change, search indexing) are
// best-effort and logged on failure; the outreach flag stays false until a
// delivery actually succeeds, so the next sweep retries it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	analysis, err := h.scorer.ScoreApplication(ctx, input.Description, input.Criteria, input.Resume)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoringFailed, err)
	}
	passed := analysis.FinalScore >= h.config.PassingScore

	var app models.ApplicationRecord
	_, err = h.subjects.Update(ctx, input.SubjectID, func(r *models.SubjectRecord) error {
		if r.TargetID != input.TargetID {
			return fmt.Errorf("%w: record now targets %s", ErrTargetChanged, r.TargetID)
		}
		stored, exists := r.Applications[input.ApplicationID]
		if !exists {
			return fmt.Errorf("%w: %s", ErrUnknownApplica, input.ApplicationID)
		}
		if stored.SortingStatus != models.SortingNew {
			return fmt.Errorf("%w: %s is %s", ErrAlreadySorted, input.ApplicationID, stored.SortingStatus)
		}
		if err := r.ApplySorting(input.ApplicationID, analysis, passed); err != nil {
			return err
		}
		app = r.Applications[input.ApplicationID]
		return nil
	})
	if err != nil {
		// A concurrent run already recorded a verdict. The first verdict
		// stands and this run has nothing left to do.
		if errors.Is(err, ErrAlreadySorted) {
			h.logger.Info("application already sorted, skipping", map[string]interface{}{
				"subjectId":     input.SubjectID,
				"applicationId": input.ApplicationID,
			})
			return &Output{SubjectID: input.SubjectID, ApplicationID: input.ApplicationID, Skipped: true}, nil
		}
		return nil, err
	}

	h.logger.Info("application scored", map[string]interface{}{
		"subjectId":     input.SubjectID,
		"applicationId": input.ApplicationID,
		"score":         analysis.FinalScore,
		"passed":        passed,
	})

	output := &Output{
		SubjectID:     input.SubjectID,
		ApplicationID: input.ApplicationID,
		Score:         analysis.FinalScore,
		Passed:        passed,
	}
	if passed {
		output.OutreachSent = h.sendOutreach(ctx, input)
		h.changeNegotiationState(ctx, input)
	}
	h.indexCandidate(ctx, input.SubjectID, app)
	return output, nil
}

func (h *Handler) sendOutreach(ctx context.Context, input *Input) bool {
	if h.outreach == nil {
		return false
	}
	message := outreachMessage(input.FirstName)
	if err := h.outreach.NotifyCandidate(ctx, input.Email, input.Phone, message); err != nil {
		h.logger.Warn("candidate outreach failed, will retry on next sweep", map[string]interface{}{
			"subjectId":     input.SubjectID,
			"applicationId": input.ApplicationID,
			"error":         err.Error(),
		})
		return false
	}
	_, err := h.subjects.Update(ctx, input.SubjectID, func(r *models.SubjectRecord) error {
		return r.MarkOutreachSent(input.ApplicationID)
	})
	if err != nil {
		h.logger.Error("failed to record outreach delivery", map[string]interface{}{
			"subjectId":     input.SubjectID,
			"applicationId": input.ApplicationID,
			"error":         err.Error(),
		})
		return false
	}
	return true
}

func (h *Handler) changeNegotiationState(ctx context.Context, input *Input) {
	if h.hr == nil {
		return
	}
	if err := h.hr.ChangeNegotiationState(ctx, input.AccessToken, input.ApplicationID, h.config.PassedState); err != nil {
		h.logger.Warn("negotiation state change failed", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"state":         h.config.PassedState,
			"error":         err.Error(),
		})
	}
}

func (h *Handler) indexCandidate(ctx context.Context, subjectID string, app models.ApplicationRecord) {
	if h.indexer == nil {
		return
	}
	if err := h.indexer.IndexCandidate(ctx, subjectID, app); err != nil {
		h.logger.Warn("candidate indexing failed", map[string]interface{}{
			"subjectId":     subjectID,
			"applicationId": app.ID,
			"error":         err.Error(),
		})
	}
}

func outreachMessage(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"Hi %s! Your application made it through our initial screening. "+
			"Please record a short video (up to 60 seconds) telling us why "+
			"this role is a great fit for you.", name)
}
