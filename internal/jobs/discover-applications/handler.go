// internal/jobs/discover-applications/handler.go
package discoverapplications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hireflow/internal/common/logger"
	"hireflow/internal/models"
	"hireflow/internal/statestore"
	"hireflow/internal/taskqueue"
)

const (
	JobKind = "discover-applications"
)

var (
	ErrDiscoveryFailed = errors.New("APPLICATION_DISCOVERY_FAILED")
	ErrTargetChanged   = errors.New("TARGET_CHANGED")
)

// NegotiationLister fetches candidate responses for a target from the
// external HR system.
type NegotiationLister interface {
	ListNegotiations(ctx context.Context, token, targetID string) ([]models.Negotiation, error)
}

type Handler struct {
	config   *Config
	subjects *statestore.Subjects
	fetcher  NegotiationLister
	logger   logger.Logger
}

func NewHandler(config *Config, subjects *statestore.Subjects, fetcher NegotiationLister, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		subjects: subjects,
		fetcher:  fetcher,
		logger:   log.WithFields(map[string]interface{}{"jobKind": JobKind}),
	}
}

// NewJob builds the queued unit of work for one subject, snapshotting the
// inputs at enqueue time.
func (h *Handler) NewJob(rec *models.SubjectRecord) taskqueue.Job {
	input := &Input{
		SubjectID:   rec.ID,
		TargetID:    rec.TargetID,
		AccessToken: rec.AccessToken,
	}
	return taskqueue.Job{
		ID:   fmt.Sprintf("%s_%s_%s", JobKind, input.SubjectID, input.TargetID),
		Kind: JobKind,
		Run: func(ctx context.Context) error {
			_, err := h.Execute(ctx, input)
			return err
		},
	}
}

// Execute pulls the current negotiations for the subject's target and
// records every application not seen before. Already-known applications are
// left untouched, so repeated discovery runs are safe.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	negotiations, err := h.fetcher.ListNegotiations(ctx, input.AccessToken, input.TargetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscoveryFailed, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	discovered := 0
	_, err = h.subjects.Update(ctx, input.SubjectID, func(r *models.SubjectRecord) error {
		if r.TargetID != input.TargetID {
			return fmt.Errorf("%w: record now targets %s", ErrTargetChanged, r.TargetID)
		}
		discovered = 0
		for _, neg := range negotiations {
			added := r.AddApplication(models.ApplicationRecord{
				ID:            neg.ID,
				ResumeID:      neg.ResumeID,
				TargetID:      neg.TargetID,
				FirstName:     neg.FirstName,
				LastName:      neg.LastName,
				Phone:         neg.Phone,
				Email:         neg.Email,
				Resume:        neg.Resume,
				DiscoveredAt:  now,
				SortingStatus: models.SortingNew,
			})
			if added {
				discovered++
			}
		}
		r.SourcingStarted = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("applications discovered", map[string]interface{}{
		"subjectId":  input.SubjectID,
		"targetId":   input.TargetID,
		"fetched":    len(negotiations),
		"discovered": discovered,
	})
	return &Output{
		SubjectID:  input.SubjectID,
		Fetched:    len(negotiations),
		Discovered: discovered,
	}, nil
}
