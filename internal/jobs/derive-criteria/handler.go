// internal/jobs/derive-criteria/handler.go
package derivecriteria

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
	JobKind = "derive-criteria"
)

var (
	ErrCriteriaDerivationFailed = errors.New("CRITERIA_DERIVATION_FAILED")
	ErrTargetChanged            = errors.New("TARGET_CHANGED")
)

// CriteriaDeriver turns a target description into sourcing criteria.
type CriteriaDeriver interface {
	DeriveCriteria(ctx context.Context, description string) ([]string, error)
}

type Handler struct {
	config   *Config
	subjects *statestore.Subjects
	deriver  CriteriaDeriver
	logger   logger.Logger
}

func NewHandler(config *Config, subjects *statestore.Subjects, deriver CriteriaDeriver, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		subjects: subjects,
		deriver:  deriver,
		logger:   log.WithFields(map[string]interface{}{"jobKind": JobKind}),
	}
}

// NewJob builds the queued unit of work for one subject, snapshotting the
// inputs so execution never re-reads mutable state.
func (h *Handler) NewJob(rec *models.SubjectRecord) taskqueue.Job {
	input := &Input{
		SubjectID:   rec.ID,
		TargetID:    rec.TargetID,
		Description: rec.TargetDescription,
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

// Execute derives sourcing criteria and writes them back. When the subject
// switched to a different target while the job was queued, nothing is
// written; the record is left exactly as it was.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	criteria, err := h.deriver.DeriveCriteria(ctx, input.Description)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCriteriaDerivationFailed, err)
	}

	_, err = h.subjects.Update(ctx, input.SubjectID, func(r *models.SubjectRecord) error {
		if r.TargetID != input.TargetID {
			return fmt.Errorf("%w: record now targets %s", ErrTargetChanged, r.TargetID)
		}
		if r.CriteriaDerived {
			// A concurrent run already wrote its result; keep it.
			return nil
		}
		r.CriteriaDerived = true
		r.SourcingCriteria = criteria
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("criteria derived", map[string]interface{}{
		"subjectId": input.SubjectID,
		"targetId":  input.TargetID,
		"criteria":  len(criteria),
	})
	return &Output{
		SubjectID: input.SubjectID,
		Criteria:  criteria,
		DerivedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}
