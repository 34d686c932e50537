// internal/workflow/status.go
package workflow

import (
	"context"

	"hireflow/internal/models"
)

// SubjectStatus is the aggregate "where am I" view for one subject,
// built from the stage preconditions over a single fresh record fetch.
type SubjectStatus struct {
	SubjectID         string         `json:"subjectId"`
	Stages            map[Stage]bool `json:"stages"`
	ReadyForScreening bool           `json:"readyForScreening"`
	TargetName        string         `json:"targetName,omitempty"`
	Applications      int            `json:"applications"`
	Passed            int            `json:"passed"`
	Failed            int            `json:"failed"`
	Recommended       int            `json:"recommended"`
}

// Status reports the completion state of every funnel stage for one subject.
func (e *Engine) Status(ctx context.Context, subjectID string) (*SubjectStatus, error) {
	rec, err := e.subjects.Get(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	status := &SubjectStatus{
		SubjectID:         subjectID,
		Stages:            make(map[Stage]bool, len(StageOrder)),
		ReadyForScreening: ReadyForScreening(rec),
		TargetName:        rec.TargetName,
		Applications:      len(rec.Applications),
	}
	for _, stage := range StageOrder {
		status.Stages[stage] = StageDone(rec, stage)
	}
	for _, app := range rec.Applications {
		switch app.SortingStatus {
		case models.SortingPassed:
			status.Passed++
		case models.SortingFailed:
			status.Failed++
		}
		if app.Recommended {
			status.Recommended++
		}
	}
	return status, nil
}
