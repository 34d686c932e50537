// internal/workflow/applications.go
package workflow

import (
	"context"
	"fmt"

	"hireflow/internal/models"
)

// VideoSource reports candidate videos that have arrived out of band.
type VideoSource interface {
	FreshVideos(ctx context.Context, subjectID string) (map[string]string, error) // appID -> path
}

// RefreshVideos marks video-received for every application whose video has
// arrived. Already-marked applications are skipped, so repeated refreshes are
// safe. Returns the number of newly marked applications.
func (e *Engine) RefreshVideos(ctx context.Context, subjectID string, videos VideoSource) (int, error) {
	fresh, err := videos.FreshVideos(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	marked := 0
	_, err = e.updateWithRetry(ctx, subjectID, func(r *models.SubjectRecord) error {
		marked = 0
		for appID, path := range fresh {
			app, exists := r.Applications[appID]
			if !exists || app.VideoReceived {
				continue
			}
			if err := r.MarkVideoReceived(appID, path); err != nil {
				return err
			}
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// RecommendCandidates delivers every screened candidate that passed and sent
// a video but has not been recommended yet. The recommended flag is set only
// after the notification succeeds, so a failed delivery is retried by the
// next sweep. Returns the number of candidates recommended.
func (e *Engine) RecommendCandidates(ctx context.Context, subjectID string) (int, error) {
	rec, err := e.subjects.Get(ctx, subjectID)
	if err != nil {
		return 0, err
	}

	recommended := 0
	for _, appID := range rec.ApplicationOrder {
		app, exists := rec.Applications[appID]
		if !exists {
			continue
		}
		if app.SortingStatus != models.SortingPassed || !app.VideoReceived || app.Recommended {
			continue
		}

		message := recommendationMessage(app)
		if err := e.notifier.NotifySubject(ctx, subjectID, message); err != nil {
			e.logger.Warn("recommendation delivery failed", map[string]interface{}{
				"subjectId":     subjectID,
				"applicationId": appID,
				"error":         err.Error(),
			})
			continue
		}

		if _, err := e.updateWithRetry(ctx, subjectID, func(r *models.SubjectRecord) error {
			return r.MarkRecommended(appID)
		}); err != nil {
			return recommended, err
		}
		recommended++
	}
	return recommended, nil
}

// InviteToInterview records the subject's decision to move a recommended
// candidate forward and alerts the operator with the contact details.
func (e *Engine) InviteToInterview(ctx context.Context, subjectID, appID string) error {
	rec, err := e.subjects.Get(ctx, subjectID)
	if err != nil {
		return err
	}

	app, exists := rec.Applications[appID]
	if !exists {
		return fmt.Errorf("application %s not found for subject %s", appID, subjectID)
	}

	if _, err := e.updateWithRetry(ctx, subjectID, func(r *models.SubjectRecord) error {
		return r.MarkAccepted(appID)
	}); err != nil {
		return err
	}

	e.notifyOperator(ctx, fmt.Sprintf(
		"subject %s invited %s %s to an interview (phone: %s, email: %s, target: %s)",
		subjectID, app.FirstName, app.LastName, app.Phone, app.Email, rec.TargetName,
	))
	return nil
}

func recommendationMessage(app models.ApplicationRecord) string {
	score := 0.0
	if app.Analysis != nil {
		score = app.Analysis.FinalScore
	}
	return fmt.Sprintf(
		"Recommended candidate: %s %s (score %.1f). Contact: %s / %s. Video: %s",
		app.FirstName, app.LastName, score, app.Phone, app.Email, app.VideoPath,
	)
}
