// internal/orchestrator/sweep.go

// Package orchestrator runs bulk sweeps across every stored subject:
// sourcing kick-off, screening, video refresh, and recommendations. A sweep
// never lets one misbehaving subject stop the rest.
package orchestrator

import (
	"context"
	"fmt"

	"hireflow/internal/common/logger"
	"hireflow/internal/common/metrics"
	"hireflow/internal/models"
	"hireflow/internal/statestore"
	"hireflow/internal/taskqueue"
	"hireflow/internal/workflow"
)

type Kind string

const (
	SweepSourcing            Kind = "sourcing"
	SweepScoreApplications   Kind = "score-applications"
	SweepRefreshVideos       Kind = "refresh-videos"
	SweepRecommendCandidates Kind = "recommend-candidates"
)

// Report summarizes one sweep. Eligible subjects that fail are counted in
// Eligible but not in Processed, so Processed <= Eligible always holds.
type Report struct {
	Kind      Kind `json:"kind"`
	Eligible  int  `json:"eligible"`
	Processed int  `json:"processed"`
	Skipped   int  `json:"skipped"`
}

// ScoreJobBuilder builds the screening job for one application.
type ScoreJobBuilder func(rec *models.SubjectRecord, app models.ApplicationRecord) taskqueue.Job

type Orchestrator struct {
	engine   *workflow.Engine
	subjects *statestore.Subjects
	queue    *taskqueue.Queue
	videos   workflow.VideoSource
	scoreJob ScoreJobBuilder
	logger   logger.Logger
}

func New(engine *workflow.Engine, queue *taskqueue.Queue, videos workflow.VideoSource, scoreJob ScoreJobBuilder, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		engine:   engine,
		subjects: engine.Subjects(),
		queue:    queue,
		videos:   videos,
		scoreJob: scoreJob,
		logger:   log.WithFields(map[string]interface{}{"component": "orchestrator"}),
	}
}

// Sweep visits every stored subject and applies the given sweep kind to the
// eligible ones. Errors and panics are contained per subject.
func (o *Orchestrator) Sweep(ctx context.Context, kind Kind) (*Report, error) {
	ids, err := o.subjects.IDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Kind: kind}
	for _, id := range ids {
		eligible, processErr := o.sweepSubject(ctx, kind, id)
		switch {
		case !eligible:
			report.Skipped++
			metrics.SweepSubjects.WithLabelValues(string(kind), "skipped").Inc()
		case processErr != nil:
			report.Eligible++
			metrics.SweepSubjects.WithLabelValues(string(kind), "failed").Inc()
			o.logger.Error("sweep failed for subject", map[string]interface{}{
				"sweepKind": string(kind),
				"subjectId": id,
				"error":     processErr.Error(),
			})
		default:
			report.Eligible++
			report.Processed++
			metrics.SweepSubjects.WithLabelValues(string(kind), "processed").Inc()
		}
	}

	o.logger.Info("sweep finished", map[string]interface{}{
		"sweepKind": string(kind),
		"eligible":  report.Eligible,
		"processed": report.Processed,
		"skipped":   report.Skipped,
	})
	return report, nil
}

func (o *Orchestrator) sweepSubject(ctx context.Context, kind Kind, id string) (eligible bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			eligible = true
			err = fmt.Errorf("panic while sweeping %s: %v", id, r)
		}
	}()

	rec, err := o.subjects.Get(ctx, id)
	if err != nil {
		// A record deleted mid-sweep is not this sweep's problem.
		return false, nil
	}

	switch kind {
	case SweepSourcing:
		return o.sweepSourcing(ctx, rec)
	case SweepScoreApplications:
		return o.sweepScoreApplications(ctx, rec)
	case SweepRefreshVideos:
		return o.sweepRefreshVideos(ctx, rec)
	case SweepRecommendCandidates:
		return o.sweepRecommendCandidates(ctx, rec)
	default:
		return true, fmt.Errorf("unknown sweep kind %q", kind)
	}
}

// sweepSourcing starts application discovery for subjects whose screening
// data is complete but whose sourcing has not begun.
func (o *Orchestrator) sweepSourcing(ctx context.Context, rec *models.SubjectRecord) (bool, error) {
	if !workflow.StagePrecondition(rec, workflow.StageSourcing) || rec.SourcingStarted {
		return false, nil
	}
	_, err := o.engine.Advance(ctx, rec.ID, workflow.StageSourcing, workflow.AdvanceInput{})
	return true, err
}

// sweepScoreApplications enqueues a screening job for every unsorted
// application. Rejected submits are left for the next sweep; they are not a
// subject-level failure.
func (o *Orchestrator) sweepScoreApplications(ctx context.Context, rec *models.SubjectRecord) (bool, error) {
	if !rec.CriteriaDerived {
		return false, nil
	}
	pending := 0
	for _, appID := range rec.ApplicationOrder {
		app := rec.Applications[appID]
		if app.SortingStatus != models.SortingNew {
			continue
		}
		pending++
		if err := o.queue.TrySubmit(o.scoreJob(rec, app)); err != nil {
			o.logger.Warn("screening job rejected, queue full", map[string]interface{}{
				"subjectId":     rec.ID,
				"applicationId": appID,
			})
		}
	}
	if pending == 0 {
		return false, nil
	}
	return true, nil
}

func (o *Orchestrator) sweepRefreshVideos(ctx context.Context, rec *models.SubjectRecord) (bool, error) {
	if !hasApplication(rec, func(a models.ApplicationRecord) bool {
		return a.SortingStatus == models.SortingPassed && !a.VideoReceived
	}) {
		return false, nil
	}
	_, err := o.engine.RefreshVideos(ctx, rec.ID, o.videos)
	return true, err
}

func (o *Orchestrator) sweepRecommendCandidates(ctx context.Context, rec *models.SubjectRecord) (bool, error) {
	if !hasApplication(rec, func(a models.ApplicationRecord) bool {
		return a.SortingStatus == models.SortingPassed && a.VideoReceived && !a.Recommended
	}) {
		return false, nil
	}
	_, err := o.engine.RecommendCandidates(ctx, rec.ID)
	return true, err
}

func hasApplication(rec *models.SubjectRecord, match func(models.ApplicationRecord) bool) bool {
	for _, app := range rec.Applications {
		if match(app) {
			return true
		}
	}
	return false
}
