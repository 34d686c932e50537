// internal/orchestrator/sweep_test.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireflow/internal/common/logger"
	"hireflow/internal/models"
	"hireflow/internal/statestore"
	"hireflow/internal/taskqueue"
	"hireflow/internal/workflow"
)

type stubNotifier struct {
	subjectMessages []string
	operatorAlerts  []string
	subjectErr      error
}

func (s *stubNotifier) NotifySubject(ctx context.Context, subjectID, message string) error {
	if s.subjectErr != nil {
		return s.subjectErr
	}
	s.subjectMessages = append(s.subjectMessages, message)
	return nil
}

func (s *stubNotifier) NotifyOperator(ctx context.Context, message string) error {
	s.operatorAlerts = append(s.operatorAlerts, message)
	return nil
}

type stubVideos struct {
	videos map[string]map[string]string // subjectID -> appID -> path
	err    error
}

func (s *stubVideos) FreshVideos(ctx context.Context, subjectID string) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.videos[subjectID], nil
}

type fixture struct {
	subjects *statestore.Subjects
	queue    *taskqueue.Queue
	notifier *stubNotifier
	videos   *stubVideos
	orch     *Orchestrator
}

func newFixture(t *testing.T, capacity int, scoreJob ScoreJobBuilder) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewTestLogger(t)
	subjects := statestore.NewSubjects(statestore.New(client, "subject:", log))
	queue := taskqueue.New(capacity, 1, time.Minute, log)
	notifier := &stubNotifier{}
	videos := &stubVideos{videos: map[string]map[string]string{}}

	engineConfig := &workflow.Config{
		AuthPoll:        workflow.NewRetryPolicy(1, 0),
		UpdateRetry:     workflow.NewRetryPolicy(3, 0),
		MaxVideoSeconds: 60,
		MaxVideoBytes:   50 << 20,
	}
	jobs := workflow.StageJobs{
		DiscoverApplications: func(rec *models.SubjectRecord) taskqueue.Job {
			return taskqueue.Job{
				ID:   "discover-applications_" + rec.ID,
				Kind: "discover-applications",
				Run:  func(ctx context.Context) error { return nil },
			}
		},
	}
	engine := workflow.NewEngine(engineConfig, subjects, queue, nil, nil, notifier, nil, jobs, log)

	if scoreJob == nil {
		scoreJob = func(rec *models.SubjectRecord, app models.ApplicationRecord) taskqueue.Job {
			return taskqueue.Job{
				ID:   fmt.Sprintf("score-application_%s_%s", rec.ID, app.ID),
				Kind: "score-application",
				Run:  func(ctx context.Context) error { return nil },
			}
		}
	}

	return &fixture{
		subjects: subjects,
		queue:    queue,
		notifier: notifier,
		videos:   videos,
		orch:     New(engine, queue, videos, scoreJob, log),
	}
}

func (f *fixture) createSubject(t *testing.T, id string, mutate func(*models.SubjectRecord)) {
	t.Helper()

	rec := models.NewSubjectRecord(id, id, "Test", "Subject", time.Now())
	if mutate != nil {
		mutate(rec)
	}
	created, err := f.subjects.Create(context.Background(), rec)
	require.NoError(t, err)
	require.True(t, created)
}

func readyForSourcing(r *models.SubjectRecord) {
	r.ConsentGiven = true
	r.Authenticated = true
	r.AccessToken = "token"
	r.TargetSelected = true
	r.TargetID = "vac-1"
	r.IntroRecorded = true
	r.IntroVideoPath = "videos/intro.mp4"
	r.DescriptionFetched = true
	r.TargetDescription = "desc"
	r.CriteriaDerived = true
	r.SourcingCriteria = []string{"go"}
}

func TestSweepSourcing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, nil)

	f.createSubject(t, "ready", readyForSourcing)
	f.createSubject(t, "started", func(r *models.SubjectRecord) {
		readyForSourcing(r)
		r.SourcingStarted = true
	})
	f.createSubject(t, "incomplete", func(r *models.SubjectRecord) {
		r.ConsentGiven = true
	})

	report, err := f.orch.Sweep(ctx, SweepSourcing)
	require.NoError(t, err)
	assert.Equal(t, &Report{Kind: SweepSourcing, Eligible: 1, Processed: 1, Skipped: 2}, report)
	assert.Equal(t, 1, f.queue.Depth())
}

func TestSweepSourcingIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	// Capacity 1: the second eligible subject's enqueue is rejected.
	f := newFixture(t, 1, nil)

	f.createSubject(t, "first", readyForSourcing)
	f.createSubject(t, "second", readyForSourcing)

	report, err := f.orch.Sweep(ctx, SweepSourcing)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Eligible)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 1, f.queue.Depth())
}

func TestSweepScoreApplications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, nil)

	f.createSubject(t, "pending", func(r *models.SubjectRecord) {
		readyForSourcing(r)
		r.SourcingStarted = true
		r.AddApplication(models.ApplicationRecord{ID: "neg-1", TargetID: "vac-1", SortingStatus: models.SortingNew})
		r.AddApplication(models.ApplicationRecord{ID: "neg-2", TargetID: "vac-1", SortingStatus: models.SortingNew})
		r.AddApplication(models.ApplicationRecord{ID: "neg-3", TargetID: "vac-1", SortingStatus: models.SortingFailed})
	})
	f.createSubject(t, "all-sorted", func(r *models.SubjectRecord) {
		readyForSourcing(r)
		r.SourcingStarted = true
		r.AddApplication(models.ApplicationRecord{ID: "neg-4", TargetID: "vac-1", SortingStatus: models.SortingPassed})
	})

	report, err := f.orch.Sweep(ctx, SweepScoreApplications)
	require.NoError(t, err)
	assert.Equal(t, &Report{Kind: SweepScoreApplications, Eligible: 1, Processed: 1, Skipped: 1}, report)
	assert.Equal(t, 2, f.queue.Depth(), "one job per unsorted application")
}

func TestSweepScoreApplicationsContainsPanics(t *testing.T) {
	ctx := context.Background()
	scoreJob := func(rec *models.SubjectRecord, app models.ApplicationRecord) taskqueue.Job {
		if rec.ID == "poisoned" {
			panic("bad record")
		}
		return taskqueue.Job{ID: "ok", Kind: "score-application", Run: func(ctx context.Context) error { return nil }}
	}
	f := newFixture(t, 10, scoreJob)

	f.createSubject(t, "poisoned", func(r *models.SubjectRecord) {
		readyForSourcing(r)
		r.AddApplication(models.ApplicationRecord{ID: "neg-1", SortingStatus: models.SortingNew})
	})
	f.createSubject(t, "healthy", func(r *models.SubjectRecord) {
		readyForSourcing(r)
		r.AddApplication(models.ApplicationRecord{ID: "neg-2", SortingStatus: models.SortingNew})
	})

	report, err := f.orch.Sweep(ctx, SweepScoreApplications)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Eligible)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, f.queue.Depth())
}

func TestSweepRefreshVideos(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, nil)

	f.createSubject(t, "waiting", func(r *models.SubjectRecord) {
		readyForSourcing(r)
		r.AddApplication(models.ApplicationRecord{ID: "neg-1", SortingStatus: models.SortingPassed, OutreachSent: true})
	})
	f.createSubject(t, "nothing-pending", func(r *models.SubjectRecord) {
		readyForSourcing(r)
		r.AddApplication(models.ApplicationRecord{ID: "neg-2", SortingStatus: models.SortingFailed})
	})
	f.videos.videos["waiting"] = map[string]string{"neg-1": "videos/neg-1.mp4"}

	report, err := f.orch.Sweep(ctx, SweepRefreshVideos)
	require.NoError(t, err)
	assert.Equal(t, &Report{Kind: SweepRefreshVideos, Eligible: 1, Processed: 1, Skipped: 1}, report)

	stored, err := f.subjects.Get(ctx, "waiting")
	require.NoError(t, err)
	app := stored.Applications["neg-1"]
	assert.True(t, app.VideoReceived)
	assert.Equal(t, "videos/neg-1.mp4", app.VideoPath)
}

func TestSweepRefreshVideosSourceFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, nil)

	f.createSubject(t, "waiting", func(r *models.SubjectRecord) {
		readyForSourcing(r)
		r.AddApplication(models.ApplicationRecord{ID: "neg-1", SortingStatus: models.SortingPassed})
	})
	f.videos.err = errors.New("media store down")

	report, err := f.orch.Sweep(ctx, SweepRefreshVideos)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Eligible)
	assert.Equal(t, 0, report.Processed)
}

func TestSweepRecommendCandidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, nil)

	f.createSubject(t, "has-finalist", func(r *models.SubjectRecord) {
		readyForSourcing(r)
		r.AddApplication(models.ApplicationRecord{
			ID:            "neg-1",
			FirstName:     "Ada",
			LastName:      "Byron",
			SortingStatus: models.SortingPassed,
			VideoReceived: true,
			VideoPath:     "videos/neg-1.mp4",
			Analysis:      &models.Analysis{FinalScore: 88},
		})
	})
	f.createSubject(t, "already-done", func(r *models.SubjectRecord) {
		readyForSourcing(r)
		r.AddApplication(models.ApplicationRecord{
			ID:            "neg-2",
			SortingStatus: models.SortingPassed,
			VideoReceived: true,
			Recommended:   true,
		})
	})

	report, err := f.orch.Sweep(ctx, SweepRecommendCandidates)
	require.NoError(t, err)
	assert.Equal(t, &Report{Kind: SweepRecommendCandidates, Eligible: 1, Processed: 1, Skipped: 1}, report)
	require.Len(t, f.notifier.subjectMessages, 1)
	assert.Contains(t, f.notifier.subjectMessages[0], "Ada Byron")

	stored, err := f.subjects.Get(ctx, "has-finalist")
	require.NoError(t, err)
	assert.True(t, stored.Applications["neg-1"].Recommended)
}

func TestSweepUnknownKind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, nil)
	f.createSubject(t, "rep-1", nil)

	report, err := f.orch.Sweep(ctx, Kind("nonsense"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 1, report.Eligible, "unknown kinds surface as failures, not silent skips")
}
