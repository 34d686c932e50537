// internal/jobs/score-application/handler_test.go
package scoreapplication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireflow/internal/common/logger"
	"hireflow/internal/models"
	"hireflow/internal/statestore"
)

type stubScorer struct {
	analysis *models.Analysis
	err      error
}

func (s *stubScorer) ScoreApplication(ctx context.Context, description string, criteria []string, resume map[string]interface{}) (*models.Analysis, error) {
	return s.analysis, s.err
}

type stubOutreach struct {
	err   error
	calls int
	email string
}

func (s *stubOutreach) NotifyCandidate(ctx context.Context, email, phone, message string) error {
	s.calls++
	s.email = email
	return s.err
}

type stubStateChanger struct {
	calls int
	state string
}

func (s *stubStateChanger) ChangeNegotiationState(ctx context.Context, token, negotiationID, state string) error {
	s.calls++
	s.state = state
	return nil
}

type stubIndexer struct {
	calls int
}

func (s *stubIndexer) IndexCandidate(ctx context.Context, subjectID string, app models.ApplicationRecord) error {
	s.calls++
	return nil
}

func newTestSubjects(t *testing.T) *statestore.Subjects {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return statestore.NewSubjects(statestore.New(client, "subject:", logger.NewTestLogger(t)))
}

func createTestSubject(t *testing.T, subjects *statestore.Subjects) *models.SubjectRecord {
	t.Helper()

	rec := models.NewSubjectRecord("rep-1", "rep", "Rita", "Perez", time.Now())
	rec.ConsentGiven = true
	rec.Authenticated = true
	rec.AccessToken = "token-1"
	rec.TargetSelected = true
	rec.TargetID = "vac-1"
	rec.TargetName = "Backend Engineer"
	rec.DescriptionFetched = true
	rec.TargetDescription = "We need a backend engineer."
	rec.CriteriaDerived = true
	rec.SourcingCriteria = []string{"go"}
	rec.AddApplication(models.ApplicationRecord{
		ID:            "neg-1",
		ResumeID:      "resume-1",
		TargetID:      "vac-1",
		FirstName:     "Ada",
		Email:         "ada@example.com",
		SortingStatus: models.SortingNew,
	})

	created, err := subjects.Create(context.Background(), rec)
	require.NoError(t, err)
	require.True(t, created)
	return rec
}

func testConfig() *Config {
	return &Config{PassingScore: 70, PassedState: "video_requested", Timeout: time.Minute}
}

func testInput(rec *models.SubjectRecord) *Input {
	return &Input{
		SubjectID:     rec.ID,
		ApplicationID: "neg-1",
		ResumeID:      "resume-1",
		TargetID:      "vac-1",
		Description:   rec.TargetDescription,
		Criteria:      rec.SourcingCriteria,
		Email:         "ada@example.com",
		FirstName:     "Ada",
		AccessToken:   "token-1",
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("passed application gets verdict, outreach and state change", func(t *testing.T) {
		subjects := newTestSubjects(t)
		rec := createTestSubject(t, subjects)

		scorer := &stubScorer{analysis: &models.Analysis{FinalScore: 85, Verdict: "strong match"}}
		outreach := &stubOutreach{}
		hr := &stubStateChanger{}
		indexer := &stubIndexer{}
		handler := NewHandler(testConfig(), subjects, scorer, outreach, hr, indexer, logger.NewTestLogger(t))

		output, err := handler.Execute(ctx, testInput(rec))
		require.NoError(t, err)
		assert.True(t, output.Passed)
		assert.True(t, output.OutreachSent)

		stored, err := subjects.Get(ctx, rec.ID)
		require.NoError(t, err)
		app := stored.Applications["neg-1"]
		assert.Equal(t, models.SortingPassed, app.SortingStatus)
		assert.Equal(t, 85.0, app.Analysis.FinalScore)
		assert.True(t, app.OutreachSent)

		assert.Equal(t, 1, outreach.calls)
		assert.Equal(t, "ada@example.com", outreach.email)
		assert.Equal(t, 1, hr.calls)
		assert.Equal(t, "video_requested", hr.state)
		assert.Equal(t, 1, indexer.calls)
	})

	t.Run("failed application gets verdict and no outreach", func(t *testing.T) {
		subjects := newTestSubjects(t)
		rec := createTestSubject(t, subjects)

		scorer := &stubScorer{analysis: &models.Analysis{FinalScore: 40}}
		outreach := &stubOutreach{}
		hr := &stubStateChanger{}
		handler := NewHandler(testConfig(), subjects, scorer, outreach, hr, &stubIndexer{}, logger.NewTestLogger(t))

		output, err := handler.Execute(ctx, testInput(rec))
		require.NoError(t, err)
		assert.False(t, output.Passed)

		stored, err := subjects.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SortingFailed, stored.Applications["neg-1"].SortingStatus)
		assert.Zero(t, outreach.calls)
		assert.Zero(t, hr.calls)
	})

	t.Run("scorer failure leaves record unchanged", func(t *testing.T) {
		subjects := newTestSubjects(t)
		rec := createTestSubject(t, subjects)

		scorer := &stubScorer{err: errors.New("model timeout")}
		handler := NewHandler(testConfig(), subjects, scorer, &stubOutreach{}, &stubStateChanger{}, &stubIndexer{}, logger.NewTestLogger(t))

		_, err := handler.Execute(ctx, testInput(rec))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrScoringFailed)

		stored, err := subjects.Get(ctx, rec.ID)
		require.NoError(t, err)
		app := stored.Applications["neg-1"]
		assert.Equal(t, models.SortingNew, app.SortingStatus)
		assert.Nil(t, app.Analysis)
	})

	t.Run("second verdict never overwrites the first", func(t *testing.T) {
		subjects := newTestSubjects(t)
		rec := createTestSubject(t, subjects)

		_, err := subjects.Update(ctx, rec.ID, func(r *models.SubjectRecord) error {
			return r.ApplySorting("neg-1", &models.Analysis{FinalScore: 90}, true)
		})
		require.NoError(t, err)

		scorer := &stubScorer{analysis: &models.Analysis{FinalScore: 10}}
		outreach := &stubOutreach{}
		handler := NewHandler(testConfig(), subjects, scorer, outreach, &stubStateChanger{}, &stubIndexer{}, logger.NewTestLogger(t))

		output, err := handler.Execute(ctx, testInput(rec))
		require.NoError(t, err)
		assert.True(t, output.Skipped)

		stored, err := subjects.Get(ctx, rec.ID)
		require.NoError(t, err)
		app := stored.Applications["neg-1"]
		assert.Equal(t, models.SortingPassed, app.SortingStatus)
		assert.Equal(t, 90.0, app.Analysis.FinalScore)
		assert.Zero(t, outreach.calls)
	})

	t.Run("outreach failure keeps the flag false", func(t *testing.T) {
		subjects := newTestSubjects(t)
		rec := createTestSubject(t, subjects)

		scorer := &stubScorer{analysis: &models.Analysis{FinalScore: 85}}
		outreach := &stubOutreach{err: errors.New("smtp refused")}
		handler := NewHandler(testConfig(), subjects, scorer, outreach, &stubStateChanger{}, &stubIndexer{}, logger.NewTestLogger(t))

		output, err := handler.Execute(ctx, testInput(rec))
		require.NoError(t, err)
		assert.True(t, output.Passed)
		assert.False(t, output.OutreachSent)

		stored, err := subjects.Get(ctx, rec.ID)
		require.NoError(t, err)
		app := stored.Applications["neg-1"]
		assert.Equal(t, models.SortingPassed, app.SortingStatus)
		assert.False(t, app.OutreachSent)
	})

	t.Run("stale target writes nothing", func(t *testing.T) {
		subjects := newTestSubjects(t)
		rec := createTestSubject(t, subjects)

		_, err := subjects.Update(ctx, rec.ID, func(r *models.SubjectRecord) error {
			r.SelectTarget("vac-2", "Data Engineer")
			return nil
		})
		require.NoError(t, err)

		scorer := &stubScorer{analysis: &models.Analysis{FinalScore: 85}}
		handler := NewHandler(testConfig(), subjects, scorer, &stubOutreach{}, &stubStateChanger{}, &stubIndexer{}, logger.NewTestLogger(t))

		_, err = handler.Execute(ctx, testInput(rec))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTargetChanged)
	})
}

func TestNewJobSnapshotsInputs(t *testing.T) {
	subjects := newTestSubjects(t)
	rec := createTestSubject(t, subjects)

	handler := NewHandler(testConfig(), subjects, &stubScorer{}, &stubOutreach{}, &stubStateChanger{}, &stubIndexer{}, logger.NewTestLogger(t))
	job := handler.NewJob(rec, rec.Applications["neg-1"])

	assert.Equal(t, "score-application_rep-1_neg-1", job.ID)
	assert.Equal(t, JobKind, job.Kind)
}
