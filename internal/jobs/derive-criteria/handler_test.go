// internal/jobs/derive-criteria/handler_test.go
package derivecriteria

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

type stubDeriver struct {
	criteria []string
	err      error
	calls    int
}

func (s *stubDeriver) DeriveCriteria(ctx context.Context, description string) ([]string, error) {
	s.calls++
	return s.criteria, s.err
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

func createTestSubject(t *testing.T, subjects *statestore.Subjects, targetID string) *models.SubjectRecord {
	t.Helper()

	rec := models.NewSubjectRecord("rep-1", "rep", "Rita", "Perez", time.Now())
	rec.ConsentGiven = true
	rec.Authenticated = true
	rec.TargetSelected = true
	rec.TargetID = targetID
	rec.TargetName = "Backend Engineer"
	rec.DescriptionFetched = true
	rec.TargetDescription = "We need a backend engineer."

	created, err := subjects.Create(context.Background(), rec)
	require.NoError(t, err)
	require.True(t, created)
	return rec
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("writes derived criteria", func(t *testing.T) {
		subjects := newTestSubjects(t)
		rec := createTestSubject(t, subjects, "vac-1")

		deriver := &stubDeriver{criteria: []string{"go", "5 years backend"}}
		handler := NewHandler(&Config{Timeout: time.Minute}, subjects, deriver, logger.NewTestLogger(t))

		output, err := handler.Execute(ctx, &Input{
			SubjectID:   rec.ID,
			TargetID:    "vac-1",
			Description: rec.TargetDescription,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "5 years backend"}, output.Criteria)

		stored, err := subjects.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.True(t, stored.CriteriaDerived)
		assert.Equal(t, []string{"go", "5 years backend"}, stored.SourcingCriteria)
	})

	t.Run("deriver failure leaves record unchanged", func(t *testing.T) {
		subjects := newTestSubjects(t)
		rec := createTestSubject(t, subjects, "vac-1")

		deriver := &stubDeriver{err: errors.New("scorer down")}
		handler := NewHandler(&Config{Timeout: time.Minute}, subjects, deriver, logger.NewTestLogger(t))

		_, err := handler.Execute(ctx, &Input{SubjectID: rec.ID, TargetID: "vac-1"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCriteriaDerivationFailed)

		stored, err := subjects.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.False(t, stored.CriteriaDerived)
		assert.Nil(t, stored.SourcingCriteria)
	})

	t.Run("stale target writes nothing", func(t *testing.T) {
		subjects := newTestSubjects(t)
		rec := createTestSubject(t, subjects, "vac-2")

		deriver := &stubDeriver{criteria: []string{"irrelevant"}}
		handler := NewHandler(&Config{Timeout: time.Minute}, subjects, deriver, logger.NewTestLogger(t))

		// Job was enqueued for vac-1, but the subject switched to vac-2.
		_, err := handler.Execute(ctx, &Input{SubjectID: rec.ID, TargetID: "vac-1"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTargetChanged)

		stored, err := subjects.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.False(t, stored.CriteriaDerived)
	})

	t.Run("duplicate run keeps the first result", func(t *testing.T) {
		subjects := newTestSubjects(t)
		rec := createTestSubject(t, subjects, "vac-1")

		_, err := subjects.Update(ctx, rec.ID, func(r *models.SubjectRecord) error {
			r.CriteriaDerived = true
			r.SourcingCriteria = []string{"original"}
			return nil
		})
		require.NoError(t, err)

		deriver := &stubDeriver{criteria: []string{"replacement"}}
		handler := NewHandler(&Config{Timeout: time.Minute}, subjects, deriver, logger.NewTestLogger(t))

		_, err = handler.Execute(ctx, &Input{SubjectID: rec.ID, TargetID: "vac-1"})
		require.NoError(t, err)

		stored, err := subjects.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"original"}, stored.SourcingCriteria)
	})
}

func TestNewJobSnapshotsInputs(t *testing.T) {
	subjects := newTestSubjects(t)
	rec := createTestSubject(t, subjects, "vac-1")

	handler := NewHandler(&Config{}, subjects, &stubDeriver{}, logger.NewTestLogger(t))
	job := handler.NewJob(rec)

	assert.Equal(t, "derive-criteria_rep-1_vac-1", job.ID)
	assert.Equal(t, JobKind, job.Kind)
}
