// internal/workflow/stages_test.go
package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hireflow/internal/models"
)

func TestStagePrecondition(t *testing.T) {
	rec := models.NewSubjectRecord("rep-1", "rep", "Rita", "Perez", time.Now())

	assert.True(t, StagePrecondition(rec, StageConsent), "the first stage has no prerequisites")
	assert.False(t, StagePrecondition(rec, StageAuthenticated))
	assert.False(t, StagePrecondition(rec, StageSourcing))

	rec.ConsentGiven = true
	assert.True(t, StagePrecondition(rec, StageAuthenticated))
	assert.False(t, StagePrecondition(rec, StageTargetSelected))

	rec.Authenticated = true
	rec.TargetSelected = true
	rec.IntroRecorded = true
	rec.DescriptionFetched = true
	rec.CriteriaDerived = true
	assert.True(t, StagePrecondition(rec, StageSourcing))
}

func TestKnownStage(t *testing.T) {
	for _, stage := range StageOrder {
		assert.True(t, KnownStage(stage))
	}
	assert.False(t, KnownStage(Stage("nonsense")))
}

func TestReadyForScreening(t *testing.T) {
	rec := models.NewSubjectRecord("rep-1", "rep", "Rita", "Perez", time.Now())
	assert.False(t, ReadyForScreening(rec))

	rec.Authenticated = true
	rec.TargetSelected = true
	rec.DescriptionFetched = true
	rec.CriteriaDerived = true
	// The intro video is a subject-facing step, not screening data.
	assert.True(t, ReadyForScreening(rec))
}
