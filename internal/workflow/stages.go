// internal/workflow/stages.go

// Package workflow models the recruiting funnel as an ordered sequence of
// stages over persisted subject records. Every advance is idempotent and
// gated by a pure precondition over the current record.
package workflow

import "hireflow/internal/models"

// Stage is one step of the subject funnel, in funnel order.
type Stage string

const (
	StageConsent            Stage = "consent"
	StageAuthenticated      Stage = "authenticated"
	StageTargetSelected     Stage = "target-selected"
	StageIntroRecorded      Stage = "intro-recorded"
	StageDescriptionFetched Stage = "description-fetched"
	StageCriteriaDerived    Stage = "criteria-derived"
	StageSourcing           Stage = "sourcing"
)

// StageOrder lists the subject funnel stages in order.
var StageOrder = []Stage{
	StageConsent,
	StageAuthenticated,
	StageTargetSelected,
	StageIntroRecorded,
	StageDescriptionFetched,
	StageCriteriaDerived,
	StageSourcing,
}

// KnownStage reports whether s names a subject funnel stage.
func KnownStage(s Stage) bool {
	for _, stage := range StageOrder {
		if stage == s {
			return true
		}
	}
	return false
}

// StageDone reports whether the record's flag for the stage is already set.
// Pure function of the record, no I/O.
func StageDone(rec *models.SubjectRecord, stage Stage) bool {
	switch stage {
	case StageConsent:
		return rec.ConsentGiven
	case StageAuthenticated:
		return rec.Authenticated
	case StageTargetSelected:
		return rec.TargetSelected
	case StageIntroRecorded:
		return rec.IntroRecorded
	case StageDescriptionFetched:
		return rec.DescriptionFetched
	case StageCriteriaDerived:
		return rec.CriteriaDerived
	case StageSourcing:
		return rec.SourcingStarted
	default:
		return false
	}
}

// StagePrecondition reports whether the record satisfies everything upstream
// of the stage. Pure function of the record, no I/O.
func StagePrecondition(rec *models.SubjectRecord, stage Stage) bool {
	for _, prior := range StageOrder {
		if prior == stage {
			return true
		}
		if !StageDone(rec, prior) {
			return false
		}
	}
	return false
}

// ReadyForScreening reports whether a subject has enough upstream state for
// application discovery and AI screening to run against its target.
func ReadyForScreening(rec *models.SubjectRecord) bool {
	return rec.Authenticated &&
		rec.TargetSelected &&
		rec.DescriptionFetched &&
		rec.CriteriaDerived
}
