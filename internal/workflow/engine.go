// internal/workflow/engine.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	stderrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/metrics"
	"hireflow/internal/models"
	"hireflow/internal/statestore"
	"hireflow/internal/taskqueue"
)

// errTokenPending is returned by one authorization poll attempt when the
// subject has not completed authorization yet.
var errTokenPending = errors.New("TOKEN_PENDING")

// TokenSource checks whether the external HR system has issued an access
// token for a subject.
type TokenSource interface {
	Status(ctx context.Context, subjectID string) (token string, expiresAt string, issued bool, err error)
}

// Fetcher is the external HR-system client as seen by the engine.
type Fetcher interface {
	Profile(ctx context.Context, token string) (map[string]interface{}, error)
	OpenTargets(ctx context.Context, token string) ([]models.Target, error)
	TargetDescription(ctx context.Context, token, targetID string) (string, error)
}

// Notifier is the fire-and-forget notification sink. Failures are logged by
// implementations, never fatal to the caller.
type Notifier interface {
	NotifySubject(ctx context.Context, subjectID, message string) error
	NotifyOperator(ctx context.Context, message string) error
}

// Auditor records completed transitions for offline inspection.
type Auditor interface {
	RecordAdvance(ctx context.Context, subjectID string, stage, outcome string) error
}

// JobBuilder constructs the queued unit of work for one asynchronous stage,
// closing over inputs snapshotted from the record at build time.
type JobBuilder func(rec *models.SubjectRecord) taskqueue.Job

// StageJobs holds the builders for the funnel's asynchronous stages.
type StageJobs struct {
	DeriveCriteria       JobBuilder
	DiscoverApplications JobBuilder
}

// Config bounds the engine's retry behavior and media validation.
type Config struct {
	AuthPoll        RetryPolicy
	UpdateRetry     RetryPolicy
	MaxVideoSeconds int
	MaxVideoBytes   int64
}

// AdvanceInput carries the stage-specific inputs of one advance call.
// It is a request-scoped value, never retained by the engine.
type AdvanceInput struct {
	TargetID     string
	TargetName   string
	VideoPath    string
	VideoSeconds int
	VideoBytes   int64
}

// Result reports the outcome of one advance.
type Result struct {
	Stage       Stage
	AlreadyDone bool
	Queued      bool
	JobID       string
	Record      *models.SubjectRecord
}

type Engine struct {
	config   *Config
	subjects *statestore.Subjects
	queue    *taskqueue.Queue
	tokens   TokenSource
	fetcher  Fetcher
	notifier Notifier
	audit    Auditor
	jobs     StageJobs
	logger   logger.Logger
	clock    Clock
}

func NewEngine(
	config *Config,
	subjects *statestore.Subjects,
	queue *taskqueue.Queue,
	tokens TokenSource,
	fetcher Fetcher,
	notifier Notifier,
	audit Auditor,
	jobs StageJobs,
	log logger.Logger,
) *Engine {
	return &Engine{
		config:   config,
		subjects: subjects,
		queue:    queue,
		tokens:   tokens,
		fetcher:  fetcher,
		notifier: notifier,
		audit:    audit,
		jobs:     jobs,
		logger:   log.WithFields(map[string]interface{}{"component": "workflow"}),
		clock:    realClock{},
	}
}

// WithClock swaps the engine's timer source, for tests.
func (e *Engine) WithClock(c Clock) *Engine {
	e.clock = c
	return e
}

// Subjects exposes the typed record store for callers that own their own
// record mutations (jobs, sweeps).
func (e *Engine) Subjects() *statestore.Subjects {
	return e.subjects
}

// Register creates the record for a subject seen for the first time.
// Registering an existing subject is a no-op.
func (e *Engine) Register(ctx context.Context, id, username, firstName, lastName string) (*models.SubjectRecord, error) {
	rec := models.NewSubjectRecord(id, username, firstName, lastName, e.clock.Now())
	created, err := e.subjects.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !created {
		return e.subjects.Get(ctx, id)
	}
	e.logger.Info("subject registered", map[string]interface{}{"subjectId": id})
	return rec, nil
}

// Precondition reports whether the subject's current record satisfies
// everything upstream of the stage. Always a fresh fetch.
func (e *Engine) Precondition(ctx context.Context, subjectID string, stage Stage) (bool, error) {
	rec, err := e.subjects.Get(ctx, subjectID)
	if err != nil {
		return false, err
	}
	return StagePrecondition(rec, stage), nil
}

// Advance moves the subject through one funnel stage. Calling it for a stage
// whose flag is already set is a safe no-op returning success without
// repeating the side effect. A stage whose precondition does not hold returns
// InvalidTransition with no flags changed. When the side effect fails, the
// flag stays false. When the side effect succeeds but the store write fails,
// the write is retried with the already-fetched result before giving up.
func (e *Engine) Advance(ctx context.Context, subjectID string, stage Stage, input AdvanceInput) (*Result, error) {
	if !KnownStage(stage) {
		return nil, stderrors.NewInvalidTransitionError(subjectID, string(stage), "unknown stage")
	}

	rec, err := e.subjects.Get(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	if StageDone(rec, stage) {
		metrics.StageAdvances.WithLabelValues(string(stage), "noop").Inc()
		return &Result{Stage: stage, AlreadyDone: true, Record: rec}, nil
	}

	if !StagePrecondition(rec, stage) {
		metrics.StageAdvances.WithLabelValues(string(stage), "invalid").Inc()
		e.logger.Warn("advance called with unmet precondition", map[string]interface{}{
			"subjectId": subjectID,
			"stage":     string(stage),
		})
		return nil, stderrors.NewInvalidTransitionError(subjectID, string(stage), "upstream stage incomplete")
	}

	result, err := e.advance(ctx, rec, stage, input)
	if err != nil {
		metrics.StageAdvances.WithLabelValues(string(stage), "failed").Inc()
		e.notifyOperator(ctx, fmt.Sprintf("advance %s failed for subject %s: %v", stage, subjectID, err))
		return nil, err
	}

	outcome := "advanced"
	if result.Queued {
		outcome = "queued"
	}
	metrics.StageAdvances.WithLabelValues(string(stage), outcome).Inc()
	e.recordAudit(ctx, subjectID, stage, outcome)
	return result, nil
}

func (e *Engine) advance(ctx context.Context, rec *models.SubjectRecord, stage Stage, input AdvanceInput) (*Result, error) {
	switch stage {
	case StageConsent:
		return e.advanceConsent(ctx, rec)
	case StageAuthenticated:
		return e.advanceAuthenticated(ctx, rec)
	case StageTargetSelected:
		return e.advanceTargetSelected(ctx, rec, input)
	case StageIntroRecorded:
		return e.advanceIntroRecorded(ctx, rec, input)
	case StageDescriptionFetched:
		return e.advanceDescriptionFetched(ctx, rec)
	case StageCriteriaDerived:
		return e.enqueueStageJob(rec, stage, e.jobs.DeriveCriteria)
	case StageSourcing:
		return e.enqueueStageJob(rec, stage, e.jobs.DiscoverApplications)
	default:
		return nil, stderrors.NewInvalidTransitionError(rec.ID, string(stage), "unknown stage")
	}
}

func (e *Engine) advanceConsent(ctx context.Context, rec *models.SubjectRecord) (*Result, error) {
	now := e.clock.Now().UTC().Format(time.RFC3339)
	updated, err := e.updateWithRetry(ctx, rec.ID, func(r *models.SubjectRecord) error {
		r.ConsentGiven = true
		r.ConsentAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Stage: StageConsent, Record: updated}, nil
}

// advanceAuthenticated polls the token endpoint on a fixed interval until the
// subject completes authorization or the attempt budget runs out. The poll
// never retries indefinitely.
func (e *Engine) advanceAuthenticated(ctx context.Context, rec *models.SubjectRecord) (*Result, error) {
	var token, expiresAt string

	err := e.config.AuthPoll.Do(ctx, "authorization poll", func(ctx context.Context) error {
		tok, exp, issued, err := e.tokens.Status(ctx, rec.ID)
		if err != nil {
			return Permanent(stderrors.NewUnavailableError("token endpoint", err))
		}
		if !issued {
			return errTokenPending
		}
		token, expiresAt = tok, exp
		return nil
	})
	if err != nil {
		if errors.Is(err, errTokenPending) {
			return nil, stderrors.NewAuthPollExceededError(rec.ID, e.config.AuthPoll.MaxAttempts)
		}
		return nil, err
	}

	profile, err := e.fetcher.Profile(ctx, token)
	if err != nil {
		return nil, err
	}

	updated, err := e.updateWithRetry(ctx, rec.ID, func(r *models.SubjectRecord) error {
		r.Authenticated = true
		r.AccessToken = token
		r.AccessTokenExpiresAt = expiresAt
		r.ProfileData = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Stage: StageAuthenticated, Record: updated}, nil
}

func (e *Engine) advanceTargetSelected(ctx context.Context, rec *models.SubjectRecord, input AdvanceInput) (*Result, error) {
	if input.TargetID == "" {
		return nil, stderrors.NewValidationFailedError("targetId is required")
	}

	targets, err := e.fetcher.OpenTargets(ctx, rec.AccessToken)
	if err != nil {
		return nil, err
	}

	var selected *models.Target
	for i := range targets {
		if targets[i].ID == input.TargetID && targets[i].Open {
			selected = &targets[i]
			break
		}
	}
	if selected == nil {
		return nil, stderrors.NewValidationFailedError(fmt.Sprintf("target %s is not an open target", input.TargetID))
	}

	updated, err := e.updateWithRetry(ctx, rec.ID, func(r *models.SubjectRecord) error {
		r.SelectTarget(selected.ID, selected.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Stage: StageTargetSelected, Record: updated}, nil
}

func (e *Engine) advanceIntroRecorded(ctx context.Context, rec *models.SubjectRecord, input AdvanceInput) (*Result, error) {
	if input.VideoSeconds > e.config.MaxVideoSeconds {
		return nil, stderrors.NewValidationFailedError(
			fmt.Sprintf("video duration %ds exceeds the %ds limit", input.VideoSeconds, e.config.MaxVideoSeconds))
	}
	if input.VideoBytes > e.config.MaxVideoBytes {
		return nil, stderrors.NewValidationFailedError(
			fmt.Sprintf("video size %d bytes exceeds the %d byte limit", input.VideoBytes, e.config.MaxVideoBytes))
	}

	updated, err := e.updateWithRetry(ctx, rec.ID, func(r *models.SubjectRecord) error {
		r.IntroRecorded = true
		r.IntroVideoPath = input.VideoPath
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Stage: StageIntroRecorded, Record: updated}, nil
}

func (e *Engine) advanceDescriptionFetched(ctx context.Context, rec *models.SubjectRecord) (*Result, error) {
	description, err := e.fetcher.TargetDescription(ctx, rec.AccessToken, rec.TargetID)
	if err != nil {
		return nil, err
	}

	updated, err := e.updateWithRetry(ctx, rec.ID, func(r *models.SubjectRecord) error {
		r.DescriptionFetched = true
		r.TargetDescription = description
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Stage: StageDescriptionFetched, Record: updated}, nil
}

// enqueueStageJob submits the asynchronous work for a stage. The stage flag
// is set by the job itself once its result is written back; until then the
// stage reads as incomplete and a re-invoked advance re-enqueues, which is
// safe because the job re-checks the record before writing.
func (e *Engine) enqueueStageJob(rec *models.SubjectRecord, stage Stage, build JobBuilder) (*Result, error) {
	if build == nil {
		return nil, stderrors.NewInvalidTransitionError(rec.ID, string(stage), "no job wired for stage")
	}

	job := build(rec)
	if err := e.queue.TrySubmit(job); err != nil {
		return nil, err
	}

	e.logger.Info("stage job enqueued", map[string]interface{}{
		"subjectId": rec.ID,
		"stage":     string(stage),
		"jobId":     job.ID,
	})
	return &Result{Stage: stage, Queued: true, JobID: job.ID, Record: rec}, nil
}

// updateWithRetry persists a mutation, retrying transient store failures so
// an already-performed external side effect is not repeated.
func (e *Engine) updateWithRetry(ctx context.Context, subjectID string, mutate func(*models.SubjectRecord) error) (*models.SubjectRecord, error) {
	var updated *models.SubjectRecord
	err := e.config.UpdateRetry.Do(ctx, "state update", func(ctx context.Context) error {
		rec, err := e.subjects.Update(ctx, subjectID, mutate)
		if err != nil {
			if stderrors.IsStorageIO(err) {
				return err
			}
			return Permanent(err)
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (e *Engine) notifyOperator(ctx context.Context, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyOperator(ctx, message); err != nil {
		e.logger.Warn("operator notification failed", map[string]interface{}{"error": err.Error()})
	}
}

func (e *Engine) recordAudit(ctx context.Context, subjectID string, stage Stage, outcome string) {
	if e.audit == nil {
		return
	}
	if err := e.audit.RecordAdvance(ctx, subjectID, string(stage), outcome); err != nil {
		e.logger.Warn("audit write failed", map[string]interface{}{
			"subjectId": subjectID,
			"stage":     string(stage),
			"error":     err.Error(),
		})
	}
}
