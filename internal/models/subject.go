// internal/models/subject.go
package models

import (
	"fmt"
	"time"
)

// SubjectRecord is the persisted document for one recruiting representative.
// Stage flags are monotonic for a given (subject, target) pair: once true they
// are never reset, except by an explicit new-target selection which clears the
// downstream flags only.
type SubjectRecord struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	FirstSeenAt string `json:"firstSeenAt"`

	ConsentGiven bool   `json:"consentGiven"`
	ConsentAt    string `json:"consentAt,omitempty"`

	Authenticated        bool   `json:"authenticated"`
	AccessToken          string `json:"accessToken,omitempty"`
	AccessTokenExpiresAt string `json:"accessTokenExpiresAt,omitempty"`

	TargetSelected bool   `json:"targetSelected"`
	TargetID       string `json:"targetId,omitempty"`
	TargetName     string `json:"targetName,omitempty"`

	IntroRecorded  bool   `json:"introRecorded"`
	IntroVideoPath string `json:"introVideoPath,omitempty"`

	DescriptionFetched bool   `json:"descriptionFetched"`
	TargetDescription  string `json:"targetDescription,omitempty"`

	CriteriaDerived  bool     `json:"criteriaDerived"`
	SourcingCriteria []string `json:"sourcingCriteria,omitempty"`

	SourcingStarted bool `json:"sourcingStarted"`

	// ProfileData holds the verbatim payload from the external HR system.
	ProfileData map[string]interface{} `json:"profileData,omitempty"`

	// Applications are keyed by application ID; ApplicationOrder preserves
	// discovery order for the currently selected target.
	Applications     map[string]ApplicationRecord `json:"applications"`
	ApplicationOrder []string                     `json:"applicationOrder"`
}

// NewSubjectRecord creates a record for a subject seen for the first time,
// with every stage flag false.
func NewSubjectRecord(id, username, firstName, lastName string, now time.Time) *SubjectRecord {
	return &SubjectRecord{
		ID:               id,
		Username:         username,
		FirstName:        firstName,
		LastName:         lastName,
		FirstSeenAt:      now.UTC().Format(time.RFC3339),
		Applications:     map[string]ApplicationRecord{},
		ApplicationOrder: []string{},
	}
}

// SelectTarget records a new target and clears the flags downstream of
// target selection. Upstream flags (consent, authentication) are untouched.
func (r *SubjectRecord) SelectTarget(targetID, targetName string) {
	r.TargetSelected = true
	r.TargetID = targetID
	r.TargetName = targetName

	r.IntroRecorded = false
	r.IntroVideoPath = ""
	r.DescriptionFetched = false
	r.TargetDescription = ""
	r.CriteriaDerived = false
	r.SourcingCriteria = nil
	r.SourcingStarted = false
	r.Applications = map[string]ApplicationRecord{}
	r.ApplicationOrder = []string{}
}

// AddApplication appends a newly discovered application, preserving order.
// Adding an ID that already exists is a no-op.
func (r *SubjectRecord) AddApplication(app ApplicationRecord) bool {
	if r.Applications == nil {
		r.Applications = map[string]ApplicationRecord{}
	}
	if _, exists := r.Applications[app.ID]; exists {
		return false
	}
	r.Applications[app.ID] = app
	r.ApplicationOrder = append(r.ApplicationOrder, app.ID)
	return true
}

// ApplySorting records the one-shot screening verdict for one application.
// A second sort attempt fails; the flag invariants never allow passed/failed
// to change once set. Idempotent callers must check SortingStatus first.
func (r *SubjectRecord) ApplySorting(appID string, analysis *Analysis, passed bool) error {
	app, exists := r.Applications[appID]
	if !exists {
		return fmt.Errorf("application %s not found", appID)
	}
	if app.SortingStatus != SortingNew {
		return fmt.Errorf("application %s already sorted as %s", appID, app.SortingStatus)
	}
	app.Analysis = analysis
	if passed {
		app.SortingStatus = SortingPassed
	} else {
		app.SortingStatus = SortingFailed
	}
	r.Applications[appID] = app
	return nil
}

// MarkOutreachSent sets the outreach flag. Safe to call repeatedly.
func (r *SubjectRecord) MarkOutreachSent(appID string) error {
	app, exists := r.Applications[appID]
	if !exists {
		return fmt.Errorf("application %s not found", appID)
	}
	app.OutreachSent = true
	r.Applications[appID] = app
	return nil
}

// MarkVideoReceived sets the video flag and path. Safe to call repeatedly.
func (r *SubjectRecord) MarkVideoReceived(appID, path string) error {
	app, exists := r.Applications[appID]
	if !exists {
		return fmt.Errorf("application %s not found", appID)
	}
	app.VideoReceived = true
	app.VideoPath = path
	r.Applications[appID] = app
	return nil
}

// MarkRecommended sets the recommended flag. Safe to call repeatedly.
func (r *SubjectRecord) MarkRecommended(appID string) error {
	app, exists := r.Applications[appID]
	if !exists {
		return fmt.Errorf("application %s not found", appID)
	}
	app.Recommended = true
	r.Applications[appID] = app
	return nil
}

// MarkAccepted sets the accepted flag after the subject invites the
// candidate to an interview. Safe to call repeatedly.
func (r *SubjectRecord) MarkAccepted(appID string) error {
	app, exists := r.Applications[appID]
	if !exists {
		return fmt.Errorf("application %s not found", appID)
	}
	app.Accepted = true
	r.Applications[appID] = app
	return nil
}
