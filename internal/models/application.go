// internal/models/application.go
package models

// SortingStatus is the one-shot screening verdict for an application.
// It transitions new -> passed or new -> failed, exactly once.
type SortingStatus string

const (
	SortingNew    SortingStatus = "new"
	SortingPassed SortingStatus = "passed"
	SortingFailed SortingStatus = "failed"
)

// ApplicationRecord is one candidate application under a subject+target.
// Boolean flags move only false -> true, never back.
type ApplicationRecord struct {
	ID        string `json:"id"` // negotiation identifier from the HR system
	ResumeID  string `json:"resumeId"`
	TargetID  string `json:"targetId"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`

	DiscoveredAt string `json:"discoveredAt"`

	// Resume is the raw resume payload from the HR system, kept as-is
	// because its shape is owned by the external API.
	Resume map[string]interface{} `json:"resume,omitempty"`

	// Analysis is present only after AI screening completes.
	Analysis      *Analysis     `json:"analysis,omitempty"`
	SortingStatus SortingStatus `json:"sortingStatus"`

	OutreachSent  bool   `json:"outreachSent"`
	VideoReceived bool   `json:"videoReceived"`
	VideoPath     string `json:"videoPath,omitempty"`
	Recommended   bool   `json:"recommended"`
	Accepted      bool   `json:"accepted"`
}

// Retired reports whether the application is past screening: sorted and,
// when passed, already recommended.
func (a ApplicationRecord) Retired() bool {
	if a.SortingStatus == SortingFailed {
		return true
	}
	return a.SortingStatus == SortingPassed && a.Recommended
}

// Analysis is the AI scoring result for one application.
type Analysis struct {
	FinalScore  float64  `json:"finalScore"`
	Verdict     string   `json:"verdict,omitempty"`
	Strengths   []string `json:"strengths,omitempty"`
	Concerns    []string `json:"concerns,omitempty"`
	EvaluatedAt string   `json:"evaluatedAt"`
}
