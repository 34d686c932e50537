// internal/jobs/score-application/models.go
package scoreapplication

// Input carries everything the job needs, captured when the job is built.
// The criteria and description are snapshotted so a target switch after
// enqueue cannot change what this application is judged against.
type Input struct {
	SubjectID     string                 `json:"subjectId"`
	ApplicationID string                 `json:"applicationId"`
	ResumeID      string                 `json:"resumeId"`
	TargetID      string                 `json:"targetId"`
	Description   string                 `json:"description"`
	Criteria      []string               `json:"criteria"`
	Email         string                 `json:"email,omitempty"`
	Phone         string                 `json:"phone,omitempty"`
	FirstName     string                 `json:"firstName,omitempty"`
	Resume        map[string]interface{} `json:"resume,omitempty"`
	AccessToken   string                 `json:"-"`
}

type Output struct {
	SubjectID     string  `json:"subjectId"`
	ApplicationID string  `json:"applicationId"`
	Score         float64 `json:"score"`
	Passed        bool    `json:"passed"`
	OutreachSent  bool    `json:"outreachSent"`
	Skipped       bool    `json:"skipped"`
}
