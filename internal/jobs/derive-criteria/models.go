// internal/jobs/derive-criteria/models.go
package derivecriteria

// Input is snapshotted at enqueue time.
type Input struct {
	SubjectID   string `json:"subjectId"`
	TargetID    string `json:"targetId"`
	Description string `json:"description"`
}

type Output struct {
	SubjectID string   `json:"subjectId"`
	Criteria  []string `json:"criteria"`
	DerivedAt string   `json:"derivedAt"`
}
