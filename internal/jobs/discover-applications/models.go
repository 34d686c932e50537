// internal/jobs/discover-applications/models.go
package discoverapplications

// Input carries everything the job needs, captured when the job is built.
type Input struct {
	SubjectID   string `json:"subjectId"`
	TargetID    string `json:"targetId"`
	AccessToken string `json:"-"`
}

type Output struct {
	SubjectID  string `json:"subjectId"`
	Fetched    int    `json:"fetched"`
	Discovered int    `json:"discovered"`
}
