// internal/models/target.go
package models

// Target is one job opening exposed by the external HR system.
type Target struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Open        bool                   `json:"open"`
	Raw         map[string]interface{} `json:"raw,omitempty"`
}

// Negotiation is one raw candidate response as returned by the HR system,
// before it becomes an ApplicationRecord.
type Negotiation struct {
	ID        string                 `json:"id"`
	ResumeID  string                 `json:"resumeId"`
	TargetID  string                 `json:"targetId"`
	FirstName string                 `json:"firstName,omitempty"`
	LastName  string                 `json:"lastName,omitempty"`
	Phone     string                 `json:"phone,omitempty"`
	Email     string                 `json:"email,omitempty"`
	Resume    map[string]interface{} `json:"resume,omitempty"`
}
