// pkg/registry/schema.go
package registry

// PipelineRegistry catalogs the background job kinds and sweep kinds the
// service runs, for operator tooling and the admin API.
type PipelineRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Jobs        []JobKind  `json:"jobs"`
	Sweeps      []SweepDef `json:"sweeps"`
}

type JobKind struct {
	Kind        string   `json:"kind"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Stage       string   `json:"stage,omitempty"`
	ErrorCodes  []string `json:"errorCodes,omitempty"`
	Timeout     string   `json:"timeout,omitempty"`
	Retries     int      `json:"retries,omitempty"`
}

type SweepDef struct {
	Kind        string `json:"kind"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Enqueues    string `json:"enqueues,omitempty"` // job kind this sweep feeds, if any
}
