// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadRegistry(path string) (*PipelineRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg PipelineRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// FindJob looks up one job kind by name.
func (r *PipelineRegistry) FindJob(kind string) (*JobKind, bool) {
	for i := range r.Jobs {
		if r.Jobs[i].Kind == kind {
			return &r.Jobs[i], true
		}
	}
	return nil, false
}

// Default returns the registry built into the binary, used when no registry
// file is deployed alongside it.
func Default() *PipelineRegistry {
	return &PipelineRegistry{
		Version: "1.0.0",
		Jobs: []JobKind{
			{
				Kind:        "derive-criteria",
				DisplayName: "Derive Screening Criteria",
				Description: "Asks the model which selection criteria matter for the subject's target posting",
				Stage:       "criteria-derived",
				ErrorCodes:  []string{"CRITERIA_DERIVATION_FAILED", "TARGET_CHANGED"},
			},
			{
				Kind:        "discover-applications",
				DisplayName: "Discover Applications",
				Description: "Pulls candidate responses for the subject's target from the HR platform",
				Stage:       "sourcing",
				ErrorCodes:  []string{"APPLICATION_DISCOVERY_FAILED", "TARGET_CHANGED"},
			},
			{
				Kind:        "score-application",
				DisplayName: "Score Application",
				Description: "Scores one resume against the derived criteria and records the verdict",
				ErrorCodes:  []string{"APPLICATION_SCORING_FAILED", "TARGET_CHANGED", "APPLICATION_ALREADY_SORTED"},
			},
		},
		Sweeps: []SweepDef{
			{Kind: "sourcing", DisplayName: "Sourcing Sweep", Description: "Starts application discovery for subjects with complete screening data", Enqueues: "discover-applications"},
			{Kind: "score-applications", DisplayName: "Screening Sweep", Description: "Queues a scoring job for every unsorted application", Enqueues: "score-application"},
			{Kind: "refresh-videos", DisplayName: "Video Refresh Sweep", Description: "Marks applications whose candidate videos have arrived"},
			{Kind: "recommend-candidates", DisplayName: "Recommendation Sweep", Description: "Delivers passed candidates with videos to their subjects"},
		},
	}
}
