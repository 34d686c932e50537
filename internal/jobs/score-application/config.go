// internal/jobs/score-application/config.go
package scoreapplication

import "time"

type Config struct {
	// PassingScore is the minimum final score for a passed verdict.
	PassingScore float64
	// PassedState is the negotiation state pushed to the HR system for
	// passed candidates.
	PassedState string
	Timeout     time.Duration
}
