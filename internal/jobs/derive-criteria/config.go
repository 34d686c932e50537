// internal/jobs/derive-criteria/config.go
package derivecriteria

import "time"

type Config struct {
	Timeout time.Duration
}
