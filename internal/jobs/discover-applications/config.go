// internal/jobs/discover-applications/config.go
package discoverapplications

import "time"

type Config struct {
	Timeout time.Duration
}
