package workpool

import (
	"log"

	"go.uber.org/automaxprocs/maxprocs"
)

// init adjusts GOMAXPROCS to match the container's CPU quota (cgroup v1/v2),
// rather than the host's full core count. This matters here specifically
// because RunWithWorkers's zero-value default worker count is
// runtime.GOMAXPROCS(0): without this adjustment, that default would be
// wrong (too high) in most containerized deployments.
func init() {
	if _, err := maxprocs.Set(maxprocs.Logger(log.Printf)); err != nil {
		// maxprocs.Set only fails to discover a quota (e.g. running on a
		// bare host, or an unsupported cgroup layout); GOMAXPROCS is left
		// at its runtime default in that case, which is the correct
		// fallback, so there's nothing further to do here.
		_ = err
	}
}
