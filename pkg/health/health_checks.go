package health

import (
	"context"
	"time"
)

// SimpleCheck returns a check that always reports healthy
func SimpleCheck(name string) CheckFunc {
	return func() Check {
		return Check{Name: name, Status: StatusHealthy}
	}
}

// LabelStoreCheck pings the label store with a bounded timeout
func LabelStoreCheck(ping func(ctx context.Context) error, timeout time.Duration) CheckFunc {
	return func() Check {
		check := Check{Name: "label_store"}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}
		return check
	}
}

// CycleCheck reports on the most recent maintenance cycle. A cycle that
// finished with a non-success status degrades health; no successful
// finish within maxAge makes it unhealthy.
func CycleCheck(state func() CycleState, maxAge time.Duration) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "maintenance_cycle",
			Details: make(map[string]any),
		}

		s := state()
		if !s.Ran {
			check.Status = StatusHealthy
			check.Message = "No cycle has run yet"
			return check
		}

		age := time.Since(s.FinishedAt)
		check.Details["status"] = s.Status
		check.Details["age_seconds"] = age.Seconds()
		check.Details["unresolved_nodes"] = s.Unresolved

		switch {
		case maxAge > 0 && age > maxAge:
			check.Status = StatusUnhealthy
			check.Message = "Last cycle is stale"
		case !s.Healthy:
			check.Status = StatusDegraded
			check.Message = "Last cycle finished with " + s.Status
		default:
			check.Status = StatusHealthy
			check.Message = "Last cycle succeeded"
		}
		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()
		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		if sys > 0 && float64(alloc)/float64(sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}
