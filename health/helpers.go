package health

import (
	"fmt"
	"time"
)

// NewHealthy creates a new healthy status
func NewHealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   true,
		Status:    "healthy",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewDegraded creates a new degraded status
func NewDegraded(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   false,
		Status:    "degraded",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   false,
		Status:    "unhealthy",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Aggregate combines component statuses into one system status: any
// unhealthy component makes the system unhealthy; any degraded component
// (with none unhealthy) makes it degraded; otherwise healthy.
func Aggregate(systemName string, statuses []Status) Status {
	if len(statuses) == 0 {
		return NewHealthy(systemName, "no components monitored")
	}

	var degraded, unhealthy int
	for _, s := range statuses {
		switch {
		case s.IsUnhealthy():
			unhealthy++
		case s.IsDegraded():
			degraded++
		}
	}

	var agg Status
	switch {
	case unhealthy > 0:
		agg = NewUnhealthy(systemName, fmt.Sprintf("%d of %d components unhealthy", unhealthy, len(statuses)))
	case degraded > 0:
		agg = NewDegraded(systemName, fmt.Sprintf("%d of %d components degraded", degraded, len(statuses)))
	default:
		agg = NewHealthy(systemName, fmt.Sprintf("all %d components healthy", len(statuses)))
	}
	agg.SubStatuses = statuses
	return agg
}
