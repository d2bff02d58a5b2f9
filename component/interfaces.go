package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string         `json:"name"`
	Status  HealthStatus   `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Component is a long-lived part of the toolkit with an explicit start and
// stop, such as a dedicated worker dispatcher.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop shuts the component down, waiting for in-flight work until ctx
	// is done.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description is self-reported summary information.
type Description struct {
	// Name is the display name. If empty, the component's Name() is used.
	Name string
	// Kind categorizes the component, e.g. "pool" or "worker".
	Kind string
	// Details is a human-readable one-liner, e.g. "workers=256".
	Details string
}

// Describable is optionally implemented by Components to describe
// themselves in startup logs.
type Describable interface {
	Describe() Description
}
