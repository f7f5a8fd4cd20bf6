package stage

import "context"

// Health summarizes whether a stage's collaborators are usable.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// FromError reports name as healthy when err is nil.
func FromError(name string, err error) Health {
	if err != nil {
		return Unhealthy(name, err.Error())
	}
	return Healthy(name)
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Probe runs dep's HealthCheck when it has one. Dependencies without a probe
// are reported ready when non-nil.
func Probe(ctx context.Context, name string, dep any) Health {
	if dep == nil {
		return Unhealthy(name, "not configured")
	}
	if checker, ok := dep.(healthChecker); ok {
		return FromError(name, checker.HealthCheck(ctx))
	}
	return Healthy(name)
}
