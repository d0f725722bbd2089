/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

// ServiceState tracks where a service is in its restore lifecycle. Each
// service walks the states independently; one service reaching
// StateUnhealthy never blocks the others.
type ServiceState string

const (
	StatePending        ServiceState = "PENDING"
	StatePreHook        ServiceState = "PRE_HOOK"
	StateStopped        ServiceState = "STOPPED"
	StateConfigRestored ServiceState = "CONFIG_RESTORED"
	StateImageRestored  ServiceState = "IMAGE_RESTORED"
	StateStarted        ServiceState = "STARTED"
	StateHealthChecking ServiceState = "HEALTH_CHECKING"
	StateHealthy        ServiceState = "HEALTHY"
	StateUnhealthy      ServiceState = "UNHEALTHY"
)

// Terminal reports whether the state ends the service's restore lifecycle.
func (s ServiceState) Terminal() bool {
	return s == StateHealthy || s == StateUnhealthy
}
