package registry

// Service is the interface for all background services run by the agent.
type Service interface {
	Start() error
	Stop() error
}
