package llm

import (
	"github.com/kadirpekel/hector-core/pkg/registry"
)

// ServiceRegistry maps a configured service_id to its Gateway, per spec
// §6 ("A registry maps service_id -> LLM"). Mirrors the shape of
// teacher's pkg/llms.LLMRegistry, generalized from a single LLMProvider
// value to the gateway type built in this package.
type ServiceRegistry struct {
	base *registry.BaseRegistry[*Gateway]
}

// NewServiceRegistry creates an empty registry.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{base: registry.NewBaseRegistry[*Gateway]()}
}

// Register binds serviceID to gw. Re-registration under the same ID is
// rejected, matching the process-wide write-once-per-name registry
// pattern used for tools.
func (r *ServiceRegistry) Register(serviceID string, gw *Gateway) error {
	return r.base.Register(serviceID, gw)
}

// Get resolves a previously registered gateway.
func (r *ServiceRegistry) Get(serviceID string) (*Gateway, bool) {
	return r.base.Get(serviceID)
}
