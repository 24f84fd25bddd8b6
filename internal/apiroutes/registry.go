// Package apiroutes collects the endpoints each module registers so the
// server can serve a discovery listing under /api. Modules call Register
// from their RegisterRoutes hook.
package apiroutes

import (
	"sync"
)

// APIRoute describes one registered endpoint.
type APIRoute struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var (
	routeRegistry = make([]APIRoute, 0)
	registryMu    sync.RWMutex
)

// Register records an endpoint in the discovery listing.
func Register(path, method, description string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	routeRegistry = append(routeRegistry, APIRoute{
		Path:        path,
		Method:      method,
		Description: description,
	})
}

// Get returns a copy of every registered route, in registration order.
func Get() []APIRoute {
	registryMu.RLock()
	defer registryMu.RUnlock()
	registryCopy := make([]APIRoute, len(routeRegistry))
	copy(registryCopy, routeRegistry)
	return registryCopy
}

// ClearForTesting removes all registered routes. For use in tests only.
func ClearForTesting() {
	registryMu.Lock()
	defer registryMu.Unlock()
	routeRegistry = make([]APIRoute, 0)
}
