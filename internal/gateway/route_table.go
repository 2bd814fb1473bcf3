package gateway

import "sync"

// RouteTable resolves opcodes to downstream services by opcode range,
// checked in insertion order so narrower, earlier-registered ranges take
// precedence over wider ones added later.
type RouteTable struct {
	mu     sync.Mutex
	routes []RouteEntry
}

// NewRouteTable returns an empty route table.
func NewRouteTable() *RouteTable {
	return &RouteTable{}
}

// AddRoute registers a route mapping an opcode range to a service.
func (t *RouteTable) AddRoute(opcodeMin, opcodeMax uint16, service string, requiresAuth bool) {
	t.AddRouteEntry(RouteEntry{
		OpcodeMin:    opcodeMin,
		OpcodeMax:    opcodeMax,
		Service:      service,
		RequiresAuth: requiresAuth,
	})
}

// AddRouteEntry registers a fully-specified route entry.
func (t *RouteTable) AddRouteEntry(entry RouteEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes = append(t.routes, entry)
}

// Resolve returns the first route whose range contains opcode, in
// insertion order, or false if none matches.
func (t *RouteTable) Resolve(opcode uint16) (RouteMatch, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, route := range t.routes {
		if opcode >= route.OpcodeMin && opcode <= route.OpcodeMax {
			return RouteMatch{Service: route.Service, RequiresAuth: route.RequiresAuth}, true
		}
	}
	return RouteMatch{}, false
}

// IsGatewayOpcode reports whether opcode falls in the reserved
// gateway-level range (0x0000-0x00FF).
func IsGatewayOpcode(opcode uint16) bool {
	return opcode <= gatewayOpcodeMax
}

// Routes returns a snapshot of all registered routes.
func (t *RouteTable) Routes() []RouteEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RouteEntry, len(t.routes))
	copy(out, t.routes)
	return out
}

// RemoveRoutesForService drops every route pointing at service.
func (t *RouteTable) RemoveRoutesForService(service string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.routes[:0]
	for _, route := range t.routes {
		if route.Service != service {
			kept = append(kept, route)
		}
	}
	t.routes = kept
}

// Clear removes all routes.
func (t *RouteTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes = nil
}
